package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/meridian-hr/be-pf-requests/internal/access"
	"github.com/meridian-hr/be-pf-requests/internal/apperr"
	"github.com/meridian-hr/be-pf-requests/internal/repository"
	"github.com/meridian-hr/be-pf-requests/internal/service"
)

// Actor identity headers set by the platform gateway after authentication.
const (
	actorIDHeader    = "X-Actor-Id"
	actorRolesHeader = "X-Actor-Roles"
)

// HTTPHandler maps HTTP requests onto lifecycle engine operations.
type HTTPHandler struct {
	service  *service.LifecycleService
	validate *validator.Validate
	log      zerolog.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(svc *service.LifecycleService, log zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		service:  svc,
		validate: validator.New(),
		log:      log,
	}
}

// ── request payloads ──────────────────────────────────────────────────────────

type createRequestPayload struct {
	EmployeeID string  `json:"employee_id" validate:"required"`
	Type       string  `json:"type" validate:"required"`
	Amount     int64   `json:"amount" validate:"required,gt=0"`
	Purpose    *string `json:"purpose"`
}

type requestActionPayload struct {
	ID      string  `json:"id" validate:"required"`
	Remarks *string `json:"remarks"`
}

type decidePayload struct {
	ID       string  `json:"id" validate:"required"`
	Decision string  `json:"decision" validate:"required,oneof=approved rejected"`
	Comments *string `json:"comments"`
}

type releasePayload struct {
	ID               string `json:"id" validate:"required"`
	PaymentReference string `json:"payment_reference" validate:"required"`
}

// ── handlers ──────────────────────────────────────────────────────────────────

// CreateRequest handles POST /api/v1/requests.
func (h *HTTPHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var payload createRequestPayload
	if !h.decode(w, r, &payload) {
		return
	}

	req, err := h.service.CreateRequest(r.Context(), &service.CreateRequestInput{
		EmployeeID: payload.EmployeeID,
		Type:       repository.RequestType(payload.Type),
		Amount:     payload.Amount,
		Purpose:    payload.Purpose,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, req)
}

// GetRequest handles GET /api/v1/requests/get?id=.
func (h *HTTPHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, apperr.InvalidInput("id", "request id is required"))
		return
	}

	req, err := h.service.GetRequest(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, req)
}

// GetHistory handles GET /api/v1/requests/history?id=.
func (h *HTTPHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, apperr.InvalidInput("id", "request id is required"))
		return
	}

	entries, err := h.service.GetHistory(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// GetAccess handles GET /api/v1/requests/access?id=.
func (h *HTTPHandler) GetAccess(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, apperr.InvalidInput("id", "request id is required"))
		return
	}

	grants, err := h.service.GetAccess(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, grants)
}

// ListRequests handles GET /api/v1/requests.
func (h *HTTPHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	filter := repository.RequestFilter{}

	if v := r.URL.Query().Get("status"); v != "" {
		status := repository.Status(v)
		filter.Status = &status
	}
	if v := r.URL.Query().Get("search"); v != "" {
		filter.Search = &v
	}
	if v := r.URL.Query().Get("from_date"); v != "" {
		filter.FromDate = &v
	}
	if v := r.URL.Query().Get("to_date"); v != "" {
		filter.ToDate = &v
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	requests, total, err := h.service.ListRequests(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"requests":  requests,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// MarkReady handles POST /api/v1/requests/mark-ready.
func (h *HTTPHandler) MarkReady(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(actor access.Actor, p requestActionPayload) (*repository.Request, error) {
		return h.service.MarkReady(r.Context(), actor, p.ID)
	})
}

// MarkIncomplete handles POST /api/v1/requests/mark-incomplete.
func (h *HTTPHandler) MarkIncomplete(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(actor access.Actor, p requestActionPayload) (*repository.Request, error) {
		remarks := ""
		if p.Remarks != nil {
			remarks = *p.Remarks
		}
		return h.service.MarkIncomplete(r.Context(), actor, p.ID, remarks)
	})
}

// MoveToReview handles POST /api/v1/requests/move-to-review.
func (h *HTTPHandler) MoveToReview(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(actor access.Actor, p requestActionPayload) (*repository.Request, error) {
		return h.service.MoveToReview(r.Context(), actor, p.ID)
	})
}

// Decide handles POST /api/v1/requests/decide.
func (h *HTTPHandler) Decide(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var payload decidePayload
	if !h.decode(w, r, &payload) {
		return
	}

	req, err := h.service.Decide(r.Context(), actor, payload.ID, service.Decision(payload.Decision), payload.Comments)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, req)
}

// Release handles POST /api/v1/requests/release.
func (h *HTTPHandler) Release(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var payload releasePayload
	if !h.decode(w, r, &payload) {
		return
	}

	req, err := h.service.Release(r.Context(), actor, payload.ID, payload.PaymentReference)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, req)
}

// Cancel handles POST /api/v1/requests/cancel.
func (h *HTTPHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(actor access.Actor, p requestActionPayload) (*repository.Request, error) {
		return h.service.Cancel(r.Context(), actor, p.ID, p.Remarks)
	})
}

// Resubmit handles POST /api/v1/requests/resubmit.
func (h *HTTPHandler) Resubmit(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(actor access.Actor, p requestActionPayload) (*repository.Request, error) {
		return h.service.Resubmit(r.Context(), actor, p.ID)
	})
}

// ── helpers ───────────────────────────────────────────────────────────────────

// mutate is the shared shape of the simple id+remarks operations.
func (h *HTTPHandler) mutate(w http.ResponseWriter, r *http.Request, fn func(access.Actor, requestActionPayload) (*repository.Request, error)) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var payload requestActionPayload
	if !h.decode(w, r, &payload) {
		return
	}

	req, err := fn(actor, payload)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, req)
}

// actor extracts the authenticated caller from the gateway headers.
func (h *HTTPHandler) actor(w http.ResponseWriter, r *http.Request) (access.Actor, bool) {
	id := r.Header.Get(actorIDHeader)
	if id == "" {
		h.writeError(w, apperr.Unauthorized("missing actor identity"))
		return access.Actor{}, false
	}

	var roles []access.Role
	if raw := r.Header.Get(actorRolesHeader); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if role := strings.TrimSpace(part); role != "" {
				roles = append(roles, access.Role(role))
			}
		}
	}

	return access.Actor{ID: id, Roles: roles}, true
}

func (h *HTTPHandler) decode(w http.ResponseWriter, r *http.Request, payload any) bool {
	if err := json.NewDecoder(r.Body).Decode(payload); err != nil {
		h.writeError(w, apperr.New(apperr.ErrCodeValidation, "invalid request body"))
		return false
	}
	if err := h.validate.Struct(payload); err != nil {
		h.writeError(w, apperr.Wrap(err, apperr.ErrCodeValidation, "request validation failed"))
		return false
	}
	return true
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Warn().Err(err).Msg("Failed to encode response body")
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":  string(apperr.CodeOf(err)),
		"error": apperr.MessageOf(err),
	})
}
