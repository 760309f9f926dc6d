package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meridian-hr/be-pf-requests/internal/access"
	"github.com/meridian-hr/be-pf-requests/internal/apperr"
	"github.com/meridian-hr/be-pf-requests/internal/repository"
)

// RequestStore is the durable home of Request rows. Transition must apply
// its update as a single compare-and-set conditioned on the current status,
// returning a CONFLICT error when the precondition no longer holds.
type RequestStore interface {
	Create(ctx context.Context, req *repository.Request) error
	GetByID(ctx context.Context, id string) (*repository.Request, error)
	List(ctx context.Context, filter repository.RequestFilter) ([]*repository.Request, int64, error)
	Transition(ctx context.Context, id string, upd repository.TransitionUpdate) (*repository.Request, error)
}

// HistoryStore is the append-only transition log. No update or delete exists.
type HistoryStore interface {
	Append(ctx context.Context, entry *repository.HistoryEntry) error
	GetByRequestID(ctx context.Context, requestID string) ([]*repository.HistoryEntry, error)
}

// Notifier delivers best-effort transition notifications. Implementations
// swallow and log their own failures; nothing they do may affect the outcome
// of an already-committed transition.
type Notifier interface {
	PublishRequestEvent(ctx context.Context, eventType string, req *repository.Request, actorID string)
}

// LifecycleService validates and applies request state transitions. It
// re-resolves the actor's capabilities against freshly read state immediately
// before every conditional write, so a stale UI permission check can never be
// exercised against a request that has since moved on.
type LifecycleService struct {
	store    RequestStore
	history  HistoryStore
	notifier Notifier
	log      zerolog.Logger
}

// NewLifecycleService creates a new LifecycleService. notifier may be nil.
func NewLifecycleService(store RequestStore, history HistoryStore, notifier Notifier, log zerolog.Logger) *LifecycleService {
	return &LifecycleService{
		store:    store,
		history:  history,
		notifier: notifier,
		log:      log,
	}
}

// Decision is the outcome of an officer review.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// ── transition table ──────────────────────────────────────────────────────────

// operation is one row of the transition table: the states it may fire from,
// the single state it lands in, and the capability that gates it.
type operation struct {
	name    string
	action  string // history entry label
	sources []repository.Status
	target  repository.Status
	capName string
	allowed func(access.CapabilitySet) bool
	event   string // notification event type
}

var (
	opMarkReady = operation{
		name:    "markReady",
		action:  "Marked ready for review",
		sources: []repository.Status{repository.StatusSubmitted},
		target:  repository.StatusReadyForReview,
		capName: "canMarkReady",
		allowed: func(c access.CapabilitySet) bool { return c.CanMarkReady },
		event:   "request_ready_for_review",
	}
	opMarkIncomplete = operation{
		name:    "markIncomplete",
		action:  "Marked incomplete",
		sources: []repository.Status{repository.StatusSubmitted},
		target:  repository.StatusIncomplete,
		capName: "canMarkIncomplete",
		allowed: func(c access.CapabilitySet) bool { return c.CanMarkIncomplete },
		event:   "request_incomplete",
	}
	opMoveToReview = operation{
		name:    "moveToReview",
		action:  "Moved to officer review",
		sources: []repository.Status{repository.StatusReadyForReview},
		target:  repository.StatusOfficerReview,
		capName: "canMoveToReview",
		allowed: func(c access.CapabilitySet) bool { return c.CanMoveToReview },
		event:   "request_in_review",
	}
	opApprove = operation{
		name:    "decide",
		action:  "Approved",
		sources: []repository.Status{repository.StatusOfficerReview},
		target:  repository.StatusApproved,
		capName: "canApprove",
		allowed: func(c access.CapabilitySet) bool { return c.CanApprove },
		event:   "request_approved",
	}
	opReject = operation{
		name:    "decide",
		action:  "Rejected",
		sources: []repository.Status{repository.StatusOfficerReview},
		target:  repository.StatusRejected,
		capName: "canApprove",
		allowed: func(c access.CapabilitySet) bool { return c.CanApprove },
		event:   "request_rejected",
	}
	opRelease = operation{
		name:    "release",
		action:  "Released",
		sources: []repository.Status{repository.StatusApproved},
		target:  repository.StatusReleased,
		capName: "canRelease",
		allowed: func(c access.CapabilitySet) bool { return c.CanRelease },
		event:   "request_released",
	}
	opCancel = operation{
		name: "cancel",
		action: "Cancelled",
		sources: []repository.Status{
			repository.StatusSubmitted,
			repository.StatusIncomplete,
			repository.StatusReadyForReview,
			repository.StatusOfficerReview,
		},
		target:  repository.StatusCancelled,
		capName: "canCancel",
		allowed: func(c access.CapabilitySet) bool { return c.CanCancel },
		event:   "request_cancelled",
	}
	opResubmit = operation{
		name:    "resubmit",
		action:  "Resubmitted",
		sources: []repository.Status{repository.StatusIncomplete},
		target:  repository.StatusSubmitted,
		capName: "canResubmit",
		allowed: func(c access.CapabilitySet) bool { return c.CanResubmit },
		event:   "request_resubmitted",
	}
)

// ── request creation ──────────────────────────────────────────────────────────

// CreateRequestInput is a request filed by an employee.
type CreateRequestInput struct {
	EmployeeID string
	Type       repository.RequestType
	Amount     int64
	Purpose    *string
}

// CreateRequest files a new request in status submitted.
func (s *LifecycleService) CreateRequest(ctx context.Context, in *CreateRequestInput) (*repository.Request, error) {
	if strings.TrimSpace(in.EmployeeID) == "" {
		return nil, apperr.InvalidInput("employee_id", "employee id is required")
	}
	if !in.Type.Valid() {
		return nil, apperr.InvalidInput("type", fmt.Sprintf("unknown request type '%s'", in.Type))
	}
	if in.Amount <= 0 {
		return nil, apperr.InvalidInput("amount", "amount must be positive")
	}

	req := &repository.Request{
		ID:         uuid.NewString(),
		EmployeeID: in.EmployeeID,
		Type:       in.Type,
		Amount:     in.Amount,
		Purpose:    in.Purpose,
		Status:     repository.StatusSubmitted,
	}

	if err := s.store.Create(ctx, req); err != nil {
		return nil, err
	}

	s.appendHistory(ctx, req.ID, "Submitted", in.EmployeeID, nil)
	s.publish(ctx, "request_submitted", req, in.EmployeeID)

	s.log.Info().
		Str("request_id", req.ID).
		Str("employee_id", req.EmployeeID).
		Str("type", string(req.Type)).
		Int64("amount", req.Amount).
		Msg("Request created")

	return req, nil
}

// ── lifecycle operations ──────────────────────────────────────────────────────

// MarkReady confirms the documents are complete and hands the request to the
// reviewing officer queue. The acting assistant claims an unassigned slot.
func (s *LifecycleService) MarkReady(ctx context.Context, actor access.Actor, requestID string) (*repository.Request, error) {
	return s.apply(ctx, actor, requestID, opMarkReady, nil, nil, claimAssistant)
}

// MarkIncomplete returns the request to the employee for correction.
// Remarks explaining what is missing are required.
func (s *LifecycleService) MarkIncomplete(ctx context.Context, actor access.Actor, requestID, remarks string) (*repository.Request, error) {
	validate := func(*repository.Request) error {
		if strings.TrimSpace(remarks) == "" {
			return apperr.InvalidInput("remarks", "remarks are required when marking a request incomplete")
		}
		return nil
	}
	return s.apply(ctx, actor, requestID, opMarkIncomplete, &remarks, validate, claimAssistant)
}

// MoveToReview hands the request off to a reviewing officer.
func (s *LifecycleService) MoveToReview(ctx context.Context, actor access.Actor, requestID string) (*repository.Request, error) {
	return s.apply(ctx, actor, requestID, opMoveToReview, nil, nil, claimOfficer)
}

// Decide records the officer-review outcome. Comments are optional but
// recommended for rejections.
func (s *LifecycleService) Decide(ctx context.Context, actor access.Actor, requestID string, decision Decision, comments *string) (*repository.Request, error) {
	var op operation
	switch decision {
	case DecisionApproved:
		op = opApprove
	case DecisionRejected:
		op = opReject
	default:
		return nil, apperr.InvalidInput("decision", "must be 'approved' or 'rejected'")
	}
	return s.apply(ctx, actor, requestID, op, comments, nil, claimApprover)
}

// Release pays out an approved request. The payment reference is recorded and
// processed_at is set in the same conditional write.
func (s *LifecycleService) Release(ctx context.Context, actor access.Actor, requestID, paymentReference string) (*repository.Request, error) {
	validate := func(*repository.Request) error {
		if strings.TrimSpace(paymentReference) == "" {
			return apperr.InvalidInput("payment_reference", "payment reference is required to release funds")
		}
		return nil
	}
	decorate := func(_ access.Actor, _ *repository.Request, upd *repository.TransitionUpdate) {
		upd.PaymentReference = &paymentReference
		upd.SetProcessedAt = true
	}
	return s.apply(ctx, actor, requestID, opRelease, &paymentReference, validate, decorate)
}

// Cancel terminates a non-terminal request. When anyone other than the owning
// employee cancels, remarks are required.
func (s *LifecycleService) Cancel(ctx context.Context, actor access.Actor, requestID string, remarks *string) (*repository.Request, error) {
	validate := func(req *repository.Request) error {
		if actor.ID != req.EmployeeID && (remarks == nil || strings.TrimSpace(*remarks) == "") {
			return apperr.InvalidInput("remarks", "remarks are required when cancelling on behalf of the employee")
		}
		return nil
	}
	return s.apply(ctx, actor, requestID, opCancel, remarks, validate, nil)
}

// Resubmit returns a corrected request to the pre-screening queue. The
// previously assigned assistant is retained so the same pre-screener
// re-checks the corrected documents.
func (s *LifecycleService) Resubmit(ctx context.Context, actor access.Actor, requestID string) (*repository.Request, error) {
	return s.apply(ctx, actor, requestID, opResubmit, nil, nil, nil)
}

// ── reads ─────────────────────────────────────────────────────────────────────

// GetRequest retrieves a request by id.
func (s *LifecycleService) GetRequest(ctx context.Context, requestID string) (*repository.Request, error) {
	return s.store.GetByID(ctx, requestID)
}

// GetHistory returns the request's transition trail oldest-first.
func (s *LifecycleService) GetHistory(ctx context.Context, requestID string) ([]*repository.HistoryEntry, error) {
	if _, err := s.store.GetByID(ctx, requestID); err != nil {
		return nil, err
	}
	return s.history.GetByRequestID(ctx, requestID)
}

// GetAccess resolves the actor's current capability set over a request.
func (s *LifecycleService) GetAccess(ctx context.Context, actor access.Actor, requestID string) (access.CapabilitySet, error) {
	req, err := s.store.GetByID(ctx, requestID)
	if err != nil {
		return access.CapabilitySet{}, err
	}
	return access.Resolve(actor, req), nil
}

// ListRequests lists requests with filtering and pagination.
func (s *LifecycleService) ListRequests(ctx context.Context, filter repository.RequestFilter) ([]*repository.Request, int64, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, 0, apperr.InvalidInput("status", fmt.Sprintf("unknown status '%s'", *filter.Status))
	}
	return s.store.List(ctx, filter)
}

// ── transition driver ─────────────────────────────────────────────────────────

// maxAttempts bounds the compare-and-set loop: the first attempt plus one
// retry against freshly read state.
const maxAttempts = 2

// apply runs one lifecycle operation end to end: load, state gate, access
// re-resolution, input validation, conditional write, history append,
// notification. A lost write race is retried once against fresh state; any
// precondition that no longer holds on the retry surfaces as CONFLICT, never
// as a silent overwrite.
func (s *LifecycleService) apply(
	ctx context.Context,
	actor access.Actor,
	requestID string,
	op operation,
	remarks *string,
	validate func(*repository.Request) error,
	decorate func(access.Actor, *repository.Request, *repository.TransitionUpdate),
) (*repository.Request, error) {
	for attempt := 1; ; attempt++ {
		req, err := s.store.GetByID(ctx, requestID)
		if err != nil {
			return nil, err
		}

		if !statusIn(req.Status, op.sources) {
			if attempt > 1 {
				return nil, apperr.Conflict(fmt.Sprintf(
					"request '%s' moved to status '%s' concurrently", requestID, req.Status))
			}
			return nil, apperr.Newf(apperr.ErrCodeInvalidTransition,
				"%s is not allowed from status '%s'", op.name, req.Status)
		}

		grants := access.Resolve(actor, req)
		if !op.allowed(grants) {
			if attempt > 1 {
				return nil, apperr.Conflict(fmt.Sprintf(
					"request '%s' changed concurrently and the actor no longer holds %s", requestID, op.capName))
			}
			return nil, apperr.Newf(apperr.ErrCodeUnauthorized,
				"actor lacks %s on request in status '%s'", op.capName, req.Status)
		}

		if validate != nil {
			if err := validate(req); err != nil {
				return nil, err
			}
		}

		upd := repository.TransitionUpdate{From: req.Status, To: op.target}
		if decorate != nil {
			decorate(actor, req, &upd)
		}

		updated, err := s.store.Transition(ctx, requestID, upd)
		if err != nil {
			if apperr.CodeOf(err) == apperr.ErrCodeConflict && attempt < maxAttempts {
				continue
			}
			return nil, err
		}

		s.appendHistory(ctx, requestID, op.action, actor.ID, remarks)
		s.publish(ctx, op.event, updated, actor.ID)

		s.log.Info().
			Str("request_id", requestID).
			Str("operation", op.name).
			Str("from", string(upd.From)).
			Str("to", string(upd.To)).
			Str("actor_id", actor.ID).
			Msg("Transition applied")

		return updated, nil
	}
}

func statusIn(status repository.Status, set []repository.Status) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}

// claimAssistant records the acting user as the request's assistant when the
// slot is still unset, in the same conditional write as the status change.
func claimAssistant(actor access.Actor, req *repository.Request, upd *repository.TransitionUpdate) {
	if req.AssistantID == nil {
		id := actor.ID
		upd.AssistantID = &id
	}
}

func claimOfficer(actor access.Actor, req *repository.Request, upd *repository.TransitionUpdate) {
	if req.OfficerID == nil {
		id := actor.ID
		upd.OfficerID = &id
	}
}

func claimApprover(actor access.Actor, req *repository.Request, upd *repository.TransitionUpdate) {
	if req.ApproverID == nil {
		id := actor.ID
		upd.ApproverID = &id
	}
}

// appendHistory writes the audit entry for a committed transition and logs a
// warning on failure (never fails the already-committed call).
func (s *LifecycleService) appendHistory(ctx context.Context, requestID, action, actorID string, remarks *string) {
	entry := &repository.HistoryEntry{
		RequestID: requestID,
		Action:    action,
		ActorID:   actorID,
		Remarks:   remarks,
	}
	if err := s.history.Append(ctx, entry); err != nil {
		s.log.Warn().Err(err).
			Str("request_id", requestID).
			Str("action", action).
			Msg("Failed to write history entry")
	}
}

// publish fires a best-effort notification after the commit.
func (s *LifecycleService) publish(ctx context.Context, eventType string, req *repository.Request, actorID string) {
	if s.notifier == nil {
		return
	}
	s.notifier.PublishRequestEvent(ctx, eventType, req, actorID)
}
