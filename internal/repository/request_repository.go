package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/meridian-hr/be-pf-requests/internal/apperr"
	"github.com/meridian-hr/be-pf-requests/internal/database"
)

const requestColumns = `
	id, employee_id, request_type, amount, purpose, status,
	assistant_id, officer_id, approver_id, payment_reference,
	created_at, updated_at, processed_at`

// RequestRepository persists provident-fund requests in Postgres.
type RequestRepository struct {
	db *database.DB
}

// NewRequestRepository creates a new RequestRepository.
func NewRequestRepository(db *database.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new request.
func (r *RequestRepository) Create(ctx context.Context, req *Request) error {
	query := `
		INSERT INTO pf_requests (id, employee_id, request_type, amount, purpose, status)
		VALUES ($1, $2, $3::pf_request_type, $4, $5, $6::pf_request_status)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		req.ID,
		req.EmployeeID,
		req.Type,
		req.Amount,
		req.Purpose,
		req.Status,
	).Scan(&req.CreatedAt, &req.UpdatedAt)

	if err != nil {
		return apperr.Wrap(err, apperr.ErrCodeInternal, "failed to create request")
	}

	return nil
}

// GetByID retrieves a request by id.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*Request, error) {
	query := `SELECT ` + requestColumns + ` FROM pf_requests WHERE id = $1`

	req, err := scanRequest(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("request", id)
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to get request")
	}

	return req, nil
}

// List retrieves requests with filtering and pagination.
func (r *RequestRepository) List(ctx context.Context, filter RequestFilter) ([]*Request, int64, error) {
	query := `SELECT ` + requestColumns + ` FROM pf_requests WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM pf_requests WHERE 1=1`

	args := []any{}
	argCount := 1

	if filter.Status != nil {
		cond := fmt.Sprintf(" AND status = $%d::pf_request_status", argCount)
		query += cond
		countQuery += cond
		args = append(args, *filter.Status)
		argCount++
	}

	if filter.Search != nil {
		cond := fmt.Sprintf(" AND (employee_id ILIKE $%d OR purpose ILIKE $%d)", argCount, argCount)
		query += cond
		countQuery += cond
		args = append(args, "%"+*filter.Search+"%")
		argCount++
	}

	if filter.FromDate != nil {
		cond := fmt.Sprintf(" AND created_at >= $%d::date", argCount)
		query += cond
		countQuery += cond
		args = append(args, *filter.FromDate)
		argCount++
	}

	if filter.ToDate != nil {
		cond := fmt.Sprintf(" AND created_at < $%d::date + INTERVAL '1 day'", argCount)
		query += cond
		countQuery += cond
		args = append(args, *filter.ToDate)
		argCount++
	}

	query += " ORDER BY created_at DESC, id DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)

	queryArgs := append(args, filter.Limit, filter.Offset)

	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to count requests")
	}

	rows, err := r.db.Query(ctx, query, queryArgs...)
	if err != nil {
		return nil, 0, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to list requests")
	}
	defer rows.Close()

	requests := make([]*Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to scan request")
		}
		requests = append(requests, req)
	}

	return requests, total, nil
}

// Transition applies upd as a single conditional write: the row is updated
// only when its status still equals upd.From. A lost race surfaces as
// CONFLICT, a missing row as NOT_FOUND.
func (r *RequestRepository) Transition(ctx context.Context, id string, upd TransitionUpdate) (*Request, error) {
	query := `
		UPDATE pf_requests
		SET status            = $2::pf_request_status,
		    assistant_id      = COALESCE($3, assistant_id),
		    officer_id        = COALESCE($4, officer_id),
		    approver_id       = COALESCE($5, approver_id),
		    payment_reference = COALESCE($6, payment_reference),
		    processed_at      = CASE WHEN $7 THEN NOW() ELSE processed_at END,
		    updated_at        = NOW()
		WHERE id = $1 AND status = $8::pf_request_status
		RETURNING ` + requestColumns

	req, err := scanRequest(r.db.QueryRow(ctx, query,
		id,
		upd.To,
		upd.AssistantID,
		upd.OfficerID,
		upd.ApproverID,
		upd.PaymentReference,
		upd.SetProcessedAt,
		upd.From,
	))

	if errors.Is(err, pgx.ErrNoRows) {
		// Either the row is gone or its status moved under us.
		var exists bool
		checkErr := r.db.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM pf_requests WHERE id = $1)`, id).Scan(&exists)
		if checkErr != nil {
			return nil, apperr.Wrap(checkErr, apperr.ErrCodeInternal, "failed to check request existence")
		}
		if !exists {
			return nil, apperr.NotFound("request", id)
		}
		return nil, apperr.Conflict(
			fmt.Sprintf("request '%s' is no longer in status '%s'", id, upd.From))
	}
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to apply transition")
	}

	return req, nil
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type requestScanner interface {
	Scan(dest ...any) error
}

func scanRequest(sc requestScanner) (*Request, error) {
	req := &Request{}
	err := sc.Scan(
		&req.ID,
		&req.EmployeeID,
		&req.Type,
		&req.Amount,
		&req.Purpose,
		&req.Status,
		&req.AssistantID,
		&req.OfficerID,
		&req.ApproverID,
		&req.PaymentReference,
		&req.CreatedAt,
		&req.UpdatedAt,
		&req.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return req, nil
}
