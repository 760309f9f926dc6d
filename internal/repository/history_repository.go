package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/meridian-hr/be-pf-requests/internal/apperr"
	"github.com/meridian-hr/be-pf-requests/internal/database"
)

// HistoryRepository appends and reads immutable request history entries.
// The table has an update/delete-prevention trigger, so Append is the only
// mutation exposed.
type HistoryRepository struct {
	db *database.DB
}

// NewHistoryRepository creates a new HistoryRepository.
func NewHistoryRepository(db *database.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append inserts one history entry. Seq and CreatedAt are server-assigned.
func (r *HistoryRepository) Append(ctx context.Context, entry *HistoryEntry) error {
	query := `
		INSERT INTO pf_request_history (request_id, action, actor_id, remarks)
		VALUES ($1, $2, $3, $4)
		RETURNING id, seq, created_at
	`

	err := r.db.QueryRow(ctx, query,
		entry.RequestID,
		entry.Action,
		entry.ActorID,
		entry.Remarks,
	).Scan(&entry.ID, &entry.Seq, &entry.CreatedAt)

	if err != nil {
		return apperr.Wrap(err, apperr.ErrCodeInternal, "failed to append history entry")
	}

	return nil
}

// GetByRequestID returns the full trail for a request oldest-first. Seq
// breaks created_at ties so the order always matches transition order.
func (r *HistoryRepository) GetByRequestID(ctx context.Context, requestID string) ([]*HistoryEntry, error) {
	query := `
		SELECT id, seq, request_id, action, actor_id, remarks, created_at
		FROM pf_request_history
		WHERE request_id = $1
		ORDER BY seq ASC
	`

	rows, err := r.db.Query(ctx, query, requestID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to get request history")
	}
	defer rows.Close()

	return scanHistoryRows(rows)
}

// ── scan helpers ──────────────────────────────────────────────────────────────

func scanHistoryRows(rows pgx.Rows) ([]*HistoryEntry, error) {
	entries := make([]*HistoryEntry, 0)
	for rows.Next() {
		entry := &HistoryEntry{}
		err := rows.Scan(
			&entry.ID,
			&entry.Seq,
			&entry.RequestID,
			&entry.Action,
			&entry.ActorID,
			&entry.Remarks,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, apperr.Wrap(err, apperr.ErrCodeInternal, "failed to scan history entry")
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
