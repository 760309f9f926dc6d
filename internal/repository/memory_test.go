package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-hr/be-pf-requests/internal/apperr"
)

func seedRequest(t *testing.T, store *MemoryStore, status Status, mutate ...func(*Request)) *Request {
	t.Helper()
	req := &Request{
		EmployeeID: "emp-1",
		Type:       TypePartialWithdrawal,
		Amount:     100000,
		Status:     status,
	}
	for _, fn := range mutate {
		fn(req)
	}
	require.NoError(t, store.Create(context.Background(), req))
	return req
}

func TestMemoryStoreTransitionCAS(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seeded := seedRequest(t, store, StatusSubmitted)

	assistant := "asst-1"
	updated, err := store.Transition(ctx, seeded.ID, TransitionUpdate{
		From:        StatusSubmitted,
		To:          StatusReadyForReview,
		AssistantID: &assistant,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusReadyForReview, updated.Status)
	require.NotNil(t, updated.AssistantID)
	assert.Equal(t, "asst-1", *updated.AssistantID)
	assert.True(t, updated.UpdatedAt.After(seeded.CreatedAt) || updated.UpdatedAt.Equal(seeded.CreatedAt))

	// Stale precondition loses.
	_, err = store.Transition(ctx, seeded.ID, TransitionUpdate{
		From: StatusSubmitted,
		To:   StatusIncomplete,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.ErrCodeConflict, apperr.CodeOf(err))

	// The committed write survived the losing attempt.
	current, err := store.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReadyForReview, current.Status)
}

func TestMemoryStoreTransitionNilFieldsLeaveValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	assistant := "asst-1"
	seeded := seedRequest(t, store, StatusSubmitted, func(r *Request) {
		r.AssistantID = &assistant
	})

	updated, err := store.Transition(ctx, seeded.ID, TransitionUpdate{
		From: StatusSubmitted,
		To:   StatusReadyForReview,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.AssistantID)
	assert.Equal(t, "asst-1", *updated.AssistantID)
	assert.Nil(t, updated.ProcessedAt)
}

func TestMemoryStoreTransitionRelease(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seeded := seedRequest(t, store, StatusApproved)

	ref := "REF-001"
	updated, err := store.Transition(ctx, seeded.ID, TransitionUpdate{
		From:             StatusApproved,
		To:               StatusReleased,
		PaymentReference: &ref,
		SetProcessedAt:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusReleased, updated.Status)
	require.NotNil(t, updated.PaymentReference)
	assert.Equal(t, "REF-001", *updated.PaymentReference)
	assert.NotNil(t, updated.ProcessedAt)
}

func TestMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.GetByID(ctx, "missing")
	assert.Equal(t, apperr.ErrCodeNotFound, apperr.CodeOf(err))

	_, err = store.Transition(ctx, "missing", TransitionUpdate{From: StatusSubmitted, To: StatusCancelled})
	assert.Equal(t, apperr.ErrCodeNotFound, apperr.CodeOf(err))
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	seeded := seedRequest(t, store, StatusSubmitted)

	first, err := store.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	first.Status = StatusCancelled

	second, err := store.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, second.Status)
}

func TestMemoryStoreListFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	seedRequest(t, store, StatusSubmitted)
	seedRequest(t, store, StatusOfficerReview)
	seedRequest(t, store, StatusOfficerReview, func(r *Request) {
		r.EmployeeID = "emp-9"
		purpose := "roof repair"
		r.Purpose = &purpose
	})

	status := StatusOfficerReview
	page, total, err := store.List(ctx, RequestFilter{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, page, 2)

	search := "ROOF"
	page, total, err = store.List(ctx, RequestFilter{Search: &search})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, page, 1)
	assert.Equal(t, "emp-9", page[0].EmployeeID)

	search = "emp-"
	page, total, err = store.List(ctx, RequestFilter{Search: &search})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 3)
}

func TestMemoryStoreListPagination(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for i := 0; i < 5; i++ {
		seedRequest(t, store, StatusSubmitted)
	}

	page, total, err := store.List(ctx, RequestFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, page, 2)

	page, total, err = store.List(ctx, RequestFilter{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, page, 1)

	page, _, err = store.List(ctx, RequestFilter{Limit: 2, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestMemoryHistoryAppendAssignsMonotonicSeq(t *testing.T) {
	ctx := context.Background()
	history := NewMemoryHistory()

	for _, action := range []string{"Submitted", "Marked ready for review", "Moved to officer review"} {
		require.NoError(t, history.Append(ctx, &HistoryEntry{
			RequestID: "req-1",
			Action:    action,
			ActorID:   "actor-1",
		}))
	}
	require.NoError(t, history.Append(ctx, &HistoryEntry{
		RequestID: "req-2",
		Action:    "Submitted",
		ActorID:   "actor-2",
	}))

	entries, err := history.GetByRequestID(ctx, "req-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, entry := range entries {
		assert.NotEmpty(t, entry.ID)
		assert.False(t, entry.CreatedAt.IsZero())
		if i > 0 {
			assert.Greater(t, entry.Seq, entries[i-1].Seq)
		}
	}

	other, err := history.GetByRequestID(ctx, "req-2")
	require.NoError(t, err)
	require.Len(t, other, 1)

	empty, err := history.GetByRequestID(ctx, "req-3")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
