package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-hr/be-pf-requests/internal/apperr"
)

// MemoryStore is an in-memory Request store with the same conditional-write
// semantics as the Postgres repository. It backs engine and handler tests and
// the local dev mode, where spinning up Postgres is not worth it.
type MemoryStore struct {
	mu       sync.Mutex
	requests map[string]Request
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[string]Request)}
}

// Create inserts a new request.
func (s *MemoryStore) Create(_ context.Context, req *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if _, ok := s.requests[req.ID]; ok {
		return apperr.Conflict(fmt.Sprintf("request '%s' already exists", req.ID))
	}

	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now
	s.requests[req.ID] = *req

	return nil
}

// GetByID retrieves a request by id.
func (s *MemoryStore) GetByID(_ context.Context, id string) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, apperr.NotFound("request", id)
	}
	copied := req
	return &copied, nil
}

// List retrieves requests with filtering and pagination, newest first.
func (s *MemoryStore) List(_ context.Context, filter RequestFilter) ([]*Request, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]Request, 0)
	for _, req := range s.requests {
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		if filter.Search != nil && !matchesSearch(req, *filter.Search) {
			continue
		}
		if filter.FromDate != nil && req.CreatedAt.Format("2006-01-02") < *filter.FromDate {
			continue
		}
		if filter.ToDate != nil && req.CreatedAt.Format("2006-01-02") > *filter.ToDate {
			continue
		}
		matched = append(matched, req)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))

	start := filter.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}

	page := make([]*Request, 0, end-start)
	for i := start; i < end; i++ {
		copied := matched[i]
		page = append(page, &copied)
	}

	return page, total, nil
}

// Transition applies upd only if the stored status still equals upd.From.
func (s *MemoryStore) Transition(_ context.Context, id string, upd TransitionUpdate) (*Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, apperr.NotFound("request", id)
	}
	if req.Status != upd.From {
		return nil, apperr.Conflict(
			fmt.Sprintf("request '%s' is no longer in status '%s'", id, upd.From))
	}

	req.Status = upd.To
	if upd.AssistantID != nil {
		req.AssistantID = upd.AssistantID
	}
	if upd.OfficerID != nil {
		req.OfficerID = upd.OfficerID
	}
	if upd.ApproverID != nil {
		req.ApproverID = upd.ApproverID
	}
	if upd.PaymentReference != nil {
		req.PaymentReference = upd.PaymentReference
	}
	now := time.Now()
	if upd.SetProcessedAt {
		req.ProcessedAt = &now
	}
	req.UpdatedAt = now
	s.requests[id] = req

	copied := req
	return &copied, nil
}

func matchesSearch(req Request, search string) bool {
	needle := strings.ToLower(search)
	if strings.Contains(strings.ToLower(req.EmployeeID), needle) {
		return true
	}
	return req.Purpose != nil && strings.Contains(strings.ToLower(*req.Purpose), needle)
}

// MemoryHistory is an in-memory append-only history log. Entries get a
// process-local monotonic Seq so ordering matches append order even when
// timestamps collide.
type MemoryHistory struct {
	mu      sync.Mutex
	nextSeq int64
	entries map[string][]HistoryEntry
}

// NewMemoryHistory creates an empty MemoryHistory.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{entries: make(map[string][]HistoryEntry)}
}

// Append records one entry.
func (h *MemoryHistory) Append(_ context.Context, entry *HistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextSeq++
	entry.ID = uuid.NewString()
	entry.Seq = h.nextSeq
	entry.CreatedAt = time.Now()
	h.entries[entry.RequestID] = append(h.entries[entry.RequestID], *entry)

	return nil
}

// GetByRequestID returns entries oldest-first.
func (h *MemoryHistory) GetByRequestID(_ context.Context, requestID string) ([]*HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	stored := h.entries[requestID]
	entries := make([]*HistoryEntry, 0, len(stored))
	for i := range stored {
		copied := stored[i]
		entries = append(entries, &copied)
	}
	return entries, nil
}
