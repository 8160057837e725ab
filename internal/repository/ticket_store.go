package repository

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spec-kit/support-relay/internal/domain"
	apperrors "github.com/spec-kit/support-relay/pkg/util/errorutil"
)

// TicketStore owns every ticket for the lifetime of the process. All changes go
// through Mutate, which serializes writers per ticket id; readers load
// immutable snapshots and never wait on writers.
type TicketStore struct {
	mu      sync.RWMutex
	entries map[string]*ticketEntry
	order   []string

	activeMu          sync.Mutex
	activeByRequester map[domain.Identity]string
	activeByAssignee  map[domain.Identity]string

	now func() time.Time
}

type ticketEntry struct {
	mu      sync.Mutex
	current atomic.Pointer[domain.Ticket]
}

// StoreOption configures a TicketStore.
type StoreOption func(*TicketStore)

// WithClock overrides the time source used for ids and timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *TicketStore) {
		s.now = now
	}
}

// NewTicketStore creates an empty store.
func NewTicketStore(opts ...StoreOption) *TicketStore {
	s := &TicketStore{
		entries:           make(map[string]*ticketEntry),
		activeByRequester: make(map[domain.Identity]string),
		activeByAssignee:  make(map[domain.Identity]string),
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store clock's current time.
func (s *TicketStore) Now() time.Time {
	return s.now()
}

// Create mints a Submitted ticket from a finalized submission.
func (s *TicketStore) Create(requester domain.Identity, hint, category string, items []domain.ContentItem) (*domain.Ticket, error) {
	if requester == "" {
		return nil, apperrors.NewValidationError("requester required", nil)
	}
	if len(items) == 0 {
		return nil, apperrors.NewEmptyBuffer()
	}
	if hint == "" {
		hint = domain.NoHint
	}
	submittedAt := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("%s_%d", requester, submittedAt.Unix())
	for n := 2; s.entries[id] != nil; n++ {
		id = fmt.Sprintf("%s_%d-%d", requester, submittedAt.Unix(), n)
	}

	ticket := &domain.Ticket{
		ID:            id,
		RequesterID:   requester,
		RequesterHint: hint,
		Category:      category,
		Items:         slices.Clone(items),
		Status:        domain.TicketStatusSubmitted,
		SubmittedAt:   submittedAt,
	}
	entry := &ticketEntry{}
	entry.current.Store(ticket)
	s.entries[id] = entry
	s.order = append(s.order, id)
	return ticket.Clone(), nil
}

// Get returns a snapshot of the ticket.
func (s *TicketStore) Get(id string) (*domain.Ticket, error) {
	entry, ok := s.entry(id)
	if !ok {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return entry.current.Load().Clone(), nil
}

// FindActiveByRequester returns the requester's conversation-active ticket.
func (s *TicketStore) FindActiveByRequester(requester domain.Identity) (*domain.Ticket, bool) {
	s.activeMu.Lock()
	id, ok := s.activeByRequester[requester]
	s.activeMu.Unlock()
	if !ok {
		return nil, false
	}
	return s.activeSnapshot(id, func(t *domain.Ticket) bool { return t.RequesterID == requester })
}

// FindActiveByAssignee returns the conversation-active ticket assigned to admin.
func (s *TicketStore) FindActiveByAssignee(admin domain.Identity) (*domain.Ticket, bool) {
	s.activeMu.Lock()
	id, ok := s.activeByAssignee[admin]
	s.activeMu.Unlock()
	if !ok {
		return nil, false
	}
	return s.activeSnapshot(id, func(t *domain.Ticket) bool { return t.AssignedAdminID == admin })
}

func (s *TicketStore) activeSnapshot(id string, belongs func(*domain.Ticket) bool) (*domain.Ticket, bool) {
	entry, ok := s.entry(id)
	if !ok {
		return nil, false
	}
	t := entry.current.Load()
	if !t.ConversationActive || !belongs(t) {
		return nil, false
	}
	return t.Clone(), true
}

// Find returns snapshots matching pred in submission order.
func (s *TicketStore) Find(pred func(*domain.Ticket) bool) []domain.Ticket {
	var result []domain.Ticket
	for _, t := range s.snapshot() {
		if pred == nil || pred(t) {
			result = append(result, *t.Clone())
		}
	}
	return result
}

// All returns a snapshot of every ticket in submission order.
func (s *TicketStore) All() []domain.Ticket {
	return s.Find(nil)
}

// Len returns the number of tickets ever created.
func (s *TicketStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Mutate applies fn to a working copy of the ticket and commits it atomically
// with respect to other mutations of the same id. fn must not block on I/O.
// The committed ticket must respect the lifecycle order and the single active
// ticket per requester and per assignee rules.
func (s *TicketStore) Mutate(id string, fn func(*domain.Ticket) error) (*domain.Ticket, error) {
	entry, ok := s.entry(id)
	if !ok {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	current := entry.current.Load()
	next := current.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	if err := validateChange(current, next); err != nil {
		return nil, err
	}

	if current.ConversationActive != next.ConversationActive {
		s.activeMu.Lock()
		defer s.activeMu.Unlock()
		if err := s.reindexLocked(next); err != nil {
			return nil, err
		}
	}
	entry.current.Store(next)
	return next.Clone(), nil
}

func (s *TicketStore) reindexLocked(next *domain.Ticket) error {
	if !next.ConversationActive {
		if s.activeByRequester[next.RequesterID] == next.ID {
			delete(s.activeByRequester, next.RequesterID)
		}
		if s.activeByAssignee[next.AssignedAdminID] == next.ID {
			delete(s.activeByAssignee, next.AssignedAdminID)
		}
		return nil
	}

	if other, ok := s.activeByRequester[next.RequesterID]; ok && other != next.ID {
		return apperrors.NewConflictingActiveTicket("requester already has an active conversation", map[string]any{
			"requester_id": next.RequesterID.String(),
			"ticket_id":    other,
		})
	}
	if other, ok := s.activeByAssignee[next.AssignedAdminID]; ok && other != next.ID {
		return apperrors.NewConflictingActiveTicket("admin already has an active conversation", map[string]any{
			"admin_id":  next.AssignedAdminID.String(),
			"ticket_id": other,
		})
	}
	s.activeByRequester[next.RequesterID] = next.ID
	s.activeByAssignee[next.AssignedAdminID] = next.ID
	return nil
}

func (s *TicketStore) entry(id string) (*ticketEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	return entry, ok
}

func (s *TicketStore) snapshot() []*domain.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tickets := make([]*domain.Ticket, 0, len(s.order))
	for _, id := range s.order {
		tickets = append(tickets, s.entries[id].current.Load())
	}
	return tickets
}

// validateChange rejects commits that would skip or reverse a lifecycle stage
// or break the per-status field invariants.
func validateChange(current, next *domain.Ticket) error {
	details := map[string]any{"ticket_id": current.ID, "status": string(current.Status)}

	if next.ID != current.ID || next.RequesterID != current.RequesterID {
		return apperrors.NewWrongState("ticket identity is immutable", details)
	}
	if current.AssignedAdminID != "" && next.AssignedAdminID != current.AssignedAdminID {
		return apperrors.NewWrongState("ticket cannot be re-delegated", details)
	}
	if step := next.Status.Rank() - current.Status.Rank(); next.Status.Rank() < 0 || step < 0 || step > 1 {
		return apperrors.NewWrongState(
			fmt.Sprintf("invalid status transition %s -> %s", current.Status, next.Status), details)
	}

	switch next.Status {
	case domain.TicketStatusDelegated:
		if next.AssignedAdminID == "" || next.DelegatedAt == nil {
			return apperrors.NewWrongState("delegated ticket requires an assignee", details)
		}
	case domain.TicketStatusActive:
		if next.AssignedAdminID == "" || next.FirstReplyAt == nil {
			return apperrors.NewWrongState("active ticket requires an assignee and a first reply", details)
		}
	case domain.TicketStatusCompleted:
		if next.CompletedAt == nil || next.CompletedBy == "" {
			return apperrors.NewWrongState("completed ticket requires completion fields", details)
		}
	}
	if next.ConversationActive != (next.Status == domain.TicketStatusActive) {
		return apperrors.NewWrongState("conversation flag does not match status", details)
	}
	return nil
}
