package service

import (
	"context"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/support-relay/internal/directory"
	"github.com/spec-kit/support-relay/internal/domain"
	"github.com/spec-kit/support-relay/internal/events"
	"github.com/spec-kit/support-relay/internal/repository"
	"github.com/spec-kit/support-relay/internal/repository/keylock"
	apperrors "github.com/spec-kit/support-relay/pkg/util/errorutil"
)

// SubmissionService accumulates a requester's content until it is finalized
// into a ticket.
type SubmissionService struct {
	store     *repository.TicketStore
	directory *directory.Directory
	locks     *keylock.Locker
	logger    *zap.Logger
	eventPublisher

	mu      sync.Mutex
	buffers map[domain.Identity]*submission
}

type submission struct {
	category string
	hint     string
	items    []domain.ContentItem
}

// SubmissionDependencies bundles collaborators for SubmissionService.
type SubmissionDependencies struct {
	Store      *repository.TicketStore
	Directory  *directory.Directory
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewSubmissionService constructs the service.
func NewSubmissionService(deps SubmissionDependencies) *SubmissionService {
	logger := loggerOrNop(deps.Logger)
	return &SubmissionService{
		store:          deps.Store,
		directory:      deps.Directory,
		locks:          keylock.New(),
		logger:         logger,
		eventPublisher: eventPublisher{dispatcher: deps.Dispatcher, logger: logger},
		buffers:        make(map[domain.Identity]*submission),
	}
}

// Begin starts a new buffer for the user, silently discarding any previous one.
func (s *SubmissionService) Begin(userID domain.Identity, category, hint string) error {
	category = strings.TrimSpace(category)
	if userID == "" || category == "" {
		return apperrors.NewValidationError("user and category are required", nil)
	}
	unlock := s.locks.Lock(userID.String())
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.buffers[userID]; ok && len(prev.items) > 0 {
		s.logger.Debug("discarding unfinished submission",
			zap.String("user_id", userID.String()),
			zap.Int("items", len(prev.items)))
	}
	s.buffers[userID] = &submission{category: category, hint: hint}
	return nil
}

// Append adds an item to the user's buffer and returns the new item count.
func (s *SubmissionService) Append(userID domain.Identity, item domain.ContentItem) (int, error) {
	if item == nil {
		return 0, apperrors.NewValidationError("content item required", nil)
	}
	unlock := s.locks.Lock(userID.String())
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.buffers[userID]
	if !ok {
		return 0, apperrors.NewNoActiveBuffer()
	}
	buf.items = append(buf.items, item)
	return len(buf.items), nil
}

// Finalize turns the buffer into a Submitted ticket. A missing or empty buffer
// yields EMPTY_BUFFER; an empty buffer is kept.
func (s *SubmissionService) Finalize(ctx context.Context, userID domain.Identity) (*domain.Ticket, error) {
	unlock := s.locks.Lock(userID.String())
	ticket, err := s.finalizeLocked(userID)
	unlock()
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket submitted",
		zap.String("ticket_id", ticket.ID),
		zap.String("user_id", userID.String()),
		zap.String("category", ticket.Category),
		zap.Int("items", len(ticket.Items)))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketSubmitted,
		TicketID: ticket.ID,
		Actor:    actorFor(s.directory, userID),
		Payload: events.TicketSubmittedPayload{
			Category:  ticket.Category,
			ItemCount: len(ticket.Items),
		},
	})
	return ticket, nil
}

func (s *SubmissionService) finalizeLocked(userID domain.Identity) (*domain.Ticket, error) {
	s.mu.Lock()
	buf, ok := s.buffers[userID]
	var snapshot submission
	if ok {
		snapshot = submission{category: buf.category, hint: buf.hint, items: slices.Clone(buf.items)}
	}
	s.mu.Unlock()

	if !ok || len(snapshot.items) == 0 {
		return nil, apperrors.NewEmptyBuffer()
	}

	ticket, err := s.store.Create(userID, snapshot.hint, snapshot.category, snapshot.items)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	delete(s.buffers, userID)
	s.mu.Unlock()
	return ticket, nil
}

// Cancel discards the user's buffer. It reports whether one existed.
func (s *SubmissionService) Cancel(userID domain.Identity) bool {
	unlock := s.locks.Lock(userID.String())
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.buffers[userID]
	delete(s.buffers, userID)
	return ok
}

// Active reports the category and item count of the user's buffer, if any.
func (s *SubmissionService) Active(userID domain.Identity) (category string, count int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf, ok := s.buffers[userID]
	if !ok {
		return "", 0, false
	}
	return buf.category, len(buf.items), true
}
