package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/support-relay/internal/directory"
	"github.com/spec-kit/support-relay/internal/domain"
	"github.com/spec-kit/support-relay/internal/events"
	"github.com/spec-kit/support-relay/internal/repository"
	"github.com/spec-kit/support-relay/internal/transport"
	apperrors "github.com/spec-kit/support-relay/pkg/util/errorutil"
)

// DelegationService fans new tickets out to the primary tier and hands them
// to secondary admins.
type DelegationService struct {
	store       *repository.TicketStore
	directory   *directory.Directory
	sender      transport.Sender
	logger      *zap.Logger
	concurrency int
	eventPublisher
}

// DelegationDependencies bundles collaborators for DelegationService.
type DelegationDependencies struct {
	Store       *repository.TicketStore
	Directory   *directory.Directory
	Sender      transport.Sender
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Concurrency int
}

// DelegationResult describes a successful delegation. DeliveryErr is set when
// the assignee could not be notified; the ticket stays Delegated regardless.
type DelegationResult struct {
	Ticket       *domain.Ticket
	AssigneeName string
	DeliveryErr  error
}

// NewDelegationService constructs the service.
func NewDelegationService(deps DelegationDependencies) *DelegationService {
	logger := loggerOrNop(deps.Logger)
	return &DelegationService{
		store:          deps.Store,
		directory:      deps.Directory,
		sender:         deps.Sender,
		logger:         logger,
		concurrency:    deps.Concurrency,
		eventPublisher: eventPublisher{dispatcher: deps.Dispatcher, logger: logger},
	}
}

// NotifyPrimaryTier sends the ticket and one delegation choice per secondary
// admin to every primary admin. Recipients are attempted independently.
func (s *DelegationService) NotifyPrimaryTier(ctx context.Context, ticket *domain.Ticket) transport.DeliveryReport {
	primaries := s.directory.PrimaryAdmins()
	if len(primaries) == 0 {
		s.logger.Warn("no primary admins configured; ticket awaits delegation unseen",
			zap.String("ticket_id", ticket.ID))
		return transport.DeliveryReport{}
	}

	choices := s.delegationChoices(ticket.ID)
	prompt := "Delegate this request to:"
	if len(choices) == 0 {
		prompt = "No secondary admins are configured; this request cannot be delegated."
	}

	report := transport.FanOut(ctx, primaries, s.concurrency, func(ctx context.Context, to domain.Identity) error {
		if err := deliverTicket(ctx, s.sender, to, primaryHeader(ticket), ticket); err != nil {
			return err
		}
		return s.sender.DeliverText(ctx, to, prompt, transport.WithChoices(choices...))
	})
	for _, failed := range report.Failed() {
		s.logger.Error("failed to notify primary admin",
			zap.String("ticket_id", ticket.ID),
			zap.String("recipient", failed.Recipient.String()),
			zap.Error(failed.Err))
	}
	return report
}

func (s *DelegationService) delegationChoices(ticketID string) []transport.Choice {
	secondaries := s.directory.SecondaryAdmins()
	choices := make([]transport.Choice, 0, len(secondaries))
	for _, admin := range secondaries {
		choices = append(choices, transport.Choice{
			Label: "Send to " + s.directory.DisplayName(admin),
			Data:  transport.DelegationData(admin, ticketID),
		})
	}
	return choices
}

// Delegate assigns a Submitted ticket to a secondary admin. Only the first of
// several racing primary admins succeeds; the others get WRONG_STATE.
func (s *DelegationService) Delegate(ctx context.Context, ticketID string, target, actor domain.Identity) (*DelegationResult, error) {
	if !s.directory.IsPrimary(actor) {
		s.logger.Warn("delegation rejected", zap.String("actor_id", actor.String()), zap.String("ticket_id", ticketID))
		return nil, apperrors.NewUnauthorized("only primary admins can delegate tickets")
	}
	if !s.directory.IsSecondary(target) {
		return nil, apperrors.NewNotFound("secondary admin", map[string]any{"admin_id": target.String()})
	}

	now := s.store.Now()
	ticket, err := s.store.Mutate(ticketID, func(t *domain.Ticket) error {
		if t.Status != domain.TicketStatusSubmitted {
			return apperrors.NewWrongState("ticket already delegated", map[string]any{
				"ticket_id":   t.ID,
				"assignee_id": t.AssignedAdminID.String(),
			})
		}
		t.Status = domain.TicketStatusDelegated
		t.AssignedAdminID = target
		t.DelegatedBy = actor
		t.DelegatedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &DelegationResult{Ticket: ticket, AssigneeName: s.directory.DisplayName(target)}
	header := delegatedHeader(ticket, s.directory.DisplayName(actor))
	if err := deliverTicket(ctx, s.sender, target, header, ticket); err != nil {
		s.logger.Error("failed to notify secondary admin",
			zap.String("ticket_id", ticket.ID),
			zap.String("admin_id", target.String()),
			zap.Error(err))
		result.DeliveryErr = apperrors.NewDeliveryFailed(target.String(), err)
	}

	s.logger.Info("ticket delegated",
		zap.String("ticket_id", ticket.ID),
		zap.String("admin_id", target.String()),
		zap.String("delegated_by", actor.String()))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDelegated,
		TicketID: ticket.ID,
		Actor:    actorFor(s.directory, actor),
		Payload: events.TicketDelegatedPayload{
			AssigneeID: target,
			Delivered:  result.DeliveryErr == nil,
		},
	})
	return result, nil
}
