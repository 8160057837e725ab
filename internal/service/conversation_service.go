package service

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-relay/internal/directory"
	"github.com/spec-kit/support-relay/internal/domain"
	"github.com/spec-kit/support-relay/internal/events"
	"github.com/spec-kit/support-relay/internal/repository"
	"github.com/spec-kit/support-relay/internal/transport"
	apperrors "github.com/spec-kit/support-relay/pkg/util/errorutil"
)

// ConversationService mediates the conversation between a requester and the
// assigned secondary admin once a ticket has been delegated.
type ConversationService struct {
	store       *repository.TicketStore
	directory   *directory.Directory
	sender      transport.Sender
	logger      *zap.Logger
	concurrency int
	eventPublisher
}

// ConversationDependencies bundles collaborators for ConversationService.
type ConversationDependencies struct {
	Store       *repository.TicketStore
	Directory   *directory.Directory
	Sender      transport.Sender
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Concurrency int
}

// RelayOutcome reports where a relayed message went. Relayed is false when
// the sender had no active conversation.
type RelayOutcome struct {
	Relayed   bool
	TicketID  string
	Recipient domain.Identity
}

// EndResult reports a completed ticket and how its parties were notified.
type EndResult struct {
	Ticket       *domain.Ticket
	RequesterErr error
	AssigneeErr  error
	Summary      transport.DeliveryReport
}

// AdminAction classifies how an admin message was handled.
type AdminAction string

const (
	AdminActionFirstReply AdminAction = "first_reply"
	AdminActionRelayed    AdminAction = "relayed"
	AdminActionDropped    AdminAction = "dropped"
)

// AdminMessageOutcome is the result of HandleAdminMessage.
type AdminMessageOutcome struct {
	Action AdminAction
	Ticket *domain.Ticket
	Relay  RelayOutcome
}

// NewConversationService constructs the service.
func NewConversationService(deps ConversationDependencies) *ConversationService {
	logger := loggerOrNop(deps.Logger)
	return &ConversationService{
		store:          deps.Store,
		directory:      deps.Directory,
		sender:         deps.Sender,
		logger:         logger,
		concurrency:    deps.Concurrency,
		eventPublisher: eventPublisher{dispatcher: deps.Dispatcher, logger: logger},
	}
}

// FirstReply activates a Delegated ticket and delivers the admin's reply to
// the requester. The ticket is activated before delivery, so a failed
// delivery leaves it Active and returns DELIVERY_FAILED alongside it.
func (s *ConversationService) FirstReply(ctx context.Context, ticketID string, adminID domain.Identity, content domain.ContentItem) (*domain.Ticket, error) {
	if content == nil {
		return nil, apperrors.NewValidationError("reply content required", nil)
	}
	now := s.store.Now()
	ticket, err := s.store.Mutate(ticketID, func(t *domain.Ticket) error {
		if t.AssignedAdminID != adminID {
			return apperrors.NewUnauthorized("ticket is not assigned to you")
		}
		if t.Status != domain.TicketStatusDelegated {
			return apperrors.NewWrongState("ticket is not awaiting a first reply", map[string]any{
				"ticket_id": t.ID,
				"status":    string(t.Status),
			})
		}
		t.Status = domain.TicketStatusActive
		t.FirstReplyAt = &now
		t.FirstReply = domain.Caption(content)
		t.ConversationActive = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	deliveryErr := s.sender.DeliverText(ctx, ticket.RequesterID, firstReplyHeader(ticket), transport.WithEmphasis())
	if deliveryErr == nil {
		deliveryErr = s.sender.Deliver(ctx, ticket.RequesterID, content)
	}

	s.logger.Info("conversation started",
		zap.String("ticket_id", ticket.ID),
		zap.String("admin_id", adminID.String()),
		zap.Bool("delivered", deliveryErr == nil))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventConversationStarted,
		TicketID: ticket.ID,
		Actor:    actorFor(s.directory, adminID),
		Payload: events.ConversationStartedPayload{
			RequesterID: ticket.RequesterID,
			Delivered:   deliveryErr == nil,
		},
	})

	if deliveryErr != nil {
		s.logger.Error("failed to deliver first reply",
			zap.String("ticket_id", ticket.ID),
			zap.String("recipient", ticket.RequesterID.String()),
			zap.Error(deliveryErr))
		return ticket, apperrors.NewDeliveryFailed(ticket.RequesterID.String(), deliveryErr)
	}
	return ticket, nil
}

// Relay forwards content from one party of an active conversation to the
// other. Secondary admins are routed by assignment, everyone else by
// requester. Without an active conversation nothing is delivered.
func (s *ConversationService) Relay(ctx context.Context, from domain.Identity, content domain.ContentItem) (RelayOutcome, error) {
	if content == nil {
		return RelayOutcome{}, apperrors.NewValidationError("content required", nil)
	}

	fromAdmin := s.directory.IsSecondary(from)
	var (
		ticket *domain.Ticket
		ok     bool
	)
	if fromAdmin {
		ticket, ok = s.store.FindActiveByAssignee(from)
	} else {
		ticket, ok = s.store.FindActiveByRequester(from)
	}
	if !ok {
		return RelayOutcome{}, nil
	}

	outcome := RelayOutcome{TicketID: ticket.ID, Recipient: ticket.RequesterID}
	var err error
	if fromAdmin {
		err = s.sender.Deliver(ctx, ticket.RequesterID, content)
	} else {
		outcome.Recipient = ticket.AssignedAdminID
		err = s.sender.DeliverText(ctx, outcome.Recipient, requesterHeader(ticket), transport.WithEmphasis())
		if err == nil {
			err = s.sender.Deliver(ctx, outcome.Recipient, content)
		}
	}
	outcome.Relayed = err == nil

	s.publishEvent(ctx, events.Event{
		Type:     events.EventMessageRelayed,
		TicketID: ticket.ID,
		Actor:    actorFor(s.directory, from),
		Payload: events.MessageRelayedPayload{
			Recipient: outcome.Recipient,
			Kind:      content.Kind(),
			Delivered: outcome.Relayed,
		},
	})

	if err != nil {
		s.logger.Error("failed to relay message",
			zap.String("ticket_id", ticket.ID),
			zap.String("recipient", outcome.Recipient.String()),
			zap.Error(err))
		return outcome, apperrors.NewDeliveryFailed(outcome.Recipient.String(), err)
	}
	return outcome, nil
}

// End completes an Active ticket on behalf of its assignee, notifies the
// requester and sends a closure summary to every primary admin.
func (s *ConversationService) End(ctx context.Context, ticketID string, byAdmin domain.Identity, reason domain.EndReason) (*EndResult, error) {
	if reason == "" {
		reason = domain.EndReasonAdminEnded
	}
	return s.complete(ctx, ticketID, byAdmin, reason, func(t *domain.Ticket) bool {
		return t.AssignedAdminID == byAdmin
	})
}

// EndByRequester lets a requester close their own active conversation.
func (s *ConversationService) EndByRequester(ctx context.Context, userID domain.Identity) (*EndResult, error) {
	ticket, ok := s.store.FindActiveByRequester(userID)
	if !ok {
		return nil, apperrors.NewNotFound("active conversation", map[string]any{"user_id": userID.String()})
	}
	return s.complete(ctx, ticket.ID, userID, domain.EndReasonUserEnded, func(t *domain.Ticket) bool {
		return t.RequesterID == userID
	})
}

// EndForRequester ends the admin's active conversation with the given user.
func (s *ConversationService) EndForRequester(ctx context.Context, adminID, userID domain.Identity) (*EndResult, error) {
	ticket, ok := s.store.FindActiveByRequester(userID)
	if !ok || ticket.AssignedAdminID != adminID {
		return nil, apperrors.NewNotFound("active conversation", map[string]any{"user_id": userID.String()})
	}
	return s.End(ctx, ticket.ID, adminID, domain.EndReasonAdminEnded)
}

// EndCurrent ends whatever conversation the admin currently has open.
func (s *ConversationService) EndCurrent(ctx context.Context, adminID domain.Identity) (*EndResult, error) {
	ticket, ok := s.store.FindActiveByAssignee(adminID)
	if !ok {
		return nil, apperrors.NewNotFound("active conversation", map[string]any{"admin_id": adminID.String()})
	}
	return s.End(ctx, ticket.ID, adminID, domain.EndReasonAdminEnded)
}

func (s *ConversationService) complete(ctx context.Context, ticketID string, actor domain.Identity, reason domain.EndReason, allowed func(*domain.Ticket) bool) (*EndResult, error) {
	now := s.store.Now()
	ticket, err := s.store.Mutate(ticketID, func(t *domain.Ticket) error {
		if !allowed(t) {
			return apperrors.NewUnauthorized("not a party to this conversation")
		}
		if t.Status != domain.TicketStatusActive {
			return apperrors.NewWrongState("ticket has no active conversation", map[string]any{
				"ticket_id": t.ID,
				"status":    string(t.Status),
			})
		}
		t.Status = domain.TicketStatusCompleted
		t.CompletedAt = &now
		t.CompletedBy = actor
		t.EndReason = reason
		t.ConversationActive = false
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &EndResult{Ticket: ticket}
	if err := s.sender.DeliverText(ctx, ticket.RequesterID, closureNotice()); err != nil {
		result.RequesterErr = apperrors.NewDeliveryFailed(ticket.RequesterID.String(), err)
		s.logger.Error("failed to notify requester of closure",
			zap.String("ticket_id", ticket.ID),
			zap.String("recipient", ticket.RequesterID.String()),
			zap.Error(err))
	}
	if reason == domain.EndReasonUserEnded {
		if err := s.sender.DeliverText(ctx, ticket.AssignedAdminID, userEndedNotice(ticket), transport.WithEmphasis()); err != nil {
			result.AssigneeErr = apperrors.NewDeliveryFailed(ticket.AssignedAdminID.String(), err)
			s.logger.Error("failed to notify assignee of closure",
				zap.String("ticket_id", ticket.ID),
				zap.String("recipient", ticket.AssignedAdminID.String()),
				zap.Error(err))
		}
	}

	enderName := s.directory.DisplayName(actor)
	if reason == domain.EndReasonUserEnded {
		enderName = "user " + ticket.RequesterHint
	}
	summary := closureSummary(ticket, enderName)
	result.Summary = transport.FanOut(ctx, s.directory.PrimaryAdmins(), s.concurrency, func(ctx context.Context, to domain.Identity) error {
		return s.sender.DeliverText(ctx, to, summary, transport.WithEmphasis())
	})
	for _, failed := range result.Summary.Failed() {
		s.logger.Error("failed to send closure summary",
			zap.String("ticket_id", ticket.ID),
			zap.String("recipient", failed.Recipient.String()),
			zap.Error(failed.Err))
	}

	s.logger.Info("ticket completed",
		zap.String("ticket_id", ticket.ID),
		zap.String("completed_by", actor.String()),
		zap.String("reason", string(reason)))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCompleted,
		TicketID: ticket.ID,
		Actor:    actorFor(s.directory, actor),
		Payload: events.TicketCompletedPayload{
			Reason:     reason,
			Notified:   result.Summary.Delivered(),
			Recipients: len(result.Summary.Results),
		},
	})
	return result, nil
}

var replyDirective = regexp.MustCompile(`(?s)^\s*(\d+)\s*:(.*)$`)

// ParseReplyDirective recognizes "<user id>: <body>" admin text. matched is
// true when the text starts with digits and a colon; malformed is true when
// the body is empty.
func ParseReplyDirective(text string) (id domain.Identity, body string, matched, malformed bool) {
	m := replyDirective.FindStringSubmatch(text)
	if m == nil {
		return "", "", false, false
	}
	id = domain.Identity(m[1])
	body = strings.TrimSpace(m[2])
	return id, body, true, body == ""
}

// HandleAdminMessage routes free-form admin input. A "<user id>: <body>" text
// naming a requester whose ticket is Delegated to this admin is a first reply;
// when it names the admin's current conversation partner only the body is
// relayed. Any other input is relayed verbatim to the admin's active
// conversation, or dropped when there is none.
func (s *ConversationService) HandleAdminMessage(ctx context.Context, adminID domain.Identity, item domain.ContentItem) (AdminMessageOutcome, error) {
	text, isText := item.(domain.Text)
	if !isText {
		return s.relayFromAdmin(ctx, adminID, item)
	}

	id, body, matched, malformed := ParseReplyDirective(text.Body)
	if !matched {
		return s.relayFromAdmin(ctx, adminID, item)
	}
	if malformed {
		return AdminMessageOutcome{}, apperrors.NewInvalidFormat("reply must look like \""+ReplyFormatHint+"\"", map[string]any{
			"format": ReplyFormatHint,
		})
	}

	if ticket, ok := s.delegatedTo(adminID, id); ok {
		updated, err := s.FirstReply(ctx, ticket.ID, adminID, domain.Text{Body: body})
		if updated != nil {
			return AdminMessageOutcome{Action: AdminActionFirstReply, Ticket: updated}, err
		}
		return AdminMessageOutcome{}, err
	}

	active, ok := s.store.FindActiveByAssignee(adminID)
	if !ok {
		return AdminMessageOutcome{}, apperrors.NewNotFound("ticket awaiting reply", map[string]any{"user_id": id.String()})
	}
	if active.RequesterID == id {
		return s.relayFromAdmin(ctx, adminID, domain.Text{Body: body})
	}
	return s.relayFromAdmin(ctx, adminID, item)
}

func (s *ConversationService) relayFromAdmin(ctx context.Context, adminID domain.Identity, item domain.ContentItem) (AdminMessageOutcome, error) {
	relay, err := s.Relay(ctx, adminID, item)
	if relay.TicketID == "" && err == nil {
		s.logger.Debug("admin message dropped; no active conversation", zap.String("admin_id", adminID.String()))
		return AdminMessageOutcome{Action: AdminActionDropped}, nil
	}
	return AdminMessageOutcome{Action: AdminActionRelayed, Relay: relay}, err
}

// delegatedTo returns the oldest Delegated ticket of requester assigned to admin.
func (s *ConversationService) delegatedTo(adminID, requester domain.Identity) (*domain.Ticket, bool) {
	found := s.store.Find(func(t *domain.Ticket) bool {
		return t.Status == domain.TicketStatusDelegated &&
			t.AssignedAdminID == adminID &&
			t.RequesterID == requester
	})
	if len(found) == 0 {
		return nil, false
	}
	return &found[0], true
}
