package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-relay/internal/config"
	"github.com/spec-kit/support-relay/internal/domain"
	"github.com/spec-kit/support-relay/internal/events"
	"github.com/spec-kit/support-relay/internal/observability"
	"github.com/spec-kit/support-relay/internal/repository"
)

// EventSink publishes serialized events to an external channel.
type EventSink interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	history    repository.TicketHistoryRepository
	sink       EventSink
	cfg        config.NotificationConfig
}

// NotificationDependencies bundles collaborators. History and Sink are optional.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	History    repository.TicketHistoryRepository
	Sink       EventSink
	Config     config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
		metrics:    deps.Metrics,
		history:    deps.History,
		sink:       deps.Sink,
		cfg:        deps.Config,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.Actor.ID.String()),
		zap.Any("payload", event.Payload))
	n.metrics.RecordEvent(string(event.Type))

	var errs []error
	if err := n.recordHistory(ctx, event); err != nil {
		errs = append(errs, fmt.Errorf("record history: %w", err))
	}
	if err := n.publishExternal(ctx, event); err != nil {
		errs = append(errs, fmt.Errorf("publish %s: %w", n.cfg.RedisChannel, err))
	}
	return errors.Join(errs...)
}

func (n *NotificationService) recordHistory(ctx context.Context, event events.Event) error {
	if n.history == nil {
		return nil
	}
	entry, ok := historyEntry(event)
	if !ok {
		return nil
	}
	return n.history.Create(ctx, entry)
}

func (n *NotificationService) publishExternal(ctx context.Context, event events.Event) error {
	if n.sink == nil || strings.TrimSpace(n.cfg.RedisChannel) == "" {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.sink.Publish(ctx, n.cfg.RedisChannel, payload)
}

// historyEntry maps lifecycle events to audit entries; relays and broadcasts
// are not part of the ticket history.
func historyEntry(event events.Event) (*domain.TicketHistory, bool) {
	entry := &domain.TicketHistory{
		TicketID:  event.TicketID,
		ActorID:   event.Actor.ID,
		CreatedAt: event.Timestamp,
		Details:   map[string]any{"event_id": event.ID},
	}
	switch payload := event.Payload.(type) {
	case events.TicketSubmittedPayload:
		entry.ChangeType = domain.ChangeTypeSubmitted
		entry.NewStatus = domain.TicketStatusSubmitted
		entry.Details["category"] = payload.Category
		entry.Details["item_count"] = payload.ItemCount
	case events.TicketDelegatedPayload:
		entry.ChangeType = domain.ChangeTypeDelegated
		entry.OldStatus = domain.TicketStatusSubmitted
		entry.NewStatus = domain.TicketStatusDelegated
		entry.Details["assignee_id"] = payload.AssigneeID.String()
	case events.ConversationStartedPayload:
		entry.ChangeType = domain.ChangeTypeActivated
		entry.OldStatus = domain.TicketStatusDelegated
		entry.NewStatus = domain.TicketStatusActive
		entry.Details["delivered"] = payload.Delivered
	case events.TicketCompletedPayload:
		entry.ChangeType = domain.ChangeTypeCompleted
		entry.OldStatus = domain.TicketStatusActive
		entry.NewStatus = domain.TicketStatusCompleted
		entry.Details["reason"] = string(payload.Reason)
	default:
		return nil, false
	}
	return entry, true
}
