package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-relay/internal/directory"
	"github.com/spec-kit/support-relay/internal/domain"
	"github.com/spec-kit/support-relay/internal/events"
	"github.com/spec-kit/support-relay/internal/transport"
	apperrors "github.com/spec-kit/support-relay/pkg/util/errorutil"
)

// BroadcastService delivers super admin announcements to every admin.
type BroadcastService struct {
	directory   *directory.Directory
	sender      transport.Sender
	logger      *zap.Logger
	concurrency int
	eventPublisher
}

// BroadcastDependencies bundles collaborators for BroadcastService.
type BroadcastDependencies struct {
	Directory   *directory.Directory
	Sender      transport.Sender
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Concurrency int
}

// NewBroadcastService constructs the service.
func NewBroadcastService(deps BroadcastDependencies) *BroadcastService {
	logger := loggerOrNop(deps.Logger)
	return &BroadcastService{
		directory:      deps.Directory,
		sender:         deps.Sender,
		logger:         logger,
		concurrency:    deps.Concurrency,
		eventPublisher: eventPublisher{dispatcher: deps.Dispatcher, logger: logger},
	}
}

// Broadcast sends text to every primary and secondary admin, best effort.
func (s *BroadcastService) Broadcast(ctx context.Context, actor domain.Identity, text string) (transport.DeliveryReport, error) {
	if !s.directory.IsSuper(actor) {
		s.logger.Warn("broadcast rejected", zap.String("actor_id", actor.String()))
		return transport.DeliveryReport{}, apperrors.NewUnauthorized("only the super admin can broadcast")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return transport.DeliveryReport{}, apperrors.NewValidationError("broadcast text required", nil)
	}

	message := "Announcement\n\n" + text
	report := transport.FanOut(ctx, s.directory.AllAdmins(), s.concurrency, func(ctx context.Context, to domain.Identity) error {
		return s.sender.DeliverText(ctx, to, message, transport.WithEmphasis())
	})
	for _, failed := range report.Failed() {
		s.logger.Warn("broadcast delivery failed",
			zap.String("recipient", failed.Recipient.String()),
			zap.Error(failed.Err))
	}

	s.publishEvent(ctx, events.Event{
		Type:  events.EventBroadcastSent,
		Actor: actorFor(s.directory, actor),
		Payload: events.BroadcastSentPayload{
			Delivered:  report.Delivered(),
			Recipients: len(report.Results),
		},
	})
	return report, nil
}
