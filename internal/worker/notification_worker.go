package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/support-relay/internal/events"
	"github.com/spec-kit/support-relay/internal/service"
)

// StartNotificationWorker registers notification handlers on dispatcher.
// Events are handled synchronously on the publishing goroutine.
func StartNotificationWorker(notificationService *service.NotificationService, dispatcher events.Dispatcher, logger *zap.Logger) {
	if notificationService == nil || dispatcher == nil {
		return
	}
	notificationService.RegisterHandlers()
	if logger == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		if dispatcher.Handlers(eventType) == 0 {
			logger.Warn("event type has no handlers", zap.String("event_type", string(eventType)))
		}
	}
	logger.Info("notification handlers registered", zap.Int("event_types", len(events.AllEventTypes)))
}
