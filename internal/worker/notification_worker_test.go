package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/support-relay/internal/events"
	"github.com/spec-kit/support-relay/internal/service"
)

func TestStartNotificationWorkerCoversEveryEventType(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher()
	svc := service.NewNotificationService(service.NotificationDependencies{Dispatcher: dispatcher})

	StartNotificationWorker(svc, dispatcher, zap.New(core))

	for _, eventType := range events.AllEventTypes {
		assert.Equal(t, 1, dispatcher.Handlers(eventType), string(eventType))
	}
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, 1, logs.FilterMessage("notification handlers registered").Len())
}

func TestStartNotificationWorkerWarnsWithoutHandlers(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	dispatcher := events.NewInMemoryDispatcher()
	// the service subscribes to its own dispatcher, not the inspected one
	svc := service.NewNotificationService(service.NotificationDependencies{Dispatcher: events.NewInMemoryDispatcher()})

	StartNotificationWorker(svc, dispatcher, zap.New(core))

	assert.Equal(t, len(events.AllEventTypes), logs.FilterMessage("event type has no handlers").Len())
}

func TestStartNotificationWorkerToleratesMissingParts(t *testing.T) {
	assert.NotPanics(t, func() {
		StartNotificationWorker(nil, events.NewInMemoryDispatcher(), zap.NewNop())
		StartNotificationWorker(service.NewNotificationService(service.NotificationDependencies{}), nil, nil)
	})
}
