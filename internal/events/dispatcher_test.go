package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var seen []string
	boom := errors.New("boom")

	d.Subscribe(EventTicketSubmitted, func(_ context.Context, e Event) error {
		seen = append(seen, "first:"+e.TicketID)
		return boom
	})
	d.Subscribe(EventTicketSubmitted, func(_ context.Context, e Event) error {
		seen = append(seen, "second:"+e.TicketID)
		return nil
	})
	d.Subscribe(EventTicketCompleted, func(context.Context, Event) error {
		seen = append(seen, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketSubmitted, TicketID: "42_1"})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first:42_1", "second:42_1"}, seen)
}

func TestPublishWithoutListeners(t *testing.T) {
	assert.NoError(t, NewInMemoryDispatcher().Publish(context.Background(), Event{Type: EventBroadcastSent}))
}

func TestPublishSurvivesPanickingHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	ran := false
	d.Subscribe(EventBroadcastSent, func(context.Context, Event) error {
		panic("bad handler")
	})
	d.Subscribe(EventBroadcastSent, func(context.Context, Event) error {
		ran = true
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventBroadcastSent})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.True(t, ran)
	assert.Equal(t, 2, d.Handlers(EventBroadcastSent))
	assert.Zero(t, d.Handlers(EventTicketDelegated))
}
