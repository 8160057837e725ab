package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-relay/internal/domain"
	"github.com/spec-kit/support-relay/internal/events"
)

func TestSupportConversationScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.submissions.Begin(user, "X", "@trader"))
	_, err := f.submissions.Append(user, domain.Text{Body: "hello"})
	require.NoError(t, err)
	ticket, err := f.submissions.Finalize(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusSubmitted, ticket.Status)
	assert.Equal(t, "X", ticket.Category)

	report := f.delegation.NotifyPrimaryTier(ctx, ticket)
	require.NoError(t, report.Err())
	assert.Equal(t, 2, report.Delivered())
	for _, admin := range []domain.Identity{primaryA, primaryB} {
		assert.True(t, f.rec.Contains(admin, "Message 1:\nhello"))
		prompt, ok := f.rec.Last(admin)
		require.True(t, ok)
		require.Len(t, prompt.Options.Choices, 2)
		assert.Equal(t, "delegate:200:"+ticket.ID, prompt.Options.Choices[0].Data)
		assert.Equal(t, "Send to Zahra", prompt.Options.Choices[0].Label)
	}

	res, err := f.delegation.Delegate(ctx, ticket.ID, secondary, primaryA)
	require.NoError(t, err)
	assert.NoError(t, res.DeliveryErr)
	assert.Equal(t, domain.TicketStatusDelegated, res.Ticket.Status)
	assert.True(t, f.rec.Contains(secondary, "Request delegated by Arman"))
	assert.True(t, f.rec.Contains(secondary, "42: <reply text>"))

	outcome, err := f.conversation.HandleAdminMessage(ctx, secondary, domain.Text{Body: "42: hi"})
	require.NoError(t, err)
	assert.Equal(t, AdminActionFirstReply, outcome.Action)
	assert.Equal(t, domain.TicketStatusActive, outcome.Ticket.Status)
	assert.True(t, outcome.Ticket.ConversationActive)
	last, ok := f.rec.Last(user)
	require.True(t, ok)
	assert.Equal(t, domain.Text{Body: "hi"}, last.Item)

	relay, err := f.conversation.Relay(ctx, user, domain.Text{Body: "thanks"})
	require.NoError(t, err)
	assert.True(t, relay.Relayed)
	assert.Equal(t, secondary, relay.Recipient)
	last, ok = f.rec.Last(secondary)
	require.True(t, ok)
	assert.Equal(t, domain.Text{Body: "thanks"}, last.Item)

	end, err := f.conversation.EndForRequester(ctx, secondary, user)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCompleted, end.Ticket.Status)
	assert.Equal(t, secondary, end.Ticket.CompletedBy)
	assert.Equal(t, domain.EndReasonAdminEnded, end.Ticket.EndReason)
	assert.False(t, end.Ticket.ConversationActive)
	assert.NoError(t, end.RequesterErr)
	assert.Equal(t, 2, end.Summary.Delivered())
	assert.True(t, f.rec.Contains(user, "conversation with the support team has ended"))
	for _, admin := range []domain.Identity{primaryA, primaryB} {
		assert.True(t, f.rec.Contains(admin, "Conversation ended"))
	}

	assert.Equal(t, []events.EventType{
		events.EventTicketSubmitted,
		events.EventTicketDelegated,
		events.EventConversationStarted,
		events.EventMessageRelayed,
		events.EventTicketCompleted,
	}, f.log.types())
}

func TestRelayAfterEndIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.active(t, user, secondary)

	_, err := f.conversation.End(ctx, ticket.ID, secondary, domain.EndReasonAdminEnded)
	require.NoError(t, err)
	f.rec.Reset()

	fromUser, err := f.conversation.Relay(ctx, user, domain.Text{Body: "still there?"})
	require.NoError(t, err)
	assert.False(t, fromUser.Relayed)
	fromAdmin, err := f.conversation.Relay(ctx, secondary, domain.Voice{Ref: "v1"})
	require.NoError(t, err)
	assert.False(t, fromAdmin.Relayed)

	assert.Empty(t, f.rec.All())
}
