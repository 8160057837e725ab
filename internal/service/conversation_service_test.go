package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-relay/internal/domain"
	apperrors "github.com/spec-kit/support-relay/pkg/util/errorutil"
)

func TestFirstReplyChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	submitted := f.submit(t, "7", "hello")
	ticket := f.delegated(t, user, secondary)

	_, err := f.conversation.FirstReply(ctx, ticket.ID, other, domain.Text{Body: "hi"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	_, err = f.conversation.FirstReply(ctx, submitted.ID, "", domain.Text{Body: "hi"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeWrongState), "submitted tickets cannot be answered")

	activated, err := f.conversation.FirstReply(ctx, ticket.ID, secondary, domain.Text{Body: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", activated.FirstReply)
	assert.Equal(t, epoch, *activated.FirstReplyAt)

	_, err = f.conversation.FirstReply(ctx, ticket.ID, secondary, domain.Text{Body: "again"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeWrongState))
}

func TestFirstReplyDeliveryFailureKeepsTicketActive(t *testing.T) {
	f := newFixture(t)
	ticket := f.delegated(t, user, secondary)
	f.rec.Fail(user, errors.New("blocked bot"))

	activated, err := f.conversation.FirstReply(context.Background(), ticket.ID, secondary, domain.Text{Body: "hi"})
	require.True(t, apperrors.HasCode(err, apperrors.CodeDeliveryFailed))
	require.NotNil(t, activated)
	assert.Equal(t, domain.TicketStatusActive, activated.Status)

	stored, ok := f.store.FindActiveByRequester(user)
	require.True(t, ok)
	assert.Equal(t, ticket.ID, stored.ID)
}

func TestFirstReplyRespectsSingleActiveConversation(t *testing.T) {
	f := newFixture(t)
	f.active(t, user, secondary)
	second := f.delegated(t, "43", secondary)

	_, err := f.conversation.FirstReply(context.Background(), second.ID, secondary, domain.Text{Body: "hi"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflictingActiveTicket))

	stored, err := f.store.Get(second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusDelegated, stored.Status)
}

func TestRelayIsKindPreserving(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.active(t, user, secondary)
	f.rec.Reset()

	items := []domain.ContentItem{
		domain.Image{Ref: "img", Caption: "see"},
		domain.Voice{Ref: "v"},
		domain.Document{Ref: "d", Filename: "x.pdf"},
	}
	for _, item := range items {
		out, err := f.conversation.Relay(ctx, secondary, item)
		require.NoError(t, err)
		assert.Equal(t, user, out.Recipient)
	}
	got := f.rec.To(user)
	require.Len(t, got, len(items))
	for i, item := range items {
		assert.Equal(t, item, got[i].Item)
	}

	_, err := f.conversation.Relay(ctx, user, domain.Image{Ref: "img2"})
	require.NoError(t, err)
	toAdmin := f.rec.To(secondary)
	require.Len(t, toAdmin, 2)
	assert.Contains(t, toAdmin[0].Text, "New message from @42 (ID: 42)")
	assert.Equal(t, domain.Image{Ref: "img2"}, toAdmin[1].Item)
}

func TestRelayDeliveryFailure(t *testing.T) {
	f := newFixture(t)
	ticket := f.active(t, user, secondary)
	f.rec.Fail(user, errors.New("gone"))

	out, err := f.conversation.Relay(context.Background(), secondary, domain.Text{Body: "ping"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDeliveryFailed))
	assert.False(t, out.Relayed)
	assert.Equal(t, ticket.ID, out.TicketID)
}

func TestEndChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	delegated := f.delegated(t, "43", secondary)
	ticket := f.active(t, user, secondary)

	_, err := f.conversation.End(ctx, ticket.ID, other, domain.EndReasonAdminEnded)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	_, err = f.conversation.End(ctx, delegated.ID, secondary, domain.EndReasonAdminEnded)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeWrongState))

	_, err = f.conversation.End(ctx, ticket.ID, secondary, "")
	require.NoError(t, err)
	_, err = f.conversation.End(ctx, ticket.ID, secondary, domain.EndReasonAdminEnded)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeWrongState), "already completed")

	_, err = f.conversation.EndForRequester(ctx, secondary, user)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	_, err = f.conversation.EndCurrent(ctx, secondary)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestEndForRequesterOnlyForOwnConversation(t *testing.T) {
	f := newFixture(t)
	f.active(t, user, secondary)

	_, err := f.conversation.EndForRequester(context.Background(), other, user)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestEndCurrent(t *testing.T) {
	f := newFixture(t)
	ticket := f.active(t, user, secondary)

	res, err := f.conversation.EndCurrent(context.Background(), secondary)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, res.Ticket.ID)
	assert.Equal(t, domain.TicketStatusCompleted, res.Ticket.Status)
}

func TestEndByRequester(t *testing.T) {
	f := newFixture(t)
	ticket := f.active(t, user, secondary)
	f.rec.Fail(primaryB, errors.New("offline"))

	res, err := f.conversation.EndByRequester(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, res.Ticket.ID)
	assert.Equal(t, domain.EndReasonUserEnded, res.Ticket.EndReason)
	assert.Equal(t, user, res.Ticket.CompletedBy)
	assert.NoError(t, res.AssigneeErr)
	assert.True(t, f.rec.Contains(secondary, "ended the conversation"))
	assert.Equal(t, 1, res.Summary.Delivered())
	require.Len(t, res.Summary.Failed(), 1)
	assert.Equal(t, primaryB, res.Summary.Failed()[0].Recipient)

	_, err = f.conversation.EndByRequester(context.Background(), user)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestParseReplyDirective(t *testing.T) {
	tests := []struct {
		text      string
		id        domain.Identity
		body      string
		matched   bool
		malformed bool
	}{
		{"42: hi", "42", "hi", true, false},
		{"  42 :  multi\nline ", "42", "multi\nline", true, false},
		{"42:", "42", "", true, true},
		{": hello", "", "", false, false},
		{":) glad to help", "", "", false, false},
		{"hello there", "", "", false, false},
		{"note: later", "", "", false, false},
		{"10:30 works", "10", "30 works", true, false},
	}
	for _, tt := range tests {
		id, body, matched, malformed := ParseReplyDirective(tt.text)
		assert.Equal(t, tt.matched, matched, tt.text)
		assert.Equal(t, tt.malformed, malformed, tt.text)
		if tt.matched {
			assert.Equal(t, tt.id, id, tt.text)
			assert.Equal(t, tt.body, body, tt.text)
		}
	}
}

func TestHandleAdminMessageRouting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.conversation.HandleAdminMessage(ctx, secondary, domain.Text{Body: "nobody is listening"})
	require.NoError(t, err)
	assert.Equal(t, AdminActionDropped, out.Action)

	_, err = f.conversation.HandleAdminMessage(ctx, secondary, domain.Text{Body: "42:"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidFormat))

	_, err = f.conversation.HandleAdminMessage(ctx, secondary, domain.Text{Body: "99: hi"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	f.active(t, user, secondary)
	f.delegated(t, "43", secondary)
	f.rec.Reset()

	out, err = f.conversation.HandleAdminMessage(ctx, secondary, domain.Text{Body: "42: how can I help"})
	require.NoError(t, err)
	assert.Equal(t, AdminActionRelayed, out.Action)
	last, _ := f.rec.Last(user)
	assert.Equal(t, domain.Text{Body: "how can I help"}, last.Item)

	out, err = f.conversation.HandleAdminMessage(ctx, secondary, domain.Text{Body: "10:30 works for me"})
	require.NoError(t, err)
	assert.Equal(t, AdminActionRelayed, out.Action)
	last, _ = f.rec.Last(user)
	assert.Equal(t, domain.Text{Body: "10:30 works for me"}, last.Item)

	out, err = f.conversation.HandleAdminMessage(ctx, secondary, domain.Text{Body: ":) glad to help"})
	require.NoError(t, err)
	assert.Equal(t, AdminActionRelayed, out.Action)
	last, _ = f.rec.Last(user)
	assert.Equal(t, domain.Text{Body: ":) glad to help"}, last.Item)

	out, err = f.conversation.HandleAdminMessage(ctx, secondary, domain.Image{Ref: "img"})
	require.NoError(t, err)
	assert.Equal(t, AdminActionRelayed, out.Action)

	// 43 is delegated to this admin, but the admin already has an active conversation
	_, err = f.conversation.HandleAdminMessage(ctx, secondary, domain.Text{Body: "43: hello"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflictingActiveTicket))
	assert.Empty(t, f.rec.To("43"))
}
