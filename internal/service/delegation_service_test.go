package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/support-relay/internal/config"
	"github.com/spec-kit/support-relay/internal/directory"
	"github.com/spec-kit/support-relay/internal/domain"
	apperrors "github.com/spec-kit/support-relay/pkg/util/errorutil"
)

func TestDelegateRequiresPrimaryAdmin(t *testing.T) {
	f := newFixture(t)
	ticket := f.submit(t, user, "hello")

	for _, actor := range []domain.Identity{secondary, "900", user} {
		_, err := f.delegation.Delegate(context.Background(), ticket.ID, secondary, actor)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized), actor)
	}

	stored, err := f.store.Get(ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusSubmitted, stored.Status)
}

func TestDelegateUnknownTargets(t *testing.T) {
	f := newFixture(t)
	ticket := f.submit(t, user, "hello")

	_, err := f.delegation.Delegate(context.Background(), "missing", secondary, primaryA)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = f.delegation.Delegate(context.Background(), ticket.ID, primaryB, primaryA)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound), "target must be a secondary admin")
}

func TestDelegateTwiceFails(t *testing.T) {
	f := newFixture(t)
	ticket := f.delegated(t, user, secondary)

	_, err := f.delegation.Delegate(context.Background(), ticket.ID, other, primaryB)
	require.True(t, apperrors.HasCode(err, apperrors.CodeWrongState))
	assert.Contains(t, err.Error(), "already delegated")

	stored, err := f.store.Get(ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, secondary, stored.AssignedAdminID)
	assert.Equal(t, primaryA, stored.DelegatedBy)
}

func TestConcurrentDelegateHasSingleWinner(t *testing.T) {
	f := newFixture(t)
	ticket := f.submit(t, user, "hello")

	type attempt struct {
		actor, target domain.Identity
	}
	attempts := []attempt{{primaryA, secondary}, {primaryB, other}, {primaryA, other}, {primaryB, secondary}}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes []attempt
		conflicts int
	)
	for _, a := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.delegation.Delegate(context.Background(), ticket.ID, a.target, a.actor)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes = append(successes, a)
			case apperrors.HasCode(err, apperrors.CodeWrongState):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Len(t, successes, 1)
	assert.Equal(t, len(attempts)-1, conflicts)

	stored, err := f.store.Get(ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusDelegated, stored.Status)
	assert.Equal(t, successes[0].target, stored.AssignedAdminID)
	assert.Equal(t, successes[0].actor, stored.DelegatedBy)
}

func TestDelegateReportsAssigneeDeliveryFailure(t *testing.T) {
	f := newFixture(t)
	ticket := f.submit(t, user, "hello")
	f.rec.Fail(secondary, errors.New("offline"))

	res, err := f.delegation.Delegate(context.Background(), ticket.ID, secondary, primaryA)
	require.NoError(t, err)
	assert.True(t, apperrors.HasCode(res.DeliveryErr, apperrors.CodeDeliveryFailed))
	assert.Equal(t, "Zahra", res.AssigneeName)
	assert.Equal(t, domain.TicketStatusDelegated, res.Ticket.Status)
}

func TestNotifyPrimaryTierContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.submissions.Begin(user, "Crypto", "@trader"))
	for _, item := range []domain.ContentItem{
		domain.Text{Body: "look"},
		domain.Image{Ref: "img-1"},
		domain.Voice{Ref: "v-1"},
		domain.Document{Ref: "d-1", Filename: "a.pdf"},
	} {
		_, err := f.submissions.Append(user, item)
		require.NoError(t, err)
	}
	ticket, err := f.submissions.Finalize(context.Background(), user)
	require.NoError(t, err)

	f.rec.Fail(primaryA, errors.New("blocked"))
	report := f.delegation.NotifyPrimaryTier(context.Background(), ticket)

	assert.Equal(t, 1, report.Delivered())
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, primaryA, report.Failed()[0].Recipient)

	got := f.rec.To(primaryB)
	// header, text, image, voice label, voice, document label, document, prompt
	require.Len(t, got, 8)
	assert.Contains(t, got[0].Text, "Username: @trader")
	assert.Equal(t, domain.Text{Body: "Message 1:\nlook"}, got[1].Item)
	assert.Equal(t, domain.Image{Ref: "img-1", Caption: "Image 2"}, got[2].Item)
	assert.Equal(t, "Voice message 3", got[3].Text)
	assert.Equal(t, domain.Voice{Ref: "v-1"}, got[4].Item)
	assert.Equal(t, "File 4: a.pdf", got[5].Text)
	assert.Equal(t, domain.Document{Ref: "d-1", Filename: "a.pdf"}, got[6].Item)
	assert.Len(t, got[7].Options.Choices, 2)
}

func TestNotifyPrimaryTierWithoutPrimaries(t *testing.T) {
	f := newFixture(t)
	ticket := f.submit(t, user, "hello")

	empty := NewDelegationService(DelegationDependencies{
		Store:     f.store,
		Directory: directory.New(config.DirectoryConfig{SecondaryAdmins: []string{"200"}}),
		Sender:    f.rec,
	})
	report := empty.NotifyPrimaryTier(context.Background(), ticket)
	assert.Empty(t, report.Results)
	assert.Empty(t, f.rec.All())
}
