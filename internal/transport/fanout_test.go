package transport_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/spec-kit/support-relay/internal/domain"
	"github.com/spec-kit/support-relay/internal/transport"
	"github.com/spec-kit/support-relay/internal/transport/transporttest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFanOutCollectsPerRecipientResults(t *testing.T) {
	rec := transporttest.NewRecorder()
	offline := errors.New("offline")
	rec.Fail("101", offline)

	recipients := []domain.Identity{"100", "101", "102"}
	report := transport.FanOut(context.Background(), recipients, 2, func(ctx context.Context, to domain.Identity) error {
		return rec.DeliverText(ctx, to, "ping")
	})

	require.Len(t, report.Results, 3)
	for i, res := range report.Results {
		assert.Equal(t, recipients[i], res.Recipient)
	}
	assert.Equal(t, 2, report.Delivered())
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, domain.Identity("101"), report.Failed()[0].Recipient)

	var derr *transport.DeliveryError
	require.ErrorAs(t, report.Err(), &derr)
	assert.Equal(t, domain.Identity("101"), derr.Recipient)
	assert.ErrorIs(t, report.Err(), offline)

	assert.Len(t, rec.To("100"), 1)
	assert.Len(t, rec.To("102"), 1)
}

func TestFanOutRespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	recipients := []domain.Identity{"1", "2", "3", "4", "5", "6"}

	report := transport.FanOut(context.Background(), recipients, 2, func(context.Context, domain.Identity) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	})

	assert.Equal(t, len(recipients), report.Delivered())
	assert.NoError(t, report.Err())
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestFanOutEmpty(t *testing.T) {
	report := transport.FanOut(context.Background(), nil, 0, func(context.Context, domain.Identity) error {
		t.Fatal("send must not be called")
		return nil
	})
	assert.Empty(t, report.Results)
	assert.NoError(t, report.Err())
}

func TestTextOptions(t *testing.T) {
	opts := transport.ApplyTextOptions(
		transport.WithEmphasis(),
		transport.WithChoices(transport.Choice{Label: "Zahra", Data: "delegate:200:t1"}),
	)
	assert.True(t, opts.Emphasis)
	assert.Equal(t, []transport.Choice{{Label: "Zahra", Data: "delegate:200:t1"}}, opts.Choices)
}

func TestDelegationDataRoundTrip(t *testing.T) {
	data := transport.DelegationData("200", "42_1772359200-2")
	assert.Equal(t, "delegate:200:42_1772359200-2", data)

	choice, ok := transport.ParseDelegationData(data)
	require.True(t, ok)
	assert.Equal(t, domain.Identity("200"), choice.AdminID)
	assert.Equal(t, "42_1772359200-2", choice.TicketID)

	for _, bad := range []string{"", "delegate:", "delegate:200", "delegate::t1", "assign:200:t1"} {
		_, ok := transport.ParseDelegationData(bad)
		assert.False(t, ok, bad)
	}
}

func TestDecodeChoice(t *testing.T) {
	in, ok := transport.DecodeChoice("100", "@a", transport.DelegationData("200", "42_1"))
	require.True(t, ok)
	assert.Equal(t, transport.InboundDelegation, in.Kind)
	assert.Equal(t, transport.DelegationChoice{TicketID: "42_1", AdminID: "200"}, in.Delegation)
	assert.Equal(t, domain.Identity("100"), in.Sender)

	in, ok = transport.DecodeChoice("42", "", transport.CategoryData("Gold/FX"))
	require.True(t, ok)
	assert.Equal(t, transport.InboundCategory, in.Kind)
	assert.Equal(t, "Gold/FX", in.Category)

	in, ok = transport.DecodeChoice("42", "", transport.NavigationData(transport.NavEndSubmission))
	require.True(t, ok)
	assert.Equal(t, transport.InboundNavigation, in.Kind)
	assert.Equal(t, transport.NavEndSubmission, in.Navigation)

	for _, bad := range []string{"", "nav:fly", "category:", "delegate:200", "unknown:x"} {
		_, ok := transport.DecodeChoice("42", "", bad)
		assert.False(t, ok, bad)
	}
}
