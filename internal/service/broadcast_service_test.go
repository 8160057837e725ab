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

func TestBroadcast(t *testing.T) {
	f := newFixture(t)
	svc := NewBroadcastService(BroadcastDependencies{
		Directory:  f.dir,
		Sender:     f.rec,
		Dispatcher: f.dispatcher,
	})

	_, err := svc.Broadcast(context.Background(), primaryA, "hello")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	_, err = svc.Broadcast(context.Background(), "900", "   ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))

	f.rec.Fail(other, errors.New("offline"))
	report, err := svc.Broadcast(context.Background(), "900", "maintenance at 22:00")
	require.NoError(t, err)
	assert.Len(t, report.Results, 4)
	assert.Equal(t, 3, report.Delivered())
	for _, admin := range []domain.Identity{primaryA, primaryB, secondary} {
		assert.True(t, f.rec.Contains(admin, "maintenance at 22:00"))
	}
	assert.Empty(t, f.rec.To("900"), "super admin is not a recipient unless listed in a tier")
}
