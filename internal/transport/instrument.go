package transport

import (
	"context"

	"github.com/spec-kit/support-relay/internal/domain"
)

// DeliveryMetrics counts delivery outcomes.
type DeliveryMetrics interface {
	RecordDelivery(kind string, err error)
}

type instrumentedSender struct {
	next    Sender
	metrics DeliveryMetrics
}

// Instrument wraps next so that every delivery is counted by kind and outcome.
func Instrument(next Sender, metrics DeliveryMetrics) Sender {
	if metrics == nil {
		return next
	}
	return &instrumentedSender{next: next, metrics: metrics}
}

func (s *instrumentedSender) Deliver(ctx context.Context, to domain.Identity, item domain.ContentItem) error {
	err := s.next.Deliver(ctx, to, item)
	s.metrics.RecordDelivery(string(item.Kind()), err)
	return err
}

func (s *instrumentedSender) DeliverText(ctx context.Context, to domain.Identity, text string, opts ...TextOption) error {
	err := s.next.DeliverText(ctx, to, text, opts...)
	s.metrics.RecordDelivery("notice", err)
	return err
}
