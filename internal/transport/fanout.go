package transport

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/support-relay/internal/domain"
)

// DeliveryResult is the outcome for one recipient.
type DeliveryResult struct {
	Recipient domain.Identity
	Err       error
}

// DeliveryReport aggregates per-recipient outcomes in recipient order.
type DeliveryReport struct {
	Results []DeliveryResult
}

// Delivered counts successful recipients.
func (r DeliveryReport) Delivered() int {
	n := 0
	for _, res := range r.Results {
		if res.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the recipients whose delivery failed.
func (r DeliveryReport) Failed() []DeliveryResult {
	var failed []DeliveryResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err joins every per-recipient failure, or nil when all succeeded.
func (r DeliveryReport) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, &DeliveryError{Recipient: res.Recipient, Err: res.Err})
	}
	return errors.Join(errs...)
}

// FanOut runs send for every recipient independently with at most limit
// sends in flight (limit <= 0 means unbounded). A failing recipient never
// stops the others.
func FanOut(ctx context.Context, recipients []domain.Identity, limit int, send func(ctx context.Context, to domain.Identity) error) DeliveryReport {
	report := DeliveryReport{Results: make([]DeliveryResult, len(recipients))}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, to := range recipients {
		report.Results[i].Recipient = to
		g.Go(func() error {
			report.Results[i].Err = send(ctx, to)
			return nil
		})
	}
	_ = g.Wait()
	return report
}
