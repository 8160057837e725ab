// Package transport defines the narrow surface the relay core uses to reach
// chat participants, and the shape of inbound events adapters hand to it.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/spec-kit/support-relay/internal/domain"
)

// ErrRecipientOffline is returned by adapters that cannot currently reach a recipient.
var ErrRecipientOffline = errors.New("recipient offline")

// Sender delivers content to one recipient. Implementations must be safe for
// concurrent use.
type Sender interface {
	Deliver(ctx context.Context, to domain.Identity, item domain.ContentItem) error
	DeliverText(ctx context.Context, to domain.Identity, text string, opts ...TextOption) error
}

// Choice is a selectable affordance attached to a text message.
type Choice struct {
	Label string `json:"label"`
	Data  string `json:"data"`
}

// TextOptions collects presentation hints for DeliverText.
type TextOptions struct {
	Emphasis bool
	Choices  []Choice
}

// TextOption mutates TextOptions.
type TextOption func(*TextOptions)

// WithEmphasis renders the text as highlighted.
func WithEmphasis() TextOption {
	return func(o *TextOptions) {
		o.Emphasis = true
	}
}

// WithChoices attaches selectable choices to the text.
func WithChoices(choices ...Choice) TextOption {
	return func(o *TextOptions) {
		o.Choices = append(o.Choices, choices...)
	}
}

// ApplyTextOptions resolves options for adapters.
func ApplyTextOptions(opts ...TextOption) TextOptions {
	var o TextOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DeliveryError describes a failed send to a single recipient.
type DeliveryError struct {
	Recipient domain.Identity
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to %s: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
