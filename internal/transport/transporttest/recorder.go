// Package transporttest provides an in-memory transport.Sender for tests.
package transporttest

import (
	"context"
	"strings"
	"sync"

	"github.com/spec-kit/support-relay/internal/domain"
	"github.com/spec-kit/support-relay/internal/transport"
)

// Delivery is one recorded outbound message. Exactly one of Item or Text is set.
type Delivery struct {
	To      domain.Identity
	Item    domain.ContentItem
	Text    string
	Options transport.TextOptions
}

// Body returns the text of the delivery, or the caption of a content item.
func (d Delivery) Body() string {
	if d.Item != nil {
		return domain.Caption(d.Item)
	}
	return d.Text
}

// Recorder captures every delivery and can be told to fail specific recipients.
type Recorder struct {
	mu         sync.Mutex
	deliveries []Delivery
	failures   map[domain.Identity]error
}

var _ transport.Sender = (*Recorder)(nil)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{failures: make(map[domain.Identity]error)}
}

// Fail makes every subsequent delivery to id return err. A nil err clears it.
func (r *Recorder) Fail(id domain.Identity, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.failures, id)
		return
	}
	r.failures[id] = err
}

func (r *Recorder) Deliver(_ context.Context, to domain.Identity, item domain.ContentItem) error {
	return r.record(Delivery{To: to, Item: item})
}

func (r *Recorder) DeliverText(_ context.Context, to domain.Identity, text string, opts ...transport.TextOption) error {
	return r.record(Delivery{To: to, Text: text, Options: transport.ApplyTextOptions(opts...)})
}

func (r *Recorder) record(d Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.failures[d.To]; ok {
		return err
	}
	r.deliveries = append(r.deliveries, d)
	return nil
}

// All returns every successful delivery in order.
func (r *Recorder) All() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Delivery(nil), r.deliveries...)
}

// To returns the successful deliveries addressed to id, in order.
func (r *Recorder) To(id domain.Identity) []Delivery {
	var out []Delivery
	for _, d := range r.All() {
		if d.To == id {
			out = append(out, d)
		}
	}
	return out
}

// Last returns the most recent delivery to id.
func (r *Recorder) Last(id domain.Identity) (Delivery, bool) {
	all := r.To(id)
	if len(all) == 0 {
		return Delivery{}, false
	}
	return all[len(all)-1], true
}

// Contains reports whether any delivery to id has a body containing substr.
func (r *Recorder) Contains(id domain.Identity, substr string) bool {
	for _, d := range r.To(id) {
		if strings.Contains(d.Body(), substr) {
			return true
		}
	}
	return false
}

// Reset forgets recorded deliveries but keeps failure injections.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = nil
}
