package events

import (
	"time"

	"github.com/spec-kit/support-relay/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketSubmitted     EventType = "ticket_submitted"
	EventTicketDelegated     EventType = "ticket_delegated"
	EventConversationStarted EventType = "conversation_started"
	EventMessageRelayed      EventType = "message_relayed"
	EventTicketCompleted     EventType = "ticket_completed"
	EventBroadcastSent       EventType = "broadcast_sent"
)

// AllEventTypes lists every type a subscriber may register for.
var AllEventTypes = []EventType{
	EventTicketSubmitted,
	EventTicketDelegated,
	EventConversationStarted,
	EventMessageRelayed,
	EventTicketCompleted,
	EventBroadcastSent,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   domain.Identity `json:"id"`
	Role domain.Role     `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id,omitempty"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketSubmittedPayload payload.
type TicketSubmittedPayload struct {
	Category  string `json:"category"`
	ItemCount int    `json:"item_count"`
}

// TicketDelegatedPayload payload.
type TicketDelegatedPayload struct {
	AssigneeID domain.Identity `json:"assignee_id"`
	Delivered  bool            `json:"delivered"`
}

// ConversationStartedPayload payload.
type ConversationStartedPayload struct {
	RequesterID domain.Identity `json:"requester_id"`
	Delivered   bool            `json:"delivered"`
}

// MessageRelayedPayload payload.
type MessageRelayedPayload struct {
	Recipient domain.Identity    `json:"recipient"`
	Kind      domain.ContentKind `json:"kind"`
	Delivered bool               `json:"delivered"`
}

// TicketCompletedPayload payload.
type TicketCompletedPayload struct {
	Reason     domain.EndReason `json:"reason"`
	Notified   int              `json:"notified"`
	Recipients int              `json:"recipients"`
}

// BroadcastSentPayload payload.
type BroadcastSentPayload struct {
	Delivered  int `json:"delivered"`
	Recipients int `json:"recipients"`
}
