package domain

import (
	"slices"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusSubmitted TicketStatus = "SUBMITTED"
	TicketStatusDelegated TicketStatus = "DELEGATED"
	TicketStatusActive    TicketStatus = "ACTIVE"
	TicketStatusCompleted TicketStatus = "COMPLETED"
)

// Rank orders statuses along the lifecycle; unknown statuses rank -1.
func (s TicketStatus) Rank() int {
	switch s {
	case TicketStatusSubmitted:
		return 0
	case TicketStatusDelegated:
		return 1
	case TicketStatusActive:
		return 2
	case TicketStatusCompleted:
		return 3
	default:
		return -1
	}
}

// EndReason records why a conversation was closed.
type EndReason string

const (
	EndReasonAdminEnded EndReason = "admin_ended"
	EndReasonUserEnded  EndReason = "user_ended"
)

// NoHint is stored when the requester has no public username.
const NoHint = "none"

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID                 string
	RequesterID        Identity
	RequesterHint      string
	Category           string
	Items              []ContentItem
	Status             TicketStatus
	AssignedAdminID    Identity
	SubmittedAt        time.Time
	DelegatedAt        *time.Time
	DelegatedBy        Identity
	FirstReplyAt       *time.Time
	FirstReply         string
	CompletedAt        *time.Time
	CompletedBy        Identity
	EndReason          EndReason
	ConversationActive bool
}

// Completed reports whether the ticket reached its terminal state.
func (t *Ticket) Completed() bool {
	return t.Status == TicketStatusCompleted
}

// Answered reports whether the assignee has replied at least once.
func (t *Ticket) Answered() bool {
	return t.FirstReplyAt != nil
}

// Clone returns a copy that can be mutated without affecting t. Items are
// frozen after finalization and are shared.
func (t *Ticket) Clone() *Ticket {
	c := *t
	c.Items = slices.Clip(t.Items)
	c.DelegatedAt = cloneTime(t.DelegatedAt)
	c.FirstReplyAt = cloneTime(t.FirstReplyAt)
	c.CompletedAt = cloneTime(t.CompletedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
