package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeSubmitted TicketChangeType = "SUBMITTED"
	ChangeTypeDelegated TicketChangeType = "DELEGATED"
	ChangeTypeActivated TicketChangeType = "ACTIVATED"
	ChangeTypeCompleted TicketChangeType = "COMPLETED"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID         string
	TicketID   string
	ActorID    Identity
	ChangeType TicketChangeType
	OldStatus  TicketStatus
	NewStatus  TicketStatus
	Details    map[string]any
	CreatedAt  time.Time
}
