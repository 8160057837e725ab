package dto

import (
	"time"

	"github.com/spec-kit/support-relay/internal/domain"
	"github.com/spec-kit/support-relay/internal/transport"
)

// TicketSummary is the list view of a ticket.
type TicketSummary struct {
	ID              string              `json:"id"`
	RequesterID     string              `json:"requester_id"`
	RequesterHint   string              `json:"requester_hint"`
	Category        string              `json:"category"`
	Status          domain.TicketStatus `json:"status"`
	AssignedAdminID string              `json:"assigned_admin_id,omitempty"`
	ItemCount       int                 `json:"item_count"`
	SubmittedAt     time.Time           `json:"submitted_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Items              []transport.ContentFrame `json:"items"`
	DelegatedAt        *time.Time               `json:"delegated_at,omitempty"`
	DelegatedBy        string                   `json:"delegated_by,omitempty"`
	FirstReplyAt       *time.Time               `json:"first_reply_at,omitempty"`
	FirstReply         string                   `json:"first_reply,omitempty"`
	CompletedAt        *time.Time               `json:"completed_at,omitempty"`
	CompletedBy        string                   `json:"completed_by,omitempty"`
	EndReason          domain.EndReason         `json:"end_reason,omitempty"`
	ConversationActive bool                     `json:"conversation_active"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID         string                  `json:"id"`
	ActorID    string                  `json:"actor_id"`
	ChangeType domain.TicketChangeType `json:"change_type"`
	OldStatus  domain.TicketStatus     `json:"old_status,omitempty"`
	NewStatus  domain.TicketStatus     `json:"new_status"`
	Details    map[string]any          `json:"details,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
}

// NewTicketSummary maps a ticket to its list view.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:              t.ID,
		RequesterID:     t.RequesterID.String(),
		RequesterHint:   t.RequesterHint,
		Category:        t.Category,
		Status:          t.Status,
		AssignedAdminID: t.AssignedAdminID.String(),
		ItemCount:       len(t.Items),
		SubmittedAt:     t.SubmittedAt,
	}
}

// NewTicketDetail maps a ticket with its content items.
func NewTicketDetail(t *domain.Ticket) TicketDetailResponse {
	items := make([]transport.ContentFrame, 0, len(t.Items))
	for _, item := range t.Items {
		items = append(items, transport.EncodeContent(item))
	}
	return TicketDetailResponse{
		TicketSummary:      NewTicketSummary(t),
		Items:              items,
		DelegatedAt:        t.DelegatedAt,
		DelegatedBy:        t.DelegatedBy.String(),
		FirstReplyAt:       t.FirstReplyAt,
		FirstReply:         t.FirstReply,
		CompletedAt:        t.CompletedAt,
		CompletedBy:        t.CompletedBy.String(),
		EndReason:          t.EndReason,
		ConversationActive: t.ConversationActive,
	}
}

// NewTicketHistory maps audit entries.
func NewTicketHistory(entries []domain.TicketHistory) []TicketHistoryResponse {
	out := make([]TicketHistoryResponse, 0, len(entries))
	for _, h := range entries {
		out = append(out, TicketHistoryResponse{
			ID:         h.ID,
			ActorID:    h.ActorID.String(),
			ChangeType: h.ChangeType,
			OldStatus:  h.OldStatus,
			NewStatus:  h.NewStatus,
			Details:    h.Details,
			CreatedAt:  h.CreatedAt,
		})
	}
	return out
}
