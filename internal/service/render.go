package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/support-relay/internal/domain"
	"github.com/spec-kit/support-relay/internal/transport"
)

const timeLayout = "2006-01-02 15:04"

// ReplyFormatHint tells admins how to address a first reply.
const ReplyFormatHint = "<user id>: <reply text>"

func formatTime(t *time.Time) string {
	if t == nil {
		return "unknown"
	}
	return t.Format(timeLayout)
}

func primaryHeader(t *domain.Ticket) string {
	return fmt.Sprintf("New request from user\n\nUsername: %s\nUser ID: %s\nDate: %s\nCategory: %s\nMessages: %d",
		t.RequesterHint, t.RequesterID, t.SubmittedAt.Format(timeLayout), t.Category, len(t.Items))
}

func delegatedHeader(t *domain.Ticket, delegatorName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Request delegated by %s\n\n", delegatorName)
	fmt.Fprintf(&b, "Username: %s\nUser ID: %s\nDate: %s\nCategory: %s\nMessages: %d\nDelegated at: %s\n\n",
		t.RequesterHint, t.RequesterID, t.SubmittedAt.Format(timeLayout), t.Category, len(t.Items), formatTime(t.DelegatedAt))
	fmt.Fprintf(&b, "To reply, write:\n%s: <reply text>\n\n", t.RequesterID)
	fmt.Fprintf(&b, "After the first reply you can talk to the user directly.\nUse /endchat %s to close the conversation.", t.RequesterID)
	return b.String()
}

func firstReplyHeader(t *domain.Ticket) string {
	return fmt.Sprintf("Reply from the support team\n\nCategory: %s", t.Category)
}

func requesterHeader(t *domain.Ticket) string {
	return fmt.Sprintf("New message from %s (ID: %s)", t.RequesterHint, t.RequesterID)
}

func closureNotice() string {
	return "Your conversation with the support team has ended.\n\nIf you have another question, pick a category to start a new request."
}

func closureSummary(t *domain.Ticket, enderName string) string {
	return fmt.Sprintf("Conversation ended\n\nEnded by: %s\nUsername: %s\nUser ID: %s\nCategory: %s\nEnded at: %s",
		enderName, t.RequesterHint, t.RequesterID, t.Category, formatTime(t.CompletedAt))
}

func userEndedNotice(t *domain.Ticket) string {
	return fmt.Sprintf("User %s (ID: %s) ended the conversation.", t.RequesterHint, t.RequesterID)
}

// numbered labels the i-th (1-based) item of a ticket while keeping its kind.
// Text and images carry the label inline; voice notes and documents are
// preceded by a label line.
func numbered(i int, item domain.ContentItem) (label string, out domain.ContentItem) {
	switch v := item.(type) {
	case domain.Text:
		return "", domain.Text{Body: fmt.Sprintf("Message %d:\n%s", i, v.Body)}
	case domain.Image:
		caption := fmt.Sprintf("Image %d", i)
		if v.Caption != "" {
			caption += "\n" + v.Caption
		}
		return "", domain.Image{Ref: v.Ref, Caption: caption}
	case domain.Voice:
		return fmt.Sprintf("Voice message %d", i), v
	case domain.Document:
		return fmt.Sprintf("File %d: %s", i, v.Filename), v
	default:
		return "", item
	}
}

// deliverTicket sends the header followed by every item in submission order,
// stopping at the first failure.
func deliverTicket(ctx context.Context, sender transport.Sender, to domain.Identity, header string, t *domain.Ticket) error {
	if err := sender.DeliverText(ctx, to, header, transport.WithEmphasis()); err != nil {
		return err
	}
	for i, item := range t.Items {
		label, out := numbered(i+1, item)
		if label != "" {
			if err := sender.DeliverText(ctx, to, label, transport.WithEmphasis()); err != nil {
				return err
			}
		}
		if err := sender.Deliver(ctx, to, out); err != nil {
			return err
		}
	}
	return nil
}
