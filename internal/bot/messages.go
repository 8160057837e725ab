package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/spec-kit/support-relay/internal/domain"
	"github.com/spec-kit/support-relay/internal/service"
	apperrors "github.com/spec-kit/support-relay/pkg/util/errorutil"
)

const timeLayout = "2006-01-02 15:04"

func msgItemReceived(count int) string {
	return fmt.Sprintf("Message %d received. Send more, or press \"Send request\" when you are done.", count)
}

func msgCategoryChosen(category string) string {
	return fmt.Sprintf("Category: %s\n\nSend your question as text, photos, voice notes or files. Press \"Send request\" when you are done.", category)
}

func msgTicketSubmitted(t *domain.Ticket) string {
	return fmt.Sprintf("Your request (%d messages, %s) was sent to the support team. You will receive a reply here.\n\nTo start another request, choose a category:",
		len(t.Items), t.Category)
}

func msgDelegated(name string) string {
	return fmt.Sprintf("Request delegated to %s.", name)
}

func msgDelegationUndelivered(name string) string {
	return fmt.Sprintf("Request delegated to %s, but the notification could not be delivered. Please let them know.", name)
}

func msgFirstReplySent(user domain.Identity) string {
	return fmt.Sprintf("Reply sent. The conversation with user %s is now active and you can write to them directly.\nUse /endchat %s to close it.", user, user)
}

func msgRelayedToAdmin() string {
	return "Your message was sent to support."
}

func msgRelayedToUser(user domain.Identity) string {
	return fmt.Sprintf("Message sent to user %s.", user)
}

func msgConversationEnded(user domain.Identity) string {
	return fmt.Sprintf("Conversation with user %s ended.", user)
}

func renderError(err error) string {
	derr := apperrors.ToDomainError(err)
	switch derr.Code {
	case apperrors.CodeUnauthorized, apperrors.CodeForbidden:
		return "You are not allowed to do that."
	case apperrors.CodeWrongState:
		if strings.Contains(derr.Message, "already delegated") {
			return "This request was already delegated by another admin."
		}
		return "That action does not apply to this request any more."
	case apperrors.CodeConflictingActiveTicket:
		return "There is already an active conversation. End it before starting another."
	case apperrors.CodeNotFound:
		if names, ok := derr.Details["available"].([]string); ok {
			return "Unknown command. Available: /" + strings.Join(names, ", /")
		}
		return "Nothing matching was found: " + derr.Message + "."
	case apperrors.CodeEmptyBuffer:
		return "Please send at least one message before sending the request."
	case apperrors.CodeNoActiveBuffer:
		return "Please pick a category first."
	case apperrors.CodeInvalidFormat:
		return "Invalid format. To reply to a user write:\n" + service.ReplyFormatHint
	case apperrors.CodeDeliveryFailed:
		return fmt.Sprintf("Your message could not be delivered to %v.", derr.Details["recipient"])
	case apperrors.CodeValidationFailed:
		return "Invalid request: " + derr.Message + "."
	default:
		return "Something went wrong. Please try again."
	}
}

func greeting(role domain.Role, name string) string {
	switch role {
	case domain.RoleSuperAdmin:
		return "Welcome, super admin.\n\nUse /admins to list the directory and /broadcast <text> to message every admin."
	case domain.RolePrimaryAdmin:
		return fmt.Sprintf("Welcome %s. New requests will arrive here; choose a secondary admin to delegate each one.\n\nUse /help to see your commands.", name)
	case domain.RoleSecondaryAdmin:
		return fmt.Sprintf("Hello %s, you are connected to the support panel.\n\nTo answer a delegated request write:\n%s\n\nExample: 123456789: Hello, about your question...", name, service.ReplyFormatHint)
	default:
		return "Welcome to support. Choose a category to start a request:"
	}
}

const primaryHelp = "/fullstatus - full report\n/stats - compact statistics\n/pending - requests not yet completed\n/adminstatus <admin id> - statistics for one admin\n"

func helpText(role domain.Role) string {
	var b strings.Builder
	b.WriteString("Available commands:\n/start - main menu\n/help - this message\n/cancel - discard the request in progress\n")
	switch role {
	case domain.RoleSuperAdmin:
		b.WriteString("/broadcast <text> - message every admin\n/admins - list the admin directory\n")
		b.WriteString(primaryHelp)
	case domain.RolePrimaryAdmin:
		b.WriteString(primaryHelp)
	case domain.RoleSecondaryAdmin:
		b.WriteString("/mytask - your open assignments\n/mystatus - your statistics\n/fullstatus - full report\n/endchat <user id> - end the conversation with a user\n")
		b.WriteString("\nTo answer a delegated request write:\n" + service.ReplyFormatHint + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderStats(s service.GlobalStats) string {
	return fmt.Sprintf("Statistics\n\nTotal: %d\nAwaiting delegation: %d\nDelegated: %d\nActive: %d\nCompleted: %d",
		s.Total, s.Submitted, s.Delegated, s.Active, s.Completed)
}

func renderFullStatus(g service.GlobalStats, admins []service.AdminStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Full report\n\nTotal requests: %d\nAnswered: %d\nUnanswered: %d\nOpen conversations: %d\nClosed conversations: %d\n",
		g.Total, g.Answered, g.Unanswered, g.OpenConversations, g.Completed)
	if len(admins) > 0 {
		b.WriteString("\nPer admin:\n")
		for _, a := range admins {
			b.WriteString(renderAdminLine(a))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderAdminLine(a service.AdminStats) string {
	return fmt.Sprintf("%s (%s): total %d, completed %d, active %d, answered %d, pending %d\n",
		a.Name, a.AdminID, a.Total, a.Completed, a.Active, a.Answered, a.Pending)
}

func renderAdminStats(a service.AdminStats) string {
	return fmt.Sprintf("Statistics for %s\n\nTotal assigned: %d\nCompleted: %d\nActive: %d\nAnswered: %d\nPending: %d",
		a.Name, a.Total, a.Completed, a.Active, a.Answered, a.Pending)
}

func renderTicketList(title string, tickets []domain.Ticket, assigneeName func(domain.Identity) string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d)\n", title, len(tickets))
	for _, t := range tickets {
		assignee := "not delegated"
		if t.AssignedAdminID != "" {
			assignee = assigneeName(t.AssignedAdminID)
		}
		fmt.Fprintf(&b, "\nID: %s\nUser: %s (%s)\nCategory: %s\nAssigned to: %s\nStatus: %s\nSubmitted: %s\n",
			t.ID, t.RequesterHint, t.RequesterID, t.Category, assignee, t.Status, t.SubmittedAt.Format(timeLayout))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderAssignments(name string, stats service.AdminStats, tickets []domain.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tasks for %s\n\n%d open of %d total (%d completed)\n", name, len(tickets), stats.Total, stats.Completed)
	for _, t := range tickets {
		fmt.Fprintf(&b, "\nUser ID: %s\nUser: %s\nCategory: %s\nStatus: %s\nDelegated: %s\n", t.RequesterID, t.RequesterHint, t.Category, t.Status, formatTime(t.DelegatedAt))
		if !t.Answered() {
			fmt.Fprintf(&b, "Reply with: %s: <reply text>\n", t.RequesterID)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "unknown"
	}
	return t.Format(timeLayout)
}
