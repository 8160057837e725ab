// Package bot turns inbound chat events into core operations and renders
// their outcomes back to the participants.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-relay/internal/directory"
	"github.com/spec-kit/support-relay/internal/domain"
	"github.com/spec-kit/support-relay/internal/service"
	"github.com/spec-kit/support-relay/internal/transport"
	apperrors "github.com/spec-kit/support-relay/pkg/util/errorutil"
)

// Handler processes inbound events. It is safe for concurrent use; distinct
// events may be handled in parallel.
type Handler struct {
	directory    *directory.Directory
	submissions  *service.SubmissionService
	delegation   *service.DelegationService
	conversation *service.ConversationService
	reporting    *service.ReportingService
	broadcast    *service.BroadcastService
	sender       transport.Sender
	logger       *zap.Logger
	categories   []string
}

// Dependencies bundles collaborators for Handler.
type Dependencies struct {
	Directory    *directory.Directory
	Submissions  *service.SubmissionService
	Delegation   *service.DelegationService
	Conversation *service.ConversationService
	Reporting    *service.ReportingService
	Broadcast    *service.BroadcastService
	Sender       transport.Sender
	Logger       *zap.Logger
	Categories   []string
}

// NewHandler constructs the handler.
func NewHandler(deps Dependencies) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		directory:    deps.Directory,
		submissions:  deps.Submissions,
		delegation:   deps.Delegation,
		conversation: deps.Conversation,
		reporting:    deps.Reporting,
		broadcast:    deps.Broadcast,
		sender:       deps.Sender,
		logger:       logger,
		categories:   deps.Categories,
	}
}

// Handle runs the single core operation an inbound event maps to. Domain
// errors are rendered to the sender and also returned.
func (h *Handler) Handle(ctx context.Context, in transport.Inbound) error {
	if in.Sender == "" {
		return apperrors.NewValidationError("sender required", nil)
	}

	var err error
	switch in.Kind {
	case transport.InboundContent:
		err = h.handleContent(ctx, in)
	case transport.InboundNavigation:
		err = h.handleNavigation(ctx, in)
	case transport.InboundCategory:
		err = h.handleCategory(ctx, in)
	case transport.InboundDelegation:
		err = h.handleDelegation(ctx, in)
	case transport.InboundCommand:
		return h.Command(ctx, in.Sender, in.SenderHint, in.Command, in.Args)
	default:
		return apperrors.NewValidationError(fmt.Sprintf("unknown event kind %q", in.Kind), nil)
	}
	if err != nil {
		h.reportError(ctx, in.Sender, err)
	}
	return err
}

func (h *Handler) handleContent(ctx context.Context, in transport.Inbound) error {
	if in.Item == nil {
		return apperrors.NewValidationError("content item required", nil)
	}
	if h.directory.IsSecondary(in.Sender) {
		return h.handleAdminContent(ctx, in.Sender, in.Item)
	}

	relay, err := h.conversation.Relay(ctx, in.Sender, in.Item)
	if err != nil {
		return err
	}
	if relay.TicketID != "" {
		if relay.Relayed {
			return h.reply(ctx, in.Sender, msgRelayedToAdmin())
		}
		return nil
	}

	if _, _, ok := h.submissions.Active(in.Sender); !ok {
		return h.promptCategory(ctx, in.Sender, "Please pick a category first.")
	}
	count, err := h.submissions.Append(in.Sender, in.Item)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeNoActiveBuffer) {
			return h.promptCategory(ctx, in.Sender, "Please pick a category first.")
		}
		return err
	}
	return h.reply(ctx, in.Sender, msgItemReceived(count), transport.WithChoices(submissionChoices()...))
}

func (h *Handler) handleAdminContent(ctx context.Context, admin domain.Identity, item domain.ContentItem) error {
	outcome, err := h.conversation.HandleAdminMessage(ctx, admin, item)
	if err != nil {
		return err
	}
	switch {
	case outcome.Action == service.AdminActionFirstReply:
		return h.reply(ctx, admin, msgFirstReplySent(outcome.Ticket.RequesterID), transport.WithChoices(endConversationChoice()))
	case outcome.Action == service.AdminActionRelayed && outcome.Relay.Relayed:
		return h.reply(ctx, admin, msgRelayedToUser(outcome.Relay.Recipient))
	}
	return nil
}

func (h *Handler) handleNavigation(ctx context.Context, in transport.Inbound) error {
	switch in.Navigation {
	case transport.NavHome, transport.NavBack:
		h.submissions.Cancel(in.Sender)
		return h.greet(ctx, in.Sender)
	case transport.NavEndSubmission:
		return h.finalize(ctx, in.Sender)
	case transport.NavCancelSubmission:
		if !h.submissions.Cancel(in.Sender) {
			return h.promptCategory(ctx, in.Sender, "There is no request in progress.")
		}
		return h.promptCategory(ctx, in.Sender, "Your request was cancelled.")
	case transport.NavEndConversation:
		if h.directory.IsSecondary(in.Sender) {
			res, err := h.conversation.EndCurrent(ctx, in.Sender)
			if err != nil {
				return err
			}
			return h.reply(ctx, in.Sender, msgConversationEnded(res.Ticket.RequesterID))
		}
		_, err := h.conversation.EndByRequester(ctx, in.Sender)
		return err
	default:
		return apperrors.NewValidationError(fmt.Sprintf("unknown navigation %q", in.Navigation), nil)
	}
}

func (h *Handler) finalize(ctx context.Context, user domain.Identity) error {
	ticket, err := h.submissions.Finalize(ctx, user)
	if err != nil {
		return err
	}
	report := h.delegation.NotifyPrimaryTier(ctx, ticket)
	if len(report.Results) > 0 && report.Delivered() == 0 {
		h.logger.Error("no primary admin received the ticket", zap.String("ticket_id", ticket.ID))
	}
	return h.reply(ctx, user, msgTicketSubmitted(ticket), transport.WithChoices(h.categoryChoices()...))
}

func (h *Handler) handleCategory(ctx context.Context, in transport.Inbound) error {
	hint := in.SenderHint
	if hint != "" && !strings.HasPrefix(hint, "@") {
		hint = "@" + hint
	}
	if err := h.submissions.Begin(in.Sender, in.Category, hint); err != nil {
		return err
	}
	return h.reply(ctx, in.Sender, msgCategoryChosen(in.Category), transport.WithChoices(submissionChoices()...))
}

func (h *Handler) handleDelegation(ctx context.Context, in transport.Inbound) error {
	res, err := h.delegation.Delegate(ctx, in.Delegation.TicketID, in.Delegation.AdminID, in.Sender)
	if err != nil {
		return err
	}
	if res.DeliveryErr != nil {
		return h.reply(ctx, in.Sender, msgDelegationUndelivered(res.AssigneeName))
	}
	return h.reply(ctx, in.Sender, msgDelegated(res.AssigneeName))
}

func (h *Handler) reply(ctx context.Context, to domain.Identity, text string, opts ...transport.TextOption) error {
	if err := h.sender.DeliverText(ctx, to, text, opts...); err != nil {
		h.logger.Warn("reply not delivered", zap.String("recipient", to.String()), zap.Error(err))
		return apperrors.NewDeliveryFailed(to.String(), err)
	}
	return nil
}

func (h *Handler) promptCategory(ctx context.Context, to domain.Identity, lead string) error {
	return h.reply(ctx, to, lead+"\n\nChoose a category:", transport.WithChoices(h.categoryChoices()...))
}

// reportError tells the actor why their action failed. Delivery failures to
// the actor themselves are only logged.
func (h *Handler) reportError(ctx context.Context, to domain.Identity, err error) {
	var derr *apperrors.DomainError
	if errors.As(err, &derr) && derr.Code == apperrors.CodeDeliveryFailed && derr.Details["recipient"] == to.String() {
		return
	}
	h.logger.Info("action rejected", zap.String("actor_id", to.String()), zap.Error(err))
	if sendErr := h.sender.DeliverText(ctx, to, renderError(err)); sendErr != nil {
		h.logger.Warn("error notice not delivered", zap.String("recipient", to.String()), zap.Error(sendErr))
	}
}

func (h *Handler) categoryChoices() []transport.Choice {
	choices := make([]transport.Choice, 0, len(h.categories))
	for _, c := range h.categories {
		choices = append(choices, transport.Choice{Label: c, Data: transport.CategoryData(c)})
	}
	return choices
}

func submissionChoices() []transport.Choice {
	return []transport.Choice{
		{Label: "Send request", Data: transport.NavigationData(transport.NavEndSubmission)},
		{Label: "Cancel", Data: transport.NavigationData(transport.NavCancelSubmission)},
		{Label: "Back", Data: transport.NavigationData(transport.NavBack)},
	}
}

func endConversationChoice() transport.Choice {
	return transport.Choice{Label: "End conversation", Data: transport.NavigationData(transport.NavEndConversation)}
}
