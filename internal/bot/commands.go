package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-relay/internal/directory"
	"github.com/spec-kit/support-relay/internal/domain"
	"github.com/spec-kit/support-relay/internal/transport"
	apperrors "github.com/spec-kit/support-relay/pkg/util/errorutil"
)

type command struct {
	allowed func(d *directory.Directory, id domain.Identity) bool
	run     func(h *Handler, ctx context.Context, sender domain.Identity, args []string) error
}

func anyone(*directory.Directory, domain.Identity) bool { return true }

func primaryOnly(d *directory.Directory, id domain.Identity) bool { return d.IsPrimary(id) }

func secondaryOnly(d *directory.Directory, id domain.Identity) bool { return d.IsSecondary(id) }

func superOnly(d *directory.Directory, id domain.Identity) bool { return d.IsSuper(id) }

func anyTier(d *directory.Directory, id domain.Identity) bool {
	return d.IsPrimary(id) || d.IsSecondary(id)
}

var commands = map[string]command{
	"start":       {allowed: anyone, run: (*Handler).cmdStart},
	"help":        {allowed: anyone, run: (*Handler).cmdHelp},
	"cancel":      {allowed: anyone, run: (*Handler).cmdCancel},
	"endchat":     {allowed: secondaryOnly, run: (*Handler).cmdEndChat},
	"fullstatus":  {allowed: anyTier, run: (*Handler).cmdFullStatus},
	"pending":     {allowed: primaryOnly, run: (*Handler).cmdPending},
	"mytask":      {allowed: secondaryOnly, run: (*Handler).cmdMyTask},
	"mystatus":    {allowed: secondaryOnly, run: (*Handler).cmdMyStatus},
	"stats":       {allowed: primaryOnly, run: (*Handler).cmdStats},
	"adminstatus": {allowed: primaryOnly, run: (*Handler).cmdAdminStatus},
	"broadcast":   {allowed: superOnly, run: (*Handler).cmdBroadcast},
	"admins":      {allowed: superOnly, run: (*Handler).cmdAdmins},
}

// CommandNames lists the supported commands in alphabetical order.
func CommandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Command runs a named command for sender after checking the caller's tier.
func (h *Handler) Command(ctx context.Context, sender domain.Identity, hint, name string, args []string) error {
	name = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "/"))
	cmd, ok := commands[name]
	if !ok {
		err := apperrors.NewNotFound("command", map[string]any{
			"command":   name,
			"available": CommandNames(),
		})
		h.reportError(ctx, sender, err)
		return err
	}
	if !cmd.allowed(h.directory, sender) {
		h.logger.Warn("command rejected",
			zap.String("command", name),
			zap.String("actor_id", sender.String()),
			zap.String("role", string(h.directory.Classify(sender))))
		err := apperrors.NewUnauthorized(fmt.Sprintf("/%s is not available for your role", name))
		h.reportError(ctx, sender, err)
		return err
	}
	if err := cmd.run(h, ctx, sender, args); err != nil {
		h.reportError(ctx, sender, err)
		return err
	}
	return nil
}

func (h *Handler) greet(ctx context.Context, to domain.Identity) error {
	role := h.directory.Classify(to)
	text := greeting(role, h.directory.DisplayName(to))
	if role == domain.RoleUser {
		return h.reply(ctx, to, text, transport.WithChoices(h.categoryChoices()...))
	}
	return h.reply(ctx, to, text)
}

func (h *Handler) cmdStart(ctx context.Context, sender domain.Identity, _ []string) error {
	h.submissions.Cancel(sender)
	return h.greet(ctx, sender)
}

func (h *Handler) cmdHelp(ctx context.Context, sender domain.Identity, _ []string) error {
	return h.reply(ctx, sender, helpText(h.directory.Classify(sender)))
}

func (h *Handler) cmdCancel(ctx context.Context, sender domain.Identity, _ []string) error {
	if !h.submissions.Cancel(sender) {
		return h.reply(ctx, sender, "There is no request in progress.")
	}
	return h.promptCategory(ctx, sender, "Your request was cancelled.")
}

func (h *Handler) cmdEndChat(ctx context.Context, sender domain.Identity, args []string) error {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return apperrors.NewValidationError("usage: /endchat <user id>", nil)
	}
	user := domain.Identity(strings.TrimSpace(args[0]))
	if _, err := h.conversation.EndForRequester(ctx, sender, user); err != nil {
		return err
	}
	return h.reply(ctx, sender, msgConversationEnded(user))
}

func (h *Handler) cmdFullStatus(ctx context.Context, sender domain.Identity, _ []string) error {
	global := h.reporting.Global()
	if global.Total == 0 {
		return h.reply(ctx, sender, "No requests yet.")
	}
	return h.reply(ctx, sender, renderFullStatus(global, h.reporting.PerAdmin()))
}

func (h *Handler) cmdPending(ctx context.Context, sender domain.Identity, _ []string) error {
	pending := h.reporting.Pending()
	if len(pending) == 0 {
		return h.reply(ctx, sender, "There are no pending requests.")
	}
	return h.reply(ctx, sender, renderTicketList("Pending requests", pending, h.directory.DisplayName))
}

func (h *Handler) cmdMyTask(ctx context.Context, sender domain.Identity, _ []string) error {
	tasks := h.reporting.Assignments(sender)
	if len(tasks) == 0 {
		return h.reply(ctx, sender, "You have no open assignments.")
	}
	return h.reply(ctx, sender, renderAssignments(h.directory.DisplayName(sender), h.reporting.ForAdmin(sender), tasks))
}

func (h *Handler) cmdMyStatus(ctx context.Context, sender domain.Identity, _ []string) error {
	return h.reply(ctx, sender, renderAdminStats(h.reporting.ForAdmin(sender)))
}

func (h *Handler) cmdStats(ctx context.Context, sender domain.Identity, _ []string) error {
	return h.reply(ctx, sender, renderStats(h.reporting.Global()))
}

func (h *Handler) cmdAdminStatus(ctx context.Context, sender domain.Identity, args []string) error {
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return apperrors.NewValidationError("usage: /adminstatus <admin id>", nil)
	}
	admin := domain.Identity(strings.TrimSpace(args[0]))
	if !h.directory.IsSecondary(admin) {
		return apperrors.NewNotFound("secondary admin", map[string]any{"admin_id": admin.String()})
	}
	return h.reply(ctx, sender, renderAdminStats(h.reporting.ForAdmin(admin)))
}

func (h *Handler) cmdBroadcast(ctx context.Context, sender domain.Identity, args []string) error {
	report, err := h.broadcast.Broadcast(ctx, sender, strings.Join(args, " "))
	if err != nil {
		return err
	}
	return h.reply(ctx, sender, fmt.Sprintf("Broadcast delivered to %d of %d admins.", report.Delivered(), len(report.Results)))
}

func (h *Handler) cmdAdmins(ctx context.Context, sender domain.Identity, _ []string) error {
	var b strings.Builder
	b.WriteString("Admin directory\n")
	if super, ok := h.directory.SuperAdmin(); ok {
		fmt.Fprintf(&b, "\nSuper admin: %s\n", super)
	}
	b.WriteString("\nPrimary admins:\n")
	for _, id := range h.directory.PrimaryAdmins() {
		fmt.Fprintf(&b, "- %s (%s)\n", h.directory.DisplayName(id), id)
	}
	b.WriteString("\nSecondary admins:\n")
	for _, id := range h.directory.SecondaryAdmins() {
		fmt.Fprintf(&b, "- %s (%s)\n", h.directory.DisplayName(id), id)
	}
	return h.reply(ctx, sender, strings.TrimRight(b.String(), "\n"))
}
