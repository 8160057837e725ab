package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-relay/internal/api/dto"
	"github.com/spec-kit/support-relay/internal/auth"
	"github.com/spec-kit/support-relay/internal/domain"
	"github.com/spec-kit/support-relay/internal/transport"
	apperrors "github.com/spec-kit/support-relay/pkg/util/errorutil"
)

// ChatFrontend is the conversational entry point shared with the gateway.
type ChatFrontend interface {
	Handle(ctx context.Context, in transport.Inbound) error
	Command(ctx context.Context, sender domain.Identity, hint, name string, args []string) error
}

// EventsHandler accepts participant events over HTTP. Replies still travel
// through the chat transport.
type EventsHandler struct {
	chat ChatFrontend
}

// NewEventsHandler constructs handler.
func NewEventsHandler(chat ChatFrontend) *EventsHandler {
	return &EventsHandler{chat: chat}
}

// PostEvent handles POST /events.
func (h *EventsHandler) PostEvent(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var frame transport.InboundFrame
	if err := c.BodyParser(&frame); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	in, err := frame.Inbound(principal.Identity, principal.Hint)
	if err != nil {
		return apperrors.NewValidationError(err.Error(), nil)
	}
	if err := h.chat.Handle(c.UserContext(), in); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"accepted": true, "kind": in.Kind}})
}

// RunCommand handles POST /commands/:name.
func (h *EventsHandler) RunCommand(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.CommandRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	if err := h.chat.Command(c.UserContext(), principal.Identity, principal.Hint, c.Params("name"), req.Args); err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"accepted": true, "command": c.Params("name")}})
}
