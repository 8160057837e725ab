package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/support-relay/internal/api/dto"
	"github.com/spec-kit/support-relay/internal/auth"
	"github.com/spec-kit/support-relay/internal/domain"
	"github.com/spec-kit/support-relay/internal/repository"
	"github.com/spec-kit/support-relay/internal/service"
	apperrors "github.com/spec-kit/support-relay/pkg/util/errorutil"
)

// ReportsHandler exposes read-only projections for admins.
type ReportsHandler struct {
	reports *service.ReportingService
	history repository.TicketHistoryRepository
	logger  *zap.Logger
}

// NewReportsHandler constructs handler. history may be nil.
func NewReportsHandler(reports *service.ReportingService, history repository.TicketHistoryRepository, logger *zap.Logger) *ReportsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportsHandler{reports: reports, history: history, logger: logger}
}

// Summary handles GET /reports/summary.
func (h *ReportsHandler) Summary(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": fiber.Map{
		"global": h.reports.Global(),
		"admins": h.reports.PerAdmin(),
	}})
}

// Admin handles GET /reports/admins/:id. Secondary admins may only read
// their own figures.
func (h *ReportsHandler) Admin(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	admin := domain.Identity(c.Params("id"))
	if !principal.Has(domain.RolePrimaryAdmin) && principal.Identity != admin {
		return apperrors.NewUnauthorized("cannot read another admin's figures")
	}
	items := h.reports.Assignments(admin)
	summaries := make([]dto.TicketSummary, 0, len(items))
	for i := range items {
		summaries = append(summaries, dto.NewTicketSummary(&items[i]))
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"stats":       h.reports.ForAdmin(admin),
		"assignments": summaries,
	}})
}

// Pending handles GET /tickets/pending.
func (h *ReportsHandler) Pending(c *fiber.Ctx) error {
	items := h.reports.Pending()
	summaries := make([]dto.TicketSummary, 0, len(items))
	for i := range items {
		summaries = append(summaries, dto.NewTicketSummary(&items[i]))
	}
	return c.JSON(fiber.Map{"data": summaries})
}

// Ticket handles GET /tickets/:id. Secondary admins only see tickets assigned
// to them.
func (h *ReportsHandler) Ticket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	ticket, err := h.reports.Ticket(c.Params("id"))
	if err != nil {
		return err
	}
	if !principal.Has(domain.RolePrimaryAdmin) && !principal.Has(domain.RoleSuperAdmin) &&
		ticket.AssignedAdminID != principal.Identity {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticket.ID})
	}

	response := fiber.Map{"ticket": dto.NewTicketDetail(ticket)}
	if h.history != nil {
		entries, err := h.history.ListByTicket(c.UserContext(), ticket.ID)
		if err != nil {
			h.logger.Warn("history lookup failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		} else {
			response["history"] = dto.NewTicketHistory(entries)
		}
	}
	return c.JSON(fiber.Map{"data": response})
}
