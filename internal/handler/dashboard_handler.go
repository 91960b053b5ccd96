package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/chemclass-api/internal/service"
	"github.com/noah-isme/chemclass-api/internal/utils"
)

// DashboardHandler serves the admin dashboard and the subject list.
type DashboardHandler struct {
	dashboard service.DashboardService
	subjects  service.SubjectService
	logger    zerolog.Logger
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(dashboard service.DashboardService, subjects service.SubjectService, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboard: dashboard,
		subjects:  subjects,
		logger:    logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// Admin returns the admin totals.
func (h *DashboardHandler) Admin(c *fiber.Ctx) error {
	summary, err := h.dashboard.Admin(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err, "failed to load dashboard")
	}
	return utils.SendSuccess(c, "dashboard retrieved", summary)
}

// Subjects lists every subject.
func (h *DashboardHandler) Subjects(c *fiber.Ctx) error {
	subjects, err := h.subjects.List(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err, "failed to list subjects")
	}
	return utils.SendSuccess(c, "subjects retrieved", subjects)
}
