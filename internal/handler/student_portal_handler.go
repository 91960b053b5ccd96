package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/chemclass-api/internal/service"
	"github.com/noah-isme/chemclass-api/internal/utils"
)

// StudentPortalHandler serves the student's classes and dashboard.
type StudentPortalHandler struct {
	service service.StudentPortalService
	logger  zerolog.Logger
}

// NewStudentPortalHandler constructs the handler.
func NewStudentPortalHandler(service service.StudentPortalService, logger zerolog.Logger) *StudentPortalHandler {
	return &StudentPortalHandler{
		service: service,
		logger:  logger.With().Str("component", "student_portal_handler").Logger(),
	}
}

// Register attaches /student routes owned by this handler.
func (h *StudentPortalHandler) Register(router fiber.Router) {
	router.Get("/classes", h.classes)
	router.Get("/dashboard", h.dashboard)
}

func (h *StudentPortalHandler) classes(c *fiber.Ctx) error {
	actor := activityActorFromContext(c)
	classes, err := h.service.MyClasses(c.UserContext(), actor.ID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load classes")
	}
	return utils.SendSuccess(c, "classes retrieved", classes)
}

func (h *StudentPortalHandler) dashboard(c *fiber.Ctx) error {
	actor := activityActorFromContext(c)
	dashboard, err := h.service.Dashboard(c.UserContext(), actor.ID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load dashboard")
	}
	return utils.SendSuccess(c, "dashboard retrieved", dashboard)
}
