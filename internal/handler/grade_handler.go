package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/chemclass-api/internal/dto"
	"github.com/noah-isme/chemclass-api/internal/service"
	"github.com/noah-isme/chemclass-api/internal/utils"
)

// GradeHandler exposes exams and their grade sheets.
type GradeHandler struct {
	service service.ExamService
	logger  zerolog.Logger
}

// NewGradeHandler constructs the handler.
func NewGradeHandler(service service.ExamService, logger zerolog.Logger) *GradeHandler {
	return &GradeHandler{
		service: service,
		logger:  logger.With().Str("component", "grade_handler").Logger(),
	}
}

// Register attaches /admin/grades routes.
func (h *GradeHandler) Register(router fiber.Router) {
	router.Get("/classes/:classId/exams", h.listExams)
	router.Post("/exams", h.createExam)
	router.Put("/exams/:id", h.updateExam)
	router.Delete("/exams/:id", h.deleteExam)
	router.Get("/exams/:id/grades", h.gradeSheet)
	router.Post("/exams/:id/grades", h.saveGrades)
}

// StudentGrades lists the caller's own grades.
func (h *GradeHandler) StudentGrades(c *fiber.Ctx) error {
	actor := activityActorFromContext(c)
	grades, err := h.service.StudentGrades(c.UserContext(), actor.ID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load grades")
	}
	return utils.SendSuccess(c, "grades retrieved", grades)
}

func (h *GradeHandler) listExams(c *fiber.Ctx) error {
	classID, err := parseUUIDParam(c, "classId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	exams, err := h.service.ListByClass(c.UserContext(), classID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list exams")
	}
	return utils.SendSuccess(c, "exams retrieved", exams)
}

func (h *GradeHandler) createExam(c *fiber.Ctx) error {
	var payload dto.ExamRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	exam, err := h.service.Create(c.UserContext(), payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to create exam")
	}
	return utils.Created(c, "exam created", exam)
}

func (h *GradeHandler) updateExam(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ExamRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	exam, err := h.service.Update(c.UserContext(), id, payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to update exam")
	}
	return utils.SendSuccess(c, "exam updated", exam)
}

func (h *GradeHandler) deleteExam(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), id, activityActorFromContext(c)); err != nil {
		return respondError(c, h.logger, err, "failed to delete exam")
	}
	return utils.SendSuccess(c, "exam deleted", fiber.Map{"id": id})
}

func (h *GradeHandler) gradeSheet(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	sheet, err := h.service.GradeSheet(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load grade sheet")
	}
	return utils.SendSuccess(c, "grade sheet retrieved", sheet)
}

func (h *GradeHandler) saveGrades(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SaveGradesRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.SaveGrades(c.UserContext(), id, payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to save grades")
	}
	return utils.SendSuccess(c, "grades saved", result)
}
