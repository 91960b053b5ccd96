package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/chemclass-api/internal/dto"
	"github.com/noah-isme/chemclass-api/internal/service"
	"github.com/noah-isme/chemclass-api/internal/utils"
)

// ClassHandler serves class, group and roster management.
type ClassHandler struct {
	service service.ClassService
	logger  zerolog.Logger
}

// NewClassHandler constructs the handler.
func NewClassHandler(service service.ClassService, logger zerolog.Logger) *ClassHandler {
	return &ClassHandler{
		service: service,
		logger:  logger.With().Str("component", "class_handler").Logger(),
	}
}

// Register attaches admin class routes. Group routes are registered before /:id so they win the match.
func (h *ClassHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Delete("/groups/:groupId", h.deleteGroup)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/groups", h.createGroup)
	router.Get("/:id/students", h.roster)
	router.Post("/:id/students", h.enroll)
}

// PublicList is the class list shown on the registration form.
func (h *ClassHandler) PublicList(c *fiber.Ctx) error {
	return h.list(c)
}

func (h *ClassHandler) list(c *fiber.Ctx) error {
	classes, err := h.service.List(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err, "failed to list classes")
	}
	return utils.SendSuccess(c, "classes retrieved", classes)
}

func (h *ClassHandler) create(c *fiber.Ctx) error {
	var payload dto.ClassRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	class, err := h.service.Create(c.UserContext(), payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to create class")
	}
	return utils.Created(c, "class created", class)
}

func (h *ClassHandler) update(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ClassRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	class, err := h.service.Update(c.UserContext(), id, payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to update class")
	}
	return utils.SendSuccess(c, "class updated", class)
}

func (h *ClassHandler) delete(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	summary, err := h.service.Delete(c.UserContext(), id, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to delete class")
	}
	return utils.SendSuccess(c, "class deleted", summary)
}

func (h *ClassHandler) createGroup(c *fiber.Ctx) error {
	classID, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GroupRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	group, err := h.service.CreateGroup(c.UserContext(), classID, payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to create group")
	}
	return utils.Created(c, "group created", group)
}

func (h *ClassHandler) deleteGroup(c *fiber.Ctx) error {
	groupID, err := parseUUIDParam(c, "groupId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteGroup(c.UserContext(), groupID, activityActorFromContext(c)); err != nil {
		return respondError(c, h.logger, err, "failed to delete group")
	}
	return utils.SendSuccess(c, "group deleted", fiber.Map{"id": groupID})
}

func (h *ClassHandler) roster(c *fiber.Ctx) error {
	classID, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	students, err := h.service.Roster(c.UserContext(), classID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load class roster")
	}
	return utils.SendSuccess(c, "class roster", students)
}

func (h *ClassHandler) enroll(c *fiber.Ctx) error {
	classID, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.EnrollStudentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if err := h.service.Enroll(c.UserContext(), classID, payload, activityActorFromContext(c)); err != nil {
		return respondError(c, h.logger, err, "failed to enroll student")
	}
	return utils.Created(c, "student enrolled", fiber.Map{
		"class_id":   classID,
		"student_id": payload.StudentID,
	})
}
