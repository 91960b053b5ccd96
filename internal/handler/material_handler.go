package handler

import (
	"errors"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/noah-isme/chemclass-api/internal/dto"
	"github.com/noah-isme/chemclass-api/internal/service"
	"github.com/noah-isme/chemclass-api/internal/utils"
)

// MaterialHandler exposes document management and the student document list.
type MaterialHandler struct {
	service service.MaterialService
	logger  zerolog.Logger
}

// NewMaterialHandler constructs the handler.
func NewMaterialHandler(service service.MaterialService, logger zerolog.Logger) *MaterialHandler {
	return &MaterialHandler{
		service: service,
		logger:  logger.With().Str("component", "material_handler").Logger(),
	}
}

// Register attaches /admin/documents routes.
func (h *MaterialHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
}

// StudentDocuments lists materials visible to the caller.
func (h *MaterialHandler) StudentDocuments(c *fiber.Ctx) error {
	actor := activityActorFromContext(c)
	materials, err := h.service.ListForStudent(c.UserContext(), actor.ID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list documents")
	}
	return utils.SendSuccess(c, "documents retrieved", materials)
}

func (h *MaterialHandler) list(c *fiber.Ctx) error {
	classID, err := parseOptionalUUIDQuery(c, "class_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid class id")
	}
	groupID, err := parseOptionalUUIDQuery(c, "group_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid group id")
	}

	materials, err := h.service.List(c.UserContext(), dto.MaterialListRequest{ClassID: classID, GroupID: groupID})
	if err != nil {
		return respondError(c, h.logger, err, "failed to list documents")
	}
	return utils.SendSuccess(c, "documents retrieved", materials)
}

func (h *MaterialHandler) create(c *fiber.Ctx) error {
	payload, file, err := parseMaterialForm(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	material, err := h.service.Create(c.UserContext(), payload, file, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to create document")
	}
	return utils.Created(c, "document uploaded", material)
}

func (h *MaterialHandler) update(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	payload, file, err := parseMaterialForm(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	material, err := h.service.Update(c.UserContext(), id, payload, file, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to update document")
	}
	return utils.SendSuccess(c, "document updated", material)
}

func (h *MaterialHandler) delete(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), id, activityActorFromContext(c)); err != nil {
		return respondError(c, h.logger, err, "failed to delete document")
	}
	return utils.SendSuccess(c, "document deleted", fiber.Map{"id": id})
}

// parseMaterialForm reads the multipart fields and the optional `file` part.
func parseMaterialForm(c *fiber.Ctx) (dto.MaterialRequest, *multipart.FileHeader, error) {
	var payload dto.MaterialRequest
	if err := c.BodyParser(&payload); err != nil {
		return dto.MaterialRequest{}, nil, err
	}

	file, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, fasthttp.ErrMissingFile) || errors.Is(err, fasthttp.ErrNoMultipartForm) {
			return payload, nil, nil
		}
		return dto.MaterialRequest{}, nil, err
	}
	return payload, file, nil
}
