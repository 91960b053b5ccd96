package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/chemclass-api/internal/dto"
	"github.com/noah-isme/chemclass-api/internal/service"
	"github.com/noah-isme/chemclass-api/internal/utils"
)

// TuitionHandler exposes batch billing and payment status endpoints.
type TuitionHandler struct {
	service service.TuitionService
	logger  zerolog.Logger
}

// NewTuitionHandler constructs the handler.
func NewTuitionHandler(service service.TuitionService, logger zerolog.Logger) *TuitionHandler {
	return &TuitionHandler{
		service: service,
		logger:  logger.With().Str("component", "tuition_handler").Logger(),
	}
}

// RegisterBatches attaches /admin/tuition-batches routes.
func (h *TuitionHandler) RegisterBatches(router fiber.Router) {
	router.Post("", h.createBatch)
	router.Get("/class/:classId", h.listBatches)
	router.Get("/:id/tuitions", h.batchTuitions)
	router.Delete("/:id", h.deleteBatch)
}

// RegisterRecords attaches /admin/tuitions routes.
func (h *TuitionHandler) RegisterRecords(router fiber.Router) {
	router.Put("/:id/pay", h.markPaid)
	router.Put("/:id/unpay", h.markUnpaid)
}

// StudentHistory lists the caller's own tuition records.
func (h *TuitionHandler) StudentHistory(c *fiber.Ctx) error {
	actor := activityActorFromContext(c)
	history, err := h.service.History(c.UserContext(), actor.ID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load tuition history")
	}
	return utils.SendSuccess(c, "tuitions retrieved", history)
}

func (h *TuitionHandler) createBatch(c *fiber.Ctx) error {
	var payload dto.TuitionBatchCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	batch, err := h.service.CreateBatch(c.UserContext(), payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to create tuition batch")
	}
	return utils.Created(c, "tuition batch created", batch)
}

func (h *TuitionHandler) listBatches(c *fiber.Ctx) error {
	classID, err := parseUUIDParam(c, "classId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	batches, err := h.service.ListBatches(c.UserContext(), classID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list tuition batches")
	}
	return utils.SendSuccess(c, "tuition batches retrieved", batches)
}

// batchTuitions reconciles the batch with current enrollment before listing it.
func (h *TuitionHandler) batchTuitions(c *fiber.Ctx) error {
	batchID, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	roster, err := h.service.SyncAndList(c.UserContext(), batchID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load batch tuitions")
	}
	return utils.SendSuccess(c, "batch tuitions retrieved", roster)
}

func (h *TuitionHandler) deleteBatch(c *fiber.Ctx) error {
	batchID, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	summary, err := h.service.DeleteBatch(c.UserContext(), batchID, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to delete tuition batch")
	}
	return utils.SendSuccess(c, "tuition batch deleted", summary)
}

func (h *TuitionHandler) markPaid(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	record, err := h.service.MarkPaid(c.UserContext(), id, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to mark tuition paid")
	}
	return utils.SendSuccess(c, "tuition marked paid", record)
}

func (h *TuitionHandler) markUnpaid(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	record, err := h.service.MarkUnpaid(c.UserContext(), id, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to mark tuition unpaid")
	}
	return utils.SendSuccess(c, "tuition marked unpaid", record)
}
