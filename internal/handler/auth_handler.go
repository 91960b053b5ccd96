package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/chemclass-api/internal/dto"
	"github.com/noah-isme/chemclass-api/internal/middleware"
	"github.com/noah-isme/chemclass-api/internal/service"
	"github.com/noah-isme/chemclass-api/internal/utils"
)

// AuthHandler exposes registration, login and the caller's own account.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// RegisterPublic attaches the unauthenticated routes. loginGuard runs before login only.
func (h *AuthHandler) RegisterPublic(router fiber.Router, loginGuard fiber.Handler) {
	router.Post("/register", h.register)
	if loginGuard != nil {
		router.Post("/login", loginGuard, h.login)
	} else {
		router.Post("/login", h.login)
	}
}

// RegisterProtected attaches routes that need a verified token. guard is the JWT middleware.
func (h *AuthHandler) RegisterProtected(router fiber.Router, guard fiber.Handler) {
	authenticated := middleware.RequireUser()
	router.Get("/me", guard, authenticated, h.Me)
	router.Put("/profile", guard, authenticated, h.updateProfile)
	router.Post("/logout", guard, authenticated, h.logout)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.Register(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to register")
	}
	return utils.Created(c, "registration successful", response)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	response, err := h.service.Login(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to login")
	}
	return utils.SendSuccess(c, "login successful", response)
}

// Me returns the caller's account. It also serves /student/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	actor := activityActorFromContext(c)
	user, err := h.service.Me(c.UserContext(), actor.ID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load profile")
	}
	return utils.SendSuccess(c, "profile retrieved", user)
}

func (h *AuthHandler) updateProfile(c *fiber.Ctx) error {
	var payload dto.ProfileUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	actor := activityActorFromContext(c)
	user, err := h.service.UpdateProfile(c.UserContext(), actor.ID, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update profile")
	}
	return utils.SendSuccess(c, "profile updated", user)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	tokenID, expiresAt := middleware.TokenID(c)
	if err := h.service.Logout(c.UserContext(), tokenID, expiresAt); err != nil {
		return respondError(c, h.logger, err, "failed to logout")
	}
	return utils.SendSuccess(c, "logged out", nil)
}
