package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/noah-isme/chemclass-api/internal/models"
	"github.com/noah-isme/chemclass-api/internal/utils"
	"github.com/noah-isme/chemclass-api/pkg/token"
)

// Locals keys populated by JWTProtected.
const (
	LocalUserID         = "user_id"
	LocalUserRole       = "user_role"
	LocalTokenID        = "token_id"
	LocalTokenExpiresAt = "token_expires_at"
)

// JWTProtected validates bearer tokens, rejects revoked ones and stores the caller in Locals.
// A nil blacklist disables the revocation check.
func JWTProtected(tokens *token.Manager, revoked token.Blacklist) fiber.Handler {
	if revoked == nil {
		revoked = token.NopBlacklist{}
	}

	return func(c *fiber.Ctx) error {
		authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if authorization == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}

		const bearer = "bearer "
		if len(authorization) < len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		raw := strings.TrimSpace(authorization[len(bearer):])
		claims, err := tokens.Parse(raw)
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}
		userID, err := claims.UserID()
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		if claims.ID != "" {
			isRevoked, err := revoked.IsRevoked(c.UserContext(), claims.ID)
			if err != nil || isRevoked {
				return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
			}
		}

		c.Locals(LocalUserID, userID)
		c.Locals(LocalUserRole, models.ParseRole(claims.Role))
		c.Locals(LocalTokenID, claims.ID)
		if claims.ExpiresAt != nil {
			c.Locals(LocalTokenExpiresAt, claims.ExpiresAt.Time)
		}

		return c.Next()
	}
}

// UserID returns the authenticated user id, or false for anonymous requests.
func UserID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(LocalUserID).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// TokenID returns the jti of the presented token and its expiry.
func TokenID(c *fiber.Ctx) (string, time.Time) {
	id, _ := c.Locals(LocalTokenID).(string)
	expiresAt, _ := c.Locals(LocalTokenExpiresAt).(time.Time)
	return id, expiresAt
}
