package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/chemclass-api/internal/models"
	"github.com/noah-isme/chemclass-api/internal/utils"
)

// RequireUser admits any caller JWTProtected has authenticated.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := UserID(c); !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}
		return c.Next()
	}
}

// RequireRole admits authenticated callers holding one of roles.
func RequireRole(roles ...models.Role) fiber.Handler {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		if role = models.ParseRole(string(role)); role.Valid() {
			allowed[role] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		if _, ok := UserID(c); !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}
		if _, ok := allowed[UserRole(c)]; !ok {
			return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
		}
		return c.Next()
	}
}

// UserRole returns the role carried by the verified token, or "" for anonymous requests.
func UserRole(c *fiber.Ctx) models.Role {
	switch v := c.Locals(LocalUserRole).(type) {
	case models.Role:
		return models.ParseRole(string(v))
	case string:
		return models.ParseRole(v)
	default:
		return ""
	}
}
