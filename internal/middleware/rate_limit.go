package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/noah-isme/chemclass-api/internal/utils"
)

// RateLimitConfig bounds how often one caller may hit a route.
type RateLimitConfig struct {
	Scope  string
	Max    int
	Window time.Duration

	// FailuresOnly counts only responses with status >= 400, so a caller who
	// keeps succeeding is never throttled.
	FailuresOnly bool
}

// RateLimit keys callers by authenticated user id, or by client IP when anonymous.
// Rejections answer 429; the limiter sets Retry-After.
func RateLimit(cfg RateLimitConfig) fiber.Handler {
	if cfg.Max <= 0 {
		cfg.Max = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}

	return limiter.New(limiter.Config{
		Max:                    cfg.Max,
		Expiration:             cfg.Window,
		SkipSuccessfulRequests: cfg.FailuresOnly,
		KeyGenerator: func(c *fiber.Ctx) string {
			if userID, ok := UserID(c); ok {
				return cfg.Scope + ":user:" + userID.String()
			}
			return cfg.Scope + ":ip:" + c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return utils.SendError(c, fiber.StatusTooManyRequests, "too many requests, try again later")
		},
	})
}
