package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/chemclass-api/internal/observability"
)

const slowRequestThreshold = 500 * time.Millisecond

// Observability records request metrics per API area and writes one structured line per request.
// Admin traffic and failures are logged at info or above; student and auth traffic at debug.
func Observability(logger zerolog.Logger) fiber.Handler {
	observability.RegisterMetrics()

	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := c.Path()
		if !strings.HasPrefix(path, "/api/") || path == "/api/metrics" {
			return err
		}

		duration := time.Since(start)
		area := apiArea(path)
		route := routeTemplate(c)
		method := c.Method()
		status := c.Response().StatusCode()
		statusLabel := strconv.Itoa(status)

		observability.Requests().WithLabelValues(area, method, route, statusLabel).Inc()
		observability.Latency().WithLabelValues(area, method, route).Observe(duration.Seconds())
		if status >= fiber.StatusBadRequest {
			observability.ErrorResponses().WithLabelValues(area, method, route, statusLabel).Inc()
		}

		var event *zerolog.Event
		switch {
		case status >= fiber.StatusInternalServerError:
			event = logger.Error()
		case status >= fiber.StatusBadRequest || duration > slowRequestThreshold:
			event = logger.Warn()
		case area == "admin":
			event = logger.Info()
		default:
			event = logger.Debug()
		}
		event.
			Str("correlation_id", GetCorrelationID(c)).
			Str("area", area).
			Str("route", route).
			Str("method", method).
			Int("status", status).
			Dur("latency", duration).
			Msg("request completed")

		return err
	}
}

func apiArea(path string) string {
	rest := strings.TrimPrefix(path, "/api/")
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		rest = rest[:idx]
	}
	switch rest {
	case "admin", "student", "auth":
		return rest
	default:
		return "public"
	}
}

func routeTemplate(c *fiber.Ctx) string {
	if c.Route() != nil && c.Route().Path != "" {
		return c.Route().Path
	}
	return c.Path()
}
