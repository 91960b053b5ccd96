package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func correlationApp() *fiber.App {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(GetCorrelationID(c) + "|" + CorrelationIDFromContext(c.UserContext()))
	})
	return app
}

func correlationFor(t *testing.T, header, value string) (string, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	resp, err := correlationApp().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.Header.Get(HeaderCorrelationID), string(body)
}

func TestCorrelationIDEchoesIncomingHeader(t *testing.T) {
	echoed, body := correlationFor(t, HeaderCorrelationID, "req-42")
	require.Equal(t, "req-42", echoed)
	require.Equal(t, "req-42|req-42", body)

	echoed, _ = correlationFor(t, fiber.HeaderXRequestID, "upstream-7")
	require.Equal(t, "upstream-7", echoed)
}

func TestCorrelationIDReplacesUnusableValues(t *testing.T) {
	echoed, _ := correlationFor(t, "", "")
	_, err := uuid.Parse(echoed)
	require.NoError(t, err)

	echoed, _ = correlationFor(t, HeaderCorrelationID, strings.Repeat("a", 200))
	_, err = uuid.Parse(echoed)
	require.NoError(t, err)

	echoed, _ = correlationFor(t, HeaderCorrelationID, "has space")
	_, err = uuid.Parse(echoed)
	require.NoError(t, err)
}

func TestAPIArea(t *testing.T) {
	require.Equal(t, "admin", apiArea("/api/admin/classes"))
	require.Equal(t, "student", apiArea("/api/student/dashboard"))
	require.Equal(t, "auth", apiArea("/api/auth/login"))
	require.Equal(t, "public", apiArea("/api/health"))
	require.Equal(t, "public", apiArea("/api/subjects"))
}
