package utils_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/chemclass-api/internal/utils"
)

func TestEnvelopeShapes(t *testing.T) {
	app := fiber.New()
	app.Get("/list", func(c *fiber.Ctx) error {
		return utils.OK(c, []string{"Inorganic"}, "", fiber.Map{"page": 1, "total_items": 1})
	})
	app.Post("/classes", func(c *fiber.Ctx) error {
		return utils.Created(c, "class created", fiber.Map{"name": "Inorganic"})
	})
	app.Post("/invalid", func(c *fiber.Ctx) error {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", map[string]string{"class_id": "failed on required"})
	})
	app.Get("/missing", func(c *fiber.Ctx) error {
		return utils.SendError(c, fiber.StatusNotFound, "")
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return utils.Unavailable(c, "service degraded", fiber.Map{"status": "degraded"})
	})

	cases := []struct {
		name    string
		method  string
		path    string
		status  int
		success bool
		message string
		keys    []string
		absent  []string
	}{
		{"list with meta", fiber.MethodGet, "/list", fiber.StatusOK, true, "success", []string{"data", "meta"}, []string{"details"}},
		{"created", fiber.MethodPost, "/classes", fiber.StatusCreated, true, "class created", []string{"data"}, []string{"meta", "details"}},
		{"validation details", fiber.MethodPost, "/invalid", fiber.StatusBadRequest, false, "validation failed", []string{"details"}, []string{"data", "meta"}},
		{"default error message", fiber.MethodGet, "/missing", fiber.StatusNotFound, false, "error", nil, []string{"data", "meta", "details"}},
		{"degraded keeps payload", fiber.MethodGet, "/health", fiber.StatusServiceUnavailable, false, "service degraded", []string{"data"}, []string{"meta"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest(tc.method, tc.path, nil), -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tc.status, resp.StatusCode)

			var payload map[string]interface{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
			require.Equal(t, tc.success, payload["success"])
			require.Equal(t, tc.message, payload["message"])
			for _, key := range tc.keys {
				require.Contains(t, payload, key)
			}
			for _, key := range tc.absent {
				require.NotContains(t, payload, key)
			}
		})
	}
}
