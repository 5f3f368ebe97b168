package handler_test

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/yikao-labs/shenlun-api/internal/config"
	"github.com/yikao-labs/shenlun-api/internal/handler"
	"github.com/yikao-labs/shenlun-api/internal/router"
)

func TestHealthCheck(t *testing.T) {
	app := fiber.New()
	router.Register(app, config.Config{AppName: "Shenlun Grader API", AppEnv: "test", AIProvider: "dashscope"}, router.Dependencies{})

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "Shenlun Grader API", resp.Header.Get("X-Application"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var payload struct {
		Success bool                   `json:"success"`
		Data    handler.HealthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	require.True(t, payload.Success)
	require.Equal(t, "ok", payload.Data.Status)
	require.Equal(t, "test", payload.Data.Environment)
	require.Equal(t, "dashscope", payload.Data.Provider)
	require.False(t, payload.Data.Timestamp.IsZero())
}
