package router

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pathlight/pathlight-go-api/internal/config"
	"github.com/pathlight/pathlight-go-api/internal/handler"
)

func TestRegisterPanicsWithoutJWTMiddleware(t *testing.T) {
	app := fiber.New()
	cfg := config.Config{AppName: "Pathlight API"}

	require.Panics(t, func() {
		Register(app, cfg, Dependencies{
			RoadmapHandler: handler.NewRoadmapHandler(nil, zerolog.Nop()),
		})
	})
}

func TestRegisterServesHealthWithoutHandlers(t *testing.T) {
	app := fiber.New()
	cfg := config.Config{AppName: "Pathlight API", AppEnv: "test"}

	Register(app, cfg, Dependencies{})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/health", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}
