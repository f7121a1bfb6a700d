package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/pathlight/pathlight-go-api/internal/config"
	"github.com/pathlight/pathlight-go-api/internal/handler"
	"github.com/pathlight/pathlight-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	RoadmapHandler *handler.RoadmapHandler
	JWTMiddleware  fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	if deps.RoadmapHandler != nil {
		// A missing auth layer is a wiring bug; refusing to start beats
		// serving the roadmap surface unauthenticated.
		if deps.JWTMiddleware == nil {
			panic("router: JWTMiddleware is required for the roadmap routes")
		}
		roadmaps := api.Group("/roadmaps", deps.JWTMiddleware)
		deps.RoadmapHandler.Register(roadmaps)
	}
}
