package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/pathlight/pathlight-go-api/internal/config"
	"github.com/pathlight/pathlight-go-api/internal/utils"
)

// HealthCheck reports service liveness.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return utils.SendSuccess(c, "service healthy", fiber.Map{
			"app":       cfg.AppName,
			"env":       cfg.AppEnv,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
