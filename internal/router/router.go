package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/projeto-mae/redacao-api/internal/config"
	"github.com/projeto-mae/redacao-api/internal/handler"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	EssayHandler *handler.EssayHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	if deps.EssayHandler != nil {
		essays := api.Group("/essays")
		deps.EssayHandler.Register(essays)
	}
}
