package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yikao-labs/shenlun-api/internal/config"
	"github.com/yikao-labs/shenlun-api/internal/handler"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	GradeHandler *handler.GradeHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	if deps.GradeHandler != nil {
		grade := api.Group("/grade")
		deps.GradeHandler.Register(grade)
	}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
