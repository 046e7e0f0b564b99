// Package server assembles the Fiber application.
package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"reportpdf/internal/config"
	"reportpdf/internal/http/handlers"
	"reportpdf/internal/http/middleware"
	"reportpdf/internal/infra/logging"
)

// Deps are the collaborators of the HTTP layer.
type Deps struct {
	Config  config.Config
	Reports *handlers.Service
	// Tokens enables API-key checks; leave nil to disable them.
	Tokens middleware.Tokens
}

// New creates the Fiber app with middleware, routes and a JSON 404.
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		Prefork:               d.Config.Server.Prefork,
		DisableStartupMessage: true,
		BodyLimit:             d.Config.Server.BodyLimitMB << 20,
		ErrorHandler:          errorHandler,
	})

	middleware.Register(app, d.Config, d.Tokens)

	v1 := app.Group("/v1")
	d.Reports.Register(v1)
	v1.Get("/monitor", monitor.New())

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}

	logging.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": msg,
		},
	})
}
