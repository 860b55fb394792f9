package api

import (
	"os"
	"path/filepath"

	"ecommerce-chatbot/docs"
	"ecommerce-chatbot/internal/api/handlers"
	"ecommerce-chatbot/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

// SetupRouter builds the fiber app. opts can adjust the fiber config, e.g. timeouts.
func SetupRouter(chatHandler *handlers.ChatHandler, appLogger *zap.Logger, opts ...func(*fiber.Config)) *fiber.App {
	cfg := fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	app := fiber.New(cfg)

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept," + middleware.RequestIDHeader,
	}))
	app.Use(middleware.RequestLogger(appLogger))

	// Swagger docs are registered by the docs package init
	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", chatHandler.Health)

	// Chat page
	if webStaticPath := findWebStaticPath(); webStaticPath != "" {
		appLogger.Info("Serving chat page", zap.String("path", webStaticPath))
		app.Static("/", webStaticPath)
	} else {
		appLogger.Warn("Web static directory not found, chat page will not be served")
	}

	api := app.Group("/api/v1")
	api.Post("/chat", chatHandler.Chat)
	api.Post("/route", chatHandler.Route)

	sessions := api.Group("/sessions")
	sessions.Get("/:id/messages", chatHandler.GetMessages)
	sessions.Delete("/:id", chatHandler.DeleteSession)

	return app
}

// findWebStaticPath looks for web/static relative to the working directory
func findWebStaticPath() string {
	paths := []string{
		"web/static",
		"../web/static",
		"../../web/static",
	}
	for _, path := range paths {
		if fileExists(filepath.Join(path, "index.html")) {
			return path
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
