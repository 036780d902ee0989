package api

import (
	"invoicehub/docs"
	"invoicehub/internal/api/handlers"
	"invoicehub/pkg/auth"
	"invoicehub/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

func SetupRouter(
	authHandler *handlers.AuthHandler,
	invoiceHandler *handlers.InvoiceHandler,
	chatHandler *handlers.ChatHandler,
	jwtManager *auth.JWTManager,
	appLogger *zap.Logger,
) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	// Swagger - importing the docs package registers the spec via init()
	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Health check
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "API is running"})
	})

	// Auth routes (public)
	authGroup := app.Group("/user/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/refresh", authHandler.RefreshToken)

	// Protected routes
	protected := app.Group("/api/v1", middleware.AuthMiddleware(jwtManager, appLogger))

	// Invoice routes
	invoices := protected.Group("/invoices")
	invoices.Post("/upload", invoiceHandler.Upload)
	invoices.Get("", invoiceHandler.List)
	invoices.Get("/statuses", invoiceHandler.Statuses)
	invoices.Get("/view/:filename", invoiceHandler.View)
	invoices.Get("/view-url/:filename", invoiceHandler.ViewURL)
	invoices.Delete("/:filename", invoiceHandler.Delete)

	// Processed results written by the external extraction pipeline
	processed := protected.Group("/processed-invoices")
	processed.Get("", invoiceHandler.ListProcessed)
	processed.Get("/:filename", invoiceHandler.GetProcessed)

	// Chat routes
	chat := protected.Group("/chat")
	chat.Post("", chatHandler.Chat)
	chat.Get("/sessions", chatHandler.ListSessions)
	chat.Get("/sessions/:id", chatHandler.SessionHistory)
	chat.Delete("/sessions/:id", chatHandler.DeleteSession)

	return app
}
