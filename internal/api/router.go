package api

import (
	"customs-calc/docs"
	"customs-calc/internal/api/handlers"
	"customs-calc/pkg/auth"
	"customs-calc/pkg/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
)

type Handlers struct {
	Calculation *handlers.CalculationHandler
	Rate        *handlers.RateHandler
	Dialogue    *handlers.DialogueHandler
	Admin       *handlers.AdminHandler
}

func SetupRouter(h Handlers, jwtManager *auth.JWTManager, appLogger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code == fiber.StatusInternalServerError {
				appLogger.Error("Unhandled request error", zap.String("path", c.Path()), zap.Error(err))
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
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(logger.New())

	_ = docs.SwaggerInfo
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := app.Group("/api/v1")

	v1.Get("/rates", h.Rate.GetRates)
	v1.Post("/calculations", h.Calculation.Calculate)
	v1.Get("/users/:user_id/calculations", h.Calculation.History)

	dialogue := v1.Group("/dialogue")
	dialogue.Get("/:user_id", h.Dialogue.Current)
	dialogue.Post("/:user_id", h.Dialogue.Reply)

	// A nil manager means no signing secret was configured.
	if jwtManager == nil {
		appLogger.Warn("JWT secret is not configured, admin routes are disabled")
		return app
	}
	admin := v1.Group("/admin", middleware.AdminMiddleware(jwtManager, appLogger))
	admin.Get("/stats", h.Admin.Stats)
	admin.Get("/export", h.Admin.Export)

	return app
}
