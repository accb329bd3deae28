package api

import (
	"push-service/internal/observability"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func SetupRoutes(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, handlers *Handlers, issuer *TokenIssuer) {
	SetupMiddleware(app, logger, metrics)

	app.Get("/healthz", handlers.Health)
	app.Get("/readyz", handlers.Ready)

	apiGroup := app.Group("/api")

	// No authentication beyond the signature / project credential.
	apiGroup.Post("/auth", handlers.Auth)
	apiGroup.Get("/push/:project_id", handlers.PushMessage)
	apiGroup.Post("/push/:project_id", handlers.PushMessage)

	// Bearer token required.
	apiGroup.Get("/get_me", RequireBearer(issuer), handlers.GetMe)
}
