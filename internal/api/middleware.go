package api

import (
	"strconv"
	"strings"
	"time"

	"push-service/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

const localWalletAddress = "wallet_address"

func SetupMiddleware(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics) {
	app.Use(recover.New())
	app.Use(requestid.New())

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Authorization,Content-Type",
	}))

	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()

		logger.Info("http_request",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
		)

		if metrics != nil {
			metrics.HTTPRequestsTotal.WithLabelValues(
				c.Method(), c.Route().Path, strconv.Itoa(status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(
				c.Method(), c.Route().Path).Observe(duration.Seconds())
		}

		return err
	})
}

// RequireBearer rejects requests without a valid bearer token and stores the
// token's wallet address on the request context.
func RequireBearer(issuer *TokenIssuer) fiber.Handler {
	const prefix = "Bearer "

	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, prefix) {
			return fail(c, fiber.StatusUnauthorized, "Unauthorized")
		}

		address, err := issuer.Verify(header[len(prefix):])
		if err != nil {
			return fail(c, fiber.StatusUnauthorized, "Unauthorized")
		}

		c.Locals(localWalletAddress, address)
		return c.Next()
	}
}
