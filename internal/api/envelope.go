package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Envelope is the uniform response shape: {ok:true, result:...} on success,
// {ok:false, error_code, description} on failure.
type Envelope struct {
	OK          bool    `json:"ok"`
	ErrorCode   *int    `json:"error_code,omitempty"`
	Description *string `json:"description,omitempty"`
	Result      any     `json:"result,omitempty"`
}

func ok(c *fiber.Ctx, result any) error {
	return c.JSON(Envelope{OK: true, Result: result})
}

func fail(c *fiber.Ctx, status int, description string) error {
	return c.Status(status).JSON(Envelope{
		OK:          false,
		ErrorCode:   &status,
		Description: &description,
	})
}

// ErrorHandler wraps errors that escape handlers into the envelope.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}

		if status >= fiber.StatusInternalServerError {
			logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
			return fail(c, status, "Internal server error")
		}
		return fail(c, status, err.Error())
	}
}
