package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/collabhub/internal/dto"
	"github.com/gofiber/fiber/v2"
)

func fail(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

// errorStatus pairs a service error with the status it answers to.
type errorStatus struct {
	err    error
	status int
}

// failWith answers with the status of the first matching entry and the
// error's own message. Anything unmatched is logged and answered with a
// generic 500 carrying fallback.
func failWith(c *fiber.Ctx, err error, fallback string, known ...errorStatus) error {
	for _, k := range known {
		if errors.Is(err, k.err) {
			return fail(c, k.status, err.Error())
		}
	}
	slog.Error("request failed", "error", err, "method", c.Method(), "path", c.Path(),
		"request_id", c.GetRespHeader(fiber.HeaderXRequestID))
	return fail(c, fiber.StatusInternalServerError, fallback)
}
