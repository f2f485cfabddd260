package middleware

import (
	"slices"

	"github.com/ahmetcoskunkizilkaya/collabhub/internal/dto"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/role"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/session"
	"github.com/gofiber/fiber/v2"
)

// RoleRequired rejects requests whose token role is not one of allowed. It
// runs after JWTProtected and stores the parsed role in locals("role").
func RoleRequired(allowed ...role.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := session.GetRole(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}
		if len(allowed) > 0 && !slices.Contains(allowed, r) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Not available for role " + r.String(),
			})
		}
		c.Locals("role", r)
		return c.Next()
	}
}
