package middleware

import (
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/config"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/dto"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
)

func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		ErrorHandler: unauthorized,
	})
}

// JWTFromQueryOrHeader also accepts ?token=, for browser WebSocket clients
// that cannot set headers on the upgrade request.
func JWTFromQueryOrHeader(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   jwtware.SigningKey{Key: []byte(cfg.JWTSecret)},
		TokenLookup:  "header:Authorization,query:token",
		ErrorHandler: unauthorized,
	})
}

func unauthorized(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error:   true,
		Message: "Unauthorized: invalid or expired token",
	})
}
