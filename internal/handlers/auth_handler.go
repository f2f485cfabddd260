package handlers

import (
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/dto"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/services"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/session"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates an account for one of the onboarding roles and signs it in.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	resp, err := h.authService.Register(&req)
	if err != nil {
		return failWith(c, err, "Registration failed",
			errorStatus{services.ErrEmailTaken, fiber.StatusConflict},
			errorStatus{services.ErrInvalidRegistration, fiber.StatusBadRequest},
		)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		return failWith(c, err, "Internal server error",
			errorStatus{services.ErrInvalidCredentials, fiber.StatusUnauthorized},
		)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	resp, err := h.authService.Refresh(&req)
	if err != nil {
		return failWith(c, err, "Internal server error",
			errorStatus{services.ErrInvalidToken, fiber.StatusUnauthorized},
		)
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if err := h.authService.Logout(&req); err != nil {
		return failWith(c, err, "Failed to logout")
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// DeleteAccount removes the caller's account and every conversation it is
// part of, after re-checking the password.
func (h *AuthHandler) DeleteAccount(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.DeleteAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if err := h.authService.DeleteAccount(userID, req.Password); err != nil {
		return failWith(c, err, "Failed to delete account",
			errorStatus{services.ErrPasswordRequired, fiber.StatusBadRequest},
			errorStatus{services.ErrInvalidCredentials, fiber.StatusUnauthorized},
			errorStatus{services.ErrUserNotFound, fiber.StatusNotFound},
		)
	}
	return c.JSON(fiber.Map{"message": "Account deleted successfully"})
}
