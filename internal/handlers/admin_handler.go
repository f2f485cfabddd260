package handlers

import (
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/dto"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/services"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AdminHandler struct {
	profileService *services.ProfileService
}

func NewAdminHandler(profileService *services.ProfileService) *AdminHandler {
	return &AdminHandler{profileService: profileService}
}

// SetProfileStatus records a review decision and notifies the profile owner.
func (h *AdminHandler) SetProfileStatus(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	var req dto.ProfileStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	var adminID *uuid.UUID
	if id, err := session.GetUserID(c); err == nil {
		adminID = &id
	}

	if err := h.profileService.SetStatus(c.UserContext(), adminID, userID, &req); err != nil {
		return failWith(c, err, "Failed to update profile status",
			errorStatus{services.ErrInvalidStatus, fiber.StatusBadRequest},
			errorStatus{services.ErrUserNotFound, fiber.StatusNotFound},
		)
	}

	return c.JSON(fiber.Map{"message": "Profile status updated", "status": req.Status})
}
