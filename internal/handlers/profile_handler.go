package handlers

import (
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/dto"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/onboarding"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/services"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ProfileHandler struct {
	profileService *services.ProfileService
}

func NewProfileHandler(profileService *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

// Get serves the profile aggregate the wizard derives its position from.
func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	rec, _, err := h.profileService.Record(c.UserContext(), userID)
	if err != nil {
		return profileError(c, err)
	}
	return c.JSON(rec)
}

func (h *ProfileHandler) Onboarding(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	resp, err := h.profileService.Onboarding(c.UserContext(), userID)
	if err != nil {
		return profileError(c, err)
	}
	return c.JSON(resp)
}

func (h *ProfileHandler) SavePersonal(c *fiber.Ctx) error {
	var req onboarding.Personal
	return h.submit(c, &req, func(userID uuid.UUID) error {
		return h.profileService.SavePersonal(c.UserContext(), userID, req)
	})
}

func (h *ProfileHandler) SaveSocial(c *fiber.Ctx) error {
	var req dto.SocialRequest
	return h.submit(c, &req, func(userID uuid.UUID) error {
		return h.profileService.SaveSocial(c.UserContext(), userID, req.Accounts)
	})
}

func (h *ProfileHandler) SaveCategories(c *fiber.Ctx) error {
	var req dto.CategoriesRequest
	return h.submit(c, &req, func(userID uuid.UUID) error {
		return h.profileService.SaveCategories(c.UserContext(), userID, req.Categories)
	})
}

func (h *ProfileHandler) SavePortfolio(c *fiber.Ctx) error {
	var req onboarding.Portfolio
	return h.submit(c, &req, func(userID uuid.UUID) error {
		return h.profileService.SavePortfolio(c.UserContext(), userID, req)
	})
}

func (h *ProfileHandler) SavePayment(c *fiber.Ctx) error {
	var req onboarding.Payment
	return h.submit(c, &req, func(userID uuid.UUID) error {
		return h.profileService.SavePayment(c.UserContext(), userID, req)
	})
}

// submit parses the body into req, runs write and answers with the
// recomputed wizard position.
func (h *ProfileHandler) submit(c *fiber.Ctx, req interface{}, write func(userID uuid.UUID) error) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	if err := c.BodyParser(req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if err := write(userID); err != nil {
		return profileError(c, err)
	}

	resp, err := h.profileService.Onboarding(c.UserContext(), userID)
	if err != nil {
		return profileError(c, err)
	}
	return c.JSON(resp)
}

func profileError(c *fiber.Ctx, err error) error {
	return failWith(c, err, "Internal server error",
		errorStatus{services.ErrUserNotFound, fiber.StatusNotFound},
		errorStatus{services.ErrNoOnboarding, fiber.StatusForbidden},
		errorStatus{services.ErrProfileRejected, fiber.StatusUnprocessableEntity},
	)
}
