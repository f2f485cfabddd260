package handlers

import (
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/dto"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/services"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	defaultReportPage = 20
	maxReportPage     = 100
)

type ModerationHandler struct {
	moderationService *services.ModerationService
}

func NewModerationHandler(moderationService *services.ModerationService) *ModerationHandler {
	return &ModerationHandler{moderationService: moderationService}
}

func (h *ModerationHandler) CreateReport(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	report, err := h.moderationService.CreateReport(c.UserContext(), userID, &req)
	if err != nil {
		return failWith(c, err, "Failed to create report",
			errorStatus{services.ErrInvalidReport, fiber.StatusBadRequest},
			errorStatus{services.ErrSelfReport, fiber.StatusBadRequest},
		)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

// BlockUser stops messages between the caller and blocked_id in both
// directions.
func (h *ModerationHandler) BlockUser(c *fiber.Ctx) error {
	blockerID, err := session.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.BlockUserRequest
	if err := c.BodyParser(&req); err != nil || req.BlockedID == uuid.Nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if err := h.moderationService.BlockUser(c.UserContext(), blockerID, req.BlockedID); err != nil {
		return failWith(c, err, "Failed to block user",
			errorStatus{services.ErrSelfBlock, fiber.StatusConflict},
			errorStatus{services.ErrAlreadyBlocked, fiber.StatusConflict},
		)
	}
	return c.JSON(fiber.Map{"message": "User blocked successfully"})
}

func (h *ModerationHandler) UnblockUser(c *fiber.Ctx) error {
	blockerID, err := session.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	blockedID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	if err := h.moderationService.UnblockUser(c.UserContext(), blockerID, blockedID); err != nil {
		return failWith(c, err, "Failed to unblock user")
	}
	return c.JSON(fiber.Map{"message": "User unblocked successfully"})
}

// ListReports pages with ?limit (1..100, default 20) and ?offset, filtered by
// ?status when given.
func (h *ModerationHandler) ListReports(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultReportPage)
	if limit <= 0 || limit > maxReportPage {
		limit = defaultReportPage
	}
	offset := max(c.QueryInt("offset", 0), 0)

	reports, total, err := h.moderationService.ListReports(c.UserContext(), c.Query("status"), limit, offset)
	if err != nil {
		return failWith(c, err, "Failed to fetch reports")
	}

	return c.JSON(fiber.Map{
		"reports": reports,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

func (h *ModerationHandler) ActionReport(c *fiber.Ctx) error {
	reportID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid report ID")
	}

	var req dto.ActionReportRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if err := h.moderationService.ActionReport(c.UserContext(), reportID, &req); err != nil {
		return failWith(c, err, "Failed to update report",
			errorStatus{services.ErrInvalidReport, fiber.StatusBadRequest},
			errorStatus{services.ErrReportNotFound, fiber.StatusNotFound},
		)
	}
	return c.JSON(fiber.Map{"message": "Report updated successfully"})
}
