package handlers

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/collabhub/internal/dto"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/services"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/session"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/unread"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type InboxHandler struct {
	inboxService *services.InboxService
}

func NewInboxHandler(inboxService *services.InboxService) *InboxHandler {
	return &InboxHandler{inboxService: inboxService}
}

// Unread serves the unread snapshot of the :stream param.
func (h *InboxHandler) Unread(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	stream := unread.Stream(c.Params("stream"))
	if stream != unread.Messages && stream != unread.Notifications {
		return fail(c, fiber.StatusNotFound, "Unknown inbox "+string(stream))
	}

	items, err := h.inboxService.Unread(c.UserContext(), userID, stream)
	if err != nil {
		return inboxError(c, err)
	}
	return c.JSON(dto.UnreadListResponse{Stream: stream, Items: items, Count: len(items)})
}

func (h *InboxHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}

	resp, err := h.inboxService.SendMessage(c.UserContext(), userID, &req)
	if err != nil {
		return inboxError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *InboxHandler) ReadConversation(c *fiber.Ctx) error {
	return h.withID(c, func(userID, id uuid.UUID) error {
		return h.inboxService.MarkConversationRead(c.UserContext(), userID, id)
	})
}

func (h *InboxHandler) DeleteConversation(c *fiber.Ctx) error {
	return h.withID(c, func(userID, id uuid.UUID) error {
		return h.inboxService.DeleteConversation(c.UserContext(), userID, id)
	})
}

func (h *InboxHandler) ReadNotification(c *fiber.Ctx) error {
	r, err := session.GetRole(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	return h.withID(c, func(userID, id uuid.UUID) error {
		return h.inboxService.MarkNotificationRead(c.UserContext(), userID, r, id)
	})
}

func (h *InboxHandler) DeleteNotification(c *fiber.Ctx) error {
	return h.withID(c, func(userID, id uuid.UUID) error {
		return h.inboxService.DeleteNotification(c.UserContext(), userID, id)
	})
}

func (h *InboxHandler) withID(c *fiber.Ctx, fn func(userID, id uuid.UUID) error) error {
	userID, err := session.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid ID")
	}

	if err := fn(userID, id); err != nil {
		return inboxError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func inboxError(c *fiber.Ctx, err error) error {
	var rejected *services.ContentRejectedError
	if errors.As(err, &rejected) {
		return fail(c, fiber.StatusUnprocessableEntity, rejected.Message)
	}
	// A conversation the caller is not part of reads as missing.
	return failWith(c, err, "Internal server error",
		errorStatus{services.ErrBlocked, fiber.StatusForbidden},
		errorStatus{services.ErrInvalidPair, fiber.StatusBadRequest},
		errorStatus{services.ErrEmptyMessage, fiber.StatusBadRequest},
		errorStatus{services.ErrUserNotFound, fiber.StatusNotFound},
		errorStatus{services.ErrConversationNotFound, fiber.StatusNotFound},
		errorStatus{services.ErrNotificationNotFound, fiber.StatusNotFound},
		errorStatus{services.ErrNotParticipant, fiber.StatusNotFound},
	)
}
