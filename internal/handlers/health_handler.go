package handlers

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/collabhub/internal/dto"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	ping  func() error
	users func() int
}

// NewHealthHandler reports the database through ping and the number of users
// holding a live connection through users.
func NewHealthHandler(ping func() error, users func() int) *HealthHandler {
	return &HealthHandler{ping: ping, users: users}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	status := fiber.StatusOK
	if err := h.ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
		status = fiber.StatusServiceUnavailable
	}

	live := 0
	if h.users != nil {
		live = h.users()
	}
	return c.Status(status).JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		LiveUsers: live,
	})
}
