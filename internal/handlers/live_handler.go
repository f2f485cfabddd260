package handlers

import (
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/realtime"
	"github.com/ahmetcoskunkizilkaya/collabhub/internal/session"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type LiveHandler struct {
	hub *realtime.Hub
}

func NewLiveHandler(hub *realtime.Hub) *LiveHandler {
	return &LiveHandler{hub: hub}
}

// Upgrade admits authenticated WebSocket upgrades and hands the user id to
// the connection handler through locals.
func (h *LiveHandler) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fail(c, fiber.StatusUpgradeRequired, "WebSocket upgrade required")
	}
	userID, err := session.GetUserID(c)
	if err != nil {
		return fail(c, fiber.StatusUnauthorized, "Unauthorized")
	}
	c.Locals("user_id", userID.String())
	return c.Next()
}

// Serve registers the connection with the hub. Inbound frames are only used
// as liveness; the channel is push-only.
func (h *LiveHandler) Serve() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("user_id").(string)
		if userID == "" {
			_ = conn.Close()
			return
		}

		client := h.hub.Register(userID, conn)
		defer h.hub.Unregister(client)

		conn.SetPongHandler(func(string) error {
			client.Touch()
			return nil
		})

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			client.Touch()
		}
	})
}
