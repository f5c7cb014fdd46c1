package server

import (
	"log/slog"

	"dumdummies/internal/middleware"
	"dumdummies/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// WebSocketUpgrade rejects plain HTTP requests and unknown channels before
// the connection is upgraded.
func (s *Server) WebSocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return models.RespondWithError(c, fiber.StatusUpgradeRequired,
			models.NewValidationError("WebSocket upgrade required"))
	}
	channelID, err := channelParam(c)
	if err != nil {
		return nil
	}
	if _, err := s.channelService.Get(c.UserContext(), channelID); err != nil {
		return respondError(c, err)
	}

	viewerID := currentUserID(c)
	if viewerID == "" {
		viewerID = "anon-" + uuid.NewString()
	}
	c.Locals("channelID", channelID)
	c.Locals("viewerID", viewerID)
	return c.Next()
}

// ChannelWebSocketHandler streams every event of one channel to the viewer.
// The feed is one-way; anything the viewer sends is ignored.
// @Summary Channel event feed
// @Tags realtime
// @Param id path string true "Channel ID"
// @Param token query string false "Access token"
// @Router /ws/channels/{id} [get]
func (s *Server) ChannelWebSocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		channelID, _ := conn.Locals("channelID").(string)
		viewerID, _ := conn.Locals("viewerID").(string)

		client, err := s.hub.Register(channelID, viewerID, conn)
		if err != nil {
			middleware.Logger.Warn("websocket register failed",
				slog.String("channel_id", channelID),
				slog.String("viewer_id", viewerID),
				slog.String("error", err.Error()),
			)
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})
}
