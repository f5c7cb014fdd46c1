package server

import (
	"dumdummies/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMessages handles GET /api/channels/:id/messages
// @Summary Recent chat
// @Tags chat
// @Produce json
// @Param id path string true "Channel ID"
// @Param limit query int false "Number of messages (default 50)"
// @Success 200 {array} models.ChatMessage
// @Router /channels/{id}/messages [get]
func (s *Server) GetMessages(c *fiber.Ctx) error {
	channelID, err := channelParam(c)
	if err != nil {
		return nil
	}
	messages, err := s.chatService.Recent(c.UserContext(), channelID, c.QueryInt("limit", 50))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(messages)
}

// SendMessage handles POST /api/channels/:id/messages
// @Summary Send a chat message
// @Tags chat
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Channel ID"
// @Param request body object{id=string,text=string,emoji=string} true "Message"
// @Success 201 {object} models.ChatMessage
// @Failure 400 {object} models.ErrorResponse
// @Router /channels/{id}/messages [post]
func (s *Server) SendMessage(c *fiber.Ctx) error {
	channelID, err := channelParam(c)
	if err != nil {
		return nil
	}
	var req struct {
		ID    string `json:"id"`
		Text  string `json:"text"`
		Emoji string `json:"emoji"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	msg, err := s.chatService.Send(c.UserContext(), service.SendChatInput{
		ID:        req.ID,
		ChannelID: channelID,
		UserID:    currentUserID(c),
		Text:      req.Text,
		Emoji:     req.Emoji,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}
