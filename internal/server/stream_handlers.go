package server

import (
	"github.com/gofiber/fiber/v2"
)

// StartStream handles POST /api/channels/:id/stream/start
// @Summary Go live
// @Tags stream
// @Produce json
// @Security BearerAuth
// @Param id path string true "Channel ID"
// @Success 200 {object} models.StreamStatus
// @Failure 403 {object} models.ErrorResponse
// @Router /channels/{id}/stream/start [post]
func (s *Server) StartStream(c *fiber.Ctx) error {
	channelID, err := channelParam(c)
	if err != nil {
		return nil
	}
	status, err := s.streamService.Start(c.UserContext(), channelID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}

// EndStream handles POST /api/channels/:id/stream/end
// @Summary End the stream
// @Tags stream
// @Produce json
// @Security BearerAuth
// @Param id path string true "Channel ID"
// @Success 200 {object} models.StreamStatus
// @Failure 403 {object} models.ErrorResponse
// @Router /channels/{id}/stream/end [post]
func (s *Server) EndStream(c *fiber.Ctx) error {
	channelID, err := channelParam(c)
	if err != nil {
		return nil
	}
	status, err := s.streamService.End(c.UserContext(), channelID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(status)
}

// GetStreamKey handles GET /api/channels/:id/stream/key
// @Summary Stream key and ingest URL
// @Description Creator only.
// @Tags stream
// @Produce json
// @Security BearerAuth
// @Param id path string true "Channel ID"
// @Success 200 {object} service.StreamKey
// @Failure 403 {object} models.ErrorResponse
// @Router /channels/{id}/stream/key [get]
func (s *Server) GetStreamKey(c *fiber.Ctx) error {
	channelID, err := channelParam(c)
	if err != nil {
		return nil
	}
	key, err := s.streamService.GetStreamKey(c.UserContext(), channelID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(key)
}

// RotateStreamKey handles POST /api/channels/:id/stream/key/rotate
// @Summary Rotate the stream key
// @Tags stream
// @Produce json
// @Security BearerAuth
// @Param id path string true "Channel ID"
// @Success 200 {object} service.StreamKey
// @Failure 403 {object} models.ErrorResponse
// @Router /channels/{id}/stream/key/rotate [post]
func (s *Server) RotateStreamKey(c *fiber.Ctx) error {
	channelID, err := channelParam(c)
	if err != nil {
		return nil
	}
	key, err := s.streamService.RotateKey(c.UserContext(), channelID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(key)
}
