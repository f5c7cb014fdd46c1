package server

import (
	"dumdummies/internal/models"
	"dumdummies/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateChannel handles POST /api/channels
// @Summary Create a channel
// @Tags channels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{title=string,description=string} true "Channel"
// @Success 201 {object} models.Channel
// @Failure 400 {object} models.ErrorResponse
// @Router /channels [post]
func (s *Server) CreateChannel(c *fiber.Ctx) error {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	channel, err := s.channelService.Create(c.UserContext(), service.CreateChannelInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(channel)
}

// ListChannels handles GET /api/channels
// @Summary List channels
// @Tags channels
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Channel
// @Router /channels [get]
func (s *Server) ListChannels(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	channels, err := s.channelService.List(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(channels)
}

// GetChannel handles GET /api/channels/:id
// @Summary Get a channel
// @Tags channels
// @Produce json
// @Param id path string true "Channel ID"
// @Success 200 {object} models.Channel
// @Failure 404 {object} models.ErrorResponse
// @Router /channels/{id} [get]
func (s *Server) GetChannel(c *fiber.Ctx) error {
	channelID, err := channelParam(c)
	if err != nil {
		return nil
	}
	channel, err := s.channelService.Get(c.UserContext(), channelID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(channel)
}

// GetChannelState handles GET /api/channels/:id/state
// @Summary Reconciled channel state
// @Description Chat log, featured challenge, active and requested challenges, live flag and viewer count as seen by a live observer of the channel.
// @Tags channels
// @Produce json
// @Param id path string true "Channel ID"
// @Success 200 {object} reconciler.Snapshot
// @Failure 404 {object} models.ErrorResponse
// @Router /channels/{id}/state [get]
func (s *Server) GetChannelState(c *fiber.Ctx) error {
	channelID, err := channelParam(c)
	if err != nil {
		return nil
	}
	snap, err := s.registry.Snapshot(c.UserContext(), channelID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(snap)
}

// ClaimCreator handles POST /api/channels/:id/creator
// @Summary Claim creator mode
// @Description The first user to claim a channel without a creator becomes its creator.
// @Tags channels
// @Produce json
// @Security BearerAuth
// @Param id path string true "Channel ID"
// @Success 200 {object} object{is_creator=bool}
// @Failure 403 {object} models.ErrorResponse
// @Router /channels/{id}/creator [post]
func (s *Server) ClaimCreator(c *fiber.Ctx) error {
	channelID, err := channelParam(c)
	if err != nil {
		return nil
	}
	ok, err := s.channelService.ClaimCreator(c.UserContext(), channelID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	if !ok {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("This channel already has a creator"))
	}
	return c.JSON(fiber.Map{"is_creator": true})
}

// GetCreatorStatus handles GET /api/channels/:id/creator
// @Summary Am I the creator
// @Tags channels
// @Produce json
// @Security BearerAuth
// @Param id path string true "Channel ID"
// @Success 200 {object} object{is_creator=bool}
// @Router /channels/{id}/creator [get]
func (s *Server) GetCreatorStatus(c *fiber.Ctx) error {
	channelID, err := channelParam(c)
	if err != nil {
		return nil
	}
	ok, err := s.channelService.IsCreator(c.UserContext(), channelID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"is_creator": ok})
}

// AdjustViewers handles POST /api/channels/:id/viewers
// @Summary Adjust viewer count
// @Tags channels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Channel ID"
// @Param request body object{delta=int} true "+1 or -1"
// @Success 200 {object} object{viewer_count=int}
// @Router /channels/{id}/viewers [post]
func (s *Server) AdjustViewers(c *fiber.Ctx) error {
	channelID, err := channelParam(c)
	if err != nil {
		return nil
	}
	var req struct {
		Delta int `json:"delta"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if req.Delta != 1 && req.Delta != -1 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Delta must be 1 or -1"))
	}
	count, err := s.channelService.AdjustViewers(c.UserContext(), channelID, req.Delta)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"viewer_count": count})
}

// ReportViolation handles POST /api/channels/:id/violations
// @Summary Report a refused creator action
// @Tags security
// @Accept json
// @Security BearerAuth
// @Param id path string true "Channel ID"
// @Param request body object{action=string,reason=string} true "Violation"
// @Success 204
// @Router /channels/{id}/violations [post]
func (s *Server) ReportViolation(c *fiber.Ctx) error {
	channelID, err := channelParam(c)
	if err != nil {
		return nil
	}
	var req struct {
		Action string `json:"action"`
		Reason string `json:"reason"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	if err := s.channelService.ReportViolation(c.UserContext(), channelID, currentUserID(c), req.Action, req.Reason); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetViolations handles GET /api/channels/:id/violations
// @Summary List security violations
// @Tags security
// @Produce json
// @Security BearerAuth
// @Param id path string true "Channel ID"
// @Param limit query int false "Page size"
// @Success 200 {array} models.SecurityViolation
// @Failure 403 {object} models.ErrorResponse
// @Router /channels/{id}/violations [get]
func (s *Server) GetViolations(c *fiber.Ctx) error {
	channelID, err := channelParam(c)
	if err != nil {
		return nil
	}
	page := parsePagination(c, 50)
	violations, err := s.channelService.Violations(c.UserContext(), channelID, currentUserID(c), page.Limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(violations)
}
