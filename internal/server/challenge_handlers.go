package server

import (
	"dumdummies/internal/models"
	"dumdummies/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetChallenges handles GET /api/channels/:id/challenges
// @Summary Active and requested challenges
// @Tags challenges
// @Produce json
// @Param id path string true "Channel ID"
// @Success 200 {object} object{active=[]models.Challenge,requested=[]models.Challenge}
// @Router /channels/{id}/challenges [get]
func (s *Server) GetChallenges(c *fiber.Ctx) error {
	channelID, err := channelParam(c)
	if err != nil {
		return nil
	}
	active, err := s.challengeService.ListActive(c.UserContext(), channelID)
	if err != nil {
		return respondError(c, err)
	}
	requested, err := s.challengeService.ListRequested(c.UserContext(), channelID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"active":    active,
		"requested": requested,
	})
}

// GetActiveChallenge handles GET /api/channels/:id/challenges/active
// @Summary Featured challenge
// @Description The oldest active challenge, or null when there is none.
// @Tags challenges
// @Produce json
// @Param id path string true "Channel ID"
// @Success 200 {object} models.Challenge
// @Router /channels/{id}/challenges/active [get]
func (s *Server) GetActiveChallenge(c *fiber.Ctx) error {
	channelID, err := channelParam(c)
	if err != nil {
		return nil
	}
	challenge, err := s.challengeService.FetchActive(c.UserContext(), channelID)
	if err != nil {
		return respondError(c, err)
	}
	if challenge == nil {
		return c.JSON(nil)
	}
	return c.JSON(challenge)
}

// RequestChallenge handles POST /api/channels/:id/challenges
// @Summary Request a challenge
// @Tags challenges
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Channel ID"
// @Param request body object{name=string} true "Challenge request"
// @Success 201 {object} models.Challenge
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /channels/{id}/challenges [post]
func (s *Server) RequestChallenge(c *fiber.Ctx) error {
	channelID, err := channelParam(c)
	if err != nil {
		return nil
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	challenge, err := s.challengeService.Create(c.UserContext(), service.CreateChallengeInput{
		ChannelID: channelID,
		UserID:    currentUserID(c),
		Name:      req.Name,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(challenge)
}

// ApproveChallenge handles POST /api/challenges/:id/approve
// @Summary Approve a requested challenge
// @Description Creator only. Activates the challenge with a target in dollars.
// @Tags challenges
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Challenge ID"
// @Param request body object{target=number} true "Target amount in dollars"
// @Success 200 {object} models.Challenge
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /challenges/{id}/approve [post]
func (s *Server) ApproveChallenge(c *fiber.Ctx) error {
	challengeID, err := parseUUID(c, "id", "challenge")
	if err != nil {
		return nil
	}
	var req struct {
		Target float64 `json:"target"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	challenge, err := s.challengeService.Approve(c.UserContext(), service.ApproveChallengeInput{
		ChallengeID: challengeID,
		TargetCents: models.DollarsToCents(req.Target),
		ActorID:     currentUserID(c),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(challenge)
}

// RejectChallenge handles POST /api/challenges/:id/reject
// @Summary Reject a requested challenge
// @Tags challenges
// @Produce json
// @Security BearerAuth
// @Param id path string true "Challenge ID"
// @Success 200 {object} models.Challenge
// @Failure 403 {object} models.ErrorResponse
// @Router /challenges/{id}/reject [post]
func (s *Server) RejectChallenge(c *fiber.Ctx) error {
	challengeID, err := parseUUID(c, "id", "challenge")
	if err != nil {
		return nil
	}
	challenge, err := s.challengeService.Reject(c.UserContext(), challengeID, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(challenge)
}
