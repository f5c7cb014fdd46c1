package server

import (
	"dumdummies/internal/models"
	"dumdummies/internal/service"

	"github.com/gofiber/fiber/v2"
)

type donateRequest struct {
	// ID is an optional client-generated UUID used to match the echoed event.
	ID          string  `json:"id"`
	Amount      float64 `json:"amount"`
	Message     string  `json:"message"`
	ChallengeID *string `json:"challenge_id"`
}

// Donate handles POST /api/channels/:id/donations
// @Summary Donate
// @Description Credits the named active challenge, or the featured one when none is given.
// @Tags donations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Channel ID"
// @Param request body donateRequest true "Donation in dollars"
// @Success 201 {object} models.Donation
// @Failure 400 {object} models.ErrorResponse
// @Router /channels/{id}/donations [post]
func (s *Server) Donate(c *fiber.Ctx) error {
	channelID, err := channelParam(c)
	if err != nil {
		return nil
	}
	var req donateRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	donation, err := s.donationService.Donate(c.UserContext(), service.DonateInput{
		ID:          req.ID,
		ChannelID:   channelID,
		UserID:      currentUserID(c),
		AmountCents: models.DollarsToCents(req.Amount),
		Message:     req.Message,
		ChallengeID: req.ChallengeID,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(donation)
}

// GetDonations handles GET /api/channels/:id/donations
// @Summary Donation history
// @Tags donations
// @Produce json
// @Param id path string true "Channel ID"
// @Param limit query int false "Number of donations (default 50, max 200)"
// @Success 200 {array} models.Donation
// @Failure 404 {object} models.ErrorResponse
// @Router /channels/{id}/donations [get]
func (s *Server) GetDonations(c *fiber.Ctx) error {
	channelID, err := channelParam(c)
	if err != nil {
		return nil
	}
	donations, err := s.donationService.List(c.UserContext(), channelID, c.QueryInt("limit", 50))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(donations)
}
