package server

import (
	"log/slog"

	"dumdummies/internal/featureflags"
	"dumdummies/internal/models"
	"dumdummies/internal/observability"

	"github.com/gofiber/fiber/v2"
)

type featureFlagsResponse struct {
	Flags []featureflags.State `json:"flags"`
}

// GetFeatureFlags handles GET /api/feature-flags
// @Summary Feature flags
// @Description Known flags and any configured extras, evaluated for the caller. Anonymous callers fall outside percentage rollouts.
// @Tags flags
// @Produce json
// @Success 200 {object} featureFlagsResponse
// @Router /feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	return c.JSON(featureFlagsResponse{Flags: s.featureFlags.Evaluate(currentUserID(c))})
}

// FeatureRequired rejects requests when the named flag is switched off for
// the caller.
func (s *Server) FeatureRequired(flag string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if s.featureFlags.Allowed(flag, currentUserID(c)) {
			return c.Next()
		}
		observability.GlobalLogger.InfoContext(c.UserContext(), "feature disabled",
			slog.String("flag", flag),
			slog.String("path", c.Path()),
		)
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("This feature is currently disabled"))
	}
}
