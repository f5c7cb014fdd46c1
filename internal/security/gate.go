// Package security decides who may perform creator-only channel actions.
package security

import (
	"context"
	"log/slog"

	"dumdummies/internal/middleware"
	"dumdummies/internal/models"
	"dumdummies/internal/observability"
	"dumdummies/internal/repository"
)

// Messages shown to viewers whose creator action was refused.
const (
	DeniedTitle       = "Unauthorized action detected"
	DeniedDescription = "This incident has been logged."
)

// Gate is the authoritative creator predicate. Exactly one user per
// channel is the creator: the first one to claim an unowned channel.
type Gate struct {
	channels   repository.ChannelRepository
	violations repository.SecurityRepository
}

// NewGate returns a Gate backed by the given repositories.
func NewGate(channels repository.ChannelRepository, violations repository.SecurityRepository) *Gate {
	return &Gate{channels: channels, violations: violations}
}

// IsCreator reports whether userID owns channelID.
func (g *Gate) IsCreator(ctx context.Context, channelID, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	ch, err := g.channels.GetByID(ctx, channelID)
	if err != nil {
		return false, err
	}
	return ch.IsOwnedBy(userID), nil
}

// Claim makes userID the creator of channelID if it has none yet and
// reports whether userID is the creator afterwards. Losing claims are
// recorded as violations.
func (g *Gate) Claim(ctx context.Context, channelID, userID string) (bool, error) {
	if userID == "" {
		return false, models.NewUnauthorizedError("Authentication required to claim creator mode")
	}
	ch, err := g.channels.ClaimOwner(ctx, channelID, userID)
	if err != nil {
		return false, err
	}
	if ch.IsOwnedBy(userID) {
		return true, nil
	}
	if err := g.RecordViolation(ctx, channelID, userID, models.ActionClaimCreator, "channel already has a creator"); err != nil {
		return false, err
	}
	return false, nil
}

// RecordViolation logs, counts and stores a refused creator action.
func (g *Gate) RecordViolation(ctx context.Context, channelID, userID, action, reason string) error {
	middleware.Logger.WarnContext(ctx, "security violation",
		slog.String("channel_id", channelID),
		slog.String("user_id", userID),
		slog.String("action", action),
		slog.String("reason", reason),
	)
	observability.SecurityViolations.WithLabelValues(action).Inc()

	return g.violations.Create(ctx, &models.SecurityViolation{
		ChannelID: channelID,
		UserID:    userID,
		Action:    action,
		Reason:    reason,
	})
}

// Enforce returns nil when userID is the creator of channelID. Otherwise the
// attempt is recorded and a forbidden error is returned.
func (g *Gate) Enforce(ctx context.Context, channelID, userID, action string) error {
	ok, err := g.IsCreator(ctx, channelID, userID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if err := g.RecordViolation(ctx, channelID, userID, action, "not the channel creator"); err != nil {
		return err
	}
	return models.NewForbiddenError(DeniedTitle)
}
