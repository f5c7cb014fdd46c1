package service

import (
	"context"
	"log/slog"
	"strings"

	"dumdummies/internal/models"
	"dumdummies/internal/notifications"
	"dumdummies/internal/observability"
	"dumdummies/internal/repository"
)

// ChannelService manages channels, viewer counts and creator ownership.
type ChannelService struct {
	channels   repository.ChannelRepository
	violations repository.SecurityRepository
	gate       CreatorGate
	events     EventPublisher
}

type CreateChannelInput struct {
	Title       string
	Description string
}

func NewChannelService(
	channels repository.ChannelRepository,
	violations repository.SecurityRepository,
	gate CreatorGate,
	events EventPublisher,
) *ChannelService {
	return &ChannelService{
		channels:   channels,
		violations: violations,
		gate:       gate,
		events:     publisherOrNoop(events),
	}
}

func (s *ChannelService) Create(ctx context.Context, in CreateChannelInput) (*models.Channel, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(title) > 255 {
		return nil, models.NewValidationError("Title too long (max 255 characters)")
	}
	channel := &models.Channel{Title: title, Description: strings.TrimSpace(in.Description)}
	if err := s.channels.Create(ctx, channel); err != nil {
		return nil, err
	}
	return channel, nil
}

func (s *ChannelService) Get(ctx context.Context, id string) (*models.Channel, error) {
	return s.channels.GetByID(ctx, id)
}

func (s *ChannelService) List(ctx context.Context, limit, offset int) ([]models.Channel, error) {
	return s.channels.List(ctx, limit, offset)
}

// AdjustViewers applies delta to the viewer count, clamped at zero, and
// publishes the new stream status.
func (s *ChannelService) AdjustViewers(ctx context.Context, channelID string, delta int) (int, error) {
	count, err := s.channels.AdjustViewerCount(ctx, channelID, delta)
	if err != nil {
		return 0, err
	}
	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return count, nil
	}
	s.events.Publish(ctx, notifications.EventStream, channelID, models.StreamStatus{
		ChannelID:   channelID,
		IsLive:      channel.IsLive,
		ViewerCount: count,
	})
	return count, nil
}

// TrackViewer is a best-effort AdjustViewers for websocket join/leave hooks.
func (s *ChannelService) TrackViewer(delta int) func(ctx context.Context, channelID string) {
	return func(ctx context.Context, channelID string) {
		if _, err := s.AdjustViewers(ctx, channelID, delta); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "viewer count update failed",
				slog.String("channel_id", channelID),
				slog.Int("delta", delta),
				slog.String("error", err.Error()),
			)
		}
	}
}

// ClaimCreator makes userID the channel creator if nobody is yet.
func (s *ChannelService) ClaimCreator(ctx context.Context, channelID, userID string) (bool, error) {
	return s.gate.Claim(ctx, channelID, userID)
}

func (s *ChannelService) IsCreator(ctx context.Context, channelID, userID string) (bool, error) {
	return s.gate.IsCreator(ctx, channelID, userID)
}

// ReportViolation stores a creator action that a client refused locally.
func (s *ChannelService) ReportViolation(ctx context.Context, channelID, userID, action, reason string) error {
	if _, err := s.channels.GetByID(ctx, channelID); err != nil {
		return err
	}
	action = strings.TrimSpace(action)
	if action == "" || len(action) > 50 {
		return models.NewValidationError("Action is required (max 50 characters)")
	}
	if len(reason) > 255 {
		reason = reason[:255]
	}
	return s.gate.RecordViolation(ctx, channelID, userID, action, reason)
}

// Violations lists recorded refusals. Creator only.
func (s *ChannelService) Violations(ctx context.Context, channelID, actorID string, limit int) ([]models.SecurityViolation, error) {
	if err := s.gate.Enforce(ctx, channelID, actorID, models.ActionViewViolations); err != nil {
		return nil, err
	}
	return s.violations.ListByChannel(ctx, channelID, limit)
}
