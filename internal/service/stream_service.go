package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"

	"dumdummies/internal/models"
	"dumdummies/internal/notifications"
	"dumdummies/internal/repository"
)

// DefaultRTMPServerURL is used when no ingest URL is configured.
const DefaultRTMPServerURL = "rtmp://stream.example.com/live"

// StreamKey is the creator-only ingest configuration.
type StreamKey struct {
	StreamKey string `json:"stream_key"`
	StreamURL string `json:"stream_url"`
}

// StreamService starts and ends broadcasts and guards the stream key.
type StreamService struct {
	streams  repository.StreamRepository
	channels repository.ChannelRepository
	gate     CreatorGate
	events   EventPublisher
	rtmpURL  string
}

func NewStreamService(
	streams repository.StreamRepository,
	channels repository.ChannelRepository,
	gate CreatorGate,
	events EventPublisher,
	rtmpURL string,
) *StreamService {
	if rtmpURL == "" {
		rtmpURL = DefaultRTMPServerURL
	}
	return &StreamService{
		streams:  streams,
		channels: channels,
		gate:     gate,
		events:   publisherOrNoop(events),
		rtmpURL:  rtmpURL,
	}
}

// GenerateStreamKey returns a new random "sk_live_" key.
func GenerateStreamKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return models.StreamKeyPrefix + hex.EncodeToString(buf), nil
}

// EnsureSession returns the channel's session, creating it on first use.
func (s *StreamService) EnsureSession(ctx context.Context, channelID string) (*models.StreamSession, error) {
	session, err := s.streams.GetByChannel(ctx, channelID)
	if err != nil || session != nil {
		return session, err
	}

	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}
	key, err := GenerateStreamKey()
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	session = &models.StreamSession{
		ChannelID:   channelID,
		Title:       channel.Title,
		Description: channel.Description,
		StreamKey:   key,
		StreamURL:   s.rtmpURL,
	}
	if err := s.streams.Create(ctx, session); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return s.streams.GetByChannel(ctx, channelID)
		}
		return nil, err
	}
	return session, nil
}

// Start marks the channel live. Creator only.
func (s *StreamService) Start(ctx context.Context, channelID, actorID string) (*models.StreamStatus, error) {
	return s.setLive(ctx, channelID, actorID, true, models.ActionStartStream)
}

// End marks the channel offline. Creator only.
func (s *StreamService) End(ctx context.Context, channelID, actorID string) (*models.StreamStatus, error) {
	return s.setLive(ctx, channelID, actorID, false, models.ActionEndStream)
}

func (s *StreamService) setLive(ctx context.Context, channelID, actorID string, live bool, action string) (*models.StreamStatus, error) {
	if err := s.gate.Enforce(ctx, channelID, actorID, action); err != nil {
		return nil, err
	}
	if _, err := s.EnsureSession(ctx, channelID); err != nil {
		return nil, err
	}
	session, err := s.streams.SetActive(ctx, channelID, live)
	if err != nil {
		return nil, err
	}
	if err := s.channels.SetLive(ctx, channelID, live); err != nil {
		return nil, err
	}
	channel, err := s.channels.GetByID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	status := &models.StreamStatus{
		ChannelID:   channelID,
		IsLive:      live,
		ViewerCount: channel.ViewerCount,
		StartedAt:   session.StartedAt,
		EndedAt:     session.EndedAt,
	}
	s.events.Publish(ctx, notifications.EventStream, channelID, status)
	return status, nil
}

// GetStreamKey returns the ingest key. Creator only.
func (s *StreamService) GetStreamKey(ctx context.Context, channelID, actorID string) (*StreamKey, error) {
	if err := s.gate.Enforce(ctx, channelID, actorID, models.ActionViewStreamKey); err != nil {
		return nil, err
	}
	session, err := s.EnsureSession(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return &StreamKey{StreamKey: session.StreamKey, StreamURL: session.StreamURL}, nil
}

// RotateKey replaces the ingest key. Creator only.
func (s *StreamService) RotateKey(ctx context.Context, channelID, actorID string) (*StreamKey, error) {
	if err := s.gate.Enforce(ctx, channelID, actorID, models.ActionRotateStreamKey); err != nil {
		return nil, err
	}
	session, err := s.EnsureSession(ctx, channelID)
	if err != nil {
		return nil, err
	}
	key, err := GenerateStreamKey()
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := s.streams.UpdateKey(ctx, channelID, key); err != nil {
		return nil, err
	}
	return &StreamKey{StreamKey: key, StreamURL: session.StreamURL}, nil
}
