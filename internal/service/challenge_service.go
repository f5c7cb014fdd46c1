package service

import (
	"context"
	"errors"

	"dumdummies/internal/models"
	"dumdummies/internal/notifications"
	"dumdummies/internal/observability"
	"dumdummies/internal/repository"
	"dumdummies/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// ChallengeService runs the requested -> active -> completed lifecycle.
type ChallengeService struct {
	challenges repository.ChallengeRepository
	channels   repository.ChannelRepository
	gate       CreatorGate
	events     EventPublisher
}

type CreateChallengeInput struct {
	ChannelID string
	UserID    string
	Name      string
}

type ApproveChallengeInput struct {
	ChallengeID string
	TargetCents int64
	ActorID     string
}

func NewChallengeService(
	challenges repository.ChallengeRepository,
	channels repository.ChannelRepository,
	gate CreatorGate,
	events EventPublisher,
) *ChallengeService {
	return &ChallengeService{
		challenges: challenges,
		channels:   channels,
		gate:       gate,
		events:     publisherOrNoop(events),
	}
}

const duplicateChallengeMessage = "A challenge with this name is already active or requested"

// Create stores a viewer's challenge request.
func (s *ChallengeService) Create(ctx context.Context, in CreateChallengeInput) (*models.Challenge, error) {
	if in.UserID == "" {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	name, err := validation.ChallengeName(in.Name)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if _, err := s.channels.GetByID(ctx, in.ChannelID); err != nil {
		return nil, err
	}

	exists, err := s.challenges.ExistsOpenName(ctx, in.ChannelID, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, models.NewConflictError(duplicateChallengeMessage)
	}

	challenge := &models.Challenge{
		ChannelID:   in.ChannelID,
		Name:        name,
		RequestedBy: in.UserID,
		Status:      models.ChallengeRequested,
	}
	if err := s.challenges.Create(ctx, challenge); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, models.NewConflictError(duplicateChallengeMessage)
		}
		return nil, err
	}

	observability.ChallengeTransitions.WithLabelValues(string(models.ChallengeRequested)).Inc()
	s.events.Publish(ctx, notifications.EventChallenge, challenge.ChannelID, models.ChallengeChange{Challenge: *challenge})
	return challenge, nil
}

// Approve activates a requested challenge with a target. Creator only.
func (s *ChallengeService) Approve(ctx context.Context, in ApproveChallengeInput) (challenge *models.Challenge, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "ChallengeService", "Approve",
		attribute.String("challenge.id", in.ChallengeID),
	)
	defer func() { observability.EndSpan(span, err) }()

	current, err := s.challenges.GetByID(ctx, in.ChallengeID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Enforce(ctx, current.ChannelID, in.ActorID, models.ActionApproveChallenge); err != nil {
		return nil, err
	}
	if in.TargetCents <= 0 {
		return nil, models.NewValidationError("Target amount must be greater than zero")
	}

	challenge, err = s.challenges.Approve(ctx, in.ChallengeID, in.TargetCents)
	if err != nil {
		return nil, err
	}

	observability.ChallengeTransitions.WithLabelValues(string(models.ChallengeActive)).Inc()
	s.events.Publish(ctx, notifications.EventChallenge, challenge.ChannelID, models.ChallengeChange{Challenge: *challenge})
	return challenge, nil
}

// Reject deletes a requested challenge. Creator only.
func (s *ChallengeService) Reject(ctx context.Context, challengeID, actorID string) (*models.Challenge, error) {
	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Enforce(ctx, challenge.ChannelID, actorID, models.ActionRejectChallenge); err != nil {
		return nil, err
	}
	if err := s.challenges.DeleteRequested(ctx, challengeID); err != nil {
		return nil, err
	}

	observability.ChallengeTransitions.WithLabelValues("rejected").Inc()
	s.events.Publish(ctx, notifications.EventChallenge, challenge.ChannelID, models.ChallengeChange{
		Challenge: *challenge,
		Removed:   true,
	})
	return challenge, nil
}

// FetchActive returns the featured challenge: the oldest active one, or nil.
func (s *ChallengeService) FetchActive(ctx context.Context, channelID string) (*models.Challenge, error) {
	return s.challenges.FirstActive(ctx, channelID)
}

func (s *ChallengeService) ListActive(ctx context.Context, channelID string) ([]models.Challenge, error) {
	return s.challenges.ListByStatus(ctx, channelID, models.ChallengeActive)
}

func (s *ChallengeService) ListRequested(ctx context.Context, channelID string) ([]models.Challenge, error) {
	return s.challenges.ListByStatus(ctx, channelID, models.ChallengeRequested)
}
