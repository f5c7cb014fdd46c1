// Package live runs server-side reconcilers over the service layer.
package live

import (
	"context"

	"dumdummies/internal/models"
	"dumdummies/internal/reconciler"
	"dumdummies/internal/service"
)

// ServiceBackend is a reconciler.Backend calling the services in-process.
type ServiceBackend struct {
	Channels   *service.ChannelService
	Challenges *service.ChallengeService
	Donations  *service.DonationService
	Chat       *service.ChatService
	Streams    *service.StreamService
}

var _ reconciler.Backend = (*ServiceBackend)(nil)

func (b *ServiceBackend) FetchChannel(ctx context.Context, channelID string) (*models.Channel, error) {
	return b.Channels.Get(ctx, channelID)
}

func (b *ServiceBackend) FetchActiveChallenge(ctx context.Context, channelID string) (*models.Challenge, error) {
	return b.Challenges.FetchActive(ctx, channelID)
}

func (b *ServiceBackend) FetchActiveChallenges(ctx context.Context, channelID string) ([]models.Challenge, error) {
	return b.Challenges.ListActive(ctx, channelID)
}

func (b *ServiceBackend) FetchRequestedChallenges(ctx context.Context, channelID string) ([]models.Challenge, error) {
	return b.Challenges.ListRequested(ctx, channelID)
}

func (b *ServiceBackend) FetchRecentMessages(ctx context.Context, channelID string, limit int) ([]models.ChatMessage, error) {
	return b.Chat.Recent(ctx, channelID, limit)
}

func (b *ServiceBackend) CreateChallenge(ctx context.Context, req reconciler.ChallengeRequest) (*models.Challenge, error) {
	return b.Challenges.Create(ctx, service.CreateChallengeInput{
		ChannelID: req.ChannelID,
		UserID:    req.UserID,
		Name:      req.Name,
	})
}

func (b *ServiceBackend) ApproveChallenge(ctx context.Context, challengeID string, targetCents int64, actorID string) (*models.Challenge, error) {
	return b.Challenges.Approve(ctx, service.ApproveChallengeInput{
		ChallengeID: challengeID,
		TargetCents: targetCents,
		ActorID:     actorID,
	})
}

func (b *ServiceBackend) RejectChallenge(ctx context.Context, challengeID, actorID string) error {
	_, err := b.Challenges.Reject(ctx, challengeID, actorID)
	return err
}

func (b *ServiceBackend) CreateDonation(ctx context.Context, req reconciler.DonationRequest) (*models.Donation, error) {
	return b.Donations.Donate(ctx, service.DonateInput{
		ID:          req.ID,
		ChannelID:   req.ChannelID,
		UserID:      req.UserID,
		AmountCents: req.AmountCents,
		Message:     req.Message,
		ChallengeID: req.ChallengeID,
	})
}

func (b *ServiceBackend) SendChatMessage(ctx context.Context, req reconciler.ChatRequest) (*models.ChatMessage, error) {
	return b.Chat.Send(ctx, service.SendChatInput{
		ID:        req.ID,
		ChannelID: req.ChannelID,
		UserID:    req.UserID,
		Text:      req.Text,
		Emoji:     req.Emoji,
	})
}

func (b *ServiceBackend) AdjustViewerCount(ctx context.Context, channelID string, delta int) error {
	_, err := b.Channels.AdjustViewers(ctx, channelID, delta)
	return err
}

func (b *ServiceBackend) StartStream(ctx context.Context, channelID, actorID string) (*models.StreamStatus, error) {
	return b.Streams.Start(ctx, channelID, actorID)
}

func (b *ServiceBackend) EndStream(ctx context.Context, channelID, actorID string) (*models.StreamStatus, error) {
	return b.Streams.End(ctx, channelID, actorID)
}

func (b *ServiceBackend) GetStreamKey(ctx context.Context, channelID, actorID string) (string, error) {
	key, err := b.Streams.GetStreamKey(ctx, channelID, actorID)
	if err != nil {
		return "", err
	}
	return key.StreamKey, nil
}
