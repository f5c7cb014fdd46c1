package service

import (
	"context"

	"dumdummies/internal/models"
	"dumdummies/internal/notifications"
	"dumdummies/internal/observability"
	"dumdummies/internal/repository"
	"dumdummies/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// DonationService records donations and credits challenges.
type DonationService struct {
	donations repository.DonationRepository
	channels  repository.ChannelRepository
	users     repository.UserRepository
	events    EventPublisher
}

type DonateInput struct {
	// ID is an optional client-generated UUID.
	ID          string
	ChannelID   string
	UserID      string
	AmountCents int64
	Message     string
	ChallengeID *string
}

func NewDonationService(
	donations repository.DonationRepository,
	channels repository.ChannelRepository,
	users repository.UserRepository,
	events EventPublisher,
) *DonationService {
	return &DonationService{
		donations: donations,
		channels:  channels,
		users:     users,
		events:    publisherOrNoop(events),
	}
}

// Donate stores a donation, credits the named or featured active challenge
// and publishes the donation and challenge events.
func (s *DonationService) Donate(ctx context.Context, in DonateInput) (donation *models.Donation, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "DonationService", "Donate",
		attribute.String("channel.id", in.ChannelID),
		attribute.Int64("donation.amount_cents", in.AmountCents),
	)
	defer func() { observability.EndSpan(span, err) }()

	if in.AmountCents <= 0 {
		return nil, models.NewValidationError("Donation amount must be greater than zero")
	}
	msg, err := validation.DonationMessage(in.Message)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	id, err := clientID(in.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.channels.GetByID(ctx, in.ChannelID); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	donation = &models.Donation{
		ID:          id,
		ChannelID:   in.ChannelID,
		UserID:      user.ID,
		Username:    user.Username,
		AmountCents: in.AmountCents,
		Message:     msg,
		ChallengeID: in.ChallengeID,
	}
	res, err := s.donations.Record(ctx, donation)
	if err != nil {
		return nil, err
	}

	observability.DonationsTotal.Inc()
	observability.DonatedCentsTotal.Add(float64(donation.AmountCents))
	s.events.Publish(ctx, notifications.EventDonation, donation.ChannelID, donation)

	if res.Challenge != nil {
		if res.Completed {
			observability.ChallengeTransitions.WithLabelValues(string(models.ChallengeCompleted)).Inc()
		}
		s.events.Publish(ctx, notifications.EventChallenge, donation.ChannelID, models.ChallengeChange{Challenge: *res.Challenge})
	}
	return donation, nil
}

// List returns the channel's donations, newest first.
func (s *DonationService) List(ctx context.Context, channelID string, limit int) ([]models.Donation, error) {
	if _, err := s.channels.GetByID(ctx, channelID); err != nil {
		return nil, err
	}
	return s.donations.ListByChannel(ctx, channelID, limit)
}
