package repository

import (
	"context"
	"errors"
	"time"

	"dumdummies/internal/models"
	"dumdummies/internal/observability"

	"gorm.io/gorm"
)

// DonationResult describes what recording a donation did to challenges.
type DonationResult struct {
	// Challenge is the credited challenge after the credit, or nil.
	Challenge *models.Challenge
	// Completed is true only for the donation that moved Challenge to completed.
	Completed bool
}

// DonationRepository defines persistence operations for donations.
type DonationRepository interface {
	// Record stores the donation together with its chat row and credits a
	// challenge in one transaction. When ChallengeID is set that challenge is
	// credited if it is still active; otherwise the oldest active challenge of
	// the channel is credited.
	Record(ctx context.Context, donation *models.Donation) (*DonationResult, error)
	ListByChannel(ctx context.Context, channelID string, limit int) ([]models.Donation, error)
}

type donationRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewDonationRepository returns a new DonationRepository implementation.
func NewDonationRepository(db *gorm.DB) DonationRepository {
	return &donationRepository{db: db, log: observability.NewRepoLogger("donations")}
}

func (r *donationRepository) Record(ctx context.Context, donation *models.Donation) (*DonationResult, error) {
	result := &DonationResult{}
	defer observability.TrackQuery("record", "donations")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		target, err := creditTarget(tx, donation)
		if err != nil {
			return err
		}

		donation.ChallengeID = nil
		donation.ChallengeTotalCents = 0
		if target != nil {
			completed, err := credit(tx, target, donation.AmountCents)
			if err != nil {
				return err
			}
			donation.ChallengeID = &target.ID
			donation.ChallengeTotalCents = target.CurrentCents
			result.Challenge = target
			result.Completed = completed
		}

		if err := tx.Create(donation).Error; err != nil {
			return err
		}

		userID := donation.UserID
		row := &models.ChatMessage{
			ID:          donation.ID,
			ChannelID:   donation.ChannelID,
			UserID:      &userID,
			Username:    donation.Username,
			Text:        donation.Message,
			Kind:        models.MessageKindDonation,
			AmountCents: donation.AmountCents,
			CreatedAt:   donation.CreatedAt,
		}
		return tx.Create(row).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		r.log.LogError(ctx, err, "record")
		return nil, models.NewInternalError(err)
	}
	r.log.LogWrite(ctx, "record")
	return result, nil
}

// creditTarget picks the challenge a donation counts toward. A named
// challenge that is no longer active leaves the donation uncredited.
func creditTarget(tx *gorm.DB, donation *models.Donation) (*models.Challenge, error) {
	if donation.ChallengeID == nil || *donation.ChallengeID == "" {
		return firstActive(tx, donation.ChannelID)
	}

	var challenge models.Challenge
	err := tx.First(&challenge, "id = ? AND channel_id = ?", *donation.ChallengeID, donation.ChannelID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewValidationError("Challenge does not belong to this channel")
		}
		return nil, err
	}
	if challenge.Status != models.ChallengeActive {
		return nil, nil
	}
	return &challenge, nil
}

// credit adds amount to an active challenge and completes it when the
// target is reached. It reports whether this call completed it.
func credit(tx *gorm.DB, challenge *models.Challenge, amount int64) (bool, error) {
	err := tx.Model(&models.Challenge{}).
		Where("id = ? AND status = ?", challenge.ID, models.ChallengeActive).
		Update("current_cents", gorm.Expr("current_cents + ?", amount)).Error
	if err != nil {
		return false, err
	}

	now := time.Now()
	res := tx.Model(&models.Challenge{}).
		Where("id = ? AND status = ? AND target_cents > 0 AND current_cents >= target_cents", challenge.ID, models.ChallengeActive).
		Updates(map[string]interface{}{
			"status":       models.ChallengeCompleted,
			"completed_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}

	if err := tx.First(challenge, "id = ?", challenge.ID).Error; err != nil {
		return false, err
	}
	return res.RowsAffected > 0, nil
}

func (r *donationRepository) ListByChannel(ctx context.Context, channelID string, limit int) ([]models.Donation, error) {
	var donations []models.Donation
	err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("created_at DESC").
		Limit(clampLimit(limit, 50, 200)).
		Find(&donations).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return donations, nil
}
