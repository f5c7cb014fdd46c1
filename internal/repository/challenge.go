package repository

import (
	"context"
	"errors"
	"time"

	"dumdummies/internal/models"
	"dumdummies/internal/observability"

	"gorm.io/gorm"
)

// ChallengeRepository defines persistence operations for challenges.
type ChallengeRepository interface {
	Create(ctx context.Context, challenge *models.Challenge) error
	GetByID(ctx context.Context, id string) (*models.Challenge, error)
	// ExistsOpenName reports whether a requested or active challenge on the
	// channel already uses name, compared case-insensitively.
	ExistsOpenName(ctx context.Context, channelID, name string) (bool, error)
	// FirstActive returns the oldest active challenge, or nil when there is none.
	FirstActive(ctx context.Context, channelID string) (*models.Challenge, error)
	ListByStatus(ctx context.Context, channelID string, status models.ChallengeStatus) ([]models.Challenge, error)
	// Approve moves a requested challenge to active with the given target and
	// a zero total. Challenges that are no longer requested yield a conflict.
	Approve(ctx context.Context, id string, targetCents int64) (*models.Challenge, error)
	// DeleteRequested removes a challenge that is still requested.
	DeleteRequested(ctx context.Context, id string) error
}

type challengeRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewChallengeRepository returns a new ChallengeRepository implementation.
func NewChallengeRepository(db *gorm.DB) ChallengeRepository {
	return &challengeRepository{db: db, log: observability.NewRepoLogger("challenges")}
}

func (r *challengeRepository) Create(ctx context.Context, challenge *models.Challenge) error {
	if err := r.db.WithContext(ctx).Create(challenge).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	return nil
}

func (r *challengeRepository) GetByID(ctx context.Context, id string) (*models.Challenge, error) {
	var challenge models.Challenge
	if err := r.db.WithContext(ctx).First(&challenge, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Challenge", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &challenge, nil
}

func (r *challengeRepository) ExistsOpenName(ctx context.Context, channelID, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Challenge{}).
		Where("channel_id = ? AND name_key = ? AND status <> ?", channelID, models.NormalizeChallengeName(name), models.ChallengeCompleted).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *challengeRepository) FirstActive(ctx context.Context, channelID string) (*models.Challenge, error) {
	return firstActive(r.db.WithContext(ctx), channelID)
}

func firstActive(db *gorm.DB, channelID string) (*models.Challenge, error) {
	var challenge models.Challenge
	err := db.
		Where("channel_id = ? AND status = ?", channelID, models.ChallengeActive).
		Order("approved_at ASC, created_at ASC").
		First(&challenge).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &challenge, nil
}

func (r *challengeRepository) ListByStatus(ctx context.Context, channelID string, status models.ChallengeStatus) ([]models.Challenge, error) {
	var challenges []models.Challenge
	defer observability.TrackQuery("list", "challenges")()
	err := r.db.WithContext(ctx).
		Where("channel_id = ? AND status = ?", channelID, status).
		Order("created_at ASC").
		Find(&challenges).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return challenges, nil
}

func (r *challengeRepository) Approve(ctx context.Context, id string, targetCents int64) (*models.Challenge, error) {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&models.Challenge{}).
		Where("id = ? AND status = ?", id, models.ChallengeRequested).
		Updates(map[string]interface{}{
			"status":        models.ChallengeActive,
			"target_cents":  targetCents,
			"current_cents": 0,
			"approved_at":   now,
		})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "approve")
		return nil, models.NewInternalError(res.Error)
	}

	challenge, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return nil, models.NewConflictError("Challenge is no longer pending approval")
	}
	r.log.LogWrite(ctx, "approve")
	return challenge, nil
}

func (r *challengeRepository) DeleteRequested(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, models.ChallengeRequested).
		Delete(&models.Challenge{})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "delete_requested")
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return models.NewConflictError("Only requested challenges can be rejected")
	}
	r.log.LogWrite(ctx, "delete_requested")
	return nil
}
