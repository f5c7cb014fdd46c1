package repository

import (
	"context"
	"errors"
	"time"

	"dumdummies/internal/models"

	"gorm.io/gorm"
)

// StreamRepository defines persistence operations for stream sessions.
type StreamRepository interface {
	// GetByChannel returns the channel's session, or nil when none exists yet.
	GetByChannel(ctx context.Context, channelID string) (*models.StreamSession, error)
	// Create stores a new session. A concurrent create for the same channel
	// returns ErrDuplicate.
	Create(ctx context.Context, session *models.StreamSession) error
	SetActive(ctx context.Context, channelID string, active bool) (*models.StreamSession, error)
	UpdateKey(ctx context.Context, channelID, key string) error
}

type streamRepository struct {
	db *gorm.DB
}

// NewStreamRepository creates a new stream repository
func NewStreamRepository(db *gorm.DB) StreamRepository {
	return &streamRepository{db: db}
}

func (r *streamRepository) GetByChannel(ctx context.Context, channelID string) (*models.StreamSession, error) {
	var session models.StreamSession
	if err := r.db.WithContext(ctx).First(&session, "channel_id = ?", channelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &session, nil
}

func (r *streamRepository) Create(ctx context.Context, session *models.StreamSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *streamRepository) SetActive(ctx context.Context, channelID string, active bool) (*models.StreamSession, error) {
	updates := map[string]interface{}{"is_active": active}
	now := time.Now()
	if active {
		updates["started_at"] = now
		updates["ended_at"] = nil
	} else {
		updates["ended_at"] = now
	}

	res := r.db.WithContext(ctx).
		Model(&models.StreamSession{}).
		Where("channel_id = ?", channelID).
		Updates(updates)
	if res.Error != nil {
		return nil, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, models.NewNotFoundError("StreamSession", channelID)
	}
	return r.GetByChannel(ctx, channelID)
}

func (r *streamRepository) UpdateKey(ctx context.Context, channelID, key string) error {
	res := r.db.WithContext(ctx).
		Model(&models.StreamSession{}).
		Where("channel_id = ?", channelID).
		Update("stream_key", key)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("StreamSession", channelID)
	}
	return nil
}
