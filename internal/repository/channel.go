package repository

import (
	"context"
	"errors"

	"dumdummies/internal/cache"
	"dumdummies/internal/models"
	"dumdummies/internal/observability"

	"gorm.io/gorm"
)

// ChannelRepository defines persistence operations for channels.
type ChannelRepository interface {
	Create(ctx context.Context, channel *models.Channel) error
	GetByID(ctx context.Context, id string) (*models.Channel, error)
	List(ctx context.Context, limit, offset int) ([]models.Channel, error)
	// ClaimOwner sets owner_id to userID only when the channel has no owner.
	// It returns the channel as stored afterwards.
	ClaimOwner(ctx context.Context, channelID, userID string) (*models.Channel, error)
	SetLive(ctx context.Context, channelID string, live bool) error
	// AdjustViewerCount adds delta, never going below zero, and returns the new count.
	AdjustViewerCount(ctx context.Context, channelID string, delta int) (int, error)
}

type channelRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewChannelRepository returns a new ChannelRepository implementation.
func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &channelRepository{db: db, log: observability.NewRepoLogger("channels")}
}

func (r *channelRepository) Create(ctx context.Context, channel *models.Channel) error {
	if err := r.db.WithContext(ctx).Create(channel).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return models.NewInternalError(err)
	}
	return nil
}

func (r *channelRepository) GetByID(ctx context.Context, id string) (*models.Channel, error) {
	var channel models.Channel
	if cache.GetJSON(ctx, cache.ChannelKey(id), &channel) {
		return &channel, nil
	}

	defer observability.TrackQuery("get", "channels")()
	if err := r.db.WithContext(ctx).First(&channel, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Channel", id)
		}
		return nil, models.NewInternalError(err)
	}
	_ = cache.SetJSON(ctx, cache.ChannelKey(id), &channel, cache.ChannelTTL)
	return &channel, nil
}

func (r *channelRepository) List(ctx context.Context, limit, offset int) ([]models.Channel, error) {
	var channels []models.Channel
	err := r.db.WithContext(ctx).
		Order("is_live DESC, created_at ASC").
		Limit(clampLimit(limit, 20, 100)).
		Offset(offset).
		Find(&channels).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return channels, nil
}

func (r *channelRepository) ClaimOwner(ctx context.Context, channelID, userID string) (*models.Channel, error) {
	err := r.db.WithContext(ctx).
		Model(&models.Channel{}).
		Where("id = ? AND owner_id IS NULL", channelID).
		Update("owner_id", userID).Error
	if err != nil {
		r.log.LogError(ctx, err, "claim_owner")
		return nil, models.NewInternalError(err)
	}
	cache.InvalidateChannel(ctx, channelID)
	return r.GetByID(ctx, channelID)
}

func (r *channelRepository) SetLive(ctx context.Context, channelID string, live bool) error {
	res := r.db.WithContext(ctx).
		Model(&models.Channel{}).
		Where("id = ?", channelID).
		Update("is_live", live)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Channel", channelID)
	}
	cache.InvalidateChannel(ctx, channelID)
	return nil
}

func (r *channelRepository) AdjustViewerCount(ctx context.Context, channelID string, delta int) (int, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Channel{}).
		Where("id = ?", channelID).
		Update("viewer_count", gorm.Expr("CASE WHEN viewer_count + ? < 0 THEN 0 ELSE viewer_count + ? END", delta, delta))
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, models.NewNotFoundError("Channel", channelID)
	}
	cache.InvalidateChannel(ctx, channelID)

	var counts []int
	if err := r.db.WithContext(ctx).
		Model(&models.Channel{}).
		Where("id = ?", channelID).
		Pluck("viewer_count", &counts).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	if len(counts) == 0 {
		return 0, models.NewNotFoundError("Channel", channelID)
	}
	return counts[0], nil
}
