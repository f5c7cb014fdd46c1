package repository

import (
	"context"

	"dumdummies/internal/models"

	"gorm.io/gorm"
)

// ChatRepository defines persistence operations for chat messages.
type ChatRepository interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
	// Recent returns the newest limit messages of a channel, oldest first.
	Recent(ctx context.Context, channelID string, limit int) ([]models.ChatMessage, error)
}

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository returns a new ChatRepository implementation.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Create(ctx context.Context, msg *models.ChatMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		if isUniqueViolation(err) {
			return models.NewConflictError("Message already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *chatRepository) Recent(ctx context.Context, channelID string, limit int) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := r.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("created_at DESC, id DESC").
		Limit(clampLimit(limit, 50, 200)).
		Find(&msgs).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
