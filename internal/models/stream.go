package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StreamKeyPrefix marks generated ingest keys.
const StreamKeyPrefix = "sk_live_"

// StreamSession is the ingest configuration of a channel. There is one per
// channel. StreamKey is never serialized; only the creator may read it.
type StreamSession struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ChannelID   string     `gorm:"type:varchar(36);not null;uniqueIndex" json:"channel_id"`
	Title       string     `gorm:"size:255" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	IsActive    bool       `gorm:"default:false" json:"is_active"`
	StreamKey   string     `gorm:"size:64;not null" json:"-"`
	StreamURL   string     `gorm:"size:500" json:"stream_url"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// BeforeCreate assigns a UUID when none was provided.
func (s *StreamSession) BeforeCreate(_ *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
