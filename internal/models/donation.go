package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Donation is an immutable contribution. ChallengeTotalCents is the credited
// challenge's running total right after this donation, so consumers can apply
// it idempotently regardless of delivery order.
type Donation struct {
	ID                  string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ChannelID           string    `gorm:"type:varchar(36);not null;index" json:"channel_id"`
	UserID              string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Username            string    `gorm:"size:30;not null" json:"username"`
	AmountCents         int64     `gorm:"not null" json:"amount_cents"`
	Message             string    `gorm:"size:200" json:"message,omitempty"`
	ChallengeID         *string   `gorm:"type:varchar(36);index" json:"challenge_id,omitempty"`
	ChallengeTotalCents int64     `gorm:"not null;default:0" json:"challenge_total_cents,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID when none was provided.
func (d *Donation) BeforeCreate(_ *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
