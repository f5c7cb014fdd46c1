package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Creator-gated actions, recorded on security violations.
const (
	ActionClaimCreator     = "claim_creator"
	ActionApproveChallenge = "approve_challenge"
	ActionRejectChallenge  = "reject_challenge"
	ActionStartStream      = "start_stream"
	ActionEndStream        = "end_stream"
	ActionViewStreamKey    = "view_stream_key"
	ActionRotateStreamKey  = "rotate_stream_key"
	ActionViewViolations   = "view_violations"
)

// SecurityViolation records a refused creator-only action.
type SecurityViolation struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ChannelID string    `gorm:"type:varchar(36);not null;index" json:"channel_id"`
	UserID    string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	Action    string    `gorm:"size:50;not null" json:"action"`
	Reason    string    `gorm:"size:255" json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID when none was provided.
func (v *SecurityViolation) BeforeCreate(_ *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
