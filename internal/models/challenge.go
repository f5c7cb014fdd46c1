package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChallengeStatus defines lifecycle states for challenges.
type ChallengeStatus string

const (
	// ChallengeRequested is a viewer suggestion waiting for the creator.
	ChallengeRequested ChallengeStatus = "requested"
	// ChallengeActive is approved and collecting donations.
	ChallengeActive ChallengeStatus = "active"
	// ChallengeCompleted has met its target. Terminal.
	ChallengeCompleted ChallengeStatus = "completed"
)

// Challenge is a named goal with a monetary target.
//
// NameKey is the normalized name. The store keeps it unique per channel among
// challenges that are not completed, which is what rejects duplicate requests.
type Challenge struct {
	ID           string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ChannelID    string          `gorm:"type:varchar(36);not null;index;uniqueIndex:idx_challenges_open_name,where:status <> 'completed'" json:"channel_id"`
	Name         string          `gorm:"size:80;not null" json:"name"`
	NameKey      string          `gorm:"size:80;not null;uniqueIndex:idx_challenges_open_name,where:status <> 'completed'" json:"-"`
	TargetCents  int64           `gorm:"not null;default:0" json:"target_cents"`
	CurrentCents int64           `gorm:"not null;default:0" json:"current_cents"`
	Status       ChallengeStatus `gorm:"type:varchar(20);not null;default:'requested';index" json:"status"`
	RequestedBy  string          `gorm:"type:varchar(36);not null" json:"requested_by"`
	ApprovedAt   *time.Time      `json:"approved_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// BeforeCreate assigns a UUID and derives NameKey.
func (c *Challenge) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.NameKey == "" {
		c.NameKey = NormalizeChallengeName(c.Name)
	}
	return nil
}

// Reached reports whether the target has been met.
func (c *Challenge) Reached() bool {
	return c.TargetCents > 0 && c.CurrentCents >= c.TargetCents
}

// Progress returns the completion ratio clamped to [0, 1].
func (c *Challenge) Progress() float64 {
	if c.TargetCents <= 0 {
		return 0
	}
	p := float64(c.CurrentCents) / float64(c.TargetCents)
	if p > 1 {
		return 1
	}
	return p
}

// NormalizeChallengeName folds case and whitespace so "Drink  Piss " and
// "drink piss" compare equal.
func NormalizeChallengeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
