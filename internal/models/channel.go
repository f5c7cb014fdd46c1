package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Channel is a single stream instance. OwnerID is the registered creator and
// stays nil until someone claims creator mode.
type Channel struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	OwnerID     *string   `gorm:"type:varchar(36);index" json:"owner_id,omitempty"`
	IsLive      bool      `gorm:"default:false;index" json:"is_live"`
	ViewerCount int       `gorm:"default:0" json:"viewer_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when none was provided.
func (c *Channel) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// HasOwner reports whether a creator has been registered.
func (c *Channel) HasOwner() bool {
	return c.OwnerID != nil && *c.OwnerID != ""
}

// IsOwnedBy reports whether userID is the registered creator.
func (c *Channel) IsOwnedBy(userID string) bool {
	return userID != "" && c.HasOwner() && *c.OwnerID == userID
}
