package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageKind distinguishes how a chat log entry is rendered.
type MessageKind string

const (
	MessageKindChat     MessageKind = "chat"
	MessageKindDonation MessageKind = "donation"
	MessageKindSystem   MessageKind = "system"
)

// MaxChatMessageLength bounds a single chat line.
const MaxChatMessageLength = 500

// ChatMessage is a persisted line in a channel's chat. Donation rows share
// their ID with the donation they describe.
type ChatMessage struct {
	ID          string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ChannelID   string      `gorm:"type:varchar(36);not null;index:idx_chat_messages_channel_created,priority:1" json:"channel_id"`
	UserID      *string     `gorm:"type:varchar(36)" json:"user_id,omitempty"`
	Username    string      `gorm:"size:30;not null" json:"username"`
	Text        string      `gorm:"type:text;not null" json:"text"`
	Emoji       string      `gorm:"size:16" json:"emoji,omitempty"`
	Kind        MessageKind `gorm:"type:varchar(20);not null;default:'chat'" json:"kind"`
	AmountCents int64       `gorm:"not null;default:0" json:"amount_cents,omitempty"`
	CreatedAt   time.Time   `gorm:"index:idx_chat_messages_channel_created,priority:2" json:"created_at"`
}

// BeforeCreate assigns a UUID when none was provided.
func (m *ChatMessage) BeforeCreate(_ *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
