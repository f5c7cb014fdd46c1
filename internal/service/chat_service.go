package service

import (
	"context"

	"dumdummies/internal/models"
	"dumdummies/internal/notifications"
	"dumdummies/internal/repository"
	"dumdummies/internal/validation"
)

// ChatService persists and publishes chat messages.
type ChatService struct {
	chats    repository.ChatRepository
	channels repository.ChannelRepository
	users    repository.UserRepository
	events   EventPublisher
}

type SendChatInput struct {
	// ID is an optional client-generated UUID.
	ID        string
	ChannelID string
	UserID    string
	Text      string
	Emoji     string
}

func NewChatService(
	chats repository.ChatRepository,
	channels repository.ChannelRepository,
	users repository.UserRepository,
	events EventPublisher,
) *ChatService {
	return &ChatService{
		chats:    chats,
		channels: channels,
		users:    users,
		events:   publisherOrNoop(events),
	}
}

func (s *ChatService) Send(ctx context.Context, in SendChatInput) (*models.ChatMessage, error) {
	text, err := validation.ChatText(in.Text)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if len(in.Emoji) > 16 {
		return nil, models.NewValidationError("Emoji too long")
	}
	id, err := clientID(in.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.channels.GetByID(ctx, in.ChannelID); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	userID := user.ID
	msg := &models.ChatMessage{
		ID:        id,
		ChannelID: in.ChannelID,
		UserID:    &userID,
		Username:  user.Username,
		Text:      text,
		Emoji:     in.Emoji,
		Kind:      models.MessageKindChat,
	}
	if err := s.chats.Create(ctx, msg); err != nil {
		return nil, err
	}

	s.events.Publish(ctx, notifications.EventChat, msg.ChannelID, msg)
	return msg, nil
}

// Recent returns up to limit messages, oldest first.
func (s *ChatService) Recent(ctx context.Context, channelID string, limit int) ([]models.ChatMessage, error) {
	return s.chats.Recent(ctx, channelID, limit)
}
