// Package service holds the business rules behind the HTTP API.
package service

import (
	"context"

	"dumdummies/internal/models"
	"dumdummies/internal/notifications"

	"github.com/google/uuid"
)

// EventPublisher delivers channel events to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, eventType notifications.EventType, channelID string, payload interface{})
}

// CreatorGate is the authoritative creator predicate.
type CreatorGate interface {
	IsCreator(ctx context.Context, channelID, userID string) (bool, error)
	Claim(ctx context.Context, channelID, userID string) (bool, error)
	RecordViolation(ctx context.Context, channelID, userID, action, reason string) error
	Enforce(ctx context.Context, channelID, userID, action string) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, notifications.EventType, string, interface{}) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}

// clientID accepts an optional client-generated id so optimistic entries
// can be matched with their echo. It must be a UUID when present.
func clientID(id string) (string, error) {
	if id == "" {
		return "", nil
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", models.NewValidationError("id must be a UUID")
	}
	return parsed.String(), nil
}
