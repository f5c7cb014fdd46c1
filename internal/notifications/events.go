// Package notifications provides real-time event delivery for channels.
package notifications

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// EventType names the kind of payload an Event carries.
type EventType string

const (
	EventChat      EventType = "chat"
	EventDonation  EventType = "donation"
	EventChallenge EventType = "challenge"
	EventStream    EventType = "stream"
)

const (
	channelTopicPrefix  = "channel:events:"
	channelTopicPattern = channelTopicPrefix + "*"
)

// Event is the envelope published for every change on a channel.
type Event struct {
	Type      EventType       `json:"type"`
	ChannelID string          `json:"channel_id"`
	Payload   json.RawMessage `json:"payload"`
	At        time.Time       `json:"at"`
}

// NewEvent marshals payload into an envelope stamped with the current time.
func NewEvent(eventType EventType, channelID string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		Type:      eventType,
		ChannelID: channelID,
		Payload:   raw,
		At:        time.Now().UTC(),
	}, nil
}

// Decode unmarshals the payload into dst.
func (e Event) Decode(dst interface{}) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// ParseEvent decodes a serialized envelope.
func ParseEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if e.Type == "" || e.ChannelID == "" {
		return Event{}, fmt.Errorf("decode event: missing type or channel")
	}
	return e, nil
}

// ChannelTopic derives the Redis channel name for a channel's events.
func ChannelTopic(channelID string) string {
	return channelTopicPrefix + channelID
}

func channelFromTopic(topic string) (string, bool) {
	id, ok := strings.CutPrefix(topic, channelTopicPrefix)
	return id, ok && id != ""
}
