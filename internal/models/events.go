package models

import "time"

// ChallengeChange is the payload of a challenge event. Removed is set when a
// requested challenge was rejected and deleted.
type ChallengeChange struct {
	Challenge Challenge `json:"challenge"`
	Removed   bool      `json:"removed,omitempty"`
}

// StreamStatus is the payload of a stream event: live flag and viewer count.
type StreamStatus struct {
	ChannelID   string     `json:"channel_id"`
	IsLive      bool       `json:"is_live"`
	ViewerCount int        `json:"viewer_count"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`
}
