package reconciler

import (
	"time"

	"dumdummies/internal/models"
)

// DefaultLogCap is the number of chat entries kept when none is configured.
const DefaultLogCap = 50

// DefaultSeenCap bounds the ids remembered for deduplication.
const DefaultSeenCap = 1024

// Entry is one rendered line of the chat log.
type Entry struct {
	ID            string             `json:"id"`
	Kind          models.MessageKind `json:"kind"`
	Username      string             `json:"username"`
	Text          string             `json:"text"`
	Emoji         string             `json:"emoji"`
	AmountCents   int64              `json:"amount_cents,omitempty"`
	AvatarColor   string             `json:"avatar_color"`
	UsernameColor string             `json:"username_color"`
	MessageColor  string             `json:"message_color"`
	// Pending marks an optimistic entry the backend has not confirmed yet.
	Pending bool      `json:"pending,omitempty"`
	At      time.Time `json:"at"`
}

// MessageLog is a FIFO of entries capped at a fixed size. The oldest
// entries drop off first.
type MessageLog struct {
	cap     int
	entries []Entry
}

// NewMessageLog returns an empty log holding at most capacity entries.
func NewMessageLog(capacity int) *MessageLog {
	if capacity <= 0 {
		capacity = DefaultLogCap
	}
	return &MessageLog{cap: capacity, entries: make([]Entry, 0, capacity)}
}

// Append adds e, evicting the oldest entries beyond the cap.
func (l *MessageLog) Append(e Entry) {
	l.entries = append(l.entries, e)
	if over := len(l.entries) - l.cap; over > 0 {
		copy(l.entries, l.entries[over:])
		l.entries = l.entries[:l.cap]
	}
}

// Remove deletes the entry with id and reports whether it was present.
func (l *MessageLog) Remove(id string) bool {
	for i := range l.entries {
		if l.entries[i].ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Confirm clears the pending flag of the entry with id.
func (l *MessageLog) Confirm(id string) {
	for i := range l.entries {
		if l.entries[i].ID == id {
			l.entries[i].Pending = false
			return
		}
	}
}

func (l *MessageLog) Len() int { return len(l.entries) }

func (l *MessageLog) Cap() int { return l.cap }

// Entries returns a copy of the log, oldest first.
func (l *MessageLog) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *MessageLog) reset() {
	l.entries = l.entries[:0]
}

// seenSet remembers the most recent ids, forgetting the oldest past cap.
type seenSet struct {
	cap   int
	ids   map[string]struct{}
	order []string
}

func newSeenSet(capacity int) *seenSet {
	if capacity <= 0 {
		capacity = DefaultSeenCap
	}
	return &seenSet{cap: capacity, ids: make(map[string]struct{}, capacity)}
}

// add records id and reports whether it was new.
func (s *seenSet) add(id string) bool {
	if id == "" {
		return true
	}
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)
	if len(s.order) > s.cap {
		delete(s.ids, s.order[0])
		s.order = s.order[1:]
	}
	return true
}

func (s *seenSet) has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *seenSet) remove(id string) {
	if _, ok := s.ids[id]; !ok {
		return
	}
	delete(s.ids, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *seenSet) reset() {
	s.ids = make(map[string]struct{}, s.cap)
	s.order = nil
}
