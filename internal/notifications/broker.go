package notifications

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	"dumdummies/internal/models"
	"dumdummies/internal/observability"
)

// Handler receives events for one channel.
type Handler func(Event)

type subscription struct {
	id      uint64
	channel string
	fn      Handler
}

// Broker fans events out to in-process subscribers, keyed by channel.
// Handlers run on the dispatching goroutine and must not block.
type Broker struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]*subscription
	all    map[uint64]*subscription
}

// NewBroker creates an empty Broker.
func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[uint64]*subscription),
		all:  make(map[uint64]*subscription),
	}
}

// Subscribe registers fn for every event of channelID. The returned
// function removes the subscription and is safe to call more than once.
func (b *Broker) Subscribe(channelID string, fn Handler) func() {
	b.mu.Lock()
	b.nextID++
	s := &subscription{id: b.nextID, channel: channelID, fn: fn}
	if b.subs[channelID] == nil {
		b.subs[channelID] = make(map[uint64]*subscription)
	}
	b.subs[channelID][s.id] = s
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if m, ok := b.subs[channelID]; ok {
				delete(m, s.id)
				if len(m) == 0 {
					delete(b.subs, channelID)
				}
			}
		})
	}
}

// SubscribeAll registers fn for events of every channel.
func (b *Broker) SubscribeAll(fn Handler) func() {
	b.mu.Lock()
	b.nextID++
	s := &subscription{id: b.nextID, fn: fn}
	b.all[s.id] = s
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.all, s.id)
			b.mu.Unlock()
		})
	}
}

// SubscriberCount returns the number of handlers registered for channelID.
func (b *Broker) SubscriberCount(channelID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[channelID])
}

// Dispatch delivers e to the channel's subscribers and to global ones.
// A panicking handler is logged and does not affect the others.
func (b *Broker) Dispatch(e Event) {
	b.mu.RLock()
	targets := make([]Handler, 0, len(b.subs[e.ChannelID])+len(b.all))
	for _, s := range b.subs[e.ChannelID] {
		targets = append(targets, s.fn)
	}
	for _, s := range b.all {
		targets = append(targets, s.fn)
	}
	b.mu.RUnlock()

	for _, fn := range targets {
		b.safeCall(fn, e)
	}
}

func (b *Broker) safeCall(fn Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			observability.GlobalLogger.Error("panic in event handler",
				slog.String("channel_id", e.ChannelID),
				slog.String("type", string(e.Type)),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	fn(e)
}

func subscribeTyped[T any](b *Broker, channelID string, eventType EventType, fn func(T)) func() {
	return b.Subscribe(channelID, func(e Event) {
		if e.Type != eventType {
			return
		}
		var v T
		if err := e.Decode(&v); err != nil {
			observability.GlobalLogger.WarnContext(context.Background(), "dropping undecodable event",
				slog.String("channel_id", e.ChannelID),
				slog.String("type", string(e.Type)),
				slog.String("error", err.Error()),
			)
			return
		}
		fn(v)
	})
}

// SubscribeToChat delivers chat messages inserted on channelID.
func (b *Broker) SubscribeToChat(channelID string, fn func(models.ChatMessage)) func() {
	return subscribeTyped(b, channelID, EventChat, fn)
}

// SubscribeToDonations delivers donations recorded on channelID.
func (b *Broker) SubscribeToDonations(channelID string, fn func(models.Donation)) func() {
	return subscribeTyped(b, channelID, EventDonation, fn)
}

// SubscribeToChallengeChanges delivers challenge inserts, updates and removals.
func (b *Broker) SubscribeToChallengeChanges(channelID string, fn func(models.ChallengeChange)) func() {
	return subscribeTyped(b, channelID, EventChallenge, fn)
}

// SubscribeToStreamStatus delivers live flag and viewer count changes.
func (b *Broker) SubscribeToStreamStatus(channelID string, fn func(models.StreamStatus)) func() {
	return subscribeTyped(b, channelID, EventStream, fn)
}
