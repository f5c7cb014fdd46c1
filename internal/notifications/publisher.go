package notifications

import (
	"context"
	"log/slog"

	"dumdummies/internal/observability"
)

// Publisher emits channel events. With Redis configured events travel
// through pub/sub so every server instance sees them; otherwise they are
// dispatched straight to the local broker.
type Publisher struct {
	notifier *Notifier
	broker   *Broker
}

// NewPublisher wires a notifier (which may have no Redis client) to a broker.
func NewPublisher(notifier *Notifier, broker *Broker) *Publisher {
	return &Publisher{notifier: notifier, broker: broker}
}

// Broker returns the in-process broker events are delivered to.
func (p *Publisher) Broker() *Broker {
	return p.broker
}

// Publish wraps payload in an envelope and delivers it. Delivery failures
// are logged and never fail the write that produced the event.
func (p *Publisher) Publish(ctx context.Context, eventType EventType, channelID string, payload interface{}) {
	e, err := NewEvent(eventType, channelID, payload)
	if err != nil {
		observability.GlobalLogger.ErrorContext(ctx, "failed to build event",
			slog.String("type", string(eventType)),
			slog.String("error", err.Error()),
		)
		return
	}

	if p.notifier.Enabled() {
		err := p.notifier.PublishChannelEvent(ctx, e)
		if err == nil {
			observability.EventsPublished.WithLabelValues(string(eventType), "redis").Inc()
			return
		}
		observability.GlobalLogger.WarnContext(ctx, "redis publish failed, dispatching locally",
			slog.String("type", string(eventType)),
			slog.String("channel_id", channelID),
			slog.String("error", err.Error()),
		)
	}

	observability.EventsPublished.WithLabelValues(string(eventType), "local").Inc()
	p.broker.Dispatch(e)
}

// StartWiring feeds events received from Redis into the broker.
func (p *Publisher) StartWiring(ctx context.Context) error {
	return p.notifier.StartChannelSubscriber(ctx, func(topic, payload string) {
		if _, ok := channelFromTopic(topic); !ok {
			return
		}
		e, err := ParseEvent([]byte(payload))
		if err != nil {
			observability.GlobalLogger.Warn("dropping malformed event",
				slog.String("topic", topic),
				slog.String("error", err.Error()),
			)
			return
		}
		p.broker.Dispatch(e)
	})
}
