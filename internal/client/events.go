package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dumdummies/internal/notifications"
	"dumdummies/internal/observability"

	"github.com/gorilla/websocket"
)

const (
	minBackoff = 500 * time.Millisecond
	maxBackoff = 15 * time.Second
	pongWait   = 60 * time.Second
)

// EventStream follows a channel's websocket and replays every event into a
// local broker. The broker is the reconciler's event source.
type EventStream struct {
	BaseURL   string
	Token     string
	ChannelID string
	Dialer    *websocket.Dialer

	broker *notifications.Broker
	// OnStatus reports connection changes; it may be nil.
	OnStatus func(connected bool, err error)
}

// NewEventStream creates a stream for channelID feeding broker.
func NewEventStream(baseURL, token, channelID string, broker *notifications.Broker) *EventStream {
	return &EventStream{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Token:     token,
		ChannelID: channelID,
		Dialer:    websocket.DefaultDialer,
		broker:    broker,
	}
}

// URL returns the websocket endpoint, carrying the token as a query
// parameter since browsers cannot set headers on upgrades.
func (s *EventStream) URL() (string, error) {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/ws/channels/" + url.PathEscape(s.ChannelID)
	if s.Token != "" {
		q := u.Query()
		q.Set("token", s.Token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Run connects and reconnects with exponential backoff until ctx is done.
func (s *EventStream) Run(ctx context.Context) error {
	backoff := minBackoff
	for {
		connected, err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = minBackoff
		}
		s.status(false, err)
		observability.GlobalLogger.WarnContext(ctx, "channel stream disconnected",
			slog.String("channel_id", s.ChannelID),
			slog.Any("error", err),
			slog.Duration("retry_in", backoff),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// runOnce reads one connection until it fails. connected reports whether
// the handshake succeeded.
func (s *EventStream) runOnce(ctx context.Context) (connected bool, err error) {
	target, err := s.URL()
	if err != nil {
		return false, err
	}
	dialer := s.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	conn, resp, err := dialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return false, fmt.Errorf("dial %s: %s", s.ChannelID, resp.Status)
		}
		return false, err
	}
	defer func() { _ = conn.Close() }()

	s.status(true, nil)

	// Unblock ReadMessage when ctx ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(time.Second))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return true, errors.New("server closed the connection")
			}
			return true, err
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		e, err := notifications.ParseEvent(data)
		if err != nil {
			observability.GlobalLogger.DebugContext(ctx, "ignoring channel frame",
				slog.String("channel_id", s.ChannelID),
				slog.String("error", err.Error()),
			)
			continue
		}
		s.broker.Dispatch(e)
	}
}

func (s *EventStream) status(connected bool, err error) {
	if s.OnStatus != nil {
		s.OnStatus(connected, err)
	}
}
