package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"dumdummies/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per viewer on one channel
	maxConnsPerViewer = 12
	// Max total connections
	maxTotalConns = 10000
)

// ViewerCallback is invoked after a viewer joins or leaves a channel.
type ViewerCallback func(ctx context.Context, channelID string)

// ChannelHub forwards every event of a channel to the websocket viewers
// watching it. It subscribes to the broker while a channel has viewers.
type ChannelHub struct {
	mu         sync.RWMutex
	broker     *Broker
	channels   map[string]map[*Client]struct{}
	unsubs     map[string]func()
	totalConns int
	closed     bool

	onJoin  ViewerCallback
	onLeave ViewerCallback
	log     *observability.WSLogger
}

// NewChannelHub creates a hub fed by broker.
func NewChannelHub(broker *Broker) *ChannelHub {
	h := &ChannelHub{
		broker:   broker,
		channels: make(map[string]map[*Client]struct{}),
		unsubs:   make(map[string]func()),
	}
	h.log = observability.NewWSLogger(h.Name())
	return h
}

// Name returns a human-readable identifier for this hub.
func (h *ChannelHub) Name() string { return "channel hub" }

// SetViewerCallbacks installs join/leave hooks, typically viewer counting.
func (h *ChannelHub) SetViewerCallbacks(onJoin, onLeave ViewerCallback) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onJoin = onJoin
	h.onLeave = onLeave
}

// Register adds a viewer connection to a channel.
func (h *ChannelHub) Register(channelID, viewerID string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()

	if h.closed {
		h.mu.Unlock()
		return nil, errors.New("hub is shut down")
	}
	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, errors.New("server connection limit reached")
	}

	viewers, ok := h.channels[channelID]
	if !ok {
		viewers = make(map[*Client]struct{})
		h.channels[channelID] = viewers
	}

	perViewer := 0
	for c := range viewers {
		if c.ViewerID == viewerID {
			perViewer++
		}
	}
	if perViewer >= maxConnsPerViewer {
		h.mu.Unlock()
		return nil, errors.New("viewer connection limit reached")
	}

	client := NewClient(h, conn, viewerID, channelID)
	viewers[client] = struct{}{}
	h.totalConns++

	if _, subscribed := h.unsubs[channelID]; !subscribed {
		h.unsubs[channelID] = h.broker.Subscribe(channelID, func(e Event) {
			h.Broadcast(e)
		})
	}
	onJoin := h.onJoin
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Inc()
	h.log.LogConnect(context.Background(), viewerID, channelID)
	if onJoin != nil {
		onJoin(context.Background(), channelID)
	}
	return client, nil
}

// UnregisterClient removes a connection. The broker subscription is dropped
// with the channel's last viewer.
func (h *ChannelHub) UnregisterClient(client *Client) {
	h.mu.Lock()
	viewers, ok := h.channels[client.ChannelID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := viewers[client]; !exists {
		h.mu.Unlock()
		return
	}
	delete(viewers, client)
	h.totalConns--
	if len(viewers) == 0 {
		delete(h.channels, client.ChannelID)
		if unsub, ok := h.unsubs[client.ChannelID]; ok {
			unsub()
			delete(h.unsubs, client.ChannelID)
		}
	}
	onLeave := h.onLeave
	h.mu.Unlock()

	client.closeSend()
	observability.WebSocketConnectionsTotal.Dec()
	h.log.LogDisconnect(context.Background(), client.ViewerID, client.ChannelID, "unregistered")
	if onLeave != nil {
		onLeave(context.Background(), client.ChannelID)
	}
}

// Broadcast sends e to every viewer of its channel.
func (h *ChannelHub) Broadcast(e Event) {
	msg, err := json.Marshal(e)
	if err != nil {
		observability.GlobalLogger.Error("failed to marshal channel event",
			slog.String("channel_id", e.ChannelID),
			slog.String("error", err.Error()),
		)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.channels[e.ChannelID]))
	for c := range h.channels[e.ChannelID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		_ = c.TrySend(msg)
	}
}

// ViewerCount returns the number of open connections on a channel.
func (h *ChannelHub) ViewerCount(channelID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channelID])
}

// Shutdown closes every connection and drops broker subscriptions.
// Leave callbacks are not invoked.
func (h *ChannelHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	h.closed = true
	var clients []*Client
	for _, viewers := range h.channels {
		for c := range viewers {
			clients = append(clients, c)
		}
	}
	for _, unsub := range h.unsubs {
		unsub()
	}
	h.channels = make(map[string]map[*Client]struct{})
	h.unsubs = make(map[string]func())
	h.totalConns = 0
	h.mu.Unlock()

	for _, c := range clients {
		c.closeSend()
		observability.WebSocketConnectionsTotal.Dec()
		if c.Conn != nil {
			_ = c.Conn.Close()
		}
	}
	return nil
}
