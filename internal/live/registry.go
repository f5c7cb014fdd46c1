package live

import (
	"context"
	"log/slog"
	"sync"

	"dumdummies/internal/observability"
	"dumdummies/internal/reconciler"
)

// Registry keeps one observing reconciler per channel. Reconcilers are
// mounted on first use and live until evicted or the registry is closed.
type Registry struct {
	backend reconciler.Backend
	events  reconciler.EventSource
	gate    reconciler.CreatorGate
	logCap  int
	palette *reconciler.Palette

	mu    sync.Mutex
	views map[string]*reconciler.Reconciler
}

// NewRegistry returns an empty Registry.
func NewRegistry(
	backend reconciler.Backend,
	events reconciler.EventSource,
	gate reconciler.CreatorGate,
	logCap int,
	palette *reconciler.Palette,
) *Registry {
	return &Registry{
		backend: backend,
		events:  events,
		gate:    gate,
		logCap:  logCap,
		palette: palette,
		views:   make(map[string]*reconciler.Reconciler),
	}
}

// Snapshot returns the reconciled state of channelID, mounting a
// reconciler for it when there is none.
func (r *Registry) Snapshot(ctx context.Context, channelID string) (reconciler.Snapshot, error) {
	view, err := r.get(ctx, channelID)
	if err != nil {
		return reconciler.Snapshot{}, err
	}
	return view.Snapshot(), nil
}

func (r *Registry) get(ctx context.Context, channelID string) (*reconciler.Reconciler, error) {
	r.mu.Lock()
	view, ok := r.views[channelID]
	if !ok {
		view = reconciler.New(reconciler.Config{
			ChannelID: channelID,
			LogCap:    r.logCap,
			Palette:   r.palette,
		}, r.backend, r.events, r.gate)
		r.views[channelID] = view
	}
	r.mu.Unlock()

	if view.Mounted() {
		return view, nil
	}
	if err := view.Mount(ctx); err != nil {
		r.mu.Lock()
		if r.views[channelID] == view {
			delete(r.views, channelID)
		}
		r.mu.Unlock()
		return nil, err
	}
	return view, nil
}

// Evict unmounts and forgets the reconciler of channelID.
func (r *Registry) Evict(channelID string) {
	r.mu.Lock()
	view, ok := r.views[channelID]
	delete(r.views, channelID)
	r.mu.Unlock()

	if ok {
		view.Unmount()
		observability.GlobalLogger.Debug("evicted channel view", slog.String("channel_id", channelID))
	}
}

// Len returns the number of tracked channels.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// Close unmounts every reconciler.
func (r *Registry) Close() {
	r.mu.Lock()
	views := r.views
	r.views = make(map[string]*reconciler.Reconciler)
	r.mu.Unlock()

	for _, v := range views {
		v.Unmount()
	}
}
