// Package reconciler merges a channel's chat, donation, challenge and stream
// events into one consistent view state.
//
// Events may arrive late, out of order or more than once. Chat and donation
// events are deduplicated by id, challenge totals only ever move up, and the
// target-reached announcement fires at most once per challenge.
package reconciler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"dumdummies/internal/models"
	"dumdummies/internal/observability"
)

// ChallengeRequest asks the backend to store a requested challenge.
type ChallengeRequest struct {
	ChannelID string
	Name      string
	UserID    string
}

// DonationRequest asks the backend to record a donation.
type DonationRequest struct {
	ID          string
	ChannelID   string
	UserID      string
	AmountCents int64
	Message     string
	ChallengeID *string
}

// ChatRequest asks the backend to store a chat message.
type ChatRequest struct {
	ID        string
	ChannelID string
	UserID    string
	Text      string
	Emoji     string
}

// Backend is the store the reconciler reads from and writes through.
type Backend interface {
	FetchChannel(ctx context.Context, channelID string) (*models.Channel, error)
	FetchActiveChallenge(ctx context.Context, channelID string) (*models.Challenge, error)
	FetchActiveChallenges(ctx context.Context, channelID string) ([]models.Challenge, error)
	FetchRequestedChallenges(ctx context.Context, channelID string) ([]models.Challenge, error)
	FetchRecentMessages(ctx context.Context, channelID string, limit int) ([]models.ChatMessage, error)
	CreateChallenge(ctx context.Context, req ChallengeRequest) (*models.Challenge, error)
	ApproveChallenge(ctx context.Context, challengeID string, targetCents int64, actorID string) (*models.Challenge, error)
	RejectChallenge(ctx context.Context, challengeID, actorID string) error
	CreateDonation(ctx context.Context, req DonationRequest) (*models.Donation, error)
	SendChatMessage(ctx context.Context, req ChatRequest) (*models.ChatMessage, error)
	AdjustViewerCount(ctx context.Context, channelID string, delta int) error
	StartStream(ctx context.Context, channelID, actorID string) (*models.StreamStatus, error)
	EndStream(ctx context.Context, channelID, actorID string) (*models.StreamStatus, error)
	GetStreamKey(ctx context.Context, channelID, actorID string) (string, error)
}

// EventSource delivers a channel's change notifications. Each subscribe
// returns its unsubscribe function.
type EventSource interface {
	SubscribeToChat(channelID string, fn func(models.ChatMessage)) func()
	SubscribeToDonations(channelID string, fn func(models.Donation)) func()
	SubscribeToChallengeChanges(channelID string, fn func(models.ChallengeChange)) func()
	SubscribeToStreamStatus(channelID string, fn func(models.StreamStatus)) func()
}

// CreatorGate is the authoritative "is this user the creator" check.
type CreatorGate interface {
	IsCreator(ctx context.Context, channelID, userID string) (bool, error)
	Claim(ctx context.Context, channelID, userID string) (bool, error)
	RecordViolation(ctx context.Context, channelID, userID, action, reason string) error
}

// Identity is the signed-in user the reconciler acts for. A zero Identity
// is a read-only observer.
type Identity struct {
	UserID   string
	Username string
}

// ToastKind classifies user-visible notifications.
type ToastKind string

const (
	ToastInfo     ToastKind = "info"
	ToastSuccess  ToastKind = "success"
	ToastError    ToastKind = "error"
	ToastSecurity ToastKind = "security"
)

// Toast is a transient user-visible notification.
type Toast struct {
	Kind        ToastKind `json:"kind"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
}

const (
	unauthorizedTitle       = "Unauthorized action detected"
	unauthorizedDescription = "This incident has been logged."
	failureTitle            = "Something went wrong"
)

// SystemUsername is the author of synthetic log entries.
const SystemUsername = "SYSTEM"

// Config configures a Reconciler.
type Config struct {
	ChannelID string
	Identity  Identity
	LogCap    int
	SeenCap   int
	Palette   *Palette
	// TrackViewer makes Mount and Unmount adjust the channel's viewer count.
	TrackViewer bool
	// OnToast and OnChange are called without the reconciler's lock held.
	OnToast  func(Toast)
	OnChange func()
}

// Featured is the challenge driving the target banner.
type Featured struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	TargetCents  int64  `json:"target_cents"`
	CurrentCents int64  `json:"current_cents"`
	Reached      bool   `json:"reached"`
}

// Snapshot is a copy of the view state.
type Snapshot struct {
	ChannelID   string             `json:"channel_id"`
	Title       string             `json:"title"`
	IsLive      bool               `json:"is_live"`
	ViewerCount int                `json:"viewer_count"`
	IsCreator   bool               `json:"is_creator"`
	Featured    *Featured          `json:"featured,omitempty"`
	Active      []models.Challenge `json:"active"`
	Requested   []models.Challenge `json:"requested"`
	Messages    []Entry            `json:"messages"`
	Mounted     bool               `json:"mounted"`
}

// Reconciler holds the view state of one channel.
type Reconciler struct {
	cfg     Config
	backend Backend
	events  EventSource
	gate    CreatorGate
	palette *Palette

	mu          sync.Mutex
	mounted     bool
	loading     bool
	generation  uint64
	unsubscribe []func()
	backlog     []func() []Toast

	title       string
	isLive      bool
	viewerCount int
	isCreator   bool

	log      *MessageLog
	seenChat *seenSet
	seenDono *seenSet
	rejected *seenSet

	active     map[string]*models.Challenge
	order      []string
	requested  []models.Challenge
	featuredID string
	notified   map[string]bool
	// pending holds running totals reported for challenges not seen yet.
	pending map[string]int64
}

// New returns an unmounted Reconciler.
func New(cfg Config, backend Backend, events EventSource, gate CreatorGate) *Reconciler {
	if cfg.LogCap <= 0 {
		cfg.LogCap = DefaultLogCap
	}
	if cfg.SeenCap <= 0 {
		cfg.SeenCap = DefaultSeenCap
	}
	palette := cfg.Palette
	if palette == nil {
		palette = DefaultPalette()
	}
	r := &Reconciler{
		cfg:      cfg,
		backend:  backend,
		events:   events,
		gate:     gate,
		palette:  palette,
		log:      NewMessageLog(cfg.LogCap),
		seenChat: newSeenSet(cfg.SeenCap),
		seenDono: newSeenSet(cfg.SeenCap),
		rejected: newSeenSet(cfg.SeenCap),
	}
	r.resetLocked()
	return r
}

// ChannelID returns the channel this reconciler follows.
func (r *Reconciler) ChannelID() string { return r.cfg.ChannelID }

func (r *Reconciler) resetLocked() {
	r.log.reset()
	r.seenChat.reset()
	r.seenDono.reset()
	r.rejected.reset()
	r.active = make(map[string]*models.Challenge)
	r.order = nil
	r.requested = nil
	r.featuredID = ""
	r.notified = make(map[string]bool)
	r.pending = make(map[string]int64)
}

// Mount subscribes to the channel's events, loads its current state and
// then replays whatever arrived while loading. Mounting an already mounted
// reconciler is a no-op.
func (r *Reconciler) Mount(ctx context.Context) error {
	r.mu.Lock()
	if r.mounted {
		r.mu.Unlock()
		return nil
	}
	r.generation++
	gen := r.generation
	r.loading = true
	r.backlog = nil
	r.mu.Unlock()

	channelID := r.cfg.ChannelID
	subs := r.subscribe(gen)

	state, err := r.load(ctx)
	if err != nil {
		r.abandon(gen)
		unsubscribeAll(subs)
		return err
	}

	r.mu.Lock()
	if r.generation != gen {
		r.mu.Unlock()
		unsubscribeAll(subs)
		return nil
	}
	r.resetLocked()
	r.seedLocked(state)

	// Events held during the load go through the normal appliers; they are
	// idempotent against the state just seeded.
	var toasts []Toast
	for _, apply := range r.backlog {
		toasts = append(toasts, apply()...)
	}
	r.backlog = nil
	r.loading = false
	r.mounted = true
	r.unsubscribe = subs
	r.mu.Unlock()

	r.notify(toasts...)

	if r.cfg.TrackViewer {
		if err := r.backend.AdjustViewerCount(ctx, channelID, 1); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "viewer join not counted",
				slog.String("channel_id", channelID),
				slog.String("error", err.Error()),
			)
		}
	}
	r.changed()
	return nil
}

// mountState is what Mount reads from the backend.
type mountState struct {
	channel   *models.Channel
	featured  *models.Challenge
	active    []models.Challenge
	requested []models.Challenge
	history   []models.ChatMessage
	isCreator bool
}

func (r *Reconciler) load(ctx context.Context) (*mountState, error) {
	channelID := r.cfg.ChannelID
	var (
		st  mountState
		err error
	)
	if st.channel, err = r.backend.FetchChannel(ctx, channelID); err != nil {
		return nil, err
	}
	if st.featured, err = r.backend.FetchActiveChallenge(ctx, channelID); err != nil {
		return nil, err
	}
	if st.active, err = r.backend.FetchActiveChallenges(ctx, channelID); err != nil {
		return nil, err
	}
	if st.requested, err = r.backend.FetchRequestedChallenges(ctx, channelID); err != nil {
		return nil, err
	}
	if st.history, err = r.backend.FetchRecentMessages(ctx, channelID, r.cfg.LogCap); err != nil {
		return nil, err
	}

	if uid := r.cfg.Identity.UserID; uid != "" && r.gate != nil {
		if st.isCreator, err = r.gate.IsCreator(ctx, channelID, uid); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "creator check failed",
				slog.String("channel_id", channelID),
				slog.String("error", err.Error()),
			)
			st.isCreator = false
		}
	}
	return &st, nil
}

func (r *Reconciler) seedLocked(st *mountState) {
	r.title = st.channel.Title
	r.isLive = st.channel.IsLive
	r.viewerCount = st.channel.ViewerCount
	r.isCreator = st.isCreator

	if st.featured != nil {
		r.seedChallengeLocked(*st.featured)
		r.featuredID = st.featured.ID
	}
	for _, c := range st.active {
		r.seedChallengeLocked(c)
	}
	if r.featuredID == "" && len(r.order) > 0 {
		r.featuredID = r.order[0]
	}
	for _, c := range st.requested {
		if _, ok := r.active[c.ID]; !ok {
			r.requested = append(r.requested, c)
		}
	}
	for _, m := range st.history {
		r.seedMessageLocked(m)
	}
}

func (r *Reconciler) subscribe(gen uint64) []func() {
	channelID := r.cfg.ChannelID
	return []func(){
		r.events.SubscribeToChat(channelID, func(m models.ChatMessage) {
			r.dispatch(gen, func() []Toast { return r.applyChatLocked(m) })
		}),
		r.events.SubscribeToDonations(channelID, func(d models.Donation) {
			r.dispatch(gen, func() []Toast { return r.applyDonationLocked(d) })
		}),
		r.events.SubscribeToChallengeChanges(channelID, func(c models.ChallengeChange) {
			r.dispatch(gen, func() []Toast { return r.applyChallengeLocked(c) })
		}),
		r.events.SubscribeToStreamStatus(channelID, func(s models.StreamStatus) {
			r.dispatch(gen, func() []Toast { return r.applyStreamLocked(s) })
		}),
	}
}

// abandon drops a mount that failed to load.
func (r *Reconciler) abandon(gen uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation == gen {
		r.generation++
		r.loading = false
		r.backlog = nil
	}
}

func unsubscribeAll(subs []func()) {
	for _, unsub := range subs {
		unsub()
	}
}

// Unmount removes the subscriptions. Callbacks arriving afterwards are
// ignored.
func (r *Reconciler) Unmount() {
	r.mu.Lock()
	if !r.mounted {
		if r.loading {
			// cancels the mount in progress
			r.generation++
			r.loading = false
			r.backlog = nil
		}
		r.mu.Unlock()
		return
	}
	r.mounted = false
	r.generation++
	subs := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()

	unsubscribeAll(subs)

	if r.cfg.TrackViewer {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.backend.AdjustViewerCount(ctx, r.cfg.ChannelID, -1); err != nil {
			observability.GlobalLogger.WarnContext(ctx, "viewer leave not counted",
				slog.String("channel_id", r.cfg.ChannelID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Mounted reports whether the reconciler is subscribed.
func (r *Reconciler) Mounted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mounted
}

// Snapshot returns a copy of the current view state.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{
		ChannelID:   r.cfg.ChannelID,
		Title:       r.title,
		IsLive:      r.isLive,
		ViewerCount: r.viewerCount,
		IsCreator:   r.isCreator,
		Active:      make([]models.Challenge, 0, len(r.order)),
		Requested:   make([]models.Challenge, len(r.requested)),
		Messages:    r.log.Entries(),
		Mounted:     r.mounted,
	}
	for _, id := range r.order {
		s.Active = append(s.Active, *r.active[id])
	}
	copy(s.Requested, r.requested)

	if c, ok := r.active[r.featuredID]; ok {
		s.Featured = &Featured{
			ID:           c.ID,
			Name:         c.Name,
			TargetCents:  c.TargetCents,
			CurrentCents: c.CurrentCents,
			Reached:      r.notified[c.ID] || c.Reached(),
		}
	}
	return s
}

// dispatch applies an event under the lock unless it belongs to an older
// mount, then delivers toasts and the change notification. While the mount
// is still loading the event is held in the backlog instead.
func (r *Reconciler) dispatch(gen uint64, apply func() []Toast) {
	r.mu.Lock()
	if r.generation != gen {
		r.mu.Unlock()
		return
	}
	if r.loading {
		r.backlog = append(r.backlog, apply)
		r.mu.Unlock()
		return
	}
	if !r.mounted {
		r.mu.Unlock()
		return
	}
	toasts := apply()
	r.mu.Unlock()

	r.notify(toasts...)
	r.changed()
}

func (r *Reconciler) notify(toasts ...Toast) {
	if r.cfg.OnToast == nil {
		return
	}
	for _, t := range toasts {
		r.cfg.OnToast(t)
	}
}

func (r *Reconciler) changed() {
	if r.cfg.OnChange != nil {
		r.cfg.OnChange()
	}
}
