package reconciler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"dumdummies/internal/models"
	"dumdummies/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChannel = "chan-1"

var _ EventSource = (*notifications.Broker)(nil)

type harness struct {
	r       *Reconciler
	backend *fakeBackend
	gate    *fakeGate
	source  *fakeSource

	mu     sync.Mutex
	toasts []Toast
}

func newHarness(t *testing.T, who Identity, seed func(b *fakeBackend)) *harness {
	t.Helper()
	h := &harness{
		backend: newFakeBackend(testChannel),
		gate:    &fakeGate{},
		source:  &fakeSource{},
	}
	if seed != nil {
		seed(h.backend)
	}
	h.r = New(Config{
		ChannelID: testChannel,
		Identity:  who,
		OnToast: func(toast Toast) {
			h.mu.Lock()
			h.toasts = append(h.toasts, toast)
			h.mu.Unlock()
		},
	}, h.backend, h.source, h.gate)
	require.NoError(t, h.r.Mount(context.Background()))
	t.Cleanup(h.r.Unmount)
	return h
}

func (h *harness) toastsOf(kind ToastKind) []Toast {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []Toast
	for _, t := range h.toasts {
		if t.Kind == kind {
			out = append(out, t)
		}
	}
	return out
}

func systemMessages(s Snapshot, prefix string) int {
	n := 0
	for _, e := range s.Messages {
		if e.Kind == models.MessageKindSystem && strings.HasPrefix(e.Text, prefix) {
			n++
		}
	}
	return n
}

var viewer = Identity{UserID: "u-viewer", Username: "ShinyGuppy"}
var creator = Identity{UserID: "u-creator", Username: "The-Ventricle"}

func withFeatured(target int64) func(b *fakeBackend) {
	return func(b *fakeBackend) {
		b.add(models.Challenge{
			ID:          "c-piss",
			ChannelID:   testChannel,
			Name:        "DRINK PISS",
			TargetCents: target,
			Status:      models.ChallengeActive,
			CreatedAt:   time.Now().Add(-time.Hour),
		})
	}
}

func ptr(s string) *string { return &s }

func TestMount_SeedsState(t *testing.T) {
	h := newHarness(t, viewer, func(b *fakeBackend) {
		withFeatured(2000)(b)
		b.add(models.Challenge{ID: "c-req", Name: "Shave eyebrow", Status: models.ChallengeRequested})
		uid := "u-1"
		b.history = []models.ChatMessage{
			{ID: "m-1", UserID: &uid, Username: "BitLord", Text: "worth every penny", Kind: models.MessageKindChat},
			{ID: "d-1", UserID: &uid, Username: "BitLord", AmountCents: 500, Kind: models.MessageKindDonation},
		}
		b.channel.IsLive = true
		b.channel.ViewerCount = 30
	})

	s := h.r.Snapshot()
	assert.True(t, s.Mounted)
	assert.Equal(t, "Ghost Pepper Night", s.Title)
	assert.True(t, s.IsLive)
	assert.Equal(t, 30, s.ViewerCount)
	require.NotNil(t, s.Featured)
	assert.Equal(t, "c-piss", s.Featured.ID)
	assert.Len(t, s.Active, 1)
	assert.Len(t, s.Requested, 1)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, "contributed", s.Messages[1].Text)

	// history is not replayed when its events are re-delivered
	h.source.sendChat(models.ChatMessage{ID: "m-1", Username: "BitLord", Text: "worth every penny"})
	h.source.sendDonation(models.Donation{ID: "d-1", Username: "BitLord", AmountCents: 500})
	assert.Len(t, h.r.Snapshot().Messages, 2)
	assert.Len(t, h.source.chat, 1)
	assert.Len(t, h.source.streams, 1)
}

func TestMount_BackendFailure(t *testing.T) {
	b := newFakeBackend(testChannel)
	b.failNext = errBackendDown
	r := New(Config{ChannelID: testChannel}, b, &fakeSource{}, &fakeGate{})
	assert.ErrorIs(t, r.Mount(context.Background()), errBackendDown)
	assert.False(t, r.Mounted())
}

func TestMount_KeepsEventsPublishedWhileLoading(t *testing.T) {
	reaching := models.Donation{
		ID: "d-25", Username: "BitLord", AmountCents: 2500,
		ChallengeID: ptr("c-piss"), ChallengeTotalCents: 2500,
	}
	completed := models.ChallengeChange{Challenge: models.Challenge{
		ID: "c-piss", Name: "DRINK PISS", TargetCents: 2000, CurrentCents: 2500, Status: models.ChallengeCompleted,
	}}

	tests := []struct {
		name    string
		inStore bool
	}{
		{"donation not yet in history", false},
		{"donation already in history", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend(testChannel)
			withFeatured(2000)(b)
			source := &fakeSource{}
			var success int
			r := New(Config{
				ChannelID: testChannel,
				OnToast: func(toast Toast) {
					if toast.Kind == ToastSuccess {
						success++
					}
				},
			}, b, source, &fakeGate{})

			b.duringLoad = func() {
				if tt.inStore {
					b.history = []models.ChatMessage{{
						ID: "d-25", Username: "BitLord", AmountCents: 2500, Kind: models.MessageKindDonation,
					}}
				}
				source.sendDonation(reaching)
				source.sendChallenge(completed)
				source.sendChat(models.ChatMessage{ID: "m-1", Username: "VoidWalker", Text: "do it"})
			}

			require.NoError(t, r.Mount(context.Background()))
			t.Cleanup(r.Unmount)

			s := r.Snapshot()
			require.NotNil(t, s.Featured)
			assert.EqualValues(t, 2500, s.Featured.CurrentCents)
			assert.True(t, s.Featured.Reached)
			assert.Equal(t, 1, systemMessages(s, "TARGET REACHED! Time to drink piss!"))
			assert.Equal(t, 1, success)

			var chats int
			for _, e := range s.Messages {
				if e.Text == "do it" {
					chats++
				}
			}
			assert.Equal(t, 1, chats)
		})
	}
}

func TestMount_UnmountWhileLoading(t *testing.T) {
	b := newFakeBackend(testChannel)
	source := &fakeSource{}
	r := New(Config{ChannelID: testChannel}, b, source, &fakeGate{})
	b.duringLoad = func() {
		r.Unmount()
		source.sendChat(models.ChatMessage{ID: "m-1", Username: "x", Text: "too late"})
	}

	require.NoError(t, r.Mount(context.Background()))
	assert.False(t, r.Mounted())
	assert.Equal(t, 4, source.unsubscribed)
	assert.Empty(t, r.Snapshot().Messages)

	// a later mount starts over
	b.duringLoad = nil
	require.NoError(t, r.Mount(context.Background()))
	assert.True(t, r.Mounted())
	r.Unmount()
}

func TestDonations_TargetReachedOnceInAnyOrder(t *testing.T) {
	ten := models.Donation{ID: "d-10", Username: "BitLord", AmountCents: 1000, ChallengeID: ptr("c-piss"), ChallengeTotalCents: 1000}
	fifteen := models.Donation{ID: "d-15", Username: "VoidWalker", AmountCents: 1500, ChallengeID: ptr("c-piss"), ChallengeTotalCents: 2500}

	orders := map[string][]models.Donation{
		"in order":       {ten, fifteen},
		"reversed":       {fifteen, ten},
		"duplicated":     {ten, ten, fifteen, fifteen, ten},
		"dup reversed":   {fifteen, ten, fifteen},
		"late duplicate": {ten, fifteen, fifteen, ten, ten},
	}
	for name, events := range orders {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, viewer, withFeatured(2000))
			for _, d := range events {
				h.source.sendDonation(d)
			}

			s := h.r.Snapshot()
			require.NotNil(t, s.Featured)
			assert.EqualValues(t, 2500, s.Featured.CurrentCents)
			assert.True(t, s.Featured.Reached)
			assert.Equal(t, 1, systemMessages(s, "TARGET REACHED! Time to drink piss!"))
			assert.Len(t, h.toastsOf(ToastSuccess), 1)
		})
	}
}

func TestDonations_WithoutRunningTotalsAreAdded(t *testing.T) {
	for _, reverse := range []bool{false, true} {
		h := newHarness(t, viewer, withFeatured(2000))
		events := []models.Donation{
			{ID: "d-10", Username: "BitLord", AmountCents: 1000},
			{ID: "d-15", Username: "BitLord", AmountCents: 1500},
		}
		if reverse {
			events[0], events[1] = events[1], events[0]
		}
		for _, d := range append(events, events...) {
			h.source.sendDonation(d)
		}

		s := h.r.Snapshot()
		assert.EqualValues(t, 2500, s.Featured.CurrentCents)
		assert.True(t, s.Featured.Reached)
		assert.Equal(t, 1, systemMessages(s, "TARGET REACHED!"))
	}
}

func TestDonations_CompletedEventDoesNotAnnounceTwice(t *testing.T) {
	h := newHarness(t, viewer, withFeatured(2000))
	h.source.sendDonation(models.Donation{ID: "d-1", AmountCents: 2000, ChallengeID: ptr("c-piss"), ChallengeTotalCents: 2000})
	h.source.sendChallenge(models.ChallengeChange{Challenge: models.Challenge{
		ID: "c-piss", Name: "DRINK PISS", TargetCents: 2000, CurrentCents: 2000, Status: models.ChallengeCompleted,
	}})
	// a stale active copy must not revive it
	h.source.sendChallenge(models.ChallengeChange{Challenge: models.Challenge{
		ID: "c-piss", Name: "DRINK PISS", TargetCents: 2000, CurrentCents: 500, Status: models.ChallengeActive,
	}})

	s := h.r.Snapshot()
	assert.Equal(t, 1, systemMessages(s, "TARGET REACHED!"))
	assert.Equal(t, models.ChallengeCompleted, s.Active[0].Status)
	assert.EqualValues(t, 2000, s.Active[0].CurrentCents)
}

func TestDonations_BeforeChallengeActivation(t *testing.T) {
	h := newHarness(t, viewer, nil)
	h.source.sendDonation(models.Donation{ID: "d-1", AmountCents: 700, ChallengeID: ptr("c-new"), ChallengeTotalCents: 700})
	h.source.sendChallenge(models.ChallengeChange{Challenge: models.Challenge{
		ID: "c-new", Name: "Eat a lemon", TargetCents: 1000, Status: models.ChallengeActive,
	}})

	s := h.r.Snapshot()
	require.NotNil(t, s.Featured)
	assert.Equal(t, "c-new", s.Featured.ID)
	assert.EqualValues(t, 700, s.Featured.CurrentCents)
	assert.Equal(t, 1, systemMessages(s, "New challenge activated: Eat a lemon ($10.00)"))
}

func TestChatLog_CappedFIFO(t *testing.T) {
	h := newHarness(t, viewer, nil)
	for i := 0; i < 120; i++ {
		h.source.sendChat(models.ChatMessage{ID: fmt.Sprintf("m-%d", i), Username: "GlitchMonkey", Text: fmt.Sprintf("msg %d", i)})
	}
	h.source.sendChat(models.ChatMessage{ID: "m-empty", Username: "GlitchMonkey", Text: "   "})

	s := h.r.Snapshot()
	require.Len(t, s.Messages, DefaultLogCap)
	assert.Equal(t, "msg 70", s.Messages[0].Text)
	assert.Equal(t, "msg 119", s.Messages[DefaultLogCap-1].Text)
}

func TestChallengeEvents_RequestedAndActivation(t *testing.T) {
	h := newHarness(t, viewer, withFeatured(2000))
	req := models.Challenge{ID: "c-lemon", Name: "Eat a lemon", Status: models.ChallengeRequested}

	h.source.sendChallenge(models.ChallengeChange{Challenge: req})
	h.source.sendChallenge(models.ChallengeChange{Challenge: req})
	assert.Len(t, h.r.Snapshot().Requested, 1)

	activated := req
	activated.Status = models.ChallengeActive
	activated.TargetCents = 1500
	h.source.sendChallenge(models.ChallengeChange{Challenge: activated})
	h.source.sendChallenge(models.ChallengeChange{Challenge: activated})
	// a late requested copy does not move it back
	h.source.sendChallenge(models.ChallengeChange{Challenge: req})

	s := h.r.Snapshot()
	assert.Empty(t, s.Requested)
	assert.Len(t, s.Active, 2)
	assert.Equal(t, "c-piss", s.Featured.ID, "the featured challenge stays until it is reached")
	assert.Equal(t, 1, systemMessages(s, "New challenge activated: Eat a lemon"))

	h.source.sendDonation(models.Donation{ID: "d-1", AmountCents: 2000, ChallengeID: ptr("c-piss"), ChallengeTotalCents: 2000})
	h.source.sendChallenge(models.ChallengeChange{Challenge: models.Challenge{
		ID: "c-late", Name: "Ice bath", TargetCents: 5000, Status: models.ChallengeActive,
	}})
	assert.Equal(t, "c-late", h.r.Snapshot().Featured.ID)
}

func TestApproveChallenge(t *testing.T) {
	h := newHarness(t, creator, func(b *fakeBackend) {
		b.add(models.Challenge{ID: "c-req", Name: "Shave eyebrow", Status: models.ChallengeRequested, CurrentCents: 300})
	})
	ctx := context.Background()
	_, err := h.r.ClaimCreator(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, h.r.ApproveChallenge(ctx, "c-req", 0), ErrInvalidAmount)
	require.NoError(t, h.r.ApproveChallenge(ctx, "c-req", 4000))

	s := h.r.Snapshot()
	assert.Empty(t, s.Requested)
	require.Len(t, s.Active, 1)
	assert.Equal(t, models.ChallengeActive, s.Active[0].Status)
	assert.EqualValues(t, 4000, s.Active[0].TargetCents)
	assert.EqualValues(t, 0, s.Active[0].CurrentCents)
	assert.Equal(t, "c-req", s.Featured.ID)
	assert.True(t, s.IsCreator)

	// the echo is idempotent
	h.source.sendChallenge(models.ChallengeChange{Challenge: s.Active[0]})
	assert.Equal(t, 1, systemMessages(h.r.Snapshot(), "New challenge activated"))
}

func TestRejectChallenge(t *testing.T) {
	h := newHarness(t, creator, func(b *fakeBackend) {
		b.add(models.Challenge{ID: "c-req", Name: "Shave eyebrow", Status: models.ChallengeRequested})
	})
	ctx := context.Background()
	_, err := h.r.ClaimCreator(ctx)
	require.NoError(t, err)

	require.NoError(t, h.r.RejectChallenge(ctx, "c-req"))
	h.source.sendChallenge(models.ChallengeChange{Challenge: models.Challenge{ID: "c-req", Name: "Shave eyebrow", Status: models.ChallengeRequested}})
	h.source.sendChallenge(models.ChallengeChange{Challenge: models.Challenge{ID: "c-req", Name: "Shave eyebrow", Status: models.ChallengeActive, TargetCents: 100}})
	h.source.sendChallenge(models.ChallengeChange{Challenge: models.Challenge{ID: "c-req"}, Removed: true})

	s := h.r.Snapshot()
	assert.Empty(t, s.Requested)
	assert.Empty(t, s.Active)
}

func TestRemovalEventDropsRequested(t *testing.T) {
	h := newHarness(t, viewer, func(b *fakeBackend) {
		b.add(models.Challenge{ID: "c-req", Name: "Shave eyebrow", Status: models.ChallengeRequested})
	})
	h.source.sendChallenge(models.ChallengeChange{Challenge: models.Challenge{ID: "c-req", Status: models.ChallengeRequested}, Removed: true})
	assert.Empty(t, h.r.Snapshot().Requested)
}

func TestCreatorActions_RefusedForNonCreator(t *testing.T) {
	h := newHarness(t, viewer, func(b *fakeBackend) {
		b.add(models.Challenge{ID: "c-req", Name: "Shave eyebrow", Status: models.ChallengeRequested})
	})
	h.gate.creator = creator.UserID
	ctx := context.Background()
	before := h.r.Snapshot()

	actions := []struct {
		action string
		run    func() error
	}{
		{models.ActionApproveChallenge, func() error { return h.r.ApproveChallenge(ctx, "c-req", 1000) }},
		{models.ActionRejectChallenge, func() error { return h.r.RejectChallenge(ctx, "c-req") }},
		{models.ActionStartStream, func() error { return h.r.StartStream(ctx) }},
		{models.ActionEndStream, func() error { return h.r.EndStream(ctx) }},
		{models.ActionViewStreamKey, func() error { _, err := h.r.StreamKey(ctx); return err }},
	}
	for _, a := range actions {
		assert.ErrorIs(t, a.run(), ErrNotCreator, a.action)
	}

	after := h.r.Snapshot()
	assert.Equal(t, before.Requested, after.Requested)
	assert.Equal(t, before.Active, after.Active)
	assert.Equal(t, before.IsLive, after.IsLive)

	recorded := h.gate.recorded()
	require.Len(t, recorded, len(actions))
	for i, a := range actions {
		assert.Equal(t, a.action, recorded[i].Action)
		assert.Equal(t, viewer.UserID, recorded[i].UserID)
	}
	for _, call := range []string{"ApproveChallenge", "RejectChallenge", "StartStream", "EndStream", "GetStreamKey"} {
		assert.Zero(t, h.backend.count(call), call)
	}

	sec := h.toastsOf(ToastSecurity)
	require.Len(t, sec, len(actions))
	assert.Equal(t, "Unauthorized action detected", sec[0].Title)
	assert.Equal(t, "This incident has been logged.", sec[0].Description)
}

func TestClaimCreator_FirstClaimWins(t *testing.T) {
	gate := &fakeGate{}
	backend := newFakeBackend(testChannel)
	first := New(Config{ChannelID: testChannel, Identity: creator}, backend, &fakeSource{}, gate)
	second := New(Config{ChannelID: testChannel, Identity: viewer}, backend, &fakeSource{}, gate)
	ctx := context.Background()
	require.NoError(t, first.Mount(ctx))
	require.NoError(t, second.Mount(ctx))

	ok, err := first.ClaimCreator(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.ClaimCreator(ctx)
	assert.ErrorIs(t, err, ErrNotCreator)
	assert.False(t, ok)
	assert.False(t, second.Snapshot().IsCreator)

	recorded := gate.recorded()
	require.Len(t, recorded, 1)
	assert.Equal(t, models.ActionClaimCreator, recorded[0].Action)
	assert.Equal(t, viewer.UserID, recorded[0].UserID)
}

func TestStreamControls(t *testing.T) {
	h := newHarness(t, creator, nil)
	ctx := context.Background()
	_, err := h.r.ClaimCreator(ctx)
	require.NoError(t, err)

	require.NoError(t, h.r.StartStream(ctx))
	s := h.r.Snapshot()
	assert.True(t, s.IsLive)
	assert.Equal(t, 3, s.ViewerCount)

	key, err := h.r.StreamKey(ctx)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, models.StreamKeyPrefix))

	require.NoError(t, h.r.EndStream(ctx))
	assert.False(t, h.r.Snapshot().IsLive)

	h.source.sendStream(models.StreamStatus{ChannelID: testChannel, IsLive: true, ViewerCount: -4})
	assert.Equal(t, 0, h.r.Snapshot().ViewerCount)
	h.source.sendStream(models.StreamStatus{ChannelID: "other", IsLive: false, ViewerCount: 99})
	assert.True(t, h.r.Snapshot().IsLive)
}

func TestSendChat_OptimisticAndDeduplicated(t *testing.T) {
	h := newHarness(t, viewer, nil)
	ctx := context.Background()

	assert.ErrorIs(t, h.r.SendChat(ctx, "  "), ErrEmptyMessage)
	require.NoError(t, h.r.SendChat(ctx, "LMAOOOOO"))

	s := h.r.Snapshot()
	require.Len(t, s.Messages, 1)
	sent := s.Messages[0]
	assert.False(t, sent.Pending)
	assert.Equal(t, viewer.Username, sent.Username)

	uid := viewer.UserID
	h.source.sendChat(models.ChatMessage{ID: sent.ID, UserID: &uid, Username: viewer.Username, Text: "LMAOOOOO"})
	assert.Len(t, h.r.Snapshot().Messages, 1)
}

func TestSendChat_RollbackOnFailure(t *testing.T) {
	h := newHarness(t, viewer, nil)
	h.backend.failNext = errBackendDown

	assert.ErrorIs(t, h.r.SendChat(context.Background(), "bored."), errBackendDown)
	assert.Empty(t, h.r.Snapshot().Messages)
	errs := h.toastsOf(ToastError)
	require.Len(t, errs, 1)
	assert.Equal(t, "Please try again.", errs[0].Description)
}

func TestDonate(t *testing.T) {
	h := newHarness(t, viewer, withFeatured(2000))
	ctx := context.Background()

	_, err := h.r.Donate(ctx, 0, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	d1, err := h.r.Donate(ctx, 1000, "go")
	require.NoError(t, err)
	d2, err := h.r.Donate(ctx, 1500, "")
	require.NoError(t, err)

	// echoes of our own donations are ignored
	h.source.sendDonation(*d1)
	h.source.sendDonation(*d2)

	s := h.r.Snapshot()
	assert.EqualValues(t, 2500, s.Featured.CurrentCents)
	assert.True(t, s.Featured.Reached)
	assert.Equal(t, 1, systemMessages(s, "TARGET REACHED!"))

	h.backend.failNext = errBackendDown
	_, err = h.r.Donate(ctx, 500, "")
	assert.ErrorIs(t, err, errBackendDown)
	assert.Len(t, h.r.Snapshot().Messages, len(s.Messages))
}

func TestRequestChallenge(t *testing.T) {
	h := newHarness(t, viewer, withFeatured(2000))
	ctx := context.Background()

	_, err := h.r.RequestChallenge(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyName)
	assert.Zero(t, h.backend.count("CreateChallenge"))

	c, err := h.r.RequestChallenge(ctx, "Eat a lemon")
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeRequested, c.Status)
	assert.Len(t, h.r.Snapshot().Requested, 1)

	_, err = h.r.RequestChallenge(ctx, "drink  piss")
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeConflict))
	assert.Len(t, h.r.Snapshot().Requested, 1)
	assert.Len(t, h.backend.byStatus(models.ChallengeRequested), 1)
}

func TestAnonymousActions(t *testing.T) {
	h := newHarness(t, Identity{}, nil)
	ctx := context.Background()
	assert.ErrorIs(t, h.r.SendChat(ctx, "hi"), ErrAnonymous)
	_, err := h.r.ClaimCreator(ctx)
	assert.ErrorIs(t, err, ErrAnonymous)
}

func TestUnmount_IgnoresLateEvents(t *testing.T) {
	h := newHarness(t, viewer, nil)
	h.r.Unmount()
	assert.Equal(t, 4, h.source.unsubscribed)

	h.source.sendChat(models.ChatMessage{ID: "late", Username: "x", Text: "late"})
	assert.Empty(t, h.r.Snapshot().Messages)
	assert.ErrorIs(t, h.r.SendChat(context.Background(), "hi"), ErrUnmounted)

	h.r.Unmount()
	assert.Equal(t, 4, h.source.unsubscribed)
}

func TestTrackViewer(t *testing.T) {
	b := newFakeBackend(testChannel)
	r := New(Config{ChannelID: testChannel, TrackViewer: true}, b, &fakeSource{}, &fakeGate{})
	require.NoError(t, r.Mount(context.Background()))
	assert.Equal(t, 1, b.viewers)
	r.Unmount()
	assert.Equal(t, 0, b.viewers)
}

func TestWithBroker(t *testing.T) {
	broker := notifications.NewBroker()
	pub := notifications.NewPublisher(notifications.NewNotifier(nil), broker)
	backend := newFakeBackend(testChannel)
	withFeatured(2000)(backend)

	r := New(Config{ChannelID: testChannel}, backend, broker, &fakeGate{})
	require.NoError(t, r.Mount(context.Background()))
	defer r.Unmount()

	ctx := context.Background()
	pub.Publish(ctx, notifications.EventDonation, testChannel, models.Donation{ID: "d-1", AmountCents: 2500, ChallengeID: ptr("c-piss"), ChallengeTotalCents: 2500})
	pub.Publish(ctx, notifications.EventChat, testChannel, models.ChatMessage{ID: "m-1", Username: "BitLord", Text: "do the thing!"})

	s := r.Snapshot()
	assert.True(t, s.Featured.Reached)
	assert.Len(t, s.Messages, 3)
}

func TestPalette(t *testing.T) {
	p := DefaultPalette()
	a := p.For("u-1")
	assert.Equal(t, a, p.For("u-1"))
	assert.Contains(t, p.Emojis, a.Emoji)
	assert.Contains(t, p.MessageColors, a.MessageColor)
	p.For("u-2")
	assert.Equal(t, 2, p.Assigned())

	path := filepath.Join(t.TempDir(), "palette.yml")
	require.NoError(t, os.WriteFile(path, []byte("emojis: [\"🔥\"]\nmessage_colors: [\"#000000\"]\n"), 0o600))
	loaded, err := LoadPalette(path)
	require.NoError(t, err)
	s := loaded.For("anyone")
	assert.Equal(t, "🔥", s.Emoji)
	assert.Equal(t, "#000000", s.MessageColor)
	assert.Equal(t, DefaultPalette().System, loaded.System)

	_, err = LoadPalette(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestMessageLog(t *testing.T) {
	l := NewMessageLog(3)
	for i := 0; i < 5; i++ {
		l.Append(Entry{ID: fmt.Sprint(i)})
	}
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, "2", l.Entries()[0].ID)
	assert.True(t, l.Remove("3"))
	assert.False(t, l.Remove("3"))

	s := newSeenSet(2)
	assert.True(t, s.add("a"))
	assert.False(t, s.add("a"))
	s.add("b")
	s.add("c")
	assert.False(t, s.has("a"), "oldest id is forgotten past the cap")
}
