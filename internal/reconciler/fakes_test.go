package reconciler

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"dumdummies/internal/models"
)

var errBackendDown = errors.New("backend unavailable")

type fakeBackend struct {
	mu        sync.Mutex
	channel   models.Channel
	challenge map[string]*models.Challenge
	history   []models.ChatMessage
	failNext  error
	calls     map[string]int
	viewers   int
	// duringLoad runs inside FetchRecentMessages, the last fetch of a mount.
	duringLoad func()
}

func newFakeBackend(channelID string) *fakeBackend {
	return &fakeBackend{
		channel:   models.Channel{ID: channelID, Title: "Ghost Pepper Night"},
		challenge: make(map[string]*models.Challenge),
		calls:     make(map[string]int),
	}
}

func (b *fakeBackend) add(c models.Challenge) *models.Challenge {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := c
	b.challenge[c.ID] = &cp
	return &cp
}

func (b *fakeBackend) count(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[name]
}

func (b *fakeBackend) begin(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[name]++
	err := b.failNext
	b.failNext = nil
	return err
}

func (b *fakeBackend) byStatus(status models.ChallengeStatus) []models.Challenge {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.Challenge
	for _, c := range b.challenge {
		if c.Status == status {
			out = append(out, *c)
		}
	}
	return out
}

func (b *fakeBackend) FetchChannel(context.Context, string) (*models.Channel, error) {
	if err := b.begin("FetchChannel"); err != nil {
		return nil, err
	}
	ch := b.channel
	return &ch, nil
}

func (b *fakeBackend) FetchActiveChallenge(context.Context, string) (*models.Challenge, error) {
	if err := b.begin("FetchActiveChallenge"); err != nil {
		return nil, err
	}
	active := b.byStatus(models.ChallengeActive)
	if len(active) == 0 {
		return nil, nil
	}
	first := active[0]
	for _, c := range active[1:] {
		if c.CreatedAt.Before(first.CreatedAt) {
			first = c
		}
	}
	return &first, nil
}

func (b *fakeBackend) FetchActiveChallenges(context.Context, string) ([]models.Challenge, error) {
	return b.byStatus(models.ChallengeActive), b.begin("FetchActiveChallenges")
}

func (b *fakeBackend) FetchRequestedChallenges(context.Context, string) ([]models.Challenge, error) {
	return b.byStatus(models.ChallengeRequested), b.begin("FetchRequestedChallenges")
}

func (b *fakeBackend) FetchRecentMessages(context.Context, string, int) ([]models.ChatMessage, error) {
	if err := b.begin("FetchRecentMessages"); err != nil {
		return nil, err
	}
	if b.duringLoad != nil {
		b.duringLoad()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.ChatMessage(nil), b.history...), nil
}

func (b *fakeBackend) CreateChallenge(_ context.Context, req ChallengeRequest) (*models.Challenge, error) {
	if err := b.begin("CreateChallenge"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	key := models.NormalizeChallengeName(req.Name)
	for _, c := range b.challenge {
		if c.Status != models.ChallengeCompleted && models.NormalizeChallengeName(c.Name) == key {
			return nil, models.NewConflictError("A challenge with this name is already active or requested")
		}
	}
	c := &models.Challenge{
		ID:          "c-" + strings.ReplaceAll(key, " ", "-"),
		ChannelID:   req.ChannelID,
		Name:        req.Name,
		RequestedBy: req.UserID,
		Status:      models.ChallengeRequested,
		CreatedAt:   time.Now(),
	}
	b.challenge[c.ID] = c
	cp := *c
	return &cp, nil
}

func (b *fakeBackend) ApproveChallenge(_ context.Context, id string, target int64, _ string) (*models.Challenge, error) {
	if err := b.begin("ApproveChallenge"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.challenge[id]
	if !ok {
		return nil, models.NewNotFoundError("Challenge", id)
	}
	if c.Status != models.ChallengeRequested {
		return nil, models.NewConflictError("Challenge is no longer pending approval")
	}
	c.Status = models.ChallengeActive
	c.TargetCents = target
	c.CurrentCents = 0
	cp := *c
	return &cp, nil
}

func (b *fakeBackend) RejectChallenge(_ context.Context, id, _ string) error {
	if err := b.begin("RejectChallenge"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.challenge, id)
	return nil
}

func (b *fakeBackend) CreateDonation(_ context.Context, req DonationRequest) (*models.Donation, error) {
	if err := b.begin("CreateDonation"); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	d := &models.Donation{
		ID:          req.ID,
		ChannelID:   req.ChannelID,
		UserID:      req.UserID,
		AmountCents: req.AmountCents,
		Message:     req.Message,
	}
	for _, c := range b.challenge {
		if c.Status == models.ChallengeActive {
			c.CurrentCents += req.AmountCents
			if c.CurrentCents >= c.TargetCents {
				c.Status = models.ChallengeCompleted
			}
			id := c.ID
			d.ChallengeID = &id
			d.ChallengeTotalCents = c.CurrentCents
			break
		}
	}
	return d, nil
}

func (b *fakeBackend) SendChatMessage(_ context.Context, req ChatRequest) (*models.ChatMessage, error) {
	if err := b.begin("SendChatMessage"); err != nil {
		return nil, err
	}
	uid := req.UserID
	return &models.ChatMessage{ID: req.ID, ChannelID: req.ChannelID, UserID: &uid, Text: req.Text, Emoji: req.Emoji, Kind: models.MessageKindChat}, nil
}

func (b *fakeBackend) AdjustViewerCount(_ context.Context, _ string, delta int) error {
	if err := b.begin("AdjustViewerCount"); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.viewers = max(b.viewers+delta, 0)
	return nil
}

func (b *fakeBackend) StartStream(_ context.Context, channelID, _ string) (*models.StreamStatus, error) {
	if err := b.begin("StartStream"); err != nil {
		return nil, err
	}
	return &models.StreamStatus{ChannelID: channelID, IsLive: true, ViewerCount: 3}, nil
}

func (b *fakeBackend) EndStream(_ context.Context, channelID, _ string) (*models.StreamStatus, error) {
	if err := b.begin("EndStream"); err != nil {
		return nil, err
	}
	return &models.StreamStatus{ChannelID: channelID, IsLive: false, ViewerCount: 3}, nil
}

func (b *fakeBackend) GetStreamKey(context.Context, string, string) (string, error) {
	if err := b.begin("GetStreamKey"); err != nil {
		return "", err
	}
	return models.StreamKeyPrefix + "abc123", nil
}

type violation struct {
	UserID string
	Action string
}

type fakeGate struct {
	mu         sync.Mutex
	creator    string
	violations []violation
}

func (g *fakeGate) IsCreator(_ context.Context, _, userID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return userID != "" && g.creator == userID, nil
}

func (g *fakeGate) Claim(_ context.Context, _, userID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.creator == "" {
		g.creator = userID
	}
	if g.creator == userID {
		return true, nil
	}
	g.violations = append(g.violations, violation{UserID: userID, Action: models.ActionClaimCreator})
	return false, nil
}

func (g *fakeGate) RecordViolation(_ context.Context, _, userID, action, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.violations = append(g.violations, violation{UserID: userID, Action: action})
	return nil
}

func (g *fakeGate) recorded() []violation {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]violation(nil), g.violations...)
}

// fakeSource keeps the handlers so tests can deliver events in any order.
type fakeSource struct {
	mu           sync.Mutex
	chat         []func(models.ChatMessage)
	donations    []func(models.Donation)
	challenges   []func(models.ChallengeChange)
	streams      []func(models.StreamStatus)
	unsubscribed int
}

func (s *fakeSource) unsub() func() {
	return func() {
		s.mu.Lock()
		s.unsubscribed++
		s.mu.Unlock()
	}
}

func (s *fakeSource) SubscribeToChat(_ string, fn func(models.ChatMessage)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chat = append(s.chat, fn)
	return s.unsub()
}

func (s *fakeSource) SubscribeToDonations(_ string, fn func(models.Donation)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.donations = append(s.donations, fn)
	return s.unsub()
}

func (s *fakeSource) SubscribeToChallengeChanges(_ string, fn func(models.ChallengeChange)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges = append(s.challenges, fn)
	return s.unsub()
}

func (s *fakeSource) SubscribeToStreamStatus(_ string, fn func(models.StreamStatus)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams = append(s.streams, fn)
	return s.unsub()
}

func (s *fakeSource) sendChat(m models.ChatMessage) {
	s.mu.Lock()
	fns := slices.Clone(s.chat)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(m)
	}
}

func (s *fakeSource) sendDonation(d models.Donation) {
	s.mu.Lock()
	fns := slices.Clone(s.donations)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(d)
	}
}

func (s *fakeSource) sendChallenge(c models.ChallengeChange) {
	s.mu.Lock()
	fns := slices.Clone(s.challenges)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

func (s *fakeSource) sendStream(st models.StreamStatus) {
	s.mu.Lock()
	fns := slices.Clone(s.streams)
	s.mu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}
