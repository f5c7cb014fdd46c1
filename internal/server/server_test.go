package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dumdummies/internal/config"
	"dumdummies/internal/featureflags"
	"dumdummies/internal/models"
	"dumdummies/internal/reconciler"
	"dumdummies/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func newTestServer(t *testing.T, flags string, rdb *redis.Client) *Server {
	t.Helper()
	cfg := &config.Config{
		JWTSecret:    testSecret,
		FeatureFlags: flags,
		ChatLogCap:   50,
		Env:          "test",
	}
	s, err := NewServerWithDeps(cfg, testutil.NewSQLiteDB(t), rdb)
	require.NoError(t, err)
	t.Cleanup(s.registry.Close)
	return s
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func signup(t *testing.T, app *fiber.App, username string) (string, models.User) {
	t.Helper()
	status, body := doJSON(t, app, http.MethodPost, "/api/auth/signup", "", fiber.Map{
		"username": username,
		"email":    username + "@example.com",
		"password": "Password123!",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	res := decode[authResponse](t, body)
	require.NotEmpty(t, res.Token)
	return res.Token, *res.User
}

func createChannel(t *testing.T, app *fiber.App, token string) models.Channel {
	t.Helper()
	status, body := doJSON(t, app, http.MethodPost, "/api/channels", token, fiber.Map{"title": "Ghost Pepper Night"})
	require.Equal(t, http.StatusCreated, status, string(body))
	return decode[models.Channel](t, body)
}

func TestHealthChecks(t *testing.T) {
	app := newTestServer(t, "", nil).App()

	status, body := doJSON(t, app, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"up"`)

	status, body = doJSON(t, app, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	ready := decode[struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}](t, body)
	assert.Equal(t, "healthy", ready.Status)
	assert.Equal(t, "healthy", ready.Checks["database"])
	assert.Equal(t, "disabled", ready.Checks["redis"])
}

func TestReadinessCheck_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := newTestServer(t, "", rdb).App()

	status, body := doJSON(t, app, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"redis":"healthy"`)

	mr.Close()
	status, _ = doJSON(t, app, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestAuthFlow(t *testing.T) {
	app := newTestServer(t, "", nil).App()
	token, user := signup(t, app, "FearFerret9")

	status, body := doJSON(t, app, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, user.ID, decode[models.User](t, body).ID)

	status, body = doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email": "FearFerret9@example.com", "password": "Password123!",
	})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.NotEmpty(t, decode[authResponse](t, body).Token)

	status, _ = doJSON(t, app, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email": "FearFerret9@example.com", "password": "WrongPassword1!",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestChallengeDonationFlow(t *testing.T) {
	s := newTestServer(t, "", nil)
	app := s.App()

	creatorToken, _ := signup(t, app, "creator1")
	viewerToken, _ := signup(t, app, "viewer1")
	channel := createChannel(t, app, creatorToken)
	base := "/api/channels/" + channel.ID

	// Mount the observer before anything happens so it sees every event.
	status, _ := doJSON(t, app, http.MethodGet, base+"/state", "", nil)
	require.Equal(t, http.StatusOK, status)

	status, body := doJSON(t, app, http.MethodPost, base+"/creator", creatorToken, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	status, _ = doJSON(t, app, http.MethodPost, base+"/creator", viewerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = doJSON(t, app, http.MethodPost, base+"/challenges", viewerToken, fiber.Map{"name": "Eat a Ghost Pepper"})
	require.Equal(t, http.StatusCreated, status, string(body))
	challenge := decode[models.Challenge](t, body)
	assert.Equal(t, models.ChallengeRequested, challenge.Status)

	status, body = doJSON(t, app, http.MethodPost, base+"/challenges", viewerToken, fiber.Map{"name": "  eat a ghost pepper "})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, models.CodeConflict, decode[models.ErrorResponse](t, body).Code)

	approve := "/api/challenges/" + challenge.ID + "/approve"
	status, body = doJSON(t, app, http.MethodPost, approve, viewerToken, fiber.Map{"target": 20})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Unauthorized action detected", decode[models.ErrorResponse](t, body).Error)

	status, body = doJSON(t, app, http.MethodPost, approve, creatorToken, fiber.Map{"target": 20})
	require.Equal(t, http.StatusOK, status, string(body))
	approved := decode[models.Challenge](t, body)
	assert.Equal(t, models.ChallengeActive, approved.Status)
	assert.Equal(t, int64(2000), approved.TargetCents)

	status, body = doJSON(t, app, http.MethodGet, base+"/challenges/active", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, challenge.ID, decode[models.Challenge](t, body).ID)

	for _, amount := range []float64{10, 15} {
		status, body = doJSON(t, app, http.MethodPost, base+"/donations", viewerToken, fiber.Map{"amount": amount})
		require.Equal(t, http.StatusCreated, status, string(body))
	}
	assert.Equal(t, int64(2500), decode[models.Donation](t, body).ChallengeTotalCents)

	status, body = doJSON(t, app, http.MethodGet, base+"/state", "", nil)
	require.Equal(t, http.StatusOK, status)
	snap := decode[reconciler.Snapshot](t, body)
	require.NotNil(t, snap.Featured)
	assert.True(t, snap.Featured.Reached)
	assert.Equal(t, int64(2500), snap.Featured.CurrentCents)

	reached := 0
	for _, m := range snap.Messages {
		if m.Kind == models.MessageKindSystem && strings.HasPrefix(m.Text, "TARGET REACHED!") {
			reached++
			assert.Equal(t, "TARGET REACHED! Time to eat a ghost pepper!", m.Text)
		}
	}
	assert.Equal(t, 1, reached)

	status, body = doJSON(t, app, http.MethodGet, base+"/violations", creatorToken, nil)
	require.Equal(t, http.StatusOK, status)
	violations := decode[[]models.SecurityViolation](t, body)
	actions := make([]string, 0, len(violations))
	for _, v := range violations {
		actions = append(actions, v.Action)
	}
	assert.ElementsMatch(t, []string{models.ActionClaimCreator, models.ActionApproveChallenge}, actions)

	status, _ = doJSON(t, app, http.MethodGet, base+"/violations", viewerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestRejectChallenge(t *testing.T) {
	app := newTestServer(t, "", nil).App()
	creatorToken, _ := signup(t, app, "creator1")
	viewerToken, _ := signup(t, app, "viewer1")
	channel := createChannel(t, app, creatorToken)
	base := "/api/channels/" + channel.ID

	_, _ = doJSON(t, app, http.MethodPost, base+"/creator", creatorToken, nil)
	_, body := doJSON(t, app, http.MethodPost, base+"/challenges", viewerToken, fiber.Map{"name": "Shave head"})
	challenge := decode[models.Challenge](t, body)

	reject := "/api/challenges/" + challenge.ID + "/reject"
	status, _ := doJSON(t, app, http.MethodPost, reject, viewerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doJSON(t, app, http.MethodPost, reject, creatorToken, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body = doJSON(t, app, http.MethodGet, base+"/challenges", "", nil)
	require.Equal(t, http.StatusOK, status)
	lists := decode[struct {
		Active    []models.Challenge `json:"active"`
		Requested []models.Challenge `json:"requested"`
	}](t, body)
	assert.Empty(t, lists.Requested)
	assert.Empty(t, lists.Active)
}

func TestChatMessages(t *testing.T) {
	app := newTestServer(t, "", nil).App()
	token, _ := signup(t, app, "viewer1")
	channel := createChannel(t, app, token)
	base := "/api/channels/" + channel.ID

	status, _ := doJSON(t, app, http.MethodPost, base+"/messages", token, fiber.Map{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := doJSON(t, app, http.MethodPost, base+"/messages", token, fiber.Map{"text": "LETS GO", "emoji": "🤡"})
	require.Equal(t, http.StatusCreated, status, string(body))

	status, body = doJSON(t, app, http.MethodGet, base+"/messages", "", nil)
	require.Equal(t, http.StatusOK, status)
	messages := decode[[]models.ChatMessage](t, body)
	require.Len(t, messages, 1)
	assert.Equal(t, "LETS GO", messages[0].Text)
	assert.Equal(t, "viewer1", messages[0].Username)
}

func TestDonationHistory(t *testing.T) {
	app := newTestServer(t, "", nil).App()
	token, _ := signup(t, app, "viewer1")
	channel := createChannel(t, app, token)
	base := "/api/channels/" + channel.ID

	status, body := doJSON(t, app, http.MethodGet, base+"/donations", "", nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Empty(t, decode[[]models.Donation](t, body))

	for _, amount := range []float64{5, 12.5, 20} {
		status, body = doJSON(t, app, http.MethodPost, base+"/donations", token, fiber.Map{"amount": amount, "message": "for the pepper"})
		require.Equal(t, http.StatusCreated, status, string(body))
	}

	status, body = doJSON(t, app, http.MethodGet, base+"/donations", "", nil)
	require.Equal(t, http.StatusOK, status)
	donations := decode[[]models.Donation](t, body)
	amounts := make([]int64, 0, len(donations))
	for _, d := range donations {
		amounts = append(amounts, d.AmountCents)
		assert.Equal(t, channel.ID, d.ChannelID)
		assert.Equal(t, "viewer1", d.Username)
	}
	assert.ElementsMatch(t, []int64{500, 1250, 2000}, amounts)

	status, body = doJSON(t, app, http.MethodGet, base+"/donations?limit=2", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Donation](t, body), 2)

	status, _ = doJSON(t, app, http.MethodGet, "/api/channels/00000000-0000-0000-0000-000000000001/donations", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestStreamControls(t *testing.T) {
	app := newTestServer(t, "", nil).App()
	creatorToken, _ := signup(t, app, "creator1")
	viewerToken, _ := signup(t, app, "viewer1")
	channel := createChannel(t, app, creatorToken)
	base := "/api/channels/" + channel.ID

	_, _ = doJSON(t, app, http.MethodPost, base+"/creator", creatorToken, nil)

	status, body := doJSON(t, app, http.MethodGet, base+"/stream/key", viewerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.NotContains(t, string(body), "sk_live_")

	status, body = doJSON(t, app, http.MethodGet, base+"/stream/key", creatorToken, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	key := decode[map[string]string](t, body)
	assert.True(t, strings.HasPrefix(key["stream_key"], "sk_live_"))

	status, _ = doJSON(t, app, http.MethodPost, base+"/stream/start", viewerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = doJSON(t, app, http.MethodPost, base+"/stream/start", creatorToken, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.True(t, decode[models.StreamStatus](t, body).IsLive)

	status, body = doJSON(t, app, http.MethodGet, base, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decode[models.Channel](t, body).IsLive)

	status, body = doJSON(t, app, http.MethodPost, base+"/stream/end", creatorToken, nil)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, decode[models.StreamStatus](t, body).IsLive)
}

func TestFeatureFlagGating(t *testing.T) {
	app := newTestServer(t, "challenge_requests=off,stream_key_rotation=on", nil).App()
	creatorToken, _ := signup(t, app, "creator1")
	channel := createChannel(t, app, creatorToken)
	base := "/api/channels/" + channel.ID
	_, _ = doJSON(t, app, http.MethodPost, base+"/creator", creatorToken, nil)

	status, _ := doJSON(t, app, http.MethodPost, base+"/challenges", creatorToken, fiber.Map{"name": "Cold plunge"})
	assert.Equal(t, http.StatusForbidden, status)

	_, body := doJSON(t, app, http.MethodGet, base+"/stream/key", creatorToken, nil)
	before := decode[map[string]string](t, body)["stream_key"]
	status, body = doJSON(t, app, http.MethodPost, base+"/stream/key/rotate", creatorToken, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.NotEqual(t, before, decode[map[string]string](t, body)["stream_key"])

	status, body = doJSON(t, app, http.MethodGet, "/api/feature-flags", creatorToken, nil)
	require.Equal(t, http.StatusOK, status)
	flags := decode[featureFlagsResponse](t, body).Flags
	require.Len(t, flags, 2)
	assert.Equal(t, featureflags.State{Name: "challenge_requests", Value: "off", Configured: true, Enabled: false}, flags[0])
	assert.Equal(t, featureflags.State{Name: "stream_key_rotation", Value: "on", Configured: true, Enabled: true}, flags[1])
}

func TestChannelRoutes_BadInput(t *testing.T) {
	app := newTestServer(t, "", nil).App()
	token, _ := signup(t, app, "viewer1")

	status, _ := doJSON(t, app, http.MethodGet, "/api/channels/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/channels/00000000-0000-0000-0000-000000000001/state", "", nil)
	assert.Equal(t, http.StatusNotFound, status)

	channel := createChannel(t, app, token)
	base := "/api/channels/" + channel.ID

	status, _ = doJSON(t, app, http.MethodPost, base+"/donations", token, fiber.Map{"amount": 0})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = doJSON(t, app, http.MethodPost, base+"/viewers", token, fiber.Map{"delta": 5})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := doJSON(t, app, http.MethodPost, base+"/viewers", token, fiber.Map{"delta": -1})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), decode[map[string]float64](t, body)["viewer_count"])

	status, _ = doJSON(t, app, http.MethodGet, "/api/ws/channels/"+channel.ID, "", nil)
	assert.Equal(t, http.StatusUpgradeRequired, status)
}

func TestRealtimeThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := newTestServer(t, "", rdb)
	app := s.App()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.StartRealtime(ctx))

	token, _ := signup(t, app, "viewer1")
	channel := createChannel(t, app, token)
	base := "/api/channels/" + channel.ID

	status, _ := doJSON(t, app, http.MethodGet, base+"/state", "", nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = doJSON(t, app, http.MethodPost, base+"/messages", token, fiber.Map{"text": "via redis"})
	require.Equal(t, http.StatusCreated, status)

	assert.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, base+"/state", nil)
		resp, err := app.Test(req, -1)
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		var snap reconciler.Snapshot
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return false
		}
		for _, m := range snap.Messages {
			if m.Text == "via redis" {
				return true
			}
		}
		return false
	}, 2*time.Second, 20*time.Millisecond)
}
