// Package client talks to a DumDummies API server over HTTP and WebSocket.
// It provides the reconciler's backend, creator gate and event source for
// programs that watch a channel remotely.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dumdummies/internal/models"
	"dumdummies/internal/reconciler"
)

const defaultTimeout = 10 * time.Second

// API is a typed client for the REST endpoints.
type API struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

var (
	_ reconciler.Backend     = (*API)(nil)
	_ reconciler.CreatorGate = (*API)(nil)
)

// NewAPI returns a client for the server at baseURL, e.g.
// "http://localhost:8375". token may be empty for read-only use.
func NewAPI(baseURL, token string) *API {
	return &API{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

func (a *API) http() *http.Client {
	if a.HTTPClient != nil {
		return a.HTTPClient
	}
	return http.DefaultClient
}

// do sends a JSON request to /api+path and decodes a JSON response into out.
// Error responses come back as *models.AppError.
func (a *API) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+"/api"+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}

	resp, err := a.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body models.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)

	code := body.Code
	if code == "" {
		code = codeForStatus(resp.StatusCode)
	}
	msg := body.Error
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	appErr := &models.AppError{Code: code, Message: msg}
	if body.Details != "" {
		appErr.Err = errors.New(body.Details)
	}
	return appErr
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return models.CodeValidation
	case http.StatusUnauthorized:
		return models.CodeUnauthorized
	case http.StatusForbidden:
		return models.CodeForbidden
	case http.StatusNotFound:
		return models.CodeNotFound
	case http.StatusConflict:
		return models.CodeConflict
	default:
		return models.CodeInternal
	}
}

func centsToDollars(cents int64) float64 {
	return float64(cents) / 100
}

func channelPath(channelID, suffix string) string {
	return "/channels/" + url.PathEscape(channelID) + suffix
}

// AuthResult is returned by Login and Signup.
type AuthResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Login exchanges credentials for a token and stores it on the client.
func (a *API) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	var res AuthResult
	err := a.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &res)
	if err != nil {
		return nil, err
	}
	a.Token = res.Token
	return &res, nil
}

// Signup registers a user and stores the returned token on the client.
func (a *API) Signup(ctx context.Context, username, email, password string) (*AuthResult, error) {
	var res AuthResult
	err := a.do(ctx, http.MethodPost, "/auth/signup", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &res)
	if err != nil {
		return nil, err
	}
	a.Token = res.Token
	return &res, nil
}

// CreateChannel opens a channel without an owner; claim it to become the
// creator.
func (a *API) CreateChannel(ctx context.Context, title, description string) (*models.Channel, error) {
	var ch models.Channel
	err := a.do(ctx, http.MethodPost, "/channels", map[string]string{
		"title":       title,
		"description": description,
	}, &ch)
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

// Me returns the user the token belongs to.
func (a *API) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := a.do(ctx, http.MethodGet, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListChannels returns the first page of channels.
func (a *API) ListChannels(ctx context.Context) ([]models.Channel, error) {
	var out []models.Channel
	if err := a.do(ctx, http.MethodGet, "/channels/", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) FetchChannel(ctx context.Context, channelID string) (*models.Channel, error) {
	var ch models.Channel
	if err := a.do(ctx, http.MethodGet, channelPath(channelID, ""), nil, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// FetchActiveChallenge returns nil when the channel has no active challenge.
func (a *API) FetchActiveChallenge(ctx context.Context, channelID string) (*models.Challenge, error) {
	var c *models.Challenge
	if err := a.do(ctx, http.MethodGet, channelPath(channelID, "/challenges/active"), nil, &c); err != nil {
		return nil, err
	}
	return c, nil
}

type challengeLists struct {
	Active    []models.Challenge `json:"active"`
	Requested []models.Challenge `json:"requested"`
}

func (a *API) challenges(ctx context.Context, channelID string) (*challengeLists, error) {
	var out challengeLists
	if err := a.do(ctx, http.MethodGet, channelPath(channelID, "/challenges"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) FetchActiveChallenges(ctx context.Context, channelID string) ([]models.Challenge, error) {
	lists, err := a.challenges(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return lists.Active, nil
}

func (a *API) FetchRequestedChallenges(ctx context.Context, channelID string) ([]models.Challenge, error) {
	lists, err := a.challenges(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return lists.Requested, nil
}

func (a *API) FetchRecentMessages(ctx context.Context, channelID string, limit int) ([]models.ChatMessage, error) {
	var out []models.ChatMessage
	path := channelPath(channelID, "/messages?limit="+strconv.Itoa(limit))
	if err := a.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateChallenge requests a challenge as the token's user.
func (a *API) CreateChallenge(ctx context.Context, req reconciler.ChallengeRequest) (*models.Challenge, error) {
	var c models.Challenge
	err := a.do(ctx, http.MethodPost, channelPath(req.ChannelID, "/challenges"),
		map[string]string{"name": req.Name}, &c)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (a *API) ApproveChallenge(ctx context.Context, challengeID string, targetCents int64, _ string) (*models.Challenge, error) {
	var c models.Challenge
	err := a.do(ctx, http.MethodPost, "/challenges/"+url.PathEscape(challengeID)+"/approve",
		map[string]float64{"target": centsToDollars(targetCents)}, &c)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (a *API) RejectChallenge(ctx context.Context, challengeID, _ string) error {
	return a.do(ctx, http.MethodPost, "/challenges/"+url.PathEscape(challengeID)+"/reject", nil, nil)
}

func (a *API) CreateDonation(ctx context.Context, req reconciler.DonationRequest) (*models.Donation, error) {
	body := struct {
		ID          string  `json:"id,omitempty"`
		Amount      float64 `json:"amount"`
		Message     string  `json:"message,omitempty"`
		ChallengeID *string `json:"challenge_id,omitempty"`
	}{req.ID, centsToDollars(req.AmountCents), req.Message, req.ChallengeID}

	var d models.Donation
	if err := a.do(ctx, http.MethodPost, channelPath(req.ChannelID, "/donations"), body, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (a *API) SendChatMessage(ctx context.Context, req reconciler.ChatRequest) (*models.ChatMessage, error) {
	var m models.ChatMessage
	err := a.do(ctx, http.MethodPost, channelPath(req.ChannelID, "/messages"), map[string]string{
		"id":    req.ID,
		"text":  req.Text,
		"emoji": req.Emoji,
	}, &m)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// AdjustViewerCount is a no-op without a token; the endpoint is protected.
func (a *API) AdjustViewerCount(ctx context.Context, channelID string, delta int) error {
	if a.Token == "" {
		return nil
	}
	return a.do(ctx, http.MethodPost, channelPath(channelID, "/viewers"), map[string]int{"delta": delta}, nil)
}

func (a *API) StartStream(ctx context.Context, channelID, _ string) (*models.StreamStatus, error) {
	return a.stream(ctx, channelID, "start")
}

func (a *API) EndStream(ctx context.Context, channelID, _ string) (*models.StreamStatus, error) {
	return a.stream(ctx, channelID, "end")
}

func (a *API) stream(ctx context.Context, channelID, op string) (*models.StreamStatus, error) {
	var st models.StreamStatus
	if err := a.do(ctx, http.MethodPost, channelPath(channelID, "/stream/"+op), nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (a *API) GetStreamKey(ctx context.Context, channelID, _ string) (string, error) {
	var key struct {
		StreamKey string `json:"stream_key"`
	}
	if err := a.do(ctx, http.MethodGet, channelPath(channelID, "/stream/key"), nil, &key); err != nil {
		return "", err
	}
	return key.StreamKey, nil
}

// IsCreator asks the server whether the token's user owns the channel.
// Anonymous clients are never the creator.
func (a *API) IsCreator(ctx context.Context, channelID, _ string) (bool, error) {
	if a.Token == "" {
		return false, nil
	}
	var out struct {
		IsCreator bool `json:"is_creator"`
	}
	if err := a.do(ctx, http.MethodGet, channelPath(channelID, "/creator"), nil, &out); err != nil {
		return false, err
	}
	return out.IsCreator, nil
}

// Claim tries to become the channel's creator. A channel that already has a
// different creator answers false without an error.
func (a *API) Claim(ctx context.Context, channelID, _ string) (bool, error) {
	var out struct {
		IsCreator bool `json:"is_creator"`
	}
	err := a.do(ctx, http.MethodPost, channelPath(channelID, "/creator"), nil, &out)
	if models.IsCode(err, models.CodeForbidden) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return out.IsCreator, nil
}

func (a *API) RecordViolation(ctx context.Context, channelID, _, action, reason string) error {
	if a.Token == "" {
		return nil
	}
	return a.do(ctx, http.MethodPost, channelPath(channelID, "/violations"), map[string]string{
		"action": action,
		"reason": reason,
	}, nil)
}
