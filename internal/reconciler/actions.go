package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"dumdummies/internal/models"
	"dumdummies/internal/observability"

	"github.com/google/uuid"
)

// actor returns the identity for a user action and the current mount
// generation.
func (r *Reconciler) actor() (Identity, uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.mounted {
		return Identity{}, 0, ErrUnmounted
	}
	if r.cfg.Identity.UserID == "" {
		return Identity{}, 0, ErrAnonymous
	}
	return r.cfg.Identity, r.generation, nil
}

// SendChat appends the message immediately and rolls it back if the
// backend refuses it. The echo of the stored message is ignored.
func (r *Reconciler) SendChat(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		r.notify(Toast{Kind: ToastError, Title: "Message is empty"})
		return ErrEmptyMessage
	}
	who, gen, err := r.actor()
	if err != nil {
		r.notify(errorToast(err))
		return err
	}

	id := uuid.NewString()
	style := r.palette.For(who.UserID)

	r.mu.Lock()
	if r.generation != gen {
		r.mu.Unlock()
		return ErrUnmounted
	}
	r.seenChat.add(id)
	r.log.Append(Entry{
		ID:            id,
		Kind:          models.MessageKindChat,
		Username:      who.Username,
		Text:          text,
		Emoji:         style.Emoji,
		AvatarColor:   style.AvatarColor,
		UsernameColor: style.UsernameColor,
		MessageColor:  style.MessageColor,
		Pending:       true,
		At:            time.Now(),
	})
	r.mu.Unlock()
	r.changed()

	_, err = r.backend.SendChatMessage(ctx, ChatRequest{
		ID:        id,
		ChannelID: r.cfg.ChannelID,
		UserID:    who.UserID,
		Text:      text,
		Emoji:     style.Emoji,
	})

	r.mu.Lock()
	if r.generation == gen {
		if err != nil {
			r.log.Remove(id)
			r.seenChat.remove(id)
		} else {
			r.log.Confirm(id)
		}
	}
	r.mu.Unlock()

	if err != nil {
		r.notify(errorToast(err))
	}
	r.changed()
	return err
}

// Donate records a donation. The log entry is shown immediately; the
// challenge total moves once the backend has confirmed the credit.
func (r *Reconciler) Donate(ctx context.Context, amountCents int64, message string) (*models.Donation, error) {
	if amountCents <= 0 {
		r.notify(Toast{Kind: ToastError, Title: "Invalid amount", Description: "Donation amount must be greater than zero"})
		return nil, ErrInvalidAmount
	}
	who, gen, err := r.actor()
	if err != nil {
		r.notify(errorToast(err))
		return nil, err
	}

	id := uuid.NewString()
	message = strings.TrimSpace(message)

	r.mu.Lock()
	if r.generation != gen {
		r.mu.Unlock()
		return nil, ErrUnmounted
	}
	r.seenDono.add(id)
	r.log.Append(r.donationEntry(id, who.UserID, who.Username, amountCents, message, time.Now(), true))
	r.mu.Unlock()
	r.changed()

	donation, err := r.backend.CreateDonation(ctx, DonationRequest{
		ID:          id,
		ChannelID:   r.cfg.ChannelID,
		UserID:      who.UserID,
		AmountCents: amountCents,
		Message:     message,
	})
	if err == nil && donation == nil {
		donation = &models.Donation{ID: id, ChannelID: r.cfg.ChannelID, UserID: who.UserID, Username: who.Username, AmountCents: amountCents}
	}

	var toasts []Toast
	r.mu.Lock()
	if r.generation == gen {
		if err != nil {
			r.log.Remove(id)
			r.seenDono.remove(id)
		} else {
			r.log.Confirm(id)
			toasts = r.creditLocked(*donation)
		}
	}
	r.mu.Unlock()

	if err != nil {
		r.notify(errorToast(err))
		r.changed()
		return nil, err
	}
	r.notify(toasts...)
	r.changed()
	return donation, nil
}

// RequestChallenge asks the creator to approve a new challenge. Duplicate
// names are refused by the backend.
func (r *Reconciler) RequestChallenge(ctx context.Context, name string) (*models.Challenge, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		r.notify(Toast{Kind: ToastError, Title: "Challenge name is required"})
		return nil, ErrEmptyName
	}
	who, gen, err := r.actor()
	if err != nil {
		r.notify(errorToast(err))
		return nil, err
	}

	c, err := r.backend.CreateChallenge(ctx, ChallengeRequest{
		ChannelID: r.cfg.ChannelID,
		Name:      name,
		UserID:    who.UserID,
	})
	if err != nil {
		r.notify(errorToast(err))
		return nil, err
	}

	if c != nil {
		r.mu.Lock()
		if r.generation == gen {
			r.applyChallengeLocked(models.ChallengeChange{Challenge: *c})
		}
		r.mu.Unlock()
	}
	r.notify(Toast{Kind: ToastSuccess, Title: "Challenge requested", Description: name})
	r.changed()
	return c, nil
}

// ApproveChallenge moves a requested challenge to active with the given
// target. Creator only.
func (r *Reconciler) ApproveChallenge(ctx context.Context, challengeID string, targetCents int64) error {
	who, gen, err := r.actor()
	if err != nil {
		r.notify(errorToast(err))
		return err
	}
	if err := r.requireCreator(ctx, who, models.ActionApproveChallenge); err != nil {
		return err
	}
	if targetCents <= 0 {
		r.notify(Toast{Kind: ToastError, Title: "Invalid amount", Description: "Target amount must be greater than zero"})
		return ErrInvalidAmount
	}

	approved, err := r.backend.ApproveChallenge(ctx, challengeID, targetCents, who.UserID)
	if err != nil {
		r.notify(errorToast(err))
		return err
	}

	var toasts []Toast
	r.mu.Lock()
	if r.generation == gen {
		c, ok := r.approvedLocked(challengeID, targetCents, approved)
		if ok {
			toasts = r.upsertActiveLocked(c, true)
		}
	}
	r.mu.Unlock()

	r.notify(toasts...)
	r.changed()
	return nil
}

// approvedLocked builds the activated challenge, from the backend's copy when
// it returned one and from the local request otherwise.
func (r *Reconciler) approvedLocked(id string, target int64, fromBackend *models.Challenge) (models.Challenge, bool) {
	if fromBackend != nil {
		return *fromBackend, true
	}
	for _, c := range r.requested {
		if c.ID == id {
			c.Status = models.ChallengeActive
			c.TargetCents = target
			c.CurrentCents = 0
			return c, true
		}
	}
	return models.Challenge{}, false
}

// RejectChallenge discards a requested challenge. Creator only.
func (r *Reconciler) RejectChallenge(ctx context.Context, challengeID string) error {
	who, gen, err := r.actor()
	if err != nil {
		r.notify(errorToast(err))
		return err
	}
	if err := r.requireCreator(ctx, who, models.ActionRejectChallenge); err != nil {
		return err
	}
	if err := r.backend.RejectChallenge(ctx, challengeID, who.UserID); err != nil {
		r.notify(errorToast(err))
		return err
	}

	r.mu.Lock()
	if r.generation == gen {
		r.rejected.add(challengeID)
		r.dropRequestedLocked(challengeID)
	}
	r.mu.Unlock()
	r.changed()
	return nil
}

// ClaimCreator makes the identity the channel creator when the channel has
// none. A refused claim is recorded by the gate.
func (r *Reconciler) ClaimCreator(ctx context.Context) (bool, error) {
	who, gen, err := r.actor()
	if err != nil {
		r.notify(errorToast(err))
		return false, err
	}
	ok, err := r.gate.Claim(ctx, r.cfg.ChannelID, who.UserID)
	if err != nil {
		r.notify(errorToast(err))
		return false, err
	}

	r.mu.Lock()
	if r.generation == gen {
		r.isCreator = ok
	}
	r.mu.Unlock()

	if !ok {
		r.notify(securityToast())
		r.changed()
		return false, ErrNotCreator
	}
	r.notify(Toast{Kind: ToastSuccess, Title: "Creator mode enabled"})
	r.changed()
	return true, nil
}

// StartStream marks the channel live. Creator only.
func (r *Reconciler) StartStream(ctx context.Context) error {
	return r.setLive(ctx, true)
}

// EndStream marks the channel offline. Creator only.
func (r *Reconciler) EndStream(ctx context.Context) error {
	return r.setLive(ctx, false)
}

func (r *Reconciler) setLive(ctx context.Context, live bool) error {
	who, gen, err := r.actor()
	if err != nil {
		r.notify(errorToast(err))
		return err
	}
	action, call := models.ActionEndStream, r.backend.EndStream
	if live {
		action, call = models.ActionStartStream, r.backend.StartStream
	}
	if err := r.requireCreator(ctx, who, action); err != nil {
		return err
	}

	status, err := call(ctx, r.cfg.ChannelID, who.UserID)
	if err != nil {
		r.notify(errorToast(err))
		return err
	}

	var toasts []Toast
	if status != nil {
		r.mu.Lock()
		if r.generation == gen {
			toasts = r.applyStreamLocked(*status)
		}
		r.mu.Unlock()
	}
	r.notify(toasts...)
	r.changed()
	return nil
}

// StreamKey returns the ingest key. Creator only.
func (r *Reconciler) StreamKey(ctx context.Context) (string, error) {
	who, _, err := r.actor()
	if err != nil {
		r.notify(errorToast(err))
		return "", err
	}
	if err := r.requireCreator(ctx, who, models.ActionViewStreamKey); err != nil {
		return "", err
	}
	key, err := r.backend.GetStreamKey(ctx, r.cfg.ChannelID, who.UserID)
	if err != nil {
		r.notify(errorToast(err))
		return "", err
	}
	return key, nil
}

// requireCreator asks the gate at the point of action. A refusal is
// recorded as a violation and nothing else happens.
func (r *Reconciler) requireCreator(ctx context.Context, who Identity, action string) error {
	ok, err := r.gate.IsCreator(ctx, r.cfg.ChannelID, who.UserID)
	if err != nil {
		r.notify(errorToast(err))
		return err
	}

	r.mu.Lock()
	r.isCreator = ok
	r.mu.Unlock()

	if ok {
		return nil
	}
	if err := r.gate.RecordViolation(ctx, r.cfg.ChannelID, who.UserID, action, "not the channel creator"); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "failed to record security violation",
			slog.String("channel_id", r.cfg.ChannelID),
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
	r.notify(securityToast())
	r.changed()
	return ErrNotCreator
}

func securityToast() Toast {
	return Toast{Kind: ToastSecurity, Title: unauthorizedTitle, Description: unauthorizedDescription}
}

// errorToast describes a failed action. Backend errors carrying a
// user-facing message show it; anything else gets a generic failure.
func errorToast(err error) Toast {
	switch {
	case errors.Is(err, ErrUnmounted):
		return Toast{Kind: ToastError, Title: failureTitle, Description: "Not connected to the channel"}
	case errors.Is(err, ErrAnonymous):
		return Toast{Kind: ToastError, Title: "Sign in required"}
	case errors.Is(err, ErrNotCreator):
		return securityToast()
	}

	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code != models.CodeInternal {
		if appErr.Code == models.CodeForbidden {
			return securityToast()
		}
		return Toast{Kind: ToastError, Title: failureTitle, Description: appErr.Message}
	}
	return Toast{Kind: ToastError, Title: failureTitle, Description: "Please try again."}
}
