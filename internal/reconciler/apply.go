package reconciler

import (
	"fmt"
	"strings"
	"time"

	"dumdummies/internal/models"
)

func (r *Reconciler) applyChatLocked(m models.ChatMessage) []Toast {
	if m.Kind == models.MessageKindDonation {
		if !r.seenDono.add(m.ID) {
			return nil
		}
	} else {
		if strings.TrimSpace(m.Text) == "" || !r.seenChat.add(m.ID) {
			return nil
		}
	}
	r.log.Append(r.messageEntry(m))
	return nil
}

func (r *Reconciler) applyDonationLocked(d models.Donation) []Toast {
	if d.AmountCents <= 0 {
		return nil
	}
	if !r.seenDono.add(d.ID) {
		// Already logged, but a running total may still be ahead of a
		// challenge loaded before the donation landed.
		if d.ChallengeTotalCents > 0 {
			return r.creditLocked(d)
		}
		return nil
	}
	r.log.Append(r.donationEntry(d.ID, d.UserID, d.Username, d.AmountCents, d.Message, d.CreatedAt, false))
	return r.creditLocked(d)
}

// creditLocked folds a donation into the challenge it names, or into the
// featured challenge. A running total, when present, wins over the amount so
// re-delivered or reordered donations cannot double count.
func (r *Reconciler) creditLocked(d models.Donation) []Toast {
	id := r.featuredID
	named := d.ChallengeID != nil && *d.ChallengeID != ""
	if named {
		id = *d.ChallengeID
	}
	if id == "" {
		return nil
	}

	c, ok := r.active[id]
	if !ok {
		if named && d.ChallengeTotalCents > r.pending[id] {
			r.pending[id] = d.ChallengeTotalCents
		}
		return nil
	}
	if !named && c.Status == models.ChallengeCompleted {
		return nil
	}

	if d.ChallengeTotalCents > 0 {
		if d.ChallengeTotalCents > c.CurrentCents {
			c.CurrentCents = d.ChallengeTotalCents
		}
	} else {
		c.CurrentCents += d.AmountCents
	}
	if c.Reached() {
		return r.markReachedLocked(c)
	}
	return nil
}

// markReachedLocked announces that c met its target, once per challenge.
func (r *Reconciler) markReachedLocked(c *models.Challenge) []Toast {
	if r.notified[c.ID] {
		return nil
	}
	r.notified[c.ID] = true
	r.log.Append(r.systemEntry(fmt.Sprintf("TARGET REACHED! Time to %s!", strings.ToLower(c.Name))))
	return []Toast{{Kind: ToastSuccess, Title: "TARGET REACHED!", Description: c.Name}}
}

func (r *Reconciler) applyChallengeLocked(change models.ChallengeChange) []Toast {
	c := change.Challenge
	if c.ID == "" {
		return nil
	}
	if change.Removed {
		r.rejected.add(c.ID)
		r.dropRequestedLocked(c.ID)
		return nil
	}
	if r.rejected.has(c.ID) {
		return nil
	}

	switch c.Status {
	case models.ChallengeRequested:
		if _, ok := r.active[c.ID]; ok {
			return nil
		}
		for i := range r.requested {
			if r.requested[i].ID == c.ID {
				r.requested[i] = c
				return nil
			}
		}
		r.requested = append(r.requested, c)
		return nil
	case models.ChallengeActive, models.ChallengeCompleted:
		return r.upsertActiveLocked(c, true)
	}
	return nil
}

// upsertActiveLocked inserts or refreshes an approved challenge. Totals
// never move down and completed never reverts.
func (r *Reconciler) upsertActiveLocked(c models.Challenge, announce bool) []Toast {
	var toasts []Toast

	existing, ok := r.active[c.ID]
	if !ok {
		cp := c
		if total, ok := r.pending[c.ID]; ok {
			if total > cp.CurrentCents {
				cp.CurrentCents = total
			}
			delete(r.pending, c.ID)
		}
		existing = &cp
		r.active[c.ID] = existing
		r.order = append(r.order, c.ID)
		r.dropRequestedLocked(c.ID)

		if r.featuredDoneLocked() {
			r.featuredID = c.ID
		}
		if announce && c.Status == models.ChallengeActive {
			msg := fmt.Sprintf("New challenge activated: %s (%s)", c.Name, models.FormatCents(c.TargetCents))
			r.log.Append(r.systemEntry(msg))
			toasts = append(toasts, Toast{Kind: ToastInfo, Title: "New challenge activated", Description: c.Name})
		}
	} else {
		existing.Name = c.Name
		if c.TargetCents > 0 {
			existing.TargetCents = c.TargetCents
		}
		if c.CurrentCents > existing.CurrentCents {
			existing.CurrentCents = c.CurrentCents
		}
		if existing.Status != models.ChallengeCompleted {
			existing.Status = c.Status
		}
		if c.ApprovedAt != nil {
			existing.ApprovedAt = c.ApprovedAt
		}
		if c.CompletedAt != nil {
			existing.CompletedAt = c.CompletedAt
		}
	}

	if existing.Status == models.ChallengeCompleted || existing.Reached() {
		toasts = append(toasts, r.markReachedLocked(existing)...)
	}
	return toasts
}

// seedChallengeLocked loads a challenge fetched at mount without
// announcing anything about it.
func (r *Reconciler) seedChallengeLocked(c models.Challenge) {
	if _, ok := r.active[c.ID]; ok {
		return
	}
	cp := c
	r.active[c.ID] = &cp
	r.order = append(r.order, c.ID)
	if cp.Status == models.ChallengeCompleted || cp.Reached() {
		r.notified[c.ID] = true
	}
}

func (r *Reconciler) seedMessageLocked(m models.ChatMessage) {
	if m.Kind == models.MessageKindDonation {
		r.seenDono.add(m.ID)
	} else {
		r.seenChat.add(m.ID)
	}
	r.log.Append(r.messageEntry(m))
}

func (r *Reconciler) featuredDoneLocked() bool {
	c, ok := r.active[r.featuredID]
	if !ok {
		return true
	}
	return c.Status == models.ChallengeCompleted || r.notified[c.ID]
}

func (r *Reconciler) dropRequestedLocked(id string) {
	for i := range r.requested {
		if r.requested[i].ID == id {
			r.requested = append(r.requested[:i], r.requested[i+1:]...)
			return
		}
	}
}

func (r *Reconciler) applyStreamLocked(s models.StreamStatus) []Toast {
	if s.ChannelID != "" && s.ChannelID != r.cfg.ChannelID {
		return nil
	}
	wasLive := r.isLive
	r.isLive = s.IsLive
	r.viewerCount = max(s.ViewerCount, 0)

	switch {
	case s.IsLive && !wasLive:
		return []Toast{{Kind: ToastInfo, Title: "Stream is live"}}
	case !s.IsLive && wasLive:
		return []Toast{{Kind: ToastInfo, Title: "Stream ended"}}
	}
	return nil
}

func styleKey(userID, username string) string {
	if userID != "" {
		return userID
	}
	return username
}

func (r *Reconciler) messageEntry(m models.ChatMessage) Entry {
	if m.Kind == models.MessageKindSystem {
		e := r.systemEntry(m.Text)
		e.ID = m.ID
		e.At = m.CreatedAt
		return e
	}
	userID := ""
	if m.UserID != nil {
		userID = *m.UserID
	}
	if m.Kind == models.MessageKindDonation {
		return r.donationEntry(m.ID, userID, m.Username, m.AmountCents, m.Text, m.CreatedAt, false)
	}

	style := r.palette.For(styleKey(userID, m.Username))
	emoji := m.Emoji
	if emoji == "" {
		emoji = style.Emoji
	}
	return Entry{
		ID:            m.ID,
		Kind:          models.MessageKindChat,
		Username:      m.Username,
		Text:          m.Text,
		Emoji:         emoji,
		AvatarColor:   style.AvatarColor,
		UsernameColor: style.UsernameColor,
		MessageColor:  style.MessageColor,
		At:            m.CreatedAt,
	}
}

func (r *Reconciler) donationEntry(id, userID, username string, cents int64, message string, at time.Time, pending bool) Entry {
	style := r.palette.For(styleKey(userID, username))
	if message == "" {
		message = "contributed"
	}
	if at.IsZero() {
		at = time.Now()
	}
	return Entry{
		ID:            id,
		Kind:          models.MessageKindDonation,
		Username:      username,
		Text:          message,
		Emoji:         style.Emoji,
		AmountCents:   cents,
		AvatarColor:   style.AvatarColor,
		UsernameColor: style.UsernameColor,
		MessageColor:  r.palette.messageDefault(),
		Pending:       pending,
		At:            at,
	}
}

func (r *Reconciler) systemEntry(text string) Entry {
	sys := r.palette.System
	return Entry{
		Kind:          models.MessageKindSystem,
		Username:      SystemUsername,
		Text:          text,
		Emoji:         sys.Emoji,
		AvatarColor:   sys.AvatarColor,
		UsernameColor: sys.UsernameColor,
		MessageColor:  sys.MessageColor,
		At:            time.Now(),
	}
}
