// Package tui renders a live channel in the terminal: chat log, challenge
// progress and creator controls, driven by a reconciler.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dumdummies/internal/models"
	"dumdummies/internal/reconciler"
)

const (
	actionTimeout = 10 * time.Second
	toastTTL      = 5 * time.Second
	maxToasts     = 3
	minChatLines  = 5
)

// Channel is the part of the reconciler the view drives.
type Channel interface {
	Snapshot() reconciler.Snapshot
	SendChat(ctx context.Context, text string) error
	Donate(ctx context.Context, amountCents int64, message string) (*models.Donation, error)
	RequestChallenge(ctx context.Context, name string) (*models.Challenge, error)
	ApproveChallenge(ctx context.Context, challengeID string, targetCents int64) error
	RejectChallenge(ctx context.Context, challengeID string) error
	ClaimCreator(ctx context.Context) (bool, error)
	StartStream(ctx context.Context) error
	EndStream(ctx context.Context) error
	StreamKey(ctx context.Context) (string, error)
}

var _ Channel = (*reconciler.Reconciler)(nil)

type changedMsg struct{}

type toastMsg struct{ toast reconciler.Toast }

type connMsg struct {
	connected bool
	err       error
}

type expireToastMsg struct{ id int }

// actionDoneMsg carries an optional local toast. Failures are already
// reported by the reconciler.
type actionDoneMsg struct{ toast *reconciler.Toast }

// Bridge carries reconciler callbacks into the bubbletea loop. Wire
// Changed and Toast into reconciler.Config before mounting.
type Bridge struct {
	ch chan tea.Msg
}

func NewBridge() *Bridge {
	return &Bridge{ch: make(chan tea.Msg, 256)}
}

// Changed never blocks; a queued change already covers this one.
func (b *Bridge) Changed() {
	select {
	case b.ch <- changedMsg{}:
	default:
	}
}

func (b *Bridge) Toast(t reconciler.Toast) {
	select {
	case b.ch <- toastMsg{toast: t}:
	default:
	}
}

// Status reports websocket connection changes.
func (b *Bridge) Status(connected bool, err error) {
	select {
	case b.ch <- connMsg{connected: connected, err: err}:
	default:
	}
}

func (b *Bridge) wait() tea.Cmd {
	return func() tea.Msg { return <-b.ch }
}

type toastItem struct {
	id    int
	toast reconciler.Toast
}

// Model is the bubbletea model for one channel.
type Model struct {
	channel  Channel
	bridge   *Bridge
	username string

	snap      reconciler.Snapshot
	toasts    []toastItem
	nextToast int
	connected bool
	connErr   string

	input textinput.Model
	bar   progress.Model

	width  int
	height int
}

// New builds the view. username is shown in the header; empty means the
// viewer is watching anonymously.
func New(channel Channel, bridge *Bridge, username string) Model {
	ti := textinput.New()
	ti.Placeholder = "Say something, or /donate 5"
	ti.CharLimit = models.MaxChatMessageLength
	ti.Prompt = "› "
	ti.Focus()

	return Model{
		channel:  channel,
		bridge:   bridge,
		username: username,
		snap:     channel.Snapshot(),
		input:    ti,
		bar:      progress.New(progress.WithGradient("#B026FF", "#39FF14"), progress.WithWidth(40)),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.bridge.wait())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(msg.Width-6, 10)
		m.bar.Width = min(max(msg.Width-8, 10), 60)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case changedMsg:
		m.snap = m.channel.Snapshot()
		return m, m.bridge.wait()

	case toastMsg:
		expire := m.pushToast(msg.toast)
		return m, tea.Batch(expire, m.bridge.wait())

	case connMsg:
		m.connected = msg.connected
		m.connErr = ""
		if msg.err != nil {
			m.connErr = msg.err.Error()
		}
		return m, m.bridge.wait()

	case expireToastMsg:
		for i, t := range m.toasts {
			if t.id == msg.id {
				m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
				break
			}
		}
		return m, nil

	case actionDoneMsg:
		m.snap = m.channel.Snapshot()
		var expire tea.Cmd
		if msg.toast != nil {
			expire = m.pushToast(*msg.toast)
		}
		return m, expire
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) pushToast(t reconciler.Toast) tea.Cmd {
	m.nextToast++
	id := m.nextToast
	m.toasts = append(m.toasts, toastItem{id: id, toast: t})
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
	return tea.Tick(toastTTL, func(time.Time) tea.Msg { return expireToastMsg{id: id} })
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	line := m.input.Value()
	m.input.SetValue("")

	cmd, err := ParseCommand(line)
	if errors.Is(err, errEmptyLine) {
		return m, nil
	}
	if err != nil {
		expire := m.pushToast(reconciler.Toast{Kind: reconciler.ToastError, Title: err.Error()})
		return m, expire
	}
	if cmd.Kind == CmdQuit {
		return m, tea.Quit
	}

	run, err := m.action(cmd)
	if err != nil {
		expire := m.pushToast(reconciler.Toast{Kind: reconciler.ToastError, Title: err.Error()})
		return m, expire
	}
	return m, run
}

// requestedAt resolves a 1-based index into the requested list shown on
// screen.
func (m Model) requestedAt(n int) (models.Challenge, error) {
	if n < 1 || n > len(m.snap.Requested) {
		return models.Challenge{}, fmt.Errorf("no requested challenge #%d", n)
	}
	return m.snap.Requested[n-1], nil
}

// action returns the tea.Cmd running cmd against the channel.
func (m Model) action(cmd Command) (tea.Cmd, error) {
	ch := m.channel
	var do func(ctx context.Context) *reconciler.Toast

	switch cmd.Kind {
	case CmdChat:
		do = func(ctx context.Context) *reconciler.Toast {
			_ = ch.SendChat(ctx, cmd.Text)
			return nil
		}
	case CmdDonate:
		do = func(ctx context.Context) *reconciler.Toast {
			_, _ = ch.Donate(ctx, cmd.AmountCents, cmd.Text)
			return nil
		}
	case CmdRequest:
		do = func(ctx context.Context) *reconciler.Toast {
			_, _ = ch.RequestChallenge(ctx, cmd.Text)
			return nil
		}
	case CmdApprove, CmdReject:
		target, err := m.requestedAt(cmd.Index)
		if err != nil {
			return nil, err
		}
		if cmd.Kind == CmdApprove {
			do = func(ctx context.Context) *reconciler.Toast {
				_ = ch.ApproveChallenge(ctx, target.ID, cmd.AmountCents)
				return nil
			}
		} else {
			do = func(ctx context.Context) *reconciler.Toast {
				_ = ch.RejectChallenge(ctx, target.ID)
				return nil
			}
		}
	case CmdClaim:
		do = func(ctx context.Context) *reconciler.Toast {
			_, _ = ch.ClaimCreator(ctx)
			return nil
		}
	case CmdStart:
		do = func(ctx context.Context) *reconciler.Toast {
			_ = ch.StartStream(ctx)
			return nil
		}
	case CmdEnd:
		do = func(ctx context.Context) *reconciler.Toast {
			_ = ch.EndStream(ctx)
			return nil
		}
	case CmdKey:
		do = func(ctx context.Context) *reconciler.Toast {
			key, err := ch.StreamKey(ctx)
			if err != nil {
				return nil
			}
			return &reconciler.Toast{Kind: reconciler.ToastInfo, Title: "Stream key", Description: key}
		}
	default:
		return nil, errors.New("unsupported command")
	}

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{toast: do(ctx)}
	}, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.header())
	b.WriteString("\n")
	featured := m.featuredPanel()
	b.WriteString(featured)
	b.WriteString("\n")
	lists := m.challengeLists()
	if lists != "" {
		b.WriteString(lists)
		b.WriteString("\n")
	}

	used := lipgloss.Height(featured) + lipgloss.Height(lists) + len(m.toasts) + 5
	b.WriteString(m.chat(max(m.height-used, minChatLines)))

	for _, t := range m.toasts {
		b.WriteString("\n")
		b.WriteString(renderToast(t.toast))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(helpLine))
	return b.String()
}

func (m Model) header() string {
	title := m.snap.Title
	if title == "" {
		title = "DumDummies"
	}
	parts := []string{titleStyle.Render(title)}
	if m.snap.IsLive {
		parts = append(parts, liveStyle.Render("● LIVE"))
	} else {
		parts = append(parts, offStyle.Render("OFFLINE"))
	}
	parts = append(parts, fmt.Sprintf("👀 %d", m.snap.ViewerCount))
	if m.snap.IsCreator {
		parts = append(parts, badgeStyle.Render("CREATOR"))
	}

	who := "watching anonymously"
	if m.username != "" {
		who = "@" + m.username
	}
	conn := "connecting…"
	if m.connected {
		conn = "connected"
	} else if m.connErr != "" {
		conn = "reconnecting: " + m.connErr
	}
	parts = append(parts, mutedStyle.Render(who+" · "+conn))
	return strings.Join(parts, "  ")
}

func (m Model) featuredPanel() string {
	f := m.snap.Featured
	if f == nil {
		return panelStyle.Render(mutedStyle.Render("No active challenge. /request one!"))
	}
	pct := 0.0
	if f.TargetCents > 0 {
		pct = min(float64(f.CurrentCents)/float64(f.TargetCents), 1)
	}
	lines := []string{
		titleStyle.Render("🔥 " + f.Name),
		m.bar.ViewAs(pct),
		fmt.Sprintf("%s / %s", models.FormatCents(f.CurrentCents), models.FormatCents(f.TargetCents)),
	}
	if f.Reached {
		lines = append(lines, reachedStyle.Render("🎉 TARGET REACHED!"))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) challengeLists() string {
	var lines []string
	featuredID := ""
	if m.snap.Featured != nil {
		featuredID = m.snap.Featured.ID
	}
	var others []string
	for _, c := range m.snap.Active {
		if c.ID == featuredID {
			continue
		}
		others = append(others, fmt.Sprintf("  %s  %s / %s", c.Name,
			models.AbbreviateCents(c.CurrentCents), models.AbbreviateCents(c.TargetCents)))
	}
	if len(others) > 0 {
		lines = append(lines, sectionStyle.Render("Also active"))
		lines = append(lines, others...)
	}
	if len(m.snap.Requested) > 0 {
		lines = append(lines, sectionStyle.Render("Requested"))
		for i, c := range m.snap.Requested {
			lines = append(lines, fmt.Sprintf("  %d. %s", i+1, c.Name))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) chat(limit int) string {
	entries := m.snap.Messages
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	if len(entries) == 0 {
		return mutedStyle.Render("Chat is quiet…")
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, renderEntry(e))
	}
	return strings.Join(lines, "\n")
}

func renderEntry(e reconciler.Entry) string {
	var line string
	switch e.Kind {
	case models.MessageKindSystem:
		line = systemStyle.Render(e.Emoji + " " + e.Text)
	case models.MessageKindDonation:
		head := donationStyle.Render(fmt.Sprintf("💸 %s donated %s", e.Username, models.FormatCents(e.AmountCents)))
		if e.Text != "" {
			head += ": " + colored(e.MessageColor, e.Text)
		}
		line = head
	default:
		line = fmt.Sprintf("%s %s: %s", e.Emoji, colored(e.UsernameColor, e.Username), colored(e.MessageColor, e.Text))
	}
	if e.Pending {
		return pendingStyle.Render(line)
	}
	return line
}

func renderToast(t reconciler.Toast) string {
	style, ok := toastStyles[t.Kind]
	if !ok {
		style = mutedStyle
	}
	s := t.Title
	if t.Description != "" {
		s += " · " + t.Description
	}
	return style.Render("▌ " + s)
}
