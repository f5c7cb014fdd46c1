package tui

import (
	"github.com/charmbracelet/lipgloss"

	"dumdummies/internal/reconciler"
)

var (
	neonPurple = lipgloss.Color("#B026FF")
	neonGreen  = lipgloss.Color("#39FF14")
	neonRed    = lipgloss.Color("#FF073A")
	neonYellow = lipgloss.Color("#FFFF33")
	dim        = lipgloss.Color("#777777")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(neonPurple)
	liveStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#000000")).Background(neonRed).Padding(0, 1)
	offStyle   = lipgloss.NewStyle().Foreground(dim).Padding(0, 1)
	badgeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#000000")).Background(neonGreen).Padding(0, 1)
	mutedStyle = lipgloss.NewStyle().Foreground(dim)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(neonPurple).
			Padding(0, 1)
	reachedStyle = lipgloss.NewStyle().Bold(true).Foreground(neonYellow)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(neonGreen)

	systemStyle   = lipgloss.NewStyle().Bold(true).Foreground(neonYellow)
	donationStyle = lipgloss.NewStyle().Bold(true).Foreground(neonGreen)
	pendingStyle  = lipgloss.NewStyle().Faint(true)

	toastStyles = map[reconciler.ToastKind]lipgloss.Style{
		reconciler.ToastInfo:     lipgloss.NewStyle().Foreground(lipgloss.Color("#00FFFF")),
		reconciler.ToastSuccess:  lipgloss.NewStyle().Foreground(neonGreen),
		reconciler.ToastError:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6700")),
		reconciler.ToastSecurity: lipgloss.NewStyle().Bold(true).Foreground(neonRed),
	}
)

func colored(hex, s string) string {
	if hex == "" {
		return s
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render(s)
}
