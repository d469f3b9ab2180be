package tui

import "github.com/charmbracelet/lipgloss"

// Dark playback-console palette.
var (
	primary = lipgloss.Color("#FF6B35")
	accent  = lipgloss.Color("#1E88E5")
	success = lipgloss.Color("#4CAF50")
	warning = lipgloss.Color("#FFB74D")
	alert   = lipgloss.Color("#F44336")

	text       = lipgloss.Color("#E0E0E0")
	textBright = lipgloss.Color("#FFFFFF")
	muted      = lipgloss.Color("#90A4AE")
	offline    = lipgloss.Color("#424242")

	panelBg    = lipgloss.Color("#161B26")
	headerBg   = lipgloss.Color("#1C2128")
	borderDark = lipgloss.Color("#30363D")
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(textBright).
			Background(headerBg).
			Padding(0, 2).
			Bold(true).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primary)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderDark).
			Background(panelBg).
			Foreground(text).
			Padding(0, 2).
			Width(56)

	labelStyle = lipgloss.NewStyle().
			Foreground(muted)

	valueStyle = lipgloss.NewStyle().
			Foreground(textBright).
			Bold(true)

	playingStyle = lipgloss.NewStyle().
			Foreground(success).
			Bold(true)

	pausedStyle = lipgloss.NewStyle().
			Foreground(warning).
			Bold(true)

	stoppedStyle = lipgloss.NewStyle().
			Foreground(offline).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(alert).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(muted).
			Padding(0, 2)

	barFilledStyle = lipgloss.NewStyle().Foreground(accent)
	barEmptyStyle  = lipgloss.NewStyle().Foreground(borderDark)
)

func stateStyle(state string) lipgloss.Style {
	switch state {
	case "playing":
		return playingStyle
	case "paused":
		return pausedStyle
	default:
		return stoppedStyle
	}
}
