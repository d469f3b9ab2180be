// Package tui is an interactive terminal console for driving a Player.
// It polls the player for stats and translates keystrokes into transport
// commands.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zsiec/loopview/internal/player"
)

const (
	refreshInterval = 250 * time.Millisecond
	seekStep        = 5.0
	volumeStep      = 5
	barWidth        = 44
)

type tickMsg time.Time

// ErrorMsg carries an asynchronous playback error into the view. Event
// callbacks send it through the program's Send method.
type ErrorMsg struct{ Err error }

// Model is the bubbletea model wrapping a Player.
type Model struct {
	player *player.Player

	stats   player.Stats
	lastErr error
	width   int
}

func NewModel(p *player.Player) *Model {
	return &Model{player: p}
}

func (m *Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		m.stats = m.player.Stats()
		return m, tick()

	case ErrorMsg:
		m.lastErr = msg.Err
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.player.Stop()
		return m, tea.Quit
	case " ":
		if m.player.State() == player.StateStopped {
			if err := m.player.Play(); err != nil {
				m.lastErr = err
			}
		} else {
			m.player.TogglePause()
		}
	case "s":
		m.player.Stop()
	case "left":
		m.player.Seek(m.player.Position() - seekStep)
	case "right":
		m.player.Seek(m.player.Position() + seekStep)
	case "+", "=":
		m.player.SetVolume(m.player.Volume() + volumeStep)
	case "-":
		m.player.SetVolume(m.player.Volume() - volumeStep)
	case "l":
		m.player.SetLoop(!m.player.Loop())
	}
	m.stats = m.player.Stats()
	return m, nil
}

func (m *Model) View() string {
	var b strings.Builder

	title := "loopview"
	if m.stats.Path != "" {
		title = fmt.Sprintf("loopview: %s", m.stats.Path)
	}
	b.WriteString(headerStyle.Render(title))
	b.WriteString("\n")

	b.WriteString(panelStyle.Render(m.transportView()))
	b.WriteString("\n")
	b.WriteString(panelStyle.Render(m.pipelineView()))
	b.WriteString("\n")

	if m.lastErr != nil {
		b.WriteString(errorStyle.Render("  " + m.lastErr.Error()))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(
		"space play/pause · s stop · ←/→ seek · +/- volume · l loop · q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) transportView() string {
	st := m.stats
	rows := []string{
		lipgloss.JoinHorizontal(lipgloss.Left,
			stateStyle(st.State).Render(strings.ToUpper(st.State)),
			labelStyle.Render("   loop "),
			valueStyle.Render(onOff(st.Loop)),
			labelStyle.Render("   volume "),
			valueStyle.Render(fmt.Sprintf("%d%%", st.Volume)),
		),
		progressBar(st.Position, st.Duration),
		lipgloss.JoinHorizontal(lipgloss.Left,
			valueStyle.Render(formatClock(st.Position)),
			labelStyle.Render(" / "),
			valueStyle.Render(formatClock(st.Duration)),
		),
	}
	return strings.Join(rows, "\n")
}

func (m *Model) pipelineView() string {
	st := m.stats
	row := func(label string, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-18s", label)) + valueStyle.Render(value)
	}
	rows := []string{
		row("frames rendered", fmt.Sprintf("%d (dropped %d)", st.FramesRendered, st.FramesDropped)),
		row("frames decoded", fmt.Sprintf("%d (errors %d)", st.FramesDecoded, st.DecodeErrors)),
		row("packets demuxed", fmt.Sprintf("%d", st.PacketsDemuxed)),
		row("audio played", fmt.Sprintf("%s (underruns %d)", formatBytes(st.AudioBytesPlayed), st.AudioUnderruns)),
		row("clock drift", fmt.Sprintf("%.1f ms", st.LastClockDriftMs)),
		row("render delay", fmt.Sprintf("%.1f ms", st.LastRenderDelayMs)),
	}
	if len(st.QueueDepths) > 0 {
		var parts []string
		for _, name := range []string{"video_packets", "audio_packets", "video_frames", "audio_frames"} {
			if depth, ok := st.QueueDepths[name]; ok {
				parts = append(parts, fmt.Sprintf("%s=%d", shortQueueName(name), depth))
			}
		}
		rows = append(rows, row("queues", strings.Join(parts, " ")))
	}
	return strings.Join(rows, "\n")
}

func progressBar(position, duration float64) string {
	filled := 0
	if duration > 0 {
		frac := position / duration
		if frac < 0 {
			frac = 0
		}
		if frac > 1 {
			frac = 1
		}
		filled = int(frac * barWidth)
	}
	return barFilledStyle.Render(strings.Repeat("█", filled)) +
		barEmptyStyle.Render(strings.Repeat("░", barWidth-filled))
}

func formatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	d := time.Duration(seconds * float64(time.Second))
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func shortQueueName(name string) string {
	switch name {
	case "video_packets":
		return "vpkt"
	case "audio_packets":
		return "apkt"
	case "video_frames":
		return "vfrm"
	case "audio_frames":
		return "abuf"
	default:
		return name
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
