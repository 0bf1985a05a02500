package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// StatusMsg updates the connection status line. Send it to the program
// with Program.Send from the session callbacks.
type StatusMsg struct {
	Connected bool
	Text      string
}

// QuitMsg asks the watch view to shut down, e.g. when the session fails.
type QuitMsg struct{}

type tickMsg time.Time

// PlayerView is the read side of the player shown in the watch screen.
type PlayerView interface {
	CurrentTime() float64
	Paused() bool
	Source() string
}

// WatchControls carries the host's playback actions. Client views leave
// it nil and render read-only.
type WatchControls struct {
	TogglePlay func()
	SeekBy     func(delta float64)
	Reset      func()
}

// WatchModel is the interactive watch-session screen. The host gets
// playback keys, the client mirrors whatever arrives from the wire.
type WatchModel struct {
	player   PlayerView
	controls *WatchControls
	role     string

	status    string
	connected bool
	quitting  bool
}

func NewWatchModel(role string, player PlayerView, controls *WatchControls) WatchModel {
	return WatchModel{
		player:   player,
		controls: controls,
		role:     role,
		status:   "Disconnected",
	}
}

func (m WatchModel) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case " ":
			if m.controls != nil && m.controls.TogglePlay != nil {
				m.controls.TogglePlay()
			}
		case "left":
			if m.controls != nil && m.controls.SeekBy != nil {
				m.controls.SeekBy(-10)
			}
		case "right":
			if m.controls != nil && m.controls.SeekBy != nil {
				m.controls.SeekBy(10)
			}
		case "r":
			if m.controls != nil && m.controls.Reset != nil {
				m.controls.Reset()
			}
		}

	case StatusMsg:
		m.connected = msg.Connected
		m.status = msg.Text

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit

	case tickMsg:
		return m, tick()
	}

	return m, nil
}

func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(fmt.Sprintf("\n%s %s\n\n", IconVideo, TitleStyle.Render("WatchWire")))

	statusStyle := WarningStyle
	if m.connected {
		statusStyle = SuccessStyle
	}
	b.WriteString(fmt.Sprintf("%s %s\n", IconPeer, statusStyle.Render(m.status)))

	source := m.player.Source()
	if source == "" {
		source = MutedStyle.Render("no video loaded")
	}
	b.WriteString(fmt.Sprintf("%s %s\n", IconVideo, source))

	stateIcon := IconPlay
	stateText := "Playing"
	if m.player.Paused() {
		stateIcon = IconPause
		stateText = "Paused"
	}
	b.WriteString(fmt.Sprintf("%s %s at %s\n", stateIcon, stateText, formatClock(m.player.CurrentTime())))

	b.WriteString("\n")
	if m.controls != nil {
		b.WriteString(MutedStyle.Render("space play/pause · ←/→ seek 10s · r restart · q quit"))
	} else {
		b.WriteString(MutedStyle.Render("mirroring host · q quit"))
	}
	b.WriteString("\n")

	return b.String()
}

func formatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	d := time.Duration(seconds * float64(time.Second))
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
