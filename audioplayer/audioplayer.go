package audioplayer

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const progressBarWidth = 30

// KeyMap defines the keybindings for the audio player
type KeyMap struct {
	Toggle key.Binding
	Stop   key.Binding
	Save   key.Binding
}

// DefaultKeyMap returns a set of default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Toggle: key.NewBinding(
			key.WithKeys(" ", "p"),
			key.WithHelp("space", "play/pause"),
		),
		Stop: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stop"),
		),
		Save: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "save wav"),
		),
	}
}

// TickMsg refreshes the progress line while audio plays.
type TickMsg time.Time

// EndedMsg is sent once when the playing buffer reaches its end.
type EndedMsg struct{}

// Model renders the progress line of a Controller.
type Model struct {
	KeyMap      KeyMap
	State       State
	ElapsedTime float64
	TotalTime   float64
	Width       int
	Focused     bool

	player *Controller
}

// New creates a progress line bound to player.
func New(player *Controller) Model {
	return Model{
		KeyMap: DefaultKeyMap(),
		Width:  progressBarWidth,
		player: player,
	}
}

// Init initializes the audio player model
func (m Model) Init() tea.Cmd {
	return nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// StartTicking begins periodic refreshes. Call it after playback starts.
func (m Model) StartTicking() tea.Cmd {
	return tickCmd()
}

// Sync copies the controller state into the model.
func (m *Model) Sync() {
	if m.player == nil {
		return
	}
	m.State = m.player.State()
	m.ElapsedTime = m.player.Position()
	m.TotalTime = m.player.Duration()
}

// Update handles updating the audio player model
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if _, ok := msg.(TickMsg); !ok {
		return m, nil
	}
	m.Sync()
	if m.player != nil && m.player.Finished() {
		return m, func() tea.Msg { return EndedMsg{} }
	}
	if m.State == Playing {
		return m, tickCmd()
	}
	return m, nil
}

// View renders the audio player UI
func (m Model) View() string {
	var audioLine strings.Builder

	audioIcon := "🔈"
	switch m.State {
	case Playing:
		audioIcon = "🔊"
	case Paused:
		audioIcon = "⏸"
	}

	timestampStr := fmt.Sprintf("%s / %s", formatDuration(m.ElapsedTime), formatDuration(m.TotalTime))

	progressBar := strings.Repeat("╌", m.Width)
	if m.State == Playing || m.State == Paused {
		progress := 0.0
		if m.TotalTime > 0 {
			progress = m.ElapsedTime / m.TotalTime
		}
		progress = math.Min(1.0, math.Max(0.0, progress))
		filledWidth := int(progress * float64(m.Width))
		progressBar = strings.Repeat("━", filledWidth) + strings.Repeat("╌", m.Width-filledWidth)
	}

	helpText := "[Space]play"
	switch m.State {
	case Playing:
		helpText = "[Space]pause [S]top"
	case Paused:
		helpText = "[Space]resume [S]top"
	}

	audioLine.WriteString(audioIcon)
	audioLine.WriteString(" ")
	audioLine.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(timestampStr))
	audioLine.WriteString(" ")
	audioLine.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render(progressBar))
	audioLine.WriteString(" ")
	audioLine.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Render(helpText))

	return audioLine.String()
}

// Focus sets focus on the audio player
func (m *Model) Focus() {
	m.Focused = true
}

// Blur removes focus from the audio player
func (m *Model) Blur() {
	m.Focused = false
}

// IsFocused returns whether the audio player is focused
func (m Model) IsFocused() bool {
	return m.Focused
}

// formatDuration formats a duration in seconds as MM:SS
func formatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	minutes := int(seconds) / 60
	remainingSeconds := int(seconds) % 60
	return fmt.Sprintf("%02d:%02d", minutes, remainingSeconds)
}
