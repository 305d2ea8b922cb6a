// Package settings is the panel where the reader enters a personal API key.
package settings

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SavedMsg carries a newly entered key.
type SavedMsg struct{ Key string }

// ClearedMsg asks for the stored key to be removed.
type ClearedMsg struct{}

// ClosedMsg is sent when the panel is dismissed without changes.
type ClosedMsg struct{}

// Model represents the settings panel state
type Model struct {
	Width   int
	Height  int
	Focused bool

	// Source describes where the active key comes from, e.g. "environment".
	Source string
	// Masked is the active key with all but its edges hidden.
	Masked string
	// Notice is shown above the input, e.g. after a rejected key.
	Notice string

	input textinput.Model
}

// New creates a new settings model
func New() Model {
	ti := textinput.New()
	ti.Placeholder = "paste API key"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '•'
	ti.CharLimit = 256
	return Model{input: ti}
}

// Init initializes the settings model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles updating the settings model
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width / 2
		m.Height = msg.Height / 2
		m.input.Width = max(m.Width-8, 10)
		return m, nil
	case tea.KeyMsg:
		if !m.Focused {
			return m, nil
		}
		switch msg.Type {
		case tea.KeyEsc:
			m.Blur()
			return m, func() tea.Msg { return ClosedMsg{} }
		case tea.KeyEnter:
			key := strings.TrimSpace(m.input.Value())
			m.Blur()
			if key == "" {
				return m, func() tea.Msg { return ClearedMsg{} }
			}
			return m, func() tea.Msg { return SavedMsg{Key: key} }
		}
	}

	if !m.Focused {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the settings panel
func (m Model) View() string {
	if !m.Focused {
		return ""
	}

	style := lipgloss.NewStyle().
		Width(m.Width).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2)

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("API Key"))
	b.WriteString("\n\n")
	if m.Notice != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Render(m.Notice))
		b.WriteString("\n\n")
	}
	if m.Masked != "" {
		b.WriteString("Current: " + m.Masked)
		if m.Source != "" {
			b.WriteString(" (" + m.Source + ")")
		}
		b.WriteString("\n\n")
	} else {
		b.WriteString("Current: none\n\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("241")).
		Render("Enter to save (empty clears) • Esc to close"))

	return style.Render(b.String())
}

// Value returns the text typed so far.
func (m Model) Value() string {
	return m.input.Value()
}

// Focus sets focus on the settings panel
func (m *Model) Focus() {
	m.Focused = true
	m.input.Reset()
	m.input.Focus()
}

// Blur removes focus from the settings panel
func (m *Model) Blur() {
	m.Focused = false
	m.input.Blur()
	m.input.Reset()
}

// IsFocused returns whether the settings panel is focused
func (m Model) IsFocused() bool {
	return m.Focused
}
