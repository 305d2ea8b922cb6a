// Package novelcast is a terminal reader that retrieves web-novel chapters,
// translates them through the Gemini API and reads them aloud.
package novelcast

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/tmc/novelcast/audioplayer"
	"github.com/tmc/novelcast/novel"
	"github.com/tmc/novelcast/settings"
)

// Option defines a functional option for configuring the Model.
type Option func(*Model) error

type focusArea int

const (
	focusInput focusArea = iota
	focusContent
)

// opDoneMsg reports the end of a controller operation run in the background.
type opDoneMsg struct {
	op  string
	err error
}

// Model is the bubbletea model of the reader.
type Model struct {
	ctx     context.Context
	ctrl    *Controller
	reader  Reader
	library Library
	// keyStore backs the API key panel.
	keyStore KeyStore
	output   audioplayer.Output

	initialInput string
	initialMode  novel.Mode
	wavDir       string

	keys          KeyMap
	input         textarea.Model
	viewport      viewport.Model
	spinner       spinner.Model
	help          help.Model
	settingsPanel settings.Model
	audio         audioplayer.Model

	width, height int
	focus         focusArea
	cursor        int
	notice        string
	lastStory     *novel.StoryContent
	quitting      bool
}

// New creates a new Model with default settings and applies options.
func New(opts ...Option) (*Model, error) {
	ta := textarea.New()
	ta.Placeholder = "Paste a chapter or book URL..."
	ta.Prompt = "┃ "
	ta.CharLimit = 0
	ta.ShowLineNumbers = false
	ta.SetWidth(60)
	ta.SetHeight(1)
	ta.KeyMap.InsertNewline.SetEnabled(false)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	m := &Model{
		ctx:           context.Background(),
		initialMode:   novel.ModeURL,
		wavDir:        ".",
		keys:          DefaultKeyMap(),
		input:         ta,
		viewport:      viewport.New(60, 10),
		spinner:       s,
		help:          help.New(),
		settingsPanel: settings.New(),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}
	if m.reader == nil {
		return nil, errors.New("novelcast: a reader is required")
	}

	var player *audioplayer.Controller
	if m.output != nil {
		player = audioplayer.NewController(m.output)
	}
	m.ctrl = NewController(m.reader, player, m.library, m.keyStore)
	m.audio = audioplayer.New(player)
	m.keys.Audio = m.audio.KeyMap
	return m, nil
}

// Controller exposes the state machine behind the model.
func (m *Model) Controller() *Controller { return m.ctrl }

// InitModel restores saved state and prepares the model to run.
func (m *Model) InitModel() (tea.Model, error) {
	m.ctrl.Restore()
	snap := m.ctrl.Snapshot()
	if m.initialInput != "" {
		m.ctrl.SetInput(m.initialInput)
		m.ctrl.SetMode(m.initialMode)
		snap = m.ctrl.Snapshot()
	}
	m.setMode(snap.Mode)
	m.input.SetValue(snap.Input)
	m.input.Focus()
	m.focus = focusInput
	if snap.Story != nil || snap.Book != nil {
		m.focus = focusContent
		m.input.Blur()
	}
	m.refreshContent(true)
	log.Debug("model initialized", "book", snap.Book != nil, "chapter", snap.Story != nil, "audio", m.output != nil)
	return m, nil
}

// Init is the initial command called by Bubble Tea.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textarea.Blink)
}

// run executes fn off the event loop and reports completion as opDoneMsg.
func (m *Model) run(op string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	m.notice = ""
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.settingsPanel, _ = m.settingsPanel.Update(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case audioplayer.TickMsg:
		var cmd tea.Cmd
		m.audio, cmd = m.audio.Update(msg)
		return m, cmd

	case audioplayer.EndedMsg:
		m.ctrl.Stop()
		m.audio.Sync()
		return m, nil

	case opDoneMsg:
		return m, m.handleDone(msg)

	case settings.SavedMsg:
		if err := m.ctrl.SetAPIKey(msg.Key); err != nil {
			m.notice = err.Error()
		} else {
			m.notice = "API key saved"
		}
		return m, nil

	case settings.ClearedMsg:
		if err := m.ctrl.SetAPIKey(""); err != nil {
			m.notice = err.Error()
		} else {
			m.notice = "API key override removed"
		}
		return m, nil

	case settings.ClosedMsg:
		return m, nil

	case tea.KeyMsg:
		if m.settingsPanel.IsFocused() {
			var cmd tea.Cmd
			m.settingsPanel, cmd = m.settingsPanel.Update(msg)
			return m, cmd
		}
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	if m.focus == focusInput {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.ctrl.SetInput(m.input.Value())
		cmds = append(cmds, cmd)
	} else {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handleDone(msg opDoneMsg) tea.Cmd {
	m.audio.Sync()
	if msg.err != nil {
		log.Debug("operation ended", "op", msg.op, "err", msg.err)
		if errors.Is(msg.err, ErrBusy) || m.ctrl.State() != StateError {
			m.notice = msg.err.Error()
		}
	}
	if m.ctrl.SettingsRequested() {
		m.openSettings("The provider rejected the API key.")
	}
	snap := m.ctrl.Snapshot()
	switch msg.op {
	case "analyze":
		m.cursor = 0
		if snap.Book != nil {
			m.focusContent()
		}
	case "chapter":
		if msg.err == nil {
			m.focusContent()
			m.input.SetValue(snap.Input)
		}
	}
	m.refreshContent(snap.Story != m.lastStory)
	if snap.State == StatePlaying {
		return m.audio.StartTicking()
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		m.quitting = true
		if err := m.ctrl.Close(); err != nil {
			log.Warn("close audio", "err", err)
		}
		return tea.Quit, true
	case key.Matches(msg, k.Settings):
		m.openSettings("")
		return nil, true
	case key.Matches(msg, k.Focus):
		if m.focus == focusInput {
			m.focusContent()
		} else {
			m.focusInput()
		}
		return nil, true
	case key.Matches(msg, k.Mode):
		next := novel.ModeText
		if m.ctrl.Snapshot().Mode == novel.ModeText {
			next = novel.ModeURL
		}
		m.ctrl.SetMode(next)
		m.setMode(next)
		return nil, true
	case key.Matches(msg, k.Example):
		m.ctrl.UseExample()
		m.setMode(novel.ModeURL)
		m.input.SetValue(ExampleURL)
		m.focusInput()
		return nil, true
	case key.Matches(msg, k.Clear):
		if err := m.ctrl.ClearSaved(); err != nil {
			m.notice = err.Error()
			return nil, true
		}
		m.input.Reset()
		m.cursor = 0
		m.notice = "Saved book and chapter cleared"
		m.audio.Sync()
		m.refreshContent(true)
		m.focusInput()
		return nil, true
	case key.Matches(msg, k.Analyze):
		url := m.input.Value()
		return m.run("analyze", func(ctx context.Context) error { return m.ctrl.Analyze(ctx, url) }), true
	}

	if m.focus == focusInput {
		switch {
		case key.Matches(msg, k.Submit):
			m.ctrl.SetInput(m.input.Value())
			return m.run("chapter", m.ctrl.Submit), true
		case key.Matches(msg, k.Paste):
			text, err := clipboard.ReadAll()
			if err != nil {
				m.notice = "clipboard unavailable: " + err.Error()
				return nil, true
			}
			m.input.SetValue(text)
			m.ctrl.SetInput(text)
			return nil, true
		}
		return nil, false
	}
	return m.handleContentKey(msg)
}

func (m *Model) handleContentKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	k := m.keys
	snap := m.ctrl.Snapshot()

	if snap.Story == nil {
		if snap.Book == nil {
			return nil, false
		}
		switch {
		case key.Matches(msg, k.Up):
			if m.cursor > 0 {
				m.cursor--
			}
			m.refreshContent(false)
			return nil, true
		case key.Matches(msg, k.Down):
			if m.cursor < len(snap.Book.Chapters)-1 {
				m.cursor++
			}
			m.refreshContent(false)
			return nil, true
		case key.Matches(msg, k.Open):
			i := m.cursor
			return m.run("chapter", func(ctx context.Context) error { return m.ctrl.ReadChapter(ctx, i) }), true
		}
		return nil, false
	}

	switch {
	case key.Matches(msg, k.Audio.Toggle):
		return m.run("play", m.ctrl.TogglePlay), true
	case key.Matches(msg, k.Audio.Stop):
		m.ctrl.Stop()
		m.audio.Sync()
		return nil, true
	case key.Matches(msg, k.Audio.Save):
		path := filepath.Join(m.wavDir, fileSlug(snap.Story.Title)+".wav")
		if err := m.ctrl.SaveAudio(path); err != nil {
			m.notice = err.Error()
		} else {
			m.notice = "Audio saved to " + path
		}
		return nil, true
	case key.Matches(msg, k.Original):
		m.ctrl.ToggleOriginal()
		m.refreshContent(false)
		return nil, true
	case key.Matches(msg, k.Copy):
		if err := clipboard.WriteAll(snap.Story.TranslatedText); err != nil {
			m.notice = "clipboard unavailable: " + err.Error()
		} else {
			m.notice = "Translation copied"
		}
		return nil, true
	case key.Matches(msg, k.Next):
		return m.run("chapter", m.ctrl.NextChapter), true
	case key.Matches(msg, k.Previous):
		return m.run("chapter", m.ctrl.PreviousChapter), true
	case key.Matches(msg, k.Back):
		m.ctrl.BackToChapters()
		m.audio.Sync()
		if snap.Book != nil {
			if i := snap.Book.ChapterIndex(snap.Story.SourceURL); i >= 0 {
				m.cursor = i
			}
		}
		m.refreshContent(true)
		return nil, true
	}
	return nil, false
}

func (m *Model) openSettings(notice string) {
	masked, source := m.ctrl.KeyStatus()
	m.settingsPanel.Masked = masked
	m.settingsPanel.Source = source
	m.settingsPanel.Notice = notice
	m.settingsPanel.Focus()
	m.input.Blur()
}

func (m *Model) focusInput() {
	m.focus = focusInput
	m.input.Focus()
}

func (m *Model) focusContent() {
	m.focus = focusContent
	m.input.Blur()
}

func (m *Model) setMode(mode novel.Mode) {
	if mode == novel.ModeText {
		m.input.Placeholder = "Paste the chapter text..."
		m.input.SetHeight(5)
	} else {
		m.input.Placeholder = "Paste a chapter or book URL..."
		m.input.SetHeight(1)
	}
	m.resize(m.width, m.height)
}

func (m *Model) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width, m.height = width, height
	m.input.SetWidth(width - 2)
	m.help.Width = width
	m.audio.Width = min(progressBarWidth, max(width-40, 10))
	// title, book line, status, audio, help and borders
	chrome := m.input.Height() + 8
	m.viewport.Width = width
	m.viewport.Height = max(height-chrome, 3)
	m.refreshContent(false)
}

// refreshContent re-renders the body. top scrolls back to the beginning.
func (m *Model) refreshContent(top bool) {
	snap := m.ctrl.Snapshot()
	m.lastStory = snap.Story
	m.viewport.SetContent(m.renderBody(snap))
	switch {
	case top:
		m.viewport.GotoTop()
	case snap.Story == nil && snap.Book != nil:
		// keep the cursor visible in the chapter list
		line := m.cursor + bookHeaderLines(snap.Book, m.width)
		if line < m.viewport.YOffset {
			m.viewport.SetYOffset(line)
		} else if line >= m.viewport.YOffset+m.viewport.Height {
			m.viewport.SetYOffset(line - m.viewport.Height + 1)
		}
	}
}

// fileSlug turns a chapter title into a file name.
func fileSlug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
		} else if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "chapter"
	}
	return s
}

var _ tea.Model = (*Model)(nil)
