package novelcast

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/tmc/novelcast/audioplayer"
)

// KeyMap holds the reader's key bindings.
type KeyMap struct {
	Quit     key.Binding
	Submit   key.Binding
	Analyze  key.Binding
	Mode     key.Binding
	Example  key.Binding
	Paste    key.Binding
	Settings key.Binding
	Clear    key.Binding
	Focus    key.Binding

	Up       key.Binding
	Down     key.Binding
	Open     key.Binding
	Back     key.Binding
	Next     key.Binding
	Previous key.Binding
	Original key.Binding
	Copy     key.Binding

	Audio audioplayer.KeyMap
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "read")),
		Analyze:  key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "analyze book")),
		Mode:     key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "url/text")),
		Example:  key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "example")),
		Paste:    key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("ctrl+y", "paste")),
		Settings: key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "api key")),
		Clear:    key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "clear saved")),
		Focus:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch focus")),

		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open chapter")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "chapters")),
		Next:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		Previous: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "previous")),
		Original: key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "original")),
		Copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy")),

		Audio: audioplayer.DefaultKeyMap(),
	}
}

// helpKeys adapts the bindings for the focused area to help.KeyMap.
type helpKeys struct {
	short []key.Binding
	full  [][]key.Binding
}

func (h helpKeys) ShortHelp() []key.Binding  { return h.short }
func (h helpKeys) FullHelp() [][]key.Binding { return h.full }

func (k KeyMap) inputHelp() helpKeys {
	short := []key.Binding{k.Submit, k.Analyze, k.Mode, k.Focus, k.Settings, k.Quit}
	return helpKeys{short: short, full: [][]key.Binding{short, {k.Example, k.Paste, k.Clear}}}
}

func (k KeyMap) contentHelp(hasStory bool) helpKeys {
	if !hasStory {
		short := []key.Binding{k.Up, k.Down, k.Open, k.Focus, k.Quit}
		return helpKeys{short: short, full: [][]key.Binding{short}}
	}
	short := []key.Binding{k.Audio.Toggle, k.Audio.Stop, k.Next, k.Previous, k.Back, k.Focus, k.Quit}
	return helpKeys{short: short, full: [][]key.Binding{short, {k.Audio.Save, k.Original, k.Copy, k.Up, k.Down}}}
}
