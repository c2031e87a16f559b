package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the panel key bindings.
type KeyMap struct {
	Speak    key.Binding
	Say      key.Binding
	Replay   key.Binding
	BobUp    key.Binding
	BobDown  key.Binding
	GlowUp   key.Binding
	GlowDown key.Binding
	Blink    key.Binding
	Refresh  key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the stock bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Speak: key.NewBinding(
			key.WithKeys("s", " "),
			key.WithHelp("s", "speak"),
		),
		Say: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "type a line"),
		),
		Replay: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "replay"),
		),
		BobUp: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑", "more bob"),
		),
		BobDown: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓", "less bob"),
		),
		GlowUp: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→", "more glow"),
		),
		GlowDown: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "less glow"),
		),
		Blink: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "toggle blink"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Speak, k.Replay, k.Blink, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Speak, k.Say, k.Replay},
		{k.BobUp, k.BobDown, k.GlowUp, k.GlowDown},
		{k.Blink, k.Refresh, k.Help, k.Quit},
	}
}
