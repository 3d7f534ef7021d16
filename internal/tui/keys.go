package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap is the console's key bindings. Each panel button has a tap and,
// where it matters, a hold variant.
type KeyMap struct {
	Restart     key.Binding
	RestartHold key.Binding
	Next        key.Binding
	NextHold    key.Binding
	Prev        key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Restart: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "restart engine"),
		),
		RestartHold: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "hold restart (power off)"),
		),
		Next: key.NewBinding(
			key.WithKeys("n", "right"),
			key.WithHelp("n/→", "next instrument"),
		),
		NextHold: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "hold next (reset)"),
		),
		Prev: key.NewBinding(
			key.WithKeys("p", "left"),
			key.WithHelp("p/←", "previous instrument"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit console"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Restart, k.Next, k.Prev, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Restart, k.RestartHold},
		{k.Next, k.NextHold, k.Prev},
		{k.Help, k.Quit},
	}
}
