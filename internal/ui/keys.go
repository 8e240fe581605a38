package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the driver screens.
type KeyMap struct {
	Accept  key.Binding
	Reject  key.Binding
	Arrive  key.Binding
	Start   key.Binding
	AddStop key.Binding
	End     key.Binding
	Save    key.Binding
	Next    key.Binding
	Restart key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Accept: key.NewBinding(
			key.WithKeys("a", "enter"),
			key.WithHelp("a/enter", "accept job"),
		),
		Reject: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "reject job"),
		),
		Arrive: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "arrive on scene"),
		),
		Start: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "passenger on board"),
		),
		AddStop: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "add stop"),
		),
		End: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "end ride"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "save and complete"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		Restart: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reconnect"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the mini help line.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns the bindings shown in the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Accept, k.Reject, k.Arrive, k.Start},
		{k.AddStop, k.End, k.Save, k.Next},
		{k.Restart, k.Help, k.Quit},
	}
}
