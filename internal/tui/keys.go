package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit    key.Binding
	Check   key.Binding
	Left    key.Binding
	Right   key.Binding
	Choose  key.Binding
	Dismiss key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Check: key.NewBinding(
		key.WithKeys("u"),
		key.WithHelp("u", "check for updates"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "h", "shift+tab"),
		key.WithHelp("←", "previous button"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l", "tab"),
		key.WithHelp("→", "next button"),
	),
	Choose: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "choose"),
	),
	Dismiss: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "dismiss"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Check, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Check, k.Quit}}
}

// modalKeys is the help shown while a prompt is open.
type modalKeys struct{ keyMap }

func (k modalKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Left, k.Right, k.Choose, k.Dismiss}
}

func (k modalKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
