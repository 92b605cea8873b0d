package dashboard

import "github.com/charmbracelet/bubbles/key"

// pageKeys holds key bindings while no modal is open.
type pageKeys struct {
	Up      key.Binding
	Down    key.Binding
	Enter   key.Binding
	Back    key.Binding
	Tab     key.Binding
	Refresh key.Binding
	Join    key.Binding
	Theme   key.Binding
	Logout  key.Binding
	Quit    key.Binding
}

// ShortHelp returns the page bindings for the help bar.
func (k pageKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Enter, k.Back, k.Tab, k.Refresh, k.Join, k.Theme, k.Logout, k.Quit}
}

// FullHelp returns the page bindings grouped for expanded help.
func (k pageKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Enter, k.Back},
		{k.Tab, k.Refresh, k.Join},
		{k.Theme, k.Logout, k.Quit},
	}
}

// modalKeys holds key bindings for the join and logout modals.
type modalKeys struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns the modal bindings for the help bar.
func (k modalKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

// FullHelp returns the modal bindings grouped for expanded help.
func (k modalKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Confirm, k.Cancel}}
}

// PageKeyMap returns the key bindings for page navigation.
func PageKeyMap() pageKeys {
	return pageKeys{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "backspace"),
			key.WithHelp("esc", "back"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Join: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "join class"),
		),
		Theme: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "theme"),
		),
		Logout: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "log out"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ModalKeyMap returns the key bindings for modals.
func ModalKeyMap() modalKeys {
	return modalKeys{
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// resultKeys is shown while a result message is open.
type resultKeys struct {
	AnyKey key.Binding
}

func (k resultKeys) ShortHelp() []key.Binding  { return []key.Binding{k.AnyKey} }
func (k resultKeys) FullHelp() [][]key.Binding { return [][]key.Binding{{k.AnyKey}} }

// ResultKeyMap returns the bindings shown under a result message.
func ResultKeyMap() resultKeys {
	return resultKeys{
		// Display only; any key closes the message in Update.
		AnyKey: key.NewBinding(
			key.WithKeys("any"),
			key.WithHelp("any key", "close"),
		),
	}
}
