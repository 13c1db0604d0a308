package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	NextColumn key.Binding
	PrevColumn key.Binding
	Toggle     key.Binding
	MoveTo     key.Binding
	Up         key.Binding
	Down       key.Binding
	Add        key.Binding
	Trash      key.Binding
	Projects   key.Binding
	Reload     key.Binding
	Help       key.Binding
	Quit       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		NextColumn: key.NewBinding(key.WithKeys("tab", "right", "l"), key.WithHelp("tab", "next column")),
		PrevColumn: key.NewBinding(key.WithKeys("shift+tab", "left", "h"), key.WithHelp("shift+tab", "previous column")),
		Toggle:     key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "done/undo")),
		MoveTo:     key.NewBinding(key.WithKeys("1", "2", "3", "4", "5"), key.WithHelp("1-5", "move to column")),
		Up:         key.NewBinding(key.WithKeys("K"), key.WithHelp("K", "move up")),
		Down:       key.NewBinding(key.WithKeys("J"), key.WithHelp("J", "move down")),
		Add:        key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Trash:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "trash")),
		Projects:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "projects")),
		Reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextColumn, k.Toggle, k.MoveTo, k.Add, k.Projects, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextColumn, k.PrevColumn, k.Toggle, k.MoveTo},
		{k.Up, k.Down, k.Add, k.Trash},
		{k.Projects, k.Reload, k.Help, k.Quit},
	}
}
