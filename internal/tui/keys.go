package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	PageUp    key.Binding
	PageDown  key.Binding
	Top       key.Binding
	Bottom    key.Binding
	NextFeed  key.Binding
	PrevFeed  key.Binding
	NextGenre key.Binding
	PrevGenre key.Binding
	Search    key.Binding
	Open      key.Binding
	Back      key.Binding
	Retry     key.Binding
	Quit      key.Binding
}

var keys = keyMap{
	Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	PageUp:    key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
	PageDown:  key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
	Top:       key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
	Bottom:    key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
	NextFeed:  key.NewBinding(key.WithKeys("tab", "right", "l"), key.WithHelp("tab", "next feed")),
	PrevFeed:  key.NewBinding(key.WithKeys("shift+tab", "left", "h"), key.WithHelp("shift+tab", "prev feed")),
	NextGenre: key.NewBinding(key.WithKeys("f"), key.WithHelp("f/F", "genre")),
	PrevGenre: key.NewBinding(key.WithKeys("F")),
	Search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Open:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
	Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Retry:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload/retry")),
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextFeed, k.NextGenre, k.Search, k.Open, k.Retry, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom},
		{k.NextFeed, k.PrevFeed, k.NextGenre, k.Search},
		{k.Open, k.Back, k.Retry, k.Quit},
	}
}
