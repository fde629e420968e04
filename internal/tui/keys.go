package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up          key.Binding
	Down        key.Binding
	NextPage    key.Binding
	PrevPage    key.Binding
	NextTab     key.Binding
	PrevTab     key.Binding
	Search      key.Binding
	Quick       key.Binding
	Clear       key.Binding
	Sort        key.Binding
	PageSize    key.Binding
	Period      key.Binding
	Ack         key.Binding
	Ticket      key.Binding
	Resolve     key.Binding
	Export      key.Binding
	ExportLocal key.Binding
	Report      key.Binding
	Refresh     key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		NextPage:    key.NewBinding(key.WithKeys("right", "l", "pgdown"), key.WithHelp("→", "next page")),
		PrevPage:    key.NewBinding(key.WithKeys("left", "h", "pgup"), key.WithHelp("←", "prev page")),
		NextTab:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		PrevTab:     key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab")),
		Search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Quick:       key.NewBinding(key.WithKeys("1", "2", "3", "4", "5"), key.WithHelp("1-5", "quick filters")),
		Clear:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear filters")),
		Sort:        key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort")),
		PageSize:    key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "page size")),
		Period:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "period")),
		Ack:         key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "acknowledge")),
		Ticket:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "new ticket")),
		Resolve:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "resolve ticket")),
		Export:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export report")),
		ExportLocal: key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "export table")),
		Report:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "shift report")),
		Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NextTab, k.Search, k.Quick, k.NextPage, k.Ack, k.Ticket, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextPage, k.PrevPage, k.NextTab, k.PrevTab},
		{k.Search, k.Quick, k.Clear, k.Sort, k.PageSize, k.Period},
		{k.Ack, k.Ticket, k.Resolve, k.Export, k.ExportLocal, k.Report},
		{k.Refresh, k.Help, k.Quit},
	}
}
