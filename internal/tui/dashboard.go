package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/paginator"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/user/nocview/internal/dashboard"
	"github.com/user/nocview/internal/model"
	"github.com/user/nocview/internal/pipeline"
)

const toastTTL = 4 * time.Second

var pageSizes = []int{5, 10, 20, 50}

type mode int

const (
	modeNormal mode = iota
	modeSearch
	modeForm
)

// Messages
type snapshotMsg struct {
	gen  uint64
	snap dashboard.Snapshot
}

type carouselMsg struct {
	gen uint64
}

type noticeMsg struct {
	notice model.Notice
}

type clearToastMsg struct {
	id int
}

// hooks are the App-level services the dashboard view calls into.
type hooks struct {
	cards    func(dashboard.Role, dashboard.Snapshot) []model.KPICard
	report   func(dashboard.Role, dashboard.Snapshot, []model.KPICard) (string, error)
	carousel time.Duration
}

// dashboardModel is the bubbletea model of one role dashboard.
type dashboardModel struct {
	ctx     context.Context
	dash    *dashboard.Dashboard
	actions *dashboard.Actions
	hooks   hooks

	cards       []model.KPICard
	critical    []model.Alert
	carouselIdx int
	carouselGen uint64
	carouselOn  bool

	tab    int
	cursor int
	mode   mode
	search textinput.Model
	form   ticketForm

	table   table.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap

	toast   *model.Notice
	toastID int

	ready  bool
	width  int
	height int
}

func newDashboardModel(ctx context.Context, d *dashboard.Dashboard, actions *dashboard.Actions, h hooks) dashboardModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(Primary)

	search := textinput.New()
	search.Placeholder = "search..."
	search.Prompt = "/ "
	search.CharLimit = 100

	t := table.New(table.WithFocused(true))
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Subtle).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("15")).
		Background(Primary).
		Bold(false)
	t.SetStyles(styles)

	if h.carousel <= 0 {
		h.carousel = 5 * time.Second
	}
	if h.cards == nil {
		h.cards = func(dashboard.Role, dashboard.Snapshot) []model.KPICard { return nil }
	}

	return dashboardModel{
		ctx:     ctx,
		dash:    d,
		actions: actions,
		hooks:   h,
		search:  search,
		table:   t,
		spinner: s,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init initializes the model.
func (m dashboardModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func carouselTick(gen uint64, every time.Duration) tea.Cmd {
	return tea.Tick(every, func(time.Time) tea.Msg { return carouselMsg{gen: gen} })
}

func clearToast(id int) tea.Cmd {
	return tea.Tick(toastTTL, func(time.Time) tea.Msg { return clearToastMsg{id: id} })
}

// Update handles messages.
func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case snapshotMsg:
		if !m.dash.Apply(msg.gen, msg.snap) {
			return m, nil
		}
		m.ready = true
		m.cards = m.hooks.cards(m.dash.Role(), msg.snap)
		m.critical = msg.snap.CriticalAlerts()
		if m.carouselIdx >= len(m.critical) {
			m.carouselIdx = 0
		}
		m.clampCursor()
		if !m.carouselOn || m.carouselGen != msg.gen {
			m.carouselGen = msg.gen
			m.carouselOn = true
			return m, carouselTick(msg.gen, m.hooks.carousel)
		}
		return m, nil

	case carouselMsg:
		// Ticks from a torn-down generation end the loop.
		if msg.gen != m.carouselGen || msg.gen != m.dash.Generation() {
			return m, nil
		}
		if len(m.critical) > 0 {
			m.carouselIdx = (m.carouselIdx + 1) % len(m.critical)
		}
		return m, carouselTick(msg.gen, m.hooks.carousel)

	case noticeMsg:
		n := msg.notice
		m.toast = &n
		m.toastID++
		return m, clearToast(m.toastID)

	case clearToastMsg:
		if msg.id == m.toastID {
			m.toast = nil
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeForm:
			return m.updateForm(msg)
		}
		return m.updateNormal(msg)
	}

	return m, nil
}

func (m dashboardModel) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	tv := m.currentView()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(tv.rows)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.NextPage):
		m.updateState(func(s *pipeline.State) { s.NextPage(tv.totalPages) })
		m.cursor = 0

	case key.Matches(msg, m.keys.PrevPage):
		m.updateState(func(s *pipeline.State) { s.PrevPage() })
		m.cursor = 0

	case key.Matches(msg, m.keys.NextTab):
		m.switchTab(1)

	case key.Matches(msg, m.keys.PrevTab):
		m.switchTab(-1)

	case key.Matches(msg, m.keys.Search):
		m.mode = modeSearch
		m.search.SetValue(tv.query)
		m.search.CursorEnd()
		return m, m.search.Focus()

	case key.Matches(msg, m.keys.Quick):
		idx := int(msg.String()[0] - '1')
		if idx >= 0 && idx < len(tv.quick) {
			name := tv.quick[idx]
			m.updateState(func(s *pipeline.State) { s.ToggleQuick(name) })
			m.cursor = 0
		}

	case key.Matches(msg, m.keys.Clear):
		m.updateState(func(s *pipeline.State) { s.ClearFilters() })
		m.search.SetValue("")
		m.cursor = 0

	case key.Matches(msg, m.keys.Sort):
		sortKey, desc := nextSort(tv.sorts, tv.sortKey, tv.sortDesc)
		m.updateState(func(s *pipeline.State) { s.SetSort(sortKey, desc) })
		m.cursor = 0

	case key.Matches(msg, m.keys.PageSize):
		next := nextPageSize(m.currentPageSize())
		m.updateState(func(s *pipeline.State) { s.SetPageSize(next) })
		m.cursor = 0

	case key.Matches(msg, m.keys.Period):
		next := dashboard.NextPeriod(m.dash.Period())
		if err := m.dash.SetPeriod(m.ctx, next); err != nil {
			return m, notice(model.NoticeError, err.Error())
		}
		m.carouselOn = false
		return m, notice(model.NoticeInfo, "Period set to "+next)

	case key.Matches(msg, m.keys.Refresh):
		m.dash.Refresh()

	case key.Matches(msg, m.keys.Ack):
		if m.currentTab() != dashboard.TabAlerts || m.cursor >= len(tv.ids) {
			break
		}
		id := tv.ids[m.cursor]
		return m, m.run(func(ctx context.Context) model.Notice { return m.actions.Acknowledge(ctx, id) })

	case key.Matches(msg, m.keys.Ticket):
		in := model.TicketInput{Priority: model.PriorityMedium}
		if m.currentTab() == dashboard.TabAlerts {
			items := m.dash.Alerts.View().Items
			if m.cursor < len(items) {
				in = dashboard.TicketFromAlert(items[m.cursor], m.dash.Options().Operator)
			}
		}
		m.form = newTicketForm(in)
		m.mode = modeForm
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Resolve):
		if m.currentTab() != dashboard.TabTickets || m.cursor >= len(tv.ids) {
			break
		}
		id := tv.ids[m.cursor]
		return m, m.run(func(ctx context.Context) model.Notice { return m.actions.ResolveTicket(ctx, id) })

	case key.Matches(msg, m.keys.Export):
		return m, m.run(func(ctx context.Context) model.Notice { return m.actions.Export(ctx, "csv") })

	case key.Matches(msg, m.keys.ExportLocal):
		alerts := m.dash.Alerts.Filtered()
		return m, m.run(func(context.Context) model.Notice { return m.actions.ExportLocal(alerts) })

	case key.Matches(msg, m.keys.Report):
		if m.hooks.report == nil {
			break
		}
		role, snap, cards := m.dash.Role(), m.dash.Snapshot(), m.cards
		report := m.hooks.report
		return m, func() tea.Msg {
			path, err := report(role, snap, cards)
			if err != nil {
				return noticeMsg{model.Notice{Level: model.NoticeError, Message: "Shift report failed: " + err.Error(), At: time.Now()}}
			}
			return noticeMsg{model.Notice{Level: model.NoticeSuccess, Message: "Shift report saved to " + path, At: time.Now()}}
		}
	}

	return m, nil
}

func (m dashboardModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter, tea.KeyEsc:
		m.mode = modeNormal
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	q := m.search.Value()
	m.updateState(func(s *pipeline.State) {
		if s.Query != q {
			s.SetQuery(q)
		}
	})
	m.cursor = 0
	return m, cmd
}

func (m dashboardModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeNormal
		return m, nil
	case tea.KeyTab, tea.KeyDown:
		m.form = m.form.move(1)
		return m, nil
	case tea.KeyShiftTab, tea.KeyUp:
		m.form = m.form.move(-1)
		return m, nil
	case tea.KeyEnter:
		// Submit stays disabled until the required fields are filled.
		if m.form.valid() != nil {
			return m, nil
		}
		in := m.form.input()
		m.mode = modeNormal
		return m, m.run(func(ctx context.Context) model.Notice { return m.actions.CreateTicket(ctx, in) })
	}

	var cmd tea.Cmd
	m.form, cmd = m.form.update(msg)
	return m, cmd
}

// run performs an action off the UI goroutine and reports its notice.
func (m dashboardModel) run(fn func(ctx context.Context) model.Notice) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return noticeMsg{notice: fn(ctx)}
	}
}

func notice(level, msg string) tea.Cmd {
	return func() tea.Msg {
		return noticeMsg{model.Notice{Level: level, Message: msg, At: time.Now()}}
	}
}

func nextSort(keys []string, current string, desc bool) (string, bool) {
	if len(keys) == 0 {
		return "", false
	}
	if current == "" {
		return keys[0], false
	}
	if !desc {
		return current, true
	}
	for i, k := range keys {
		if k == current && i+1 < len(keys) {
			return keys[i+1], false
		}
	}
	return "", false
}

func nextPageSize(current int) int {
	for i, s := range pageSizes {
		if s == current {
			return pageSizes[(i+1)%len(pageSizes)]
		}
	}
	return pageSizes[0]
}

func (m dashboardModel) tabs() []string {
	tabs := m.dash.Role().Tabs
	if len(tabs) == 0 {
		return []string{dashboard.TabAlerts}
	}
	return tabs
}

func (m dashboardModel) currentTab() string {
	tabs := m.tabs()
	return tabs[m.tab%len(tabs)]
}

func (m *dashboardModel) switchTab(delta int) {
	n := len(m.tabs())
	m.tab = (m.tab + delta + n) % n
	m.cursor = 0
}

func (m *dashboardModel) clampCursor() {
	n := len(m.currentView().rows)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m dashboardModel) updateState(fn func(s *pipeline.State)) {
	switch m.currentTab() {
	case dashboard.TabAlerts:
		m.dash.Alerts.Update(fn)
	case dashboard.TabTickets:
		m.dash.Tickets.Update(fn)
	case dashboard.TabDevices:
		m.dash.Devices.Update(fn)
	case dashboard.TabUsers:
		m.dash.Users.Update(fn)
	}
}

func (m dashboardModel) currentPageSize() int {
	var s pipeline.State
	switch m.currentTab() {
	case dashboard.TabTickets:
		s = m.dash.Tickets.State()
	case dashboard.TabDevices:
		s = m.dash.Devices.State()
	case dashboard.TabUsers:
		s = m.dash.Users.State()
	default:
		s = m.dash.Alerts.State()
	}
	return s.PageSize
}

func (m dashboardModel) currentView() tabView {
	var tv tabView
	switch m.currentTab() {
	case dashboard.TabTickets:
		tv = ticketTab(m.dash.Tickets)
		tv.sorts = m.dash.Tickets.Pipeline().SortNames()
	case dashboard.TabDevices:
		tv = deviceTab(m.dash.Devices)
		tv.sorts = m.dash.Devices.Pipeline().SortNames()
	case dashboard.TabUsers:
		tv = userTab(m.dash.Users)
		tv.sorts = m.dash.Users.Pipeline().SortNames()
	default:
		tv = alertTab(m.dash.Alerts)
		tv.sorts = m.dash.Alerts.Pipeline().SortNames()
	}
	return tv
}

// View renders the UI.
func (m dashboardModel) View() string {
	if !m.ready {
		return LoadingStyle.Render(m.spinner.View() + " Loading " + m.dash.Role().Title + "...")
	}
	if m.mode == modeForm {
		return m.renderHeader() + "\n\n" + m.form.view()
	}

	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n\n")
	sb.WriteString(m.renderTiles())
	sb.WriteString("\n")
	if c := m.renderCarousel(); c != "" {
		sb.WriteString(c)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(m.renderTabs())
	sb.WriteString("\n")
	sb.WriteString(m.renderTable())
	sb.WriteString("\n")
	if m.toast != nil {
		style := ToastSuccessStyle
		if m.toast.Level == model.NoticeError {
			style = ToastErrorStyle
		}
		sb.WriteString(style.Render(m.toast.Message))
		sb.WriteString("\n")
	}
	sb.WriteString(HelpStyle.Render(m.help.View(m.keys)))
	return sb.String()
}

func (m dashboardModel) renderHeader() string {
	role := m.dash.Role()
	header := HeaderStyle.Render("NOC View · " + role.Title)
	info := fmt.Sprintf(" period %s", m.dash.Period())
	if at := m.dash.UpdatedAt(); !at.IsZero() {
		info += " · updated " + humanize.Time(at)
	}
	if m.dash.Loading() {
		info += " " + m.spinner.View()
	}
	line := header + LabelStyle.Render(info)

	if failed := m.dash.Snapshot().Failed; len(failed) > 0 {
		line += "\n" + WarningStyle.Render("⚠ unavailable: "+strings.Join(failed, ", "))
	}
	return line
}

func (m dashboardModel) renderTiles() string {
	if len(m.cards) == 0 {
		return DimStyle.Render("No indicators for this role")
	}
	tiles := make([]string, len(m.cards))
	for i, c := range m.cards {
		tiles[i] = RenderTile(c)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tiles...)
}

func (m dashboardModel) renderCarousel() string {
	if len(m.critical) == 0 {
		return ""
	}
	a := m.critical[m.carouselIdx%len(m.critical)]
	text := fmt.Sprintf("%s %d/%d  %s  %s  %s",
		severityStyle(a.Severity).Render("CRITICAL"),
		m.carouselIdx%len(m.critical)+1, len(m.critical),
		ValueStyle.Render(a.Device.Name),
		truncate(a.DisplayTitle(), 60),
		DimStyle.Render(a.Timestamp.Relative))
	return CarouselStyle.Render(text)
}

func (m dashboardModel) renderTabs() string {
	var parts []string
	for i, t := range m.tabs() {
		label := strings.ToUpper(t[:1]) + t[1:]
		if i == m.tab%len(m.tabs()) {
			parts = append(parts, ActiveTabStyle.Render(label))
		} else {
			parts = append(parts, TabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m dashboardModel) renderTable() string {
	tv := m.currentView()

	var sb strings.Builder

	// Search and quick filter tags
	if m.mode == modeSearch {
		sb.WriteString(m.search.View())
	} else if tv.query != "" {
		sb.WriteString(LabelStyle.Render("search: ") + ValueStyle.Render(tv.query))
	}
	sb.WriteString("\n")
	var tags []string
	for i, q := range tv.quick {
		label := fmt.Sprintf("%d %s", i+1, q)
		if tv.active[q] {
			tags = append(tags, ActiveTagStyle.Render(label))
		} else {
			tags = append(tags, TagStyle.Render(label))
		}
	}
	sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tags...))
	sb.WriteString("\n")

	if len(tv.rows) == 0 {
		msg := "No data"
		if tv.unfiltered > 0 {
			msg = "No rows match the current filters"
		}
		sb.WriteString(SectionStyle.Render(DimStyle.Render(msg)))
		sb.WriteString("\n")
	} else {
		t := m.table
		t.SetColumns(tv.columns)
		t.SetRows(tv.rows)
		t.SetHeight(len(tv.rows) + 2)
		cursor := m.cursor
		if cursor >= len(tv.rows) {
			cursor = len(tv.rows) - 1
		}
		t.SetCursor(cursor)
		sb.WriteString(SectionStyle.Render(t.View()))
		sb.WriteString("\n")
	}

	pg := paginator.New()
	pg.Type = paginator.Dots
	if tv.totalPages > 10 {
		pg.Type = paginator.Arabic
	}
	pg.TotalPages = tv.totalPages
	pg.Page = tv.page - 1
	sorted := "unsorted"
	if tv.sortKey != "" {
		dir := "asc"
		if tv.sortDesc {
			dir = "desc"
		}
		sorted = "sort " + tv.sortKey + " " + dir
	}
	sb.WriteString(fmt.Sprintf("%s  %s", pg.View(),
		DimStyle.Render(fmt.Sprintf("page %d/%d · %d of %d rows · %s", tv.page, tv.totalPages, tv.total, tv.unfiltered, sorted))))
	return sb.String()
}
