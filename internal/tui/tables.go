package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"

	"github.com/user/nocview/internal/dashboard"
	"github.com/user/nocview/internal/model"
)

// tabView is what the model needs from a table tab, independent of the
// row type.
type tabView struct {
	columns    []table.Column
	rows       []table.Row
	ids        []string
	page       int
	totalPages int
	total      int
	unfiltered int
	quick      []string
	active     map[string]bool
	query      string
	sorts      []string
	sortKey    string
	sortDesc   bool
}

func activeSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func alertTab(p *dashboard.Page[model.Alert]) tabView {
	v := p.View()
	s := p.State()
	tv := tabView{
		columns: []table.Column{
			{Title: "Severity", Width: 9},
			{Title: "Status", Width: 12},
			{Title: "When", Width: 14},
			{Title: "Device", Width: 16},
			{Title: "Title", Width: 40},
			{Title: "Conf", Width: 5},
		},
		page: v.Page, totalPages: v.TotalPages, total: v.Total, unfiltered: v.Unfiltered,
		quick: p.Pipeline().QuickNames(), active: activeSet(s.Quick),
		query: s.Query, sortKey: s.SortKey, sortDesc: s.SortDesc,
	}
	for _, a := range v.Items {
		conf := "-"
		if a.Confidence > 0 {
			conf = strconv.Itoa(a.Confidence)
		}
		tv.rows = append(tv.rows, table.Row{
			a.Severity, a.Status, a.Timestamp.Relative, truncate(a.Device.Name, 16), truncate(a.DisplayTitle(), 40), conf,
		})
		tv.ids = append(tv.ids, a.ID)
	}
	return tv
}

func ticketTab(p *dashboard.Page[model.Ticket]) tabView {
	v := p.View()
	s := p.State()
	tv := tabView{
		columns: []table.Column{
			{Title: "Ticket", Width: 10},
			{Title: "Priority", Width: 9},
			{Title: "Status", Width: 12},
			{Title: "Assignee", Width: 12},
			{Title: "Title", Width: 38},
			{Title: "Updated", Width: 14},
		},
		page: v.Page, totalPages: v.TotalPages, total: v.Total, unfiltered: v.Unfiltered,
		quick: p.Pipeline().QuickNames(), active: activeSet(s.Quick),
		query: s.Query, sortKey: s.SortKey, sortDesc: s.SortDesc,
	}
	for _, t := range v.Items {
		assignee := t.Assignee
		if assignee == "" {
			assignee = "-"
		}
		tv.rows = append(tv.rows, table.Row{
			t.Number, t.Priority, t.Status, truncate(assignee, 12), truncate(t.Title, 38), t.UpdatedAt.Relative,
		})
		tv.ids = append(tv.ids, t.ID)
	}
	return tv
}

func deviceTab(p *dashboard.Page[model.Device]) tabView {
	v := p.View()
	s := p.State()
	tv := tabView{
		columns: []table.Column{
			{Title: "Device", Width: 16},
			{Title: "IP", Width: 15},
			{Title: "Type", Width: 10},
			{Title: "Status", Width: 9},
			{Title: "Health", Width: 6},
			{Title: "Alerts", Width: 6},
			{Title: "Last seen", Width: 14},
		},
		page: v.Page, totalPages: v.TotalPages, total: v.Total, unfiltered: v.Unfiltered,
		quick: p.Pipeline().QuickNames(), active: activeSet(s.Quick),
		query: s.Query, sortKey: s.SortKey, sortDesc: s.SortDesc,
	}
	for _, d := range v.Items {
		tv.rows = append(tv.rows, table.Row{
			truncate(d.Name, 16), d.IP, d.Type, d.Status, fmt.Sprintf("%d%%", d.HealthScore), strconv.Itoa(d.RecentAlerts), d.LastSeen.Relative,
		})
		tv.ids = append(tv.ids, d.ID)
	}
	return tv
}

func userTab(p *dashboard.Page[model.User]) tabView {
	v := p.View()
	s := p.State()
	tv := tabView{
		columns: []table.Column{
			{Title: "Username", Width: 14},
			{Title: "Name", Width: 20},
			{Title: "Email", Width: 24},
			{Title: "Role", Width: 16},
			{Title: "Active", Width: 6},
			{Title: "Last login", Width: 14},
		},
		page: v.Page, totalPages: v.TotalPages, total: v.Total, unfiltered: v.Unfiltered,
		quick: p.Pipeline().QuickNames(), active: activeSet(s.Quick),
		query: s.Query, sortKey: s.SortKey, sortDesc: s.SortDesc,
	}
	for _, u := range v.Items {
		active := "no"
		if u.Active {
			active = "yes"
		}
		tv.rows = append(tv.rows, table.Row{
			u.Username, truncate(u.Name, 20), truncate(u.Email, 24), u.Role, active, u.LastLogin.Relative,
		})
		tv.ids = append(tv.ids, u.ID)
	}
	return tv
}
