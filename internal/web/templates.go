package web

import (
	"embed"
	"html/template"
	"net/url"
	"strconv"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/user/nocview/internal/dashboard"
	"github.com/user/nocview/internal/kpi"
	"github.com/user/nocview/internal/model"
	"github.com/user/nocview/internal/pipeline"
)

//go:embed templates/*.html
var templatesFS embed.FS

var (
	tmplOnce sync.Once
	tmpl     *template.Template
)

func getDashboardTemplate() *template.Template {
	tmplOnce.Do(func() {
		tmpl = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
			"trendArrow": trendArrow,
		}).ParseFS(templatesFS, "templates/dashboard.html"))
	})
	return tmpl
}

// quickTag is a quick filter toggle on the HTML page.
type quickTag struct {
	Name   string
	Active bool
	Link   string
}

type dashboardPage struct {
	Role     dashboard.Role
	Roles    []string
	Period   string
	Periods  []string
	Updated  string
	Loading  bool
	Failed   []string
	Cards    []model.KPICard
	Critical []model.Alert
	Alerts   pipeline.View[model.Alert]
	Quick    []quickTag
	Query    string
	PrevLink string
	NextLink string
	CSVLink  string
	Report   string
}

func (h *Handlers) dashboardData(b *board, q url.Values) (dashboardPage, error) {
	page := b.dash.Alerts
	st, err := stateFromQuery(q, page.Pipeline(), h.s.app.Config.PageSize)
	if err != nil {
		return dashboardPage{}, err
	}

	role := b.dash.Role()
	snap := b.dash.Snapshot()
	data := dashboardPage{
		Role:     role,
		Roles:    h.s.app.Roles.Names(),
		Period:   b.dash.Period(),
		Periods:  dashboard.Periods,
		Updated:  "never",
		Loading:  b.dash.Loading(),
		Failed:   snap.Failed,
		Cards:    b.Cards(),
		Critical: snap.CriticalAlerts(),
		Alerts:   page.Pipeline().View(page.Items(), st),
		Query:    st.Query,
		CSVLink:  "/export.csv?" + withoutPaging(q).Encode(),
		Report:   "/report?" + url.Values{"role": {role.Name}}.Encode(),
	}
	if data.Cards == nil {
		data.Cards = kpi.Build(role, snap)
	}
	if !snap.FetchedAt.IsZero() {
		data.Updated = humanize.Time(snap.FetchedAt)
	}
	for _, name := range page.Pipeline().QuickNames() {
		data.Quick = append(data.Quick, quickTag{
			Name:   name,
			Active: st.QuickActive(name),
			Link:   "/?" + toggleQuick(q, name).Encode(),
		})
	}
	if data.Alerts.Page > 1 {
		data.PrevLink = "/?" + withPage(q, data.Alerts.Page-1).Encode()
	}
	if data.Alerts.Page < data.Alerts.TotalPages {
		data.NextLink = "/?" + withPage(q, data.Alerts.Page+1).Encode()
	}
	return data, nil
}

func clone(q url.Values) url.Values {
	c := make(url.Values, len(q))
	for k, v := range q {
		c[k] = append([]string(nil), v...)
	}
	return c
}

func withoutPaging(q url.Values) url.Values {
	c := clone(q)
	c.Del("page")
	c.Del("page_size")
	return c
}

func withPage(q url.Values, page int) url.Values {
	c := clone(q)
	c.Set("page", strconv.Itoa(page))
	return c
}

// toggleQuick flips one quick filter and returns to the first page.
func toggleQuick(q url.Values, name string) url.Values {
	c := withoutPaging(q)
	if ps := q.Get("page_size"); ps != "" {
		c.Set("page_size", ps)
	}
	var kept []string
	found := false
	for _, v := range c["quick"] {
		if v == name {
			found = true
			continue
		}
		kept = append(kept, v)
	}
	if !found {
		kept = append(kept, name)
	}
	c.Del("quick")
	for _, v := range kept {
		c.Add("quick", v)
	}
	return c
}

func trendArrow(t *model.Trend) string {
	if t == nil {
		return ""
	}
	switch t.Direction {
	case model.TrendUp:
		return "↑ " + t.Text
	case model.TrendDown:
		return "↓ " + t.Text
	}
	return "→ " + t.Text
}
