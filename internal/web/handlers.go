package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/user/nocview/internal/app"
	"github.com/user/nocview/internal/dashboard"
	"github.com/user/nocview/internal/kpi"
	"github.com/user/nocview/internal/model"
	"github.com/user/nocview/internal/pipeline"
	"github.com/user/nocview/internal/report"
	"github.com/user/nocview/internal/util"
)

// MaxPageSize caps the page_size query parameter.
const MaxPageSize = 100

// Handlers contains HTTP handlers.
type Handlers struct {
	s *Server
}

// NewHandlers creates new handlers.
func NewHandlers(s *Server) *Handlers {
	return &Handlers{s: s}
}

// pageResponse is one page of a filtered table plus the filter vocabulary
// a client needs to build its controls.
type pageResponse[T any] struct {
	pipeline.View[T]
	State      pipeline.State      `json:"state"`
	Quick      []string            `json:"quick_filters"`
	Sorts      []string            `json:"sorts"`
	Categories map[string][]string `json:"categories"`
}

// board resolves the role dashboard of a request, writing the error itself
// when the role is unknown.
func (h *Handlers) board(w http.ResponseWriter, r *http.Request) (*board, bool) {
	b, err := h.s.board(r.Context(), r.URL.Query().Get("role"))
	if err != nil {
		writeError(w, err, http.StatusNotFound)
		return nil, false
	}
	return b, true
}

// Dashboard serves the main dashboard page.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	b, ok := h.board(w, r)
	if !ok {
		return
	}

	data, err := h.dashboardData(b, r.URL.Query())
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := getDashboardTemplate().Execute(w, data); err != nil {
		util.Error("Render dashboard: %v", err)
	}
}

// APIGetRoles lists the role dashboards.
func (h *Handlers) APIGetRoles(w http.ResponseWriter, r *http.Request) {
	roles := make([]dashboard.Role, 0, len(h.s.app.Roles))
	for _, name := range h.s.app.Roles.Names() {
		roles = append(roles, h.s.app.Roles[name])
	}
	writeJSON(w, roles)
}

// APIGetSnapshot returns the last applied snapshot of a role.
func (h *Handlers) APIGetSnapshot(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	writeJSON(w, b.dash.Snapshot())
}

// APIGetKPIs returns the KPI tiles of a role.
func (h *Handlers) APIGetKPIs(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	cards := b.Cards()
	if cards == nil {
		cards = kpi.Build(b.dash.Role(), b.dash.Snapshot())
	}
	writeJSON(w, cards)
}

// APIGetStatus returns the poller status of a role.
func (h *Handlers) APIGetStatus(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	snap := b.dash.Snapshot()
	status := map[string]interface{}{
		"role":       b.dash.Role().Name,
		"period":     b.dash.Period(),
		"poller":     b.dash.Status(),
		"updated_at": snap.FetchedAt,
		"failed":     snap.Failed,
	}
	if n, err := h.s.app.Journal.CountSince(time.Now().Add(-24 * time.Hour)); err == nil {
		status["actions_24h"] = n
	}
	writeJSON(w, status)
}

// APISetPeriod changes the time period of a role dashboard.
func (h *Handlers) APISetPeriod(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	period := r.URL.Query().Get("period")
	if err := b.dash.SetPeriod(h.s.context(), period); err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, map[string]string{"period": period})
}

// APIRefresh triggers an immediate poll.
func (h *Handlers) APIRefresh(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	b.dash.Refresh()
	w.WriteHeader(http.StatusAccepted)
}

// APIGetJournal returns recent action outcomes.
func (h *Handlers) APIGetJournal(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 500 {
		limit = l
	}
	entries, err := h.s.app.Journal.Recent(r.URL.Query().Get("action"), limit)
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

// APIGetAlerts returns one page of the filtered alert table.
func (h *Handlers) APIGetAlerts(w http.ResponseWriter, r *http.Request) {
	if b, ok := h.board(w, r); ok {
		serveView(w, r, b.dash.Alerts, h.s.app.Config.PageSize)
	}
}

// APIGetDevices returns one page of the filtered device table.
func (h *Handlers) APIGetDevices(w http.ResponseWriter, r *http.Request) {
	if b, ok := h.board(w, r); ok {
		serveView(w, r, b.dash.Devices, h.s.app.Config.PageSize)
	}
}

// APITickets lists tickets (GET) or creates one (POST).
func (h *Handlers) APITickets(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		serveView(w, r, b.dash.Tickets, h.s.app.Config.PageSize)
	case http.MethodPost:
		var in model.TicketInput
		if !decode(w, r, &in) {
			return
		}
		if err := dashboard.ValidateTicket(in); err != nil {
			writeError(w, err, http.StatusBadRequest)
			return
		}
		writeNotice(w, b.actions.CreateTicket(r.Context(), in))
	default:
		allow(w, r, http.MethodGet, http.MethodPost)
	}
}

// APITicketAction handles /api/tickets/{id}/resolve and
// /api/tickets/{id}/reassign.
func (h *Handlers) APITicketAction(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitAction(w, r, "/api/tickets/")
	if !ok {
		return
	}
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	switch action {
	case "resolve":
		writeNotice(w, b.actions.ResolveTicket(r.Context(), id))
	case "reassign":
		var body struct {
			Assignee string `json:"assignee"`
		}
		if !decode(w, r, &body) {
			return
		}
		if strings.TrimSpace(body.Assignee) == "" {
			writeError(w, fmt.Errorf("%w: assignee", dashboard.ErrMissingField), http.StatusBadRequest)
			return
		}
		writeNotice(w, b.actions.ReassignTicket(r.Context(), id, body.Assignee))
	default:
		http.NotFound(w, r)
	}
}

// APIAlertAction handles /api/alerts/{id}/acknowledge and
// /api/alerts/{id}/ticket.
func (h *Handlers) APIAlertAction(w http.ResponseWriter, r *http.Request) {
	id, action, ok := splitAction(w, r, "/api/alerts/")
	if !ok {
		return
	}
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	switch action {
	case "acknowledge":
		writeNotice(w, b.actions.Acknowledge(r.Context(), id))
	case "ticket":
		alert, found := findAlert(b.dash.Alerts.Items(), id)
		if !found {
			writeError(w, fmt.Errorf("alert %q not found", id), http.StatusNotFound)
			return
		}
		assignee := r.URL.Query().Get("assignee")
		writeNotice(w, b.actions.CreateTicket(r.Context(), dashboard.TicketFromAlert(alert, assignee)))
	default:
		http.NotFound(w, r)
	}
}

// APIUsers lists users (GET) or creates one (POST).
func (h *Handlers) APIUsers(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		serveView(w, r, b.dash.Users, h.s.app.Config.PageSize)
	case http.MethodPost:
		var in model.UserInput
		if !decode(w, r, &in) {
			return
		}
		if err := dashboard.ValidateUser(in, true); err != nil {
			writeError(w, err, http.StatusBadRequest)
			return
		}
		writeNotice(w, b.actions.CreateUser(r.Context(), in))
	default:
		allow(w, r, http.MethodGet, http.MethodPost)
	}
}

// APIUserAction handles PUT and DELETE on /api/users/{id} and POST on
// /api/users/{id}/reset-password and /api/users/{id}/toggle.
func (h *Handlers) APIUserAction(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/"), "/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	b, ok := h.board(w, r)
	if !ok {
		return
	}

	switch {
	case action == "" && r.Method == http.MethodPut:
		var in model.UserInput
		if !decode(w, r, &in) {
			return
		}
		if err := dashboard.ValidateUser(in, false); err != nil {
			writeError(w, err, http.StatusBadRequest)
			return
		}
		writeNotice(w, b.actions.UpdateUser(r.Context(), id, in))
	case action == "" && r.Method == http.MethodDelete:
		writeNotice(w, b.actions.DeleteUser(r.Context(), id))
	case action == "reset-password" && r.Method == http.MethodPost:
		writeNotice(w, b.actions.ResetPassword(r.Context(), id))
	case action == "toggle" && r.Method == http.MethodPost:
		writeNotice(w, b.actions.ToggleUserStatus(r.Context(), id))
	case action == "":
		allow(w, r, http.MethodPut, http.MethodDelete)
	default:
		if r.Method != http.MethodPost {
			allow(w, r, http.MethodPost)
			return
		}
		http.NotFound(w, r)
	}
}

// APIExport asks the backend for a report and saves it in the export
// directory.
func (h *Handlers) APIExport(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	writeNotice(w, b.actions.Export(r.Context(), r.URL.Query().Get("format")))
}

// DownloadAlertsCSV streams the filtered alert table as CSV. The query
// takes the same filter parameters as /api/alerts; pagination is ignored.
func (h *Handlers) DownloadAlertsCSV(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	page := b.dash.Alerts
	st, err := stateFromQuery(r.URL.Query(), page.Pipeline(), h.s.app.Config.PageSize)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	alerts := page.Pipeline().Apply(page.Items(), st)

	name := fmt.Sprintf("alerts-%s.csv", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	if err := report.WriteAlertsCSV(w, alerts); err != nil {
		util.Error("Write alerts CSV: %v", err)
	}
}

// DownloadReport generates and downloads the shift report of a role.
func (h *Handlers) DownloadReport(w http.ResponseWriter, r *http.Request) {
	b, ok := h.board(w, r)
	if !ok {
		return
	}
	role := b.dash.Role()
	snap := b.dash.Snapshot()
	cards := b.Cards()
	if cards == nil {
		cards = kpi.Build(role, snap)
	}

	data, err := report.NewGenerator(h.s.app.DB).Generate(app.ReportInput(role, snap, cards))
	if err != nil {
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	content := report.FormatMarkdown(data)

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=nocview_%s_report.md", role.Name))
	w.Write([]byte(content))
}

// serveView writes one page of p filtered by the request query.
func serveView[T any](w http.ResponseWriter, r *http.Request, p *dashboard.Page[T], pageSize int) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	pl := p.Pipeline()
	st, err := stateFromQuery(r.URL.Query(), pl, pageSize)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	items := p.Items()
	resp := pageResponse[T]{
		View:       pl.View(items, st),
		State:      st,
		Quick:      pl.QuickNames(),
		Sorts:      pl.SortNames(),
		Categories: make(map[string][]string),
	}
	for _, name := range pl.CategoryNames() {
		resp.Categories[name] = pl.Options(items, name)
	}
	writeJSON(w, resp)
}

// stateFromQuery builds filter state from query parameters:
//
//	q          free-text search
//	quick      quick filter name, repeatable
//	filter     category as name:value, repeatable
//	sort, desc ordering
//	page, page_size
//
// Unknown quick filters, categories and sort keys are rejected. Invalid
// numbers are ignored.
func stateFromQuery[T any](q url.Values, p *pipeline.Pipeline[T], pageSize int) (pipeline.State, error) {
	st := pipeline.NewState(pageSize)
	st.SetQuery(strings.TrimSpace(q.Get("q")))

	for _, name := range q["quick"] {
		st.SetQuick(name, true)
	}
	for _, f := range q["filter"] {
		name, value, ok := strings.Cut(f, ":")
		if !ok {
			return st, fmt.Errorf("invalid filter %q (want name:value)", f)
		}
		st.SetCategory(name, value)
	}
	if key := q.Get("sort"); key != "" {
		desc, _ := strconv.ParseBool(q.Get("desc"))
		st.SetSort(key, desc)
	}
	if err := p.Check(st); err != nil {
		return st, err
	}
	if n, err := strconv.Atoi(q.Get("page_size")); err == nil && n > 0 && n <= MaxPageSize {
		st.SetPageSize(n)
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		st.SetPage(n)
	}
	return st, nil
}

func findAlert(alerts []model.Alert, id string) (model.Alert, bool) {
	for _, a := range alerts {
		if a.ID == id {
			return a, true
		}
	}
	return model.Alert{}, false
}

// splitAction parses prefix{id}/{action} for POST requests.
func splitAction(w http.ResponseWriter, r *http.Request, prefix string) (id, action string, ok bool) {
	if !allow(w, r, http.MethodPost) {
		return "", "", false
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	id, action, found := strings.Cut(rest, "/")
	if !found || id == "" || action == "" {
		http.NotFound(w, r)
		return "", "", false
	}
	return id, action, true
}

// allow writes 405 unless the request method is one of methods.
func allow(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeError(w, fmt.Errorf("method %s not allowed", r.Method), http.StatusMethodNotAllowed)
	return false
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		return false
	}
	return true
}

// writeNotice maps an action notice onto a response. A failed action is a
// backend failure since input was validated before.
func writeNotice(w http.ResponseWriter, n model.Notice) {
	if n.Level == model.NoticeError {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(n)
		return
	}
	writeJSON(w, n)
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, err error, status int) {
	if errors.Is(err, dashboard.ErrMissingField) {
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
