package web

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/nocview/internal/app"
	"github.com/user/nocview/internal/model"
	"github.com/user/nocview/internal/util"
)

type backend struct {
	acks    atomic.Int32
	tickets atomic.Int32
	alerts  atomic.Int32

	// When hold is set, the first alerts fetch closes held and then waits
	// for hold to be closed.
	hold chan struct{}
	held chan struct{}
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/alerts":
		if b.alerts.Add(1) == 1 && b.hold != nil {
			close(b.held)
			<-b.hold
		}
		io.WriteString(w, `[
			{"id": "a1", "severity": "critical", "status": "open", "title": "Core link down", "device": "Core-SW-01"},
			{"id": "a2", "severity": "critical", "status": "acknowledged", "title": "PSU failure", "device": "FW-DMZ-03"},
			{"id": "a3", "severity": "minor", "status": "open", "title": "Disk 80%", "device": "SRV-DB-02"}
		]`)
	case r.URL.Path == "/api/alerts/a1/acknowledge" && r.Method == http.MethodPost:
		b.acks.Add(1)
		io.WriteString(w, `{}`)
	case r.URL.Path == "/api/tickets" && r.Method == http.MethodPost:
		b.tickets.Add(1)
		io.WriteString(w, `{"id": "t9", "title": "x"}`)
	default:
		http.NotFound(w, r)
	}
}

func newTestServer(t *testing.T) (*Server, http.Handler, *backend) {
	t.Helper()
	return newTestServerWith(t, &backend{})
}

func newTestServerWith(t *testing.T, be *backend) (*Server, http.Handler, *backend) {
	t.Helper()
	upstream := httptest.NewServer(be)
	t.Cleanup(upstream.Close)

	cfg := util.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.ReportOutputDir = t.TempDir()
	cfg.APIURL = upstream.URL
	a, err := app.New(cfg)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	s := NewServer(a, 0)
	t.Cleanup(func() {
		s.Close()
		a.Close()
	})
	return s, s.Handler(), be
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, rd))
	return rec
}

type alertPage struct {
	Items      []model.Alert       `json:"items"`
	Page       int                 `json:"page"`
	TotalPages int                 `json:"total_pages"`
	Total      int                 `json:"total"`
	Unfiltered int                 `json:"unfiltered"`
	Quick      []string            `json:"quick_filters"`
	Categories map[string][]string `json:"categories"`
}

func TestAlertsViewAppliesQuery(t *testing.T) {
	_, h, _ := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/alerts?quick=Critical+Only&page_size=1&page=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var p alertPage
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Total != 2 || p.Unfiltered != 3 || p.TotalPages != 2 || p.Page != 2 || len(p.Items) != 1 {
		t.Fatalf("unexpected page: %+v", p)
	}
	if len(p.Quick) != 5 || len(p.Categories["severity"]) != 3 {
		t.Fatalf("filter vocabulary missing: %v %v", p.Quick, p.Categories)
	}

	rec = do(t, h, http.MethodGet, "/api/alerts?filter=status:open&q=disk", "")
	p = alertPage{}
	json.NewDecoder(rec.Body).Decode(&p)
	if p.Total != 1 || p.Items[0].ID != "a3" {
		t.Fatalf("filter+search = %+v", p.Items)
	}
}

func TestBadQueriesAreRejected(t *testing.T) {
	_, h, _ := newTestServer(t)

	for _, target := range []string{
		"/api/alerts?quick=Nope",
		"/api/alerts?filter=color:red",
		"/api/alerts?sort=flavour",
	} {
		if rec := do(t, h, http.MethodGet, target, ""); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status %d", target, rec.Code)
		}
	}
	if rec := do(t, h, http.MethodGet, "/api/alerts?role=ghost", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown role: status %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/alerts/a1/acknowledge", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET on action: status %d", rec.Code)
	}
}

func TestAcknowledgeCallsBackend(t *testing.T) {
	_, h, be := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/alerts/a1/acknowledge", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var n model.Notice
	json.NewDecoder(rec.Body).Decode(&n)
	if n.Level != model.NoticeSuccess || be.acks.Load() != 1 {
		t.Fatalf("notice %+v, acks %d", n, be.acks.Load())
	}

	rec = do(t, h, http.MethodPost, "/api/alerts/zz/acknowledge", "")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("backend failure should be 502, got %d", rec.Code)
	}
}

func TestTicketValidationHappensFirst(t *testing.T) {
	_, h, be := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/tickets", `{"title": "", "priority": "high"}`)
	if rec.Code != http.StatusBadRequest || be.tickets.Load() != 0 {
		t.Fatalf("status %d, backend calls %d", rec.Code, be.tickets.Load())
	}

	rec = do(t, h, http.MethodPost, "/api/alerts/a2/ticket", "")
	if rec.Code != http.StatusOK || be.tickets.Load() != 1 {
		t.Fatalf("ticket from alert: status %d: %s", rec.Code, rec.Body)
	}
}

func TestDashboardPageRenders(t *testing.T) {
	_, h, _ := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/?quick=Unacknowledged", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	body := rec.Body.String()
	for _, want := range []string{"NOC Operator", "Core link down", "Disk 80%", "Critical alerts (2)"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, "<td>PSU failure</td>") {
		t.Error("acknowledged alert should be filtered from the table")
	}
}

func TestAlertsCSVUsesFilters(t *testing.T) {
	_, h, _ := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/export.csv?quick=Critical+Only&page_size=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "attachment") {
		t.Fatal("expected an attachment")
	}
	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows (pagination ignored), got %d", len(rows))
	}
}

func TestReportAndMetrics(t *testing.T) {
	_, h, _ := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/report", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "NOC Operator") {
		t.Fatalf("report: status %d", rec.Code)
	}

	// The initial load recorded a poll outcome.
	rec = do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "nocview_") {
		t.Fatalf("metrics: status %d", rec.Code)
	}
}

func TestSetPeriod(t *testing.T) {
	_, h, _ := newTestServer(t)

	if rec := do(t, h, http.MethodPost, "/api/period?period=5y", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid period: status %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/period?period=7d", ""); rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	rec := do(t, h, http.MethodGet, "/api/status", "")
	var status map[string]interface{}
	json.NewDecoder(rec.Body).Decode(&status)
	if status["period"] != "7d" {
		t.Fatalf("status = %v", status)
	}
}

func TestNewBoardLoadsOnce(t *testing.T) {
	_, h, be := newTestServer(t)

	for i := 0; i < 3; i++ {
		if rec := do(t, h, http.MethodGet, "/api/alerts", ""); rec.Code != http.StatusOK {
			t.Fatalf("status %d: %s", rec.Code, rec.Body)
		}
	}
	// Give a poll cycle that started right away time to reach the backend.
	time.Sleep(100 * time.Millisecond)
	if n := be.alerts.Load(); n != 1 {
		t.Fatalf("backend alerts fetched %d times, want 1", n)
	}
}

func TestSlowLoadDoesNotBlockOtherRoles(t *testing.T) {
	be := &backend{hold: make(chan struct{}), held: make(chan struct{})}
	s, h, _ := newTestServerWith(t, be)
	release := sync.OnceFunc(func() { close(be.hold) })
	defer release()

	nocDone := make(chan int)
	go func() {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/snapshot?role=noc", nil))
		nocDone <- rec.Code
	}()
	<-be.held

	sreDone := make(chan int)
	go func() {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/snapshot?role=sre", nil))
		sreDone <- rec.Code
	}()
	select {
	case code := <-sreDone:
		if code != http.StatusOK {
			t.Fatalf("sre snapshot: status %d", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sre request waited for the noc load")
	}
	if s.context() == nil {
		t.Fatal("server context unavailable")
	}

	release()
	if code := <-nocDone; code != http.StatusOK {
		t.Fatalf("noc snapshot: status %d", code)
	}
}
