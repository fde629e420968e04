package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/user/nocview/internal/model"
	"github.com/user/nocview/internal/normalize"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL + "/", Token: "secret"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRequiresURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestAlertsSendsTokenAndPeriod(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/alerts", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("missing X-Request-ID")
		}
		if got := r.URL.Query().Get("period"); got != "7d" {
			t.Errorf("period = %q", got)
		}
		io.WriteString(w, `{"data": [
			{"id": "a1", "severity": "HIGH", "status": "open", "device": {"name": "Core-SW-01", "ip": "10.0.0.1"}},
			{"id": "a2", "severity": "critical", "device": "FW-DMZ-03", "ai": {"title": "Link flap", "confidence": 0.91}},
			"garbage"
		]}`)
	})
	c := newTestClient(t, mux)

	alerts, err := c.Alerts(context.Background(), "7d")
	if err != nil {
		t.Fatalf("Alerts: %v", err)
	}
	if len(alerts) != 3 {
		t.Fatalf("expected 3 alerts (none dropped), got %d", len(alerts))
	}
	if alerts[0].Severity != model.SeverityMajor || alerts[0].Device.IP != "10.0.0.1" {
		t.Fatalf("alert 0 = %+v", alerts[0])
	}
	if alerts[1].AITitle != "Link flap" || alerts[1].Confidence != 91 || alerts[1].Device.Name != "FW-DMZ-03" {
		t.Fatalf("alert 1 = %+v", alerts[1])
	}
}

func TestStatusErrorIsTyped(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such alert", http.StatusNotFound)
	}))

	err := c.Acknowledge(context.Background(), "missing")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.Code != http.StatusNotFound || se.Path != "/api/alerts/missing/acknowledge" {
		t.Fatalf("unexpected status error: %+v", se)
	}
	if !IsNotFound(err) {
		t.Fatal("IsNotFound should match")
	}
}

func TestCreateAndUpdateTicket(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tickets", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		var in model.TicketInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id": "42", "title": in.Title, "priority": in.Priority, "alert_id": in.AlertID,
		})
	})
	mux.HandleFunc("/api/tickets/42", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s", r.Method)
		}
		var upd model.TicketUpdate
		json.NewDecoder(r.Body).Decode(&upd)
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"id": "42", "status": upd.Status}})
	})
	c := newTestClient(t, mux)

	tk, err := c.CreateTicket(context.Background(), model.TicketInput{Title: "Link down", Priority: "high", AlertID: "a1"})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if tk.Number != "TKT-42" || tk.Priority != model.PriorityHigh || tk.AlertID != "a1" || tk.Status != model.TicketOpen {
		t.Fatalf("ticket = %+v", tk)
	}

	tk, err = c.UpdateTicket(context.Background(), "42", model.TicketUpdate{Status: model.TicketResolved})
	if err != nil {
		t.Fatalf("UpdateTicket: %v", err)
	}
	if tk.Status != model.TicketResolved {
		t.Fatalf("status = %q", tk.Status)
	}
}

func TestSeverityDistributionAcceptsObject(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"critical": 3, "high": 5}`)
	}))
	buckets, err := c.SeverityDistribution(context.Background())
	if err != nil {
		t.Fatalf("SeverityDistribution: %v", err)
	}
	if len(buckets) != 2 || buckets[0].Severity != "critical" || buckets[0].Count != 3 || buckets[1].Severity != "major" {
		t.Fatalf("buckets = %+v", buckets)
	}
}

func TestExportReportUsesAttachmentName(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "csv" {
			t.Errorf("format = %q", r.URL.Query().Get("format"))
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="alerts.csv"`)
		io.WriteString(w, "id,severity\na1,critical\n")
	}))
	exp, err := c.ExportReport(context.Background(), "")
	if err != nil {
		t.Fatalf("ExportReport: %v", err)
	}
	if exp.Filename != "alerts.csv" || exp.ContentType != "text/csv" || len(exp.Data) == 0 {
		t.Fatalf("export = %+v", exp)
	}
}

func TestUserActions(t *testing.T) {
	var calls []string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	ctx := context.Background()
	if err := c.DeleteUser(ctx, "u1"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if err := c.ResetPassword(ctx, "u1"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	if err := c.ToggleUserStatus(ctx, "u1"); err != nil {
		t.Fatalf("ToggleUserStatus: %v", err)
	}
	want := []string{"DELETE /api/users/u1", "POST /api/users/u1/reset-password", "POST /api/users/u1/toggle-status"}
	for i, w := range want {
		if calls[i] != w {
			t.Fatalf("call %d = %q, want %q", i, calls[i], w)
		}
	}
}

func TestUnreadableBodyIsFetchError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, "<html>gateway login</html>")
	}))
	ctx := context.Background()

	alerts, err := c.Alerts(ctx, "24h")
	if !errors.Is(err, normalize.ErrUnexpectedBody) {
		t.Fatalf("Alerts err = %v, want ErrUnexpectedBody", err)
	}
	if alerts != nil {
		t.Fatalf("alerts = %+v, want nil", alerts)
	}
	if _, err := c.AlertsSummary(ctx); !errors.Is(err, normalize.ErrUnexpectedBody) {
		t.Fatalf("AlertsSummary err = %v", err)
	}
	if _, err := c.SeverityDistribution(ctx); !errors.Is(err, normalize.ErrUnexpectedBody) {
		t.Fatalf("SeverityDistribution err = %v", err)
	}
	if _, err := c.Tickets(ctx); err == nil {
		t.Fatal("Tickets should fail")
	}
}

func TestListWithoutRecordsIsFetchError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"degraded"}`)
	}))
	if _, err := c.Devices(context.Background()); !errors.Is(err, normalize.ErrUnexpectedBody) {
		t.Fatalf("Devices err = %v, want ErrUnexpectedBody", err)
	}
}

func TestMutationToleratesEmptyEcho(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	tk, err := c.CreateTicket(context.Background(), model.TicketInput{Title: "Link down", Priority: "high"})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if tk.ID != "" {
		t.Fatalf("ticket = %+v, want empty", tk)
	}
}

func TestStatusErrorBodyKeepsRunesWhole(t *testing.T) {
	body := strings.Repeat("a", maxErrorBody-1) + "é" + strings.Repeat("b", 10)
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, body)
	}))

	_, err := c.Tickets(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if !utf8.ValidString(se.Body) {
		t.Fatalf("body split a rune: %q", se.Body[len(se.Body)-4:])
	}
	if len(se.Body) != maxErrorBody-1 {
		t.Fatalf("len(body) = %d, want %d", len(se.Body), maxErrorBody-1)
	}
}

func TestErrorText(t *testing.T) {
	short := "  bad gateway \n"
	if got := errorText([]byte(short)); got != "bad gateway" {
		t.Fatalf("errorText(%q) = %q", short, got)
	}
	long := strings.Repeat("ü", maxErrorBody)
	got := errorText([]byte(long))
	if len(got) != maxErrorBody || !utf8.ValidString(got) {
		t.Fatalf("len = %d valid = %v", len(got), utf8.ValidString(got))
	}
}
