package normalize

import (
	"errors"
	"testing"
	"time"

	"github.com/user/nocview/internal/model"
)

func clockAt(now time.Time) *Normalizer {
	return New(func() time.Time { return now })
}

func TestTimestampUnion(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n := clockAt(now)

	tests := []struct {
		name     string
		raw      any
		wantZero bool
		display  string
	}{
		{name: "missing", raw: nil, wantZero: true, display: model.NotAvailable},
		{name: "empty string", raw: "  ", wantZero: true, display: model.NotAvailable},
		{name: "display text", raw: "5 min ago", wantZero: true, display: "5 min ago"},
		{name: "rfc3339", raw: "2026-03-01T11:00:00Z", display: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC).Local().Format(DisplayLayout)},
		{name: "pair", raw: map[string]any{"relative": "1h ago", "absolute": "2026-03-01T11:00:00Z"}, display: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC).Local().Format(DisplayLayout)},
		{name: "pair relative only", raw: map[string]any{"relative": "1h ago"}, wantZero: true, display: "1h ago"},
		{name: "empty pair", raw: map[string]any{}, wantZero: true, display: model.NotAvailable},
		{name: "epoch seconds", raw: float64(now.Unix()), display: now.Local().Format(DisplayLayout)},
		{name: "epoch millis", raw: float64(now.UnixMilli()), display: now.Local().Format(DisplayLayout)},
		{name: "negative epoch", raw: float64(-5), wantZero: true, display: model.NotAvailable},
		{name: "wrong type", raw: []any{"x"}, wantZero: true, display: model.NotAvailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Timestamp(tt.raw)
			if got.IsZero() != tt.wantZero {
				t.Fatalf("IsZero = %v, want %v", got.IsZero(), tt.wantZero)
			}
			if got.Display != tt.display {
				t.Fatalf("Display = %q, want %q", got.Display, tt.display)
			}
			if got.Display == "" || got.Relative == "" {
				t.Fatalf("timestamp must always carry display text: %+v", got)
			}
		})
	}
}

func TestTimestampRelativeUsesClock(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if got := clockAt(now).Timestamp("2026-03-01T11:00:00Z"); got.Relative != "1 hour ago" {
		t.Fatalf("Relative = %q, want %q", got.Relative, "1 hour ago")
	}
	if got := clockAt(now.Add(24 * time.Hour)).Timestamp("2026-03-01T11:00:00Z"); got.Relative != "1 day ago" {
		t.Fatalf("Relative = %q, want %q", got.Relative, "1 day ago")
	}
}

func TestTimestampPairKeepsRelative(t *testing.T) {
	got := New(nil).Timestamp(map[string]any{"relative": "2 hours ago", "absolute": "2026-03-01T10:00:00Z"})
	if got.Relative != "2 hours ago" {
		t.Fatalf("expected backend relative text, got %q", got.Relative)
	}
}

func TestDeviceRef(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want model.DeviceRef
	}{
		{name: "missing", raw: nil, want: model.DeviceRef{Name: "Unknown", Icon: "server"}},
		{name: "string", raw: "Core-SW-01", want: model.DeviceRef{Name: "Core-SW-01", Icon: "server"}},
		{name: "object", raw: map[string]any{"name": "FW-DMZ-03", "ip": "10.0.0.3", "icon": "Firewall"}, want: model.DeviceRef{Name: "FW-DMZ-03", IP: "10.0.0.3", Icon: "firewall"}},
		{name: "malformed object", raw: map[string]any{"name": 42.0}, want: model.DeviceRef{Name: "42", Icon: "server"}},
		{name: "number", raw: 3.0, want: model.DeviceRef{Name: "Unknown", Icon: "server"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeviceRef(tt.raw); got != tt.want {
				t.Fatalf("DeviceRef() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSeverityVariants(t *testing.T) {
	tests := map[string]string{
		"CRITICAL": model.SeverityCritical,
		"high":     model.SeverityMajor,
		"medium":   model.SeverityMinor,
		"warning":  model.SeverityMinor,
		"low":      model.SeverityInfo,
		"success":  model.SeverityInfo,
		"neutral":  model.SeverityInfo,
		"Bizarre ": "bizarre",
	}
	for in, want := range tests {
		if got := Severity(in); got != want {
			t.Errorf("Severity(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAlertNeverDropsRecords(t *testing.T) {
	raw := []any{
		map[string]any{"id": "a1", "severity": "high", "status": "active", "device": "RTR-EDGE-05", "timestamp": "2026-03-01T11:00:00Z", "confidence": 0.87},
		map[string]any{"id": "a2", "severity": "weird", "device": map[string]any{"name": "Core-SW-01", "ip": "10.0.0.1"}, "ai": map[string]any{"title": "Link Down", "confidence": 91.0}},
		"a3",
		map[string]any{},
	}

	alerts := New(nil).Alerts(raw)
	if len(alerts) != len(raw) {
		t.Fatalf("expected %d alerts, got %d", len(raw), len(alerts))
	}

	if alerts[0].Severity != model.SeverityMajor || alerts[0].Status != model.AlertOpen {
		t.Fatalf("unexpected enums: %+v", alerts[0])
	}
	if alerts[0].Confidence != 87 {
		t.Fatalf("expected fractional confidence scaled to 87, got %d", alerts[0].Confidence)
	}
	if alerts[1].Severity != "weird" {
		t.Fatalf("unknown severity must be kept, got %q", alerts[1].Severity)
	}
	if alerts[1].AITitle != "Link Down" || alerts[1].Confidence != 91 {
		t.Fatalf("nested ai block not read: %+v", alerts[1])
	}
	if alerts[1].Device.IP != "10.0.0.1" {
		t.Fatalf("device ip lost: %+v", alerts[1].Device)
	}
	if alerts[2].ID != "a3" {
		t.Fatalf("scalar element should become id, got %+v", alerts[2])
	}
	for _, a := range alerts {
		if a.Timestamp.Display == "" {
			t.Fatalf("alert %q has no display timestamp", a.ID)
		}
		if a.Device.Name == "" {
			t.Fatalf("alert %q has no device name", a.ID)
		}
	}
}

func TestTicketNormalization(t *testing.T) {
	tk := New(nil).Ticket(map[string]any{
		"id":          12.0,
		"title":       "Core switch flapping",
		"priority":    "P1",
		"status":      "in_progress",
		"assignee":    map[string]any{"username": "jdoe"},
		"device_name": "Core-SW-01",
	})
	if tk.ID != "12" || tk.Number != "TKT-12" {
		t.Fatalf("unexpected id/number: %+v", tk)
	}
	if tk.Priority != model.PriorityCritical || tk.Status != model.TicketInProgress {
		t.Fatalf("unexpected enums: %+v", tk)
	}
	if tk.Assignee != "jdoe" || tk.DeviceName != "Core-SW-01" {
		t.Fatalf("unexpected people/device: %+v", tk)
	}
	if tk.CreatedAt.Display != model.NotAvailable {
		t.Fatalf("missing createdAt should display N/A, got %q", tk.CreatedAt.Display)
	}
}

func TestDeviceAndStats(t *testing.T) {
	d := New(nil).Device(map[string]any{"name": "FW-DMZ-03", "status": "down", "healthScore": "140", "recentAlerts": -3.0})
	if d.Status != model.DeviceOffline || d.HealthScore != 100 || d.RecentAlerts != 0 {
		t.Fatalf("unexpected device: %+v", d)
	}

	stats := DeviceStats(map[string]any{"online": 5.0, "warning": 2.0, "critical": 1.0, "offline": 1.0})
	if stats.Total != 9 {
		t.Fatalf("expected derived total 9, got %d", stats.Total)
	}
}

func TestUserActiveVariants(t *testing.T) {
	n := New(nil)
	if !n.User(map[string]any{"username": "a", "status": "Active"}).Active {
		t.Fatal("status=active should be active")
	}
	if n.User(map[string]any{"username": "b", "is_active": false}).Active {
		t.Fatal("is_active=false should be inactive")
	}
	if u := n.User(map[string]any{"username": "c"}); u.Name != "c" {
		t.Fatalf("name should fall back to username, got %q", u.Name)
	}
}

func TestEnvelope(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "bare array", body: `[{"id":"1"}]`, want: 1},
		{name: "nested envelope", body: `{"data":{"items":[{"id":"1"},{"id":"2"}]}}`, want: 2},
		{name: "named key", body: `{"alerts":[{"id":"1"}],"total":1}`, want: 1},
		{name: "null data", body: `{"data":null}`, want: 0},
		{name: "empty array", body: `[]`, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Envelope([]byte(tt.body))
			if err != nil {
				t.Fatalf("Envelope: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("got %d records, want %d", len(got), tt.want)
			}
		})
	}
}

func TestEnvelopeRejectsUnreadableBodies(t *testing.T) {
	for _, body := range []string{
		`<html>gateway login</html>`,
		`{"data":[{"id":"1"}`,
		``,
		`{"status":"ok"}`,
		`"alerts"`,
		`{"data":"maintenance"}`,
	} {
		if _, err := Envelope([]byte(body)); !errors.Is(err, ErrUnexpectedBody) {
			t.Errorf("Envelope(%q) err = %v, want ErrUnexpectedBody", body, err)
		}
	}
}

func TestObject(t *testing.T) {
	got, err := Object([]byte(`{"data":{"activeCount":3}}`))
	if err != nil {
		t.Fatalf("Object: %v", err)
	}
	if Int(got["activeCount"], 0) != 3 {
		t.Fatalf("object envelope not unwrapped: %v", got)
	}
	for _, body := range []string{`<html></html>`, `[1,2]`, `null`} {
		if _, err := Object([]byte(body)); !errors.Is(err, ErrUnexpectedBody) {
			t.Errorf("Object(%q) err = %v, want ErrUnexpectedBody", body, err)
		}
	}
}
