package normalize

import (
	"math"
	"strings"

	"github.com/user/nocview/internal/model"
)

// Records converts each element of a decoded JSON array with fn. Elements
// that are not objects are wrapped so they still produce a record.
func Records[T any](raw []any, fn func(map[string]any) T) []T {
	out := make([]T, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			m = map[string]any{"id": String(item)}
		}
		out = append(out, fn(m))
	}
	return out
}

// Alert builds a canonical alert from a raw record.
func (n *Normalizer) Alert(m map[string]any) model.Alert {
	a := model.Alert{
		ID:        strings.TrimSpace(String(first(m, "id", "_id", "alert_id", "alertId"))),
		Severity:  Severity(String(first(m, "severity", "level"))),
		Status:    AlertStatus(String(first(m, "status", "state"))),
		Timestamp: n.Timestamp(first(m, "timestamp", "time", "created_at", "createdAt", "fired_at")),
		Title:     strings.TrimSpace(String(first(m, "title", "name", "message"))),
		AITitle:   strings.TrimSpace(String(first(m, "ai_title", "aiTitle"))),
		AISummary: strings.TrimSpace(String(first(m, "ai_summary", "aiSummary", "summary", "description"))),
	}

	device := first(m, "device", "device_name", "deviceName", "host", "hostname")
	a.Device = DeviceRef(device)
	if a.Device.IP == "" {
		a.Device.IP = strings.TrimSpace(String(first(m, "device_ip", "deviceIp", "ip")))
	}

	confidence := first(m, "confidence", "ai_confidence", "aiConfidence")
	if ai, ok := m["ai"].(map[string]any); ok {
		if a.AITitle == "" {
			a.AITitle = strings.TrimSpace(String(first(ai, "title")))
		}
		if a.AISummary == "" {
			a.AISummary = strings.TrimSpace(String(first(ai, "summary")))
		}
		if confidence == nil {
			confidence = first(ai, "confidence")
		}
	}
	a.Confidence = Confidence(confidence)

	if a.Status == "" {
		a.Status = model.AlertOpen
	}
	return a
}

// Confidence converts a score given as 0-100 or as a 0-1 fraction.
func Confidence(raw any) int {
	f := Float(raw, 0)
	if s, ok := raw.(string); ok && strings.HasSuffix(strings.TrimSpace(s), "%") {
		f = float64(Int(s, 0))
	} else if f > 0 && f < 1 {
		f *= 100
	}
	return clamp(int(math.Round(f)), 0, 100)
}

// Alerts normalizes a list of raw alerts.
func (n *Normalizer) Alerts(raw []any) []model.Alert {
	return Records(raw, n.Alert)
}

// Ticket builds a canonical ticket from a raw record.
func (n *Normalizer) Ticket(m map[string]any) model.Ticket {
	t := model.Ticket{
		ID:          strings.TrimSpace(String(first(m, "id", "_id", "ticket_id", "ticketId"))),
		Number:      strings.TrimSpace(String(first(m, "ticket_number", "ticketNumber", "number"))),
		Title:       strings.TrimSpace(String(first(m, "title", "subject"))),
		Description: strings.TrimSpace(String(first(m, "description", "body"))),
		Priority:    Priority(String(first(m, "priority", "severity"))),
		Status:      TicketStatus(String(first(m, "status", "state"))),
		AlertID:     strings.TrimSpace(String(first(m, "alert_id", "alertId", "linked_alert"))),
		DeviceName:  DeviceRef(first(m, "device", "device_name", "deviceName")).Name,
		Assignee:    person(first(m, "assignee", "assigned_to", "assignedTo")),
		CreatedAt:   n.Timestamp(first(m, "created_at", "createdAt")),
		UpdatedAt:   n.Timestamp(first(m, "updated_at", "updatedAt")),
	}
	if t.Number == "" && t.ID != "" {
		t.Number = "TKT-" + t.ID
	}
	if t.Status == "" {
		t.Status = model.TicketOpen
	}
	return t
}

// person renders an assignee given as a name or as a user object.
func person(raw any) string {
	if m, ok := raw.(map[string]any); ok {
		return strings.TrimSpace(String(first(m, "name", "display_name", "displayName", "username")))
	}
	return strings.TrimSpace(String(raw))
}

// Tickets normalizes a list of raw tickets.
func (n *Normalizer) Tickets(raw []any) []model.Ticket {
	return Records(raw, n.Ticket)
}

// Device builds a canonical device from a raw record.
func (n *Normalizer) Device(m map[string]any) model.Device {
	d := model.Device{
		ID:           strings.TrimSpace(String(first(m, "id", "_id", "device_id", "deviceId"))),
		Name:         strings.TrimSpace(String(first(m, "name", "hostname", "device_name"))),
		IP:           strings.TrimSpace(String(first(m, "ip", "ip_address", "ipAddress"))),
		Type:         label(String(first(m, "type", "device_type", "deviceType", "kind"))),
		Status:       DeviceStatus(String(first(m, "status", "state"))),
		HealthScore:  clamp(Int(first(m, "health_score", "healthScore", "health"), 0), 0, 100),
		RecentAlerts: Int(first(m, "recent_alerts", "recentAlerts", "alert_count", "alerts"), 0),
		LastSeen:     n.Timestamp(first(m, "last_seen", "lastSeen", "updated_at")),
	}
	if d.Name == "" {
		d.Name = "Unknown"
	}
	if d.RecentAlerts < 0 {
		d.RecentAlerts = 0
	}
	return d
}

// Devices normalizes a list of raw devices.
func (n *Normalizer) Devices(raw []any) []model.Device {
	return Records(raw, n.Device)
}

// User builds a canonical user from a raw record.
func (n *Normalizer) User(m map[string]any) model.User {
	u := model.User{
		ID:        strings.TrimSpace(String(first(m, "id", "_id", "user_id", "userId"))),
		Username:  strings.TrimSpace(String(first(m, "username", "login"))),
		Name:      strings.TrimSpace(String(first(m, "name", "full_name", "fullName", "display_name"))),
		Email:     strings.TrimSpace(String(first(m, "email", "mail"))),
		Role:      label(String(first(m, "role"))),
		LastLogin: n.Timestamp(first(m, "last_login", "lastLogin")),
	}
	if v, ok := m["active"]; ok {
		u.Active = Bool(v)
	} else if v := first(m, "is_active", "isActive"); v != nil {
		u.Active = Bool(v)
	} else {
		u.Active = label(String(m["status"])) == "active"
	}
	if u.Name == "" {
		u.Name = u.Username
	}
	return u
}

// Users normalizes a list of raw users.
func (n *Normalizer) Users(raw []any) []model.User {
	return Records(raw, n.User)
}

// AlertsSummary normalizes the backend alert summary object.
func AlertsSummary(m map[string]any) model.AlertsSummary {
	return model.AlertsSummary{
		ActiveCount:   Int(first(m, "activeCount", "active_count", "active"), 0),
		CriticalCount: Int(first(m, "criticalCount", "critical_count", "critical"), 0),
		MajorCount:    Int(first(m, "majorCount", "major_count", "major", "high"), 0),
		MinorCount:    Int(first(m, "minorCount", "minor_count", "minor", "medium", "warning"), 0),
		InfoCount:     Int(first(m, "infoCount", "info_count", "info", "low"), 0),
		AckedCount:    Int(first(m, "acknowledgedCount", "acknowledged_count", "acknowledged"), 0),
		ResolvedToday: Int(first(m, "resolvedToday", "resolved_today"), 0),
	}
}

// DeviceNoise normalizes one noisy-device row.
func DeviceNoise(m map[string]any) model.DeviceNoise {
	return model.DeviceNoise{
		Device:     DeviceRef(first(m, "device", "device_name", "deviceName", "name")).Name,
		AlertCount: Int(first(m, "alert_count", "alertCount", "count", "alerts", "value"), 0),
		Percentage: Float(first(m, "percentage", "percent", "share"), 0),
	}
}

// AIMetric normalizes one AI metric row.
func AIMetric(m map[string]any) model.AIMetric {
	return model.AIMetric{
		Name:  strings.TrimSpace(String(first(m, "name", "metric", "label"))),
		Value: Float(first(m, "value", "score"), 0),
		Unit:  strings.TrimSpace(String(first(m, "unit"))),
	}
}

// AIInsight normalizes one AI insight row.
func AIInsight(m map[string]any) model.AIInsight {
	return model.AIInsight{
		ID:         strings.TrimSpace(String(first(m, "id", "_id"))),
		Title:      strings.TrimSpace(String(first(m, "title", "name"))),
		Summary:    strings.TrimSpace(String(first(m, "summary", "description", "text"))),
		Category:   label(String(first(m, "category", "type"))),
		Severity:   Severity(String(first(m, "severity", "impact"))),
		Confidence: Confidence(first(m, "confidence")),
	}
}

// TrendKPI normalizes one trend KPI row.
func TrendKPI(m map[string]any) model.TrendKPI {
	return model.TrendKPI{
		Name:     strings.TrimSpace(String(first(m, "name", "metric", "label"))),
		Current:  Float(first(m, "current", "value"), 0),
		Previous: Float(first(m, "previous", "prev", "last"), 0),
	}
}

// TimePoint normalizes one alerts-over-time bucket.
func TimePoint(m map[string]any) model.TimePoint {
	return model.TimePoint{
		Label:    strings.TrimSpace(String(first(m, "label", "time", "bucket", "hour", "date"))),
		Critical: Int(first(m, "critical"), 0),
		Major:    Int(first(m, "major", "high"), 0),
		Minor:    Int(first(m, "minor", "medium", "warning"), 0),
		Info:     Int(first(m, "info", "low"), 0),
	}
}

// SeverityBucket normalizes one severity distribution slice.
func SeverityBucket(m map[string]any) model.SeverityBucket {
	return model.SeverityBucket{
		Severity: Severity(String(first(m, "severity", "name", "label"))),
		Count:    Int(first(m, "count", "value"), 0),
	}
}

// TicketStats normalizes the ticket statistics object.
func TicketStats(m map[string]any) model.TicketStats {
	return model.TicketStats{
		AvgResolutionHours: Float(first(m, "avg_resolution_hours", "avgResolutionHours"), 0),
		OpenCount:          Int(first(m, "open_count", "openCount", "open"), 0),
		ResolvedCount:      Int(first(m, "resolved_count", "resolvedCount", "resolved"), 0),
		SLABreaches:        Int(first(m, "sla_breaches", "slaBreaches"), 0),
	}
}

// DeviceStats normalizes the device statistics object. A missing total is
// derived from the per-status counts.
func DeviceStats(m map[string]any) model.DeviceStats {
	s := model.DeviceStats{
		Online:   Int(first(m, "online"), 0),
		Warning:  Int(first(m, "warning"), 0),
		Critical: Int(first(m, "critical"), 0),
		Offline:  Int(first(m, "offline"), 0),
		Total:    Int(first(m, "total"), -1),
	}
	if s.Total < 0 {
		s.Total = s.Online + s.Warning + s.Critical + s.Offline
	}
	return s
}
