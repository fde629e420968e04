package dashboard

import (
	"cmp"
	"strconv"
	"strings"

	"github.com/user/nocview/internal/model"
	"github.com/user/nocview/internal/pipeline"
)

// Quick filter names.
const (
	QuickCritical       = "Critical Only"
	QuickUnacknowledged = "Unacknowledged"
	QuickRepeated       = "Repeated Alerts"
	QuickMyDevices      = "My Devices"
	QuickHighConfidence = "High Confidence"

	QuickMyTickets  = "My Tickets"
	QuickOpenOnly   = "Open Only"
	QuickUnassigned = "Unassigned"

	QuickUnhealthy = "Unhealthy"
	QuickOffline   = "Offline"
	QuickNoisy     = "Noisy"

	QuickActiveOnly = "Active Only"
	QuickAdmins     = "Admins"
)

// Thresholds used by quick filters.
const (
	HighConfidence  = 80
	UnhealthyBelow  = 70
	NoisyFromAlerts = 5
)

// Options carries the operator-specific inputs of the page pipelines.
type Options struct {
	// MyDevices is the allowlist behind the "My Devices" filter.
	MyDevices []string
	// Operator is matched against ticket assignees for "My Tickets".
	Operator string
	PageSize int
}

// AlertPipeline builds the priority alerts pipeline.
func AlertPipeline(opts Options) *pipeline.Pipeline[model.Alert] {
	mine := make(map[string]bool, len(opts.MyDevices))
	for _, d := range opts.MyDevices {
		mine[strings.ToLower(strings.TrimSpace(d))] = true
	}

	return pipeline.New(func(a model.Alert) []string {
		return []string{a.ID, a.Title, a.AITitle, a.AISummary, a.Device.Name, a.Device.IP, a.Severity, a.Status}
	}).
		Category("severity", func(a model.Alert) string { return a.Severity }).
		Category("status", func(a model.Alert) string { return a.Status }).
		Category("device", func(a model.Alert) string { return a.Device.Name }).
		Quick(pipeline.Predicate(QuickCritical, func(a model.Alert) bool {
			return a.Severity == model.SeverityCritical
		})).
		Quick(pipeline.Predicate(QuickUnacknowledged, func(a model.Alert) bool {
			return a.Status == model.AlertOpen
		})).
		Quick(pipeline.Repeated(QuickRepeated, repeatKey)).
		Quick(pipeline.Predicate(QuickMyDevices, func(a model.Alert) bool {
			return mine[strings.ToLower(a.Device.Name)]
		})).
		Quick(pipeline.Predicate(QuickHighConfidence, func(a model.Alert) bool {
			return a.Confidence >= HighConfidence
		})).
		Sort("time", func(a, b model.Alert) int { return a.Timestamp.Time.Compare(b.Timestamp.Time) }).
		Sort("severity", func(a, b model.Alert) int { return cmp.Compare(severityRank(a.Severity), severityRank(b.Severity)) }).
		Sort("confidence", func(a, b model.Alert) int { return cmp.Compare(a.Confidence, b.Confidence) }).
		Sort("device", func(a, b model.Alert) int { return strings.Compare(a.Device.Name, b.Device.Name) })
}

// repeatKey groups alerts by AI title, falling back to the AI summary.
func repeatKey(a model.Alert) string {
	if a.AITitle != "" {
		return strings.ToLower(a.AITitle)
	}
	return strings.ToLower(a.AISummary)
}

// severityRank orders severities so that critical is the highest.
func severityRank(s string) int {
	switch s {
	case model.SeverityCritical:
		return 4
	case model.SeverityMajor:
		return 3
	case model.SeverityMinor:
		return 2
	case model.SeverityInfo:
		return 1
	}
	return 0
}

func priorityRank(p string) int {
	switch p {
	case model.PriorityCritical:
		return 4
	case model.PriorityHigh:
		return 3
	case model.PriorityMedium:
		return 2
	case model.PriorityLow:
		return 1
	}
	return 0
}

// TicketPipeline builds the tickets pipeline.
func TicketPipeline(opts Options) *pipeline.Pipeline[model.Ticket] {
	operator := strings.ToLower(strings.TrimSpace(opts.Operator))

	return pipeline.New(func(t model.Ticket) []string {
		return []string{t.ID, t.Number, t.Title, t.Description, t.DeviceName, t.Assignee, t.AlertID}
	}).
		Category("priority", func(t model.Ticket) string { return t.Priority }).
		Category("status", func(t model.Ticket) string { return t.Status }).
		Category("assignee", func(t model.Ticket) string { return t.Assignee }).
		Quick(pipeline.Predicate(QuickMyTickets, func(t model.Ticket) bool {
			return operator != "" && strings.ToLower(t.Assignee) == operator
		})).
		Quick(pipeline.Predicate(QuickCritical, func(t model.Ticket) bool {
			return t.Priority == model.PriorityCritical
		})).
		Quick(pipeline.Predicate(QuickOpenOnly, func(t model.Ticket) bool {
			return t.Status == model.TicketOpen || t.Status == model.TicketInProgress
		})).
		Quick(pipeline.Predicate(QuickUnassigned, func(t model.Ticket) bool {
			return strings.TrimSpace(t.Assignee) == ""
		})).
		Sort("created", func(a, b model.Ticket) int { return a.CreatedAt.Time.Compare(b.CreatedAt.Time) }).
		Sort("updated", func(a, b model.Ticket) int { return a.UpdatedAt.Time.Compare(b.UpdatedAt.Time) }).
		Sort("priority", func(a, b model.Ticket) int { return cmp.Compare(priorityRank(a.Priority), priorityRank(b.Priority)) }).
		Sort("number", func(a, b model.Ticket) int { return strings.Compare(a.Number, b.Number) })
}

// DevicePipeline builds the devices pipeline.
func DevicePipeline(Options) *pipeline.Pipeline[model.Device] {
	return pipeline.New(func(d model.Device) []string {
		return []string{d.ID, d.Name, d.IP, d.Type, d.Status}
	}).
		Category("status", func(d model.Device) string { return d.Status }).
		Category("type", func(d model.Device) string { return d.Type }).
		Quick(pipeline.Predicate(QuickUnhealthy, func(d model.Device) bool {
			return d.HealthScore < UnhealthyBelow
		})).
		Quick(pipeline.Predicate(QuickOffline, func(d model.Device) bool {
			return d.Status == model.DeviceOffline
		})).
		Quick(pipeline.Predicate(QuickNoisy, func(d model.Device) bool {
			return d.RecentAlerts >= NoisyFromAlerts
		})).
		Sort("name", func(a, b model.Device) int { return strings.Compare(a.Name, b.Name) }).
		Sort("health", func(a, b model.Device) int { return cmp.Compare(a.HealthScore, b.HealthScore) }).
		Sort("alerts", func(a, b model.Device) int { return cmp.Compare(a.RecentAlerts, b.RecentAlerts) }).
		Sort("last_seen", func(a, b model.Device) int { return a.LastSeen.Time.Compare(b.LastSeen.Time) })
}

// UserPipeline builds the users pipeline.
func UserPipeline(Options) *pipeline.Pipeline[model.User] {
	return pipeline.New(func(u model.User) []string {
		return []string{u.ID, u.Username, u.Name, u.Email, u.Role}
	}).
		Category("role", func(u model.User) string { return u.Role }).
		Category("active", func(u model.User) string { return strconv.FormatBool(u.Active) }).
		Quick(pipeline.Predicate(QuickActiveOnly, func(u model.User) bool { return u.Active })).
		Quick(pipeline.Predicate(QuickAdmins, func(u model.User) bool {
			return strings.Contains(u.Role, "admin")
		})).
		Sort("username", func(a, b model.User) int { return strings.Compare(a.Username, b.Username) }).
		Sort("role", func(a, b model.User) int { return strings.Compare(a.Role, b.Role) }).
		Sort("last_login", func(a, b model.User) int { return a.LastLogin.Time.Compare(b.LastLogin.Time) })
}
