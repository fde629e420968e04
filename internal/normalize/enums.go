package normalize

import (
	"strings"

	"github.com/user/nocview/internal/model"
)

// severityVariants maps every severity spelling seen across backend
// endpoints onto the canonical critical|major|minor|info scale.
var severityVariants = map[string]string{
	"critical": model.SeverityCritical,
	"crit":     model.SeverityCritical,
	"fatal":    model.SeverityCritical,
	"major":    model.SeverityMajor,
	"high":     model.SeverityMajor,
	"error":    model.SeverityMajor,
	"minor":    model.SeverityMinor,
	"medium":   model.SeverityMinor,
	"warning":  model.SeverityMinor,
	"warn":     model.SeverityMinor,
	"info":     model.SeverityInfo,
	"low":      model.SeverityInfo,
	"success":  model.SeverityInfo,
	"neutral":  model.SeverityInfo,
}

var alertStatusVariants = map[string]string{
	"open":         model.AlertOpen,
	"active":       model.AlertOpen,
	"new":          model.AlertOpen,
	"firing":       model.AlertOpen,
	"acknowledged": model.AlertAcknowledged,
	"ack":          model.AlertAcknowledged,
	"acked":        model.AlertAcknowledged,
	"resolved":     model.AlertResolved,
	"closed":       model.AlertResolved,
	"cleared":      model.AlertResolved,
}

var ticketStatusVariants = map[string]string{
	"open":        model.TicketOpen,
	"new":         model.TicketOpen,
	"in-progress": model.TicketInProgress,
	"in_progress": model.TicketInProgress,
	"in progress": model.TicketInProgress,
	"inprogress":  model.TicketInProgress,
	"working":     model.TicketInProgress,
	"resolved":    model.TicketResolved,
	"closed":      model.TicketClosed,
}

var priorityVariants = map[string]string{
	"critical": model.PriorityCritical,
	"p1":       model.PriorityCritical,
	"high":     model.PriorityHigh,
	"major":    model.PriorityHigh,
	"p2":       model.PriorityHigh,
	"medium":   model.PriorityMedium,
	"minor":    model.PriorityMedium,
	"p3":       model.PriorityMedium,
	"low":      model.PriorityLow,
	"info":     model.PriorityLow,
	"p4":       model.PriorityLow,
}

var deviceStatusVariants = map[string]string{
	"online":   model.DeviceOnline,
	"up":       model.DeviceOnline,
	"healthy":  model.DeviceOnline,
	"warning":  model.DeviceWarning,
	"degraded": model.DeviceWarning,
	"critical": model.DeviceCritical,
	"down":     model.DeviceOffline,
	"offline":  model.DeviceOffline,
}

// Severity maps a severity variant to the canonical enum. Unrecognized
// values are returned lowercased rather than discarded.
func Severity(s string) string {
	return canonical(severityVariants, s)
}

// AlertStatus maps an alert status variant to the canonical enum.
func AlertStatus(s string) string {
	return canonical(alertStatusVariants, s)
}

// TicketStatus maps a ticket status variant to the canonical enum.
func TicketStatus(s string) string {
	return canonical(ticketStatusVariants, s)
}

// Priority maps a ticket priority variant to the canonical enum.
func Priority(s string) string {
	return canonical(priorityVariants, s)
}

// DeviceStatus maps a device status variant to the canonical enum.
func DeviceStatus(s string) string {
	return canonical(deviceStatusVariants, s)
}

func canonical(variants map[string]string, s string) string {
	key := label(s)
	if v, ok := variants[key]; ok {
		return v
	}
	return strings.TrimSpace(key)
}
