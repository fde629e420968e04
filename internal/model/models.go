// Package model defines core data structures for nocview.
package model

import "time"

// Canonical alert severities.
const (
	SeverityCritical = "critical"
	SeverityMajor    = "major"
	SeverityMinor    = "minor"
	SeverityInfo     = "info"
)

// Severities lists the canonical severities, most severe first.
var Severities = []string{SeverityCritical, SeverityMajor, SeverityMinor, SeverityInfo}

// Alert statuses.
const (
	AlertOpen         = "open"
	AlertAcknowledged = "acknowledged"
	AlertResolved     = "resolved"
)

// AlertStatuses lists the known alert statuses.
var AlertStatuses = []string{AlertOpen, AlertAcknowledged, AlertResolved}

// Ticket priorities.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

// Priorities lists the ticket priorities, most urgent first.
var Priorities = []string{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// Ticket statuses.
const (
	TicketOpen       = "open"
	TicketInProgress = "in-progress"
	TicketResolved   = "resolved"
	TicketClosed     = "closed"
)

// TicketStatuses lists the ticket statuses in lifecycle order.
var TicketStatuses = []string{TicketOpen, TicketInProgress, TicketResolved, TicketClosed}

// Device statuses.
const (
	DeviceOnline   = "online"
	DeviceWarning  = "warning"
	DeviceCritical = "critical"
	DeviceOffline  = "offline"
)

// DeviceStatuses lists the device statuses.
var DeviceStatuses = []string{DeviceOnline, DeviceWarning, DeviceCritical, DeviceOffline}

// NotAvailable is displayed for values that are missing or could not be parsed.
const NotAvailable = "N/A"

// Timestamp is a resolved point in time with a display form.
// Time is zero when the source value could not be parsed.
type Timestamp struct {
	Time     time.Time `json:"time"`
	Display  string    `json:"display"`
	Relative string    `json:"relative"`
}

// IsZero reports whether the timestamp carries no sortable time.
func (t Timestamp) IsZero() bool {
	return t.Time.IsZero()
}

// DeviceRef identifies the device an alert was raised on.
type DeviceRef struct {
	Name string `json:"name"`
	IP   string `json:"ip"`
	Icon string `json:"icon"`
}

// Alert is a normalized network alert.
type Alert struct {
	ID         string    `json:"id"`
	Severity   string    `json:"severity"`
	Status     string    `json:"status"`
	Timestamp  Timestamp `json:"timestamp"`
	Device     DeviceRef `json:"device"`
	Title      string    `json:"title"`
	AITitle    string    `json:"ai_title,omitempty"`
	AISummary  string    `json:"ai_summary,omitempty"`
	Confidence int       `json:"confidence"`
}

// DisplayTitle returns the best available human title for the alert.
func (a Alert) DisplayTitle() string {
	switch {
	case a.AITitle != "":
		return a.AITitle
	case a.Title != "":
		return a.Title
	case a.AISummary != "":
		return a.AISummary
	}
	return a.ID
}

// Ticket is a normalized incident ticket.
type Ticket struct {
	ID          string    `json:"id"`
	Number      string    `json:"number"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	AlertID     string    `json:"alert_id,omitempty"`
	DeviceName  string    `json:"device_name"`
	Assignee    string    `json:"assignee"`
	CreatedAt   Timestamp `json:"created_at"`
	UpdatedAt   Timestamp `json:"updated_at"`
}

// TicketInput holds the fields submitted by the create-ticket form.
type TicketInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	AlertID     string `json:"alert_id,omitempty"`
	DeviceName  string `json:"device_name,omitempty"`
	Assignee    string `json:"assignee,omitempty"`
}

// TicketUpdate carries the post-creation mutable fields of a ticket.
type TicketUpdate struct {
	Status   string `json:"status,omitempty"`
	Assignee string `json:"assignee,omitempty"`
}

// Device is a normalized managed network device.
type Device struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	IP           string    `json:"ip"`
	Type         string    `json:"type"`
	Status       string    `json:"status"`
	HealthScore  int       `json:"health_score"`
	RecentAlerts int       `json:"recent_alerts"`
	LastSeen     Timestamp `json:"last_seen"`
}

// User is a dashboard account managed by sysadmins.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	LastLogin Timestamp `json:"last_login"`
}

// UserInput holds the fields of the create/update user form.
type UserInput struct {
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Password string `json:"password,omitempty"`
}

// AlertsSummary is the backend's own view of alert counts.
type AlertsSummary struct {
	ActiveCount   int `json:"activeCount"`
	CriticalCount int `json:"criticalCount"`
	MajorCount    int `json:"majorCount"`
	MinorCount    int `json:"minorCount"`
	InfoCount     int `json:"infoCount"`
	AckedCount    int `json:"acknowledgedCount"`
	ResolvedToday int `json:"resolvedToday"`
}

// DeviceNoise ranks devices by how many alerts they produce.
type DeviceNoise struct {
	Device     string  `json:"device"`
	AlertCount int     `json:"alert_count"`
	Percentage float64 `json:"percentage"`
}

// AIMetric is one model-quality figure reported by the backend.
type AIMetric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// AIInsight is a generated recommendation or observation.
type AIInsight struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Summary    string `json:"summary"`
	Category   string `json:"category"`
	Severity   string `json:"severity"`
	Confidence int    `json:"confidence"`
}

// TrendKPI is a metric with its previous period value.
type TrendKPI struct {
	Name     string  `json:"name"`
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
}

// TimePoint is one bucket of the alerts-over-time series.
type TimePoint struct {
	Label    string `json:"label"`
	Critical int    `json:"critical"`
	Major    int    `json:"major"`
	Minor    int    `json:"minor"`
	Info     int    `json:"info"`
}

// Total returns the sum of all severities in the bucket.
func (p TimePoint) Total() int {
	return p.Critical + p.Major + p.Minor + p.Info
}

// SeverityBucket is one slice of the severity distribution.
type SeverityBucket struct {
	Severity string `json:"severity"`
	Count    int    `json:"count"`
}

// TicketStats holds aggregate ticket figures computed by the backend.
type TicketStats struct {
	AvgResolutionHours float64 `json:"avg_resolution_hours"`
	OpenCount          int     `json:"open_count"`
	ResolvedCount      int     `json:"resolved_count"`
	SLABreaches        int     `json:"sla_breaches"`
}

// DeviceStats holds device counts by status.
type DeviceStats struct {
	Online   int `json:"online"`
	Warning  int `json:"warning"`
	Critical int `json:"critical"`
	Offline  int `json:"offline"`
	Total    int `json:"total"`
}

// Trend directions.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// Trend describes how a KPI moved since the previous observation.
type Trend struct {
	Direction  string `json:"direction"`
	Text       string `json:"text"`
	IsPositive bool   `json:"is_positive"`
}

// Card tones used for styling KPI tiles.
const (
	ToneCritical = "critical"
	ToneMajor    = "major"
	ToneMinor    = "minor"
	ToneInfo     = "info"
	ToneSuccess  = "success"
	ToneNeutral  = "neutral"
)

// KPICard is a derived summary tile.
type KPICard struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Value    string  `json:"value"`
	Numeric  float64 `json:"numeric"`
	Trend    *Trend  `json:"trend,omitempty"`
	Tone     string  `json:"tone"`
	Subtitle string  `json:"subtitle,omitempty"`
	Badge    string  `json:"badge,omitempty"`
}

// Notice levels.
const (
	NoticeSuccess = "success"
	NoticeError   = "error"
	NoticeInfo    = "info"
)

// Notice is a transient user-visible message produced by an action.
type Notice struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// JournalEntry records one mutation attempt.
type JournalEntry struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	OK        bool      `json:"ok"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// KPISample is one stored observation of a KPI value.
type KPISample struct {
	Role      string    `json:"role"`
	Metric    string    `json:"metric"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// ReportOptions defines options for report generation.
type ReportOptions struct {
	Role   string `json:"role"`
	Period string `json:"period"`
	Format string `json:"format"`
}
