// Package dashboard assembles role dashboards: per-role poll cycles over the
// backend, the per-page filter pipelines and the mutation actions.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/user/nocview/internal/metrics"
	"github.com/user/nocview/internal/model"
	"github.com/user/nocview/internal/poller"
	"github.com/user/nocview/internal/util"
)

// Source is the read side of the backend.
type Source interface {
	Alerts(ctx context.Context, period string) ([]model.Alert, error)
	AlertsSummary(ctx context.Context) (model.AlertsSummary, error)
	NOCAlerts(ctx context.Context) ([]model.Alert, error)
	NoisyDevices(ctx context.Context) ([]model.DeviceNoise, error)
	AIMetrics(ctx context.Context) ([]model.AIMetric, error)
	AIInsights(ctx context.Context) ([]model.AIInsight, error)
	TrendsKPI(ctx context.Context) ([]model.TrendKPI, error)
	AlertsOverTime(ctx context.Context, period string) ([]model.TimePoint, error)
	SeverityDistribution(ctx context.Context) ([]model.SeverityBucket, error)
	Tickets(ctx context.Context) ([]model.Ticket, error)
	TicketStats(ctx context.Context) (model.TicketStats, error)
	Devices(ctx context.Context) ([]model.Device, error)
	DeviceStats(ctx context.Context) (model.DeviceStats, error)
	Users(ctx context.Context) ([]model.User, error)
}

// Snapshot is everything fetched in one poll cycle. Slices of panels that
// failed or were not requested are empty, never nil.
type Snapshot struct {
	Role      string    `json:"role"`
	Period    string    `json:"period"`
	FetchedAt time.Time `json:"fetched_at"`

	Alerts       []model.Alert          `json:"alerts"`
	Summary      model.AlertsSummary    `json:"summary"`
	NOCAlerts    []model.Alert          `json:"noc_alerts"`
	NoisyDevices []model.DeviceNoise    `json:"noisy_devices"`
	AIMetrics    []model.AIMetric       `json:"ai_metrics"`
	AIInsights   []model.AIInsight      `json:"ai_insights"`
	Trends       []model.TrendKPI       `json:"trends"`
	OverTime     []model.TimePoint      `json:"over_time"`
	Severity     []model.SeverityBucket `json:"severity"`
	Tickets      []model.Ticket         `json:"tickets"`
	TicketStats  model.TicketStats      `json:"ticket_stats"`
	Devices      []model.Device         `json:"devices"`
	DeviceStats  model.DeviceStats      `json:"device_stats"`
	Users        []model.User           `json:"users"`

	// Failed lists the panels whose sub-fetch failed this cycle.
	Failed []string `json:"failed,omitempty"`
}

// EmptySnapshot returns a snapshot with every slice initialised.
func EmptySnapshot(role, period string) Snapshot {
	return Snapshot{
		Role:         role,
		Period:       period,
		Alerts:       []model.Alert{},
		NOCAlerts:    []model.Alert{},
		NoisyDevices: []model.DeviceNoise{},
		AIMetrics:    []model.AIMetric{},
		AIInsights:   []model.AIInsight{},
		Trends:       []model.TrendKPI{},
		OverTime:     []model.TimePoint{},
		Severity:     []model.SeverityBucket{},
		Tickets:      []model.Ticket{},
		Devices:      []model.Device{},
		Users:        []model.User{},
	}
}

// Loader fetches the panels of a role concurrently.
type Loader struct {
	src     Source
	metrics *metrics.Metrics
}

// NewLoader creates a loader. m may be nil.
func NewLoader(src Source, m *metrics.Metrics) *Loader {
	return &Loader{src: src, metrics: m}
}

// Load runs one poll cycle for role. A failing panel keeps its default
// value and is listed in Snapshot.Failed. Load only returns an error when
// every requested panel failed, so the caller keeps its last good data.
func (l *Loader) Load(ctx context.Context, role Role, period string) (Snapshot, error) {
	snap := EmptySnapshot(role.Name, period)
	tasks := l.tasks(role, period, &snap)
	if len(tasks) == 0 {
		snap.FetchedAt = time.Now()
		return snap, nil
	}

	failures := poller.Settle(ctx, tasks...)
	for _, f := range failures {
		l.metrics.SubFetchFailed(role.Name, f.Task)
		util.Warn("Panel %s for role %s failed: %v", f.Task, role.Name, f.Err)
	}
	snap.Failed = failures.Names()
	if len(failures) == len(tasks) {
		return snap, fmt.Errorf("all %d panels failed: %w", len(tasks), failures.Err())
	}

	// Sources may legitimately return nil slices.
	fillEmpty(&snap)
	snap.FetchedAt = time.Now()
	return snap, nil
}

func (l *Loader) tasks(role Role, period string, snap *Snapshot) []poller.Task {
	var tasks []poller.Task
	for _, panel := range role.Panels {
		var t poller.Task
		switch panel {
		case PanelAlerts:
			t = poller.Fetch(panel, &snap.Alerts, func(ctx context.Context) ([]model.Alert, error) {
				return l.src.Alerts(ctx, period)
			})
		case PanelSummary:
			t = poller.Fetch(panel, &snap.Summary, l.src.AlertsSummary)
		case PanelNOCAlerts:
			t = poller.Fetch(panel, &snap.NOCAlerts, l.src.NOCAlerts)
		case PanelNoisyDevices:
			t = poller.Fetch(panel, &snap.NoisyDevices, l.src.NoisyDevices)
		case PanelAIMetrics:
			t = poller.Fetch(panel, &snap.AIMetrics, l.src.AIMetrics)
		case PanelAIInsights:
			t = poller.Fetch(panel, &snap.AIInsights, l.src.AIInsights)
		case PanelTrendsKPI:
			t = poller.Fetch(panel, &snap.Trends, l.src.TrendsKPI)
		case PanelAlertsOverTime:
			t = poller.Fetch(panel, &snap.OverTime, func(ctx context.Context) ([]model.TimePoint, error) {
				return l.src.AlertsOverTime(ctx, period)
			})
		case PanelSeverityDistribution:
			t = poller.Fetch(panel, &snap.Severity, l.src.SeverityDistribution)
		case PanelTickets:
			t = poller.Fetch(panel, &snap.Tickets, l.src.Tickets)
		case PanelTicketStats:
			t = poller.Fetch(panel, &snap.TicketStats, l.src.TicketStats)
		case PanelDevices:
			t = poller.Fetch(panel, &snap.Devices, l.src.Devices)
		case PanelDeviceStats:
			t = poller.Fetch(panel, &snap.DeviceStats, l.src.DeviceStats)
		case PanelUsers:
			t = poller.Fetch(panel, &snap.Users, l.src.Users)
		default:
			util.Warn("Role %s requests unknown panel %q", role.Name, panel)
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks
}

func fillEmpty(s *Snapshot) {
	if s.Alerts == nil {
		s.Alerts = []model.Alert{}
	}
	if s.NOCAlerts == nil {
		s.NOCAlerts = []model.Alert{}
	}
	if s.NoisyDevices == nil {
		s.NoisyDevices = []model.DeviceNoise{}
	}
	if s.AIMetrics == nil {
		s.AIMetrics = []model.AIMetric{}
	}
	if s.AIInsights == nil {
		s.AIInsights = []model.AIInsight{}
	}
	if s.Trends == nil {
		s.Trends = []model.TrendKPI{}
	}
	if s.OverTime == nil {
		s.OverTime = []model.TimePoint{}
	}
	if s.Severity == nil {
		s.Severity = []model.SeverityBucket{}
	}
	if s.Tickets == nil {
		s.Tickets = []model.Ticket{}
	}
	if s.Devices == nil {
		s.Devices = []model.Device{}
	}
	if s.Users == nil {
		s.Users = []model.User{}
	}
}

// CriticalAlerts returns the unresolved critical alerts for the carousel,
// preferring the NOC feed when it has any.
func (s Snapshot) CriticalAlerts() []model.Alert {
	src := s.Alerts
	if len(s.NOCAlerts) > 0 {
		src = s.NOCAlerts
	}
	var out []model.Alert
	for _, a := range src {
		if a.Severity == model.SeverityCritical && a.Status != model.AlertResolved {
			out = append(out, a)
		}
	}
	return out
}
