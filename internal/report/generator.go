// Package report generates shift reports and file exports.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/user/nocview/internal/model"
	"github.com/user/nocview/internal/pipeline"
	"github.com/user/nocview/internal/storage"
)

// Input is the dashboard state a report is generated from.
type Input struct {
	Role      string
	Title     string
	Period    string
	FetchedAt time.Time

	Cards        []model.KPICard
	Alerts       []model.Alert
	Tickets      []model.Ticket
	Devices      []model.Device
	NoisyDevices []model.DeviceNoise
	Severity     []model.SeverityBucket
	OverTime     []model.TimePoint
	Insights     []model.AIInsight
}

// Generator creates shift reports.
type Generator struct {
	journal *storage.JournalStorage
}

// NewGenerator creates a new report generator. db may be nil, in which case
// reports carry no action history.
func NewGenerator(db *storage.DB) *Generator {
	g := &Generator{}
	if db != nil {
		g.journal = storage.NewJournalStorage(db)
	}
	return g
}

// ReportData holds all data for a report.
type ReportData struct {
	GeneratedAt time.Time
	Input       Input

	SeverityCounts pipeline.Counts
	StatusCounts   pipeline.Counts
	Critical       []model.Alert
	OpenTickets    []model.Ticket
	Unhealthy      []model.Device
	Noisy          []model.DeviceNoise

	Actions       []model.JournalEntry
	FailedActions int
}

// UnhealthyBelow is the health score under which a device is listed.
const UnhealthyBelow = 70

// Generate builds report data from in.
func (g *Generator) Generate(in Input) (*ReportData, error) {
	data := &ReportData{
		GeneratedAt:    time.Now(),
		Input:          in,
		SeverityCounts: pipeline.Count(in.Alerts, func(a model.Alert) string { return a.Severity }, model.Severities),
		StatusCounts:   pipeline.Count(in.Alerts, func(a model.Alert) string { return a.Status }, model.AlertStatuses),
	}

	for _, a := range in.Alerts {
		if a.Severity == model.SeverityCritical && a.Status != model.AlertResolved {
			data.Critical = append(data.Critical, a)
		}
	}
	sort.SliceStable(data.Critical, func(i, j int) bool {
		return data.Critical[i].Timestamp.Time.After(data.Critical[j].Timestamp.Time)
	})

	for _, t := range in.Tickets {
		if t.Status == model.TicketOpen || t.Status == model.TicketInProgress {
			data.OpenTickets = append(data.OpenTickets, t)
		}
	}
	for _, d := range in.Devices {
		if d.HealthScore < UnhealthyBelow || d.Status == model.DeviceOffline {
			data.Unhealthy = append(data.Unhealthy, d)
		}
	}
	sort.SliceStable(data.Unhealthy, func(i, j int) bool {
		return data.Unhealthy[i].HealthScore < data.Unhealthy[j].HealthScore
	})

	data.Noisy = append(data.Noisy, in.NoisyDevices...)
	sort.SliceStable(data.Noisy, func(i, j int) bool {
		return data.Noisy[i].AlertCount > data.Noisy[j].AlertCount
	})

	if g.journal != nil {
		entries, err := g.journal.Recent("", 200)
		if err != nil {
			return nil, fmt.Errorf("failed to get action journal: %w", err)
		}
		since := data.GeneratedAt.Add(-periodDuration(in.Period))
		for _, e := range entries {
			if e.Timestamp.Before(since) {
				continue
			}
			data.Actions = append(data.Actions, e)
			if !e.OK {
				data.FailedActions++
			}
		}
	}

	return data, nil
}

// periodDuration converts a period such as "7d" into a duration.
func periodDuration(p string) time.Duration {
	if strings.HasSuffix(p, "d") {
		var days int
		if _, err := fmt.Sscanf(p, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	if d, err := time.ParseDuration(p); err == nil {
		return d
	}
	return 24 * time.Hour
}

// FormatMarkdown renders report data as a markdown document.
func FormatMarkdown(data *ReportData) string {
	var sb strings.Builder
	in := data.Input

	title := in.Title
	if title == "" {
		title = in.Role
	}
	sb.WriteString(fmt.Sprintf("# Shift Report: %s\n\n", title))
	sb.WriteString(fmt.Sprintf("- Generated: %s\n", data.GeneratedAt.Format("2006-01-02 15:04:05")))
	sb.WriteString(fmt.Sprintf("- Period: %s\n", in.Period))
	if !in.FetchedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("- Data as of: %s (%s)\n", in.FetchedAt.Format("2006-01-02 15:04:05"), humanize.Time(in.FetchedAt)))
	}
	sb.WriteString("\n")

	if len(in.Cards) > 0 {
		sb.WriteString("## Key Indicators\n\n")
		sb.WriteString("| Indicator | Value | Trend |\n|---|---|---|\n")
		for _, c := range in.Cards {
			trend := "-"
			if c.Trend != nil {
				trend = c.Trend.Text
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", c.Label, c.Value, trend))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Alerts\n\n")
	sb.WriteString(fmt.Sprintf("%d alerts in the period.\n\n", data.SeverityCounts.Total))
	sb.WriteString("| Severity | Count |\n|---|---|\n")
	for _, k := range data.SeverityCounts.Keys {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", k, data.SeverityCounts.Get(k)))
	}
	if other := data.SeverityCounts.Other(); other > 0 {
		sb.WriteString(fmt.Sprintf("| other | %d |\n", other))
	}
	sb.WriteString("\n")

	buckets := in.Severity
	if len(buckets) == 0 {
		for _, k := range data.SeverityCounts.Keys {
			buckets = append(buckets, model.SeverityBucket{Severity: k, Count: data.SeverityCounts.Get(k)})
		}
	}
	if pie := SeverityPie(buckets); pie != "" {
		sb.WriteString(pie)
		sb.WriteString("\n")
	}
	if timeline := AlertsTimeline(in.OverTime); timeline != "" {
		sb.WriteString(timeline)
		sb.WriteString("\n")
	}

	if len(data.Critical) > 0 {
		sb.WriteString("### Open critical alerts\n\n")
		sb.WriteString("| Time | Device | Title | Status |\n|---|---|---|---|\n")
		for _, a := range data.Critical {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", a.Timestamp.Display, a.Device.Name, escape(a.DisplayTitle()), a.Status))
		}
		sb.WriteString("\n")
	}

	if len(data.Noisy) > 0 {
		sb.WriteString("## Noisy Devices\n\n")
		sb.WriteString(NoisyDevicesFlow(data.Noisy, 5))
		sb.WriteString("\n")
	}

	if len(data.Unhealthy) > 0 {
		sb.WriteString("## Unhealthy Devices\n\n")
		sb.WriteString("| Device | IP | Status | Health | Last seen |\n|---|---|---|---|---|\n")
		for _, d := range data.Unhealthy {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %s |\n", d.Name, d.IP, d.Status, d.HealthScore, d.LastSeen.Relative))
		}
		sb.WriteString("\n")
	}

	if len(data.OpenTickets) > 0 {
		sb.WriteString("## Open Tickets\n\n")
		sb.WriteString("| Ticket | Priority | Status | Assignee | Title |\n|---|---|---|---|---|\n")
		for _, t := range data.OpenTickets {
			assignee := t.Assignee
			if assignee == "" {
				assignee = "unassigned"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n", t.Number, t.Priority, t.Status, assignee, escape(t.Title)))
		}
		sb.WriteString("\n")
	}

	if len(in.Insights) > 0 {
		sb.WriteString("## AI Insights\n\n")
		for _, i := range in.Insights {
			sb.WriteString(fmt.Sprintf("- **%s** (%d%% confidence): %s\n", i.Title, i.Confidence, i.Summary))
		}
		sb.WriteString("\n")
	}

	if len(data.Actions) > 0 {
		sb.WriteString("## Operator Actions\n\n")
		sb.WriteString(fmt.Sprintf("%d actions, %d failed.\n\n", len(data.Actions), data.FailedActions))
		sb.WriteString("| Time | Action | Target | Result |\n|---|---|---|---|\n")
		for _, e := range data.Actions {
			result := "ok"
			if !e.OK {
				result = "failed"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", e.Timestamp.Format("2006-01-02 15:04"), e.Action, e.Target, result))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// WriteMarkdownFile renders data and saves it in dir, returning the path.
func WriteMarkdownFile(data *ReportData, dir string) (string, error) {
	name := fmt.Sprintf("nocview-%s-%s.md", data.Input.Role, data.GeneratedAt.Format("20060102-150405"))
	return SaveFile(dir, name, []byte(FormatMarkdown(data)))
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
