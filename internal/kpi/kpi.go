// Package kpi derives KPI tiles from a dashboard snapshot. Tiles always
// aggregate the unfiltered collections so they reflect the whole system,
// not the current table filter.
package kpi

import (
	"fmt"
	"math"
	"strings"

	"github.com/user/nocview/internal/dashboard"
	"github.com/user/nocview/internal/model"
	"github.com/user/nocview/internal/pipeline"
)

// Tile identifiers usable in roles.yaml.
const (
	TileActiveAlerts   = "active_alerts"
	TileCriticalAlerts = "critical_alerts"
	TileUnacknowledged = "unacknowledged"
	TileResolvedToday  = "resolved_today"
	TileDevicesOnline  = "devices_online"
	TileDevicesOffline = "devices_offline"
	TileAvgHealth      = "avg_health"
	TileNoisyDevices   = "noisy_devices"
	TileOpenTickets    = "open_tickets"
	TileSLABreaches    = "sla_breaches"
	TileAvgResolution  = "avg_resolution"
	TileAIAccuracy     = "ai_accuracy"
	TileAIInsights     = "ai_insights"
	TileActiveUsers    = "active_users"
	TileAdmins         = "admins"
	// TileTrends expands into one tile per backend trend KPI.
	TileTrends = "trends"
)

// TrendPrefix prefixes the IDs of tiles built from backend trend KPIs.
const TrendPrefix = "trend:"

// higherIsBetter tells, per tile, which direction of change is good.
var higherIsBetter = map[string]bool{
	TileActiveAlerts:   false,
	TileCriticalAlerts: false,
	TileUnacknowledged: false,
	TileResolvedToday:  true,
	TileDevicesOnline:  true,
	TileDevicesOffline: false,
	TileAvgHealth:      true,
	TileNoisyDevices:   false,
	TileOpenTickets:    false,
	TileSLABreaches:    false,
	TileAvgResolution:  false,
	TileAIAccuracy:     true,
	TileAIInsights:     true,
	TileActiveUsers:    true,
	TileAdmins:         true,
}

// HigherIsBetter reports whether an increase of the tile is good news.
func HigherIsBetter(id string) bool {
	if strings.HasPrefix(id, TrendPrefix) {
		return trendHigherIsBetter(strings.TrimPrefix(id, TrendPrefix))
	}
	return higherIsBetter[id]
}

// trendHigherIsBetter guesses direction for backend-named KPIs.
func trendHigherIsBetter(name string) bool {
	n := strings.ToLower(name)
	if strings.Contains(n, "uptime") || strings.Contains(n, "availability") {
		return true
	}
	for _, bad := range []string{"alert", "mttr", "time", "incident", "breach", "noise", "error", "latency", "down"} {
		if strings.Contains(n, bad) {
			return false
		}
	}
	return true
}

// Build computes the tiles listed in role.Tiles, in order. Unknown tile IDs
// are skipped.
func Build(role dashboard.Role, s dashboard.Snapshot) []model.KPICard {
	alertSev := pipeline.Count(s.Alerts, func(a model.Alert) string { return a.Severity }, model.Severities)
	alertStatus := pipeline.Count(s.Alerts, func(a model.Alert) string { return a.Status }, model.AlertStatuses)

	var cards []model.KPICard
	for _, id := range role.Tiles {
		switch id {
		case TileActiveAlerts:
			active := alertStatus.Total - alertStatus.Get(model.AlertResolved)
			if len(s.Alerts) == 0 && s.Summary.ActiveCount > 0 {
				active = s.Summary.ActiveCount
			}
			critical := alertSev.Get(model.SeverityCritical)
			tone := model.ToneInfo
			if critical > 0 {
				tone = model.ToneCritical
			}
			cards = append(cards, card(id, "Active Alerts", active, tone,
				fmt.Sprintf("%d critical, %d major", critical, alertSev.Get(model.SeverityMajor))))

		case TileCriticalAlerts:
			critical := alertSev.Get(model.SeverityCritical)
			if len(s.Alerts) == 0 && s.Summary.CriticalCount > 0 {
				critical = s.Summary.CriticalCount
			}
			cards = append(cards, card(id, "Critical", critical, toneIf(critical > 0, model.ToneCritical, model.ToneSuccess), ""))

		case TileUnacknowledged:
			open := alertStatus.Get(model.AlertOpen)
			cards = append(cards, card(id, "Unacknowledged", open, toneIf(open > 0, model.ToneMajor, model.ToneSuccess),
				fmt.Sprintf("%d acknowledged", alertStatus.Get(model.AlertAcknowledged))))

		case TileResolvedToday:
			cards = append(cards, card(id, "Resolved Today", s.Summary.ResolvedToday, model.ToneSuccess, ""))

		case TileDevicesOnline:
			stats := deviceStats(s)
			c := card(id, "Devices Online", stats.Online, model.ToneSuccess, fmt.Sprintf("of %d", stats.Total))
			if stats.Total > 0 && stats.Online < stats.Total {
				c.Tone = model.ToneMinor
			}
			cards = append(cards, c)

		case TileDevicesOffline:
			stats := deviceStats(s)
			cards = append(cards, card(id, "Devices Offline", stats.Offline, toneIf(stats.Offline > 0, model.ToneCritical, model.ToneSuccess),
				fmt.Sprintf("%d warning, %d critical", stats.Warning, stats.Critical)))

		case TileAvgHealth:
			cards = append(cards, avgHealth(s.Devices))

		case TileNoisyDevices:
			cards = append(cards, noisyCard(s))

		case TileOpenTickets:
			open := 0
			for _, t := range s.Tickets {
				if t.Status == model.TicketOpen || t.Status == model.TicketInProgress {
					open++
				}
			}
			if len(s.Tickets) == 0 {
				open = s.TicketStats.OpenCount
			}
			cards = append(cards, card(id, "Open Tickets", open, toneIf(open > 0, model.ToneMinor, model.ToneSuccess),
				fmt.Sprintf("%d resolved", s.TicketStats.ResolvedCount)))

		case TileSLABreaches:
			n := s.TicketStats.SLABreaches
			cards = append(cards, card(id, "SLA Breaches", n, toneIf(n > 0, model.ToneCritical, model.ToneSuccess), ""))

		case TileAvgResolution:
			h := s.TicketStats.AvgResolutionHours
			c := model.KPICard{ID: id, Label: "Avg Resolution", Value: fmt.Sprintf("%.1fh", h), Numeric: h, Tone: model.ToneNeutral}
			if h > 24 {
				c.Tone = model.ToneMajor
			}
			cards = append(cards, c)

		case TileAIAccuracy:
			cards = append(cards, aiAccuracy(s.AIMetrics))

		case TileAIInsights:
			high := 0
			for _, in := range s.AIInsights {
				if in.Confidence >= dashboard.HighConfidence {
					high++
				}
			}
			c := card(id, "AI Insights", len(s.AIInsights), model.ToneInfo, "")
			if high > 0 {
				c.Badge = fmt.Sprintf("%d high confidence", high)
			}
			cards = append(cards, c)

		case TileActiveUsers:
			active := 0
			for _, u := range s.Users {
				if u.Active {
					active++
				}
			}
			cards = append(cards, card(id, "Active Users", active, model.ToneInfo, fmt.Sprintf("of %d", len(s.Users))))

		case TileAdmins:
			admins := 0
			for _, u := range s.Users {
				if strings.Contains(u.Role, "admin") {
					admins++
				}
			}
			cards = append(cards, card(id, "Admins", admins, model.ToneNeutral, ""))

		case TileTrends:
			for _, t := range s.Trends {
				cards = append(cards, trendCard(t))
			}
		}
	}
	return cards
}

func card(id, label string, n int, tone, subtitle string) model.KPICard {
	return model.KPICard{
		ID:       id,
		Label:    label,
		Value:    fmt.Sprintf("%d", n),
		Numeric:  float64(n),
		Tone:     tone,
		Subtitle: subtitle,
	}
}

func toneIf(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

// deviceStats prefers the backend figures and falls back to counting the
// device list.
func deviceStats(s dashboard.Snapshot) model.DeviceStats {
	if s.DeviceStats.Total > 0 || len(s.Devices) == 0 {
		return s.DeviceStats
	}
	c := pipeline.Count(s.Devices, func(d model.Device) string { return d.Status }, model.DeviceStatuses)
	return model.DeviceStats{
		Online:   c.Get(model.DeviceOnline),
		Warning:  c.Get(model.DeviceWarning),
		Critical: c.Get(model.DeviceCritical),
		Offline:  c.Get(model.DeviceOffline),
		Total:    c.Total,
	}
}

func avgHealth(devices []model.Device) model.KPICard {
	c := model.KPICard{ID: TileAvgHealth, Label: "Avg Health", Value: model.NotAvailable, Tone: model.ToneNeutral}
	if len(devices) == 0 {
		return c
	}
	sum := 0
	unhealthy := 0
	for _, d := range devices {
		sum += d.HealthScore
		if d.HealthScore < dashboard.UnhealthyBelow {
			unhealthy++
		}
	}
	avg := float64(sum) / float64(len(devices))
	c.Value = fmt.Sprintf("%.0f%%", avg)
	c.Numeric = avg
	switch {
	case avg < 50:
		c.Tone = model.ToneCritical
	case avg < dashboard.UnhealthyBelow:
		c.Tone = model.ToneMinor
	default:
		c.Tone = model.ToneSuccess
	}
	c.Subtitle = fmt.Sprintf("%d unhealthy", unhealthy)
	return c
}

func noisyCard(s dashboard.Snapshot) model.KPICard {
	n := len(s.NoisyDevices)
	var top string
	topCount := -1
	for _, d := range s.NoisyDevices {
		if d.AlertCount > topCount {
			top, topCount = d.Device, d.AlertCount
		}
	}
	if n == 0 {
		for _, d := range s.Devices {
			if d.RecentAlerts >= dashboard.NoisyFromAlerts {
				n++
				if d.RecentAlerts > topCount {
					top, topCount = d.Name, d.RecentAlerts
				}
			}
		}
	}
	c := card(TileNoisyDevices, "Noisy Devices", n, toneIf(n > 0, model.ToneMinor, model.ToneSuccess), "")
	if top != "" {
		c.Badge = fmt.Sprintf("%s (%d)", top, topCount)
	}
	return c
}

func aiAccuracy(metrics []model.AIMetric) model.KPICard {
	c := model.KPICard{ID: TileAIAccuracy, Label: "AI Accuracy", Value: model.NotAvailable, Tone: model.ToneNeutral}
	for _, m := range metrics {
		if !strings.Contains(strings.ToLower(m.Name), "accuracy") {
			continue
		}
		v := m.Value
		if v > 0 && v <= 1 {
			v *= 100
		}
		c.Value = fmt.Sprintf("%.1f%%", v)
		c.Numeric = v
		c.Tone = toneIf(v >= 90, model.ToneSuccess, model.ToneMinor)
		break
	}
	return c
}

func trendCard(t model.TrendKPI) model.KPICard {
	id := TrendPrefix + t.Name
	c := model.KPICard{
		ID:      id,
		Label:   t.Name,
		Value:   formatNumber(t.Current),
		Numeric: t.Current,
		Tone:    model.ToneNeutral,
		Trend:   Compare(t.Current, t.Previous, HigherIsBetter(id)),
	}
	if c.Trend != nil && c.Trend.Direction != model.TrendStable {
		c.Tone = toneIf(c.Trend.IsPositive, model.ToneSuccess, model.ToneMajor)
	}
	return c
}

// Compare describes the change from previous to current.
func Compare(current, previous float64, higherBetter bool) *model.Trend {
	diff := current - previous
	if math.Abs(diff) < 1e-9 {
		return &model.Trend{Direction: model.TrendStable, Text: "no change", IsPositive: true}
	}

	t := &model.Trend{Direction: model.TrendUp}
	if diff < 0 {
		t.Direction = model.TrendDown
	}
	t.IsPositive = (diff > 0) == higherBetter

	if previous == 0 {
		t.Text = formatNumber(diff)
		if diff > 0 {
			t.Text = "+" + t.Text
		}
		return t
	}
	pct := diff / math.Abs(previous) * 100
	t.Text = fmt.Sprintf("%+.0f%%", pct)
	return t
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%.1f", f)
}
