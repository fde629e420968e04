package report

import (
	"fmt"
	"strings"

	"github.com/user/nocview/internal/model"
)

// SeverityPie creates a Mermaid pie chart of alert counts by severity.
func SeverityPie(buckets []model.SeverityBucket) string {
	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	if total == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("pie showData\n")
	sb.WriteString("    title Alerts by severity\n")
	for _, b := range buckets {
		if b.Count == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("    %q : %d\n", label(b.Severity), b.Count))
	}
	sb.WriteString("```\n")
	return sb.String()
}

// AlertsTimeline creates a Mermaid bar chart of total alerts per bucket.
func AlertsTimeline(points []model.TimePoint) string {
	if len(points) == 0 {
		return ""
	}

	labels := make([]string, len(points))
	values := make([]string, len(points))
	peak := 0
	for i, p := range points {
		labels[i] = fmt.Sprintf("%q", shortenLabel(p.Label))
		total := p.Total()
		values[i] = fmt.Sprintf("%d", total)
		if total > peak {
			peak = total
		}
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Alerts over time\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Alerts\" 0 --> %d\n", peak+1))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```\n")
	return sb.String()
}

// NoisyDevicesFlow creates a Mermaid flowchart linking the noisiest devices
// to the alert feed, heaviest first.
func NoisyDevicesFlow(noisy []model.DeviceNoise, limit int) string {
	if len(noisy) == 0 {
		return ""
	}
	if limit > 0 && len(noisy) > limit {
		noisy = noisy[:limit]
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("flowchart LR\n")
	sb.WriteString("    Feed((Alert feed)):::feed\n")
	for i, n := range noisy {
		nodeID := deviceNodeID(n.Device, i)
		sb.WriteString(fmt.Sprintf("    %s[%s]\n", nodeID, shortenLabel(n.Device)))
		sb.WriteString(fmt.Sprintf("    %s -- %d --> Feed\n", nodeID, n.AlertCount))
	}
	sb.WriteString("\n")
	sb.WriteString("    classDef feed fill:#FFB6C1,stroke:#FF0000\n")
	sb.WriteString("```\n")
	return sb.String()
}

func shortenLabel(s string) string {
	if len(s) > 20 {
		return s[:17] + "..."
	}
	return s
}

func deviceNodeID(name string, i int) string {
	// Mermaid node IDs must be plain identifiers
	var sb strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		} else {
			sb.WriteRune('_')
		}
	}
	return fmt.Sprintf("D%d_%s", i, sb.String())
}

func label(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
