package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/user/nocview/internal/model"
	"github.com/user/nocview/internal/normalize"
)

// Alerts lists alerts for a time period such as "24h".
func (c *Client) Alerts(ctx context.Context, period string) ([]model.Alert, error) {
	body, err := c.get(ctx, "/api/alerts", periodQuery(period))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch alerts: %w", err)
	}
	items, err := normalize.Envelope(body)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch alerts: %w", err)
	}
	return c.norm.Alerts(items), nil
}

// AlertsSummary returns the backend's alert counts.
func (c *Client) AlertsSummary(ctx context.Context) (model.AlertsSummary, error) {
	body, err := c.get(ctx, "/api/alerts/summary", nil)
	if err != nil {
		return model.AlertsSummary{}, fmt.Errorf("failed to fetch alert summary: %w", err)
	}
	obj, err := normalize.Object(body)
	if err != nil {
		return model.AlertsSummary{}, fmt.Errorf("failed to fetch alert summary: %w", err)
	}
	return normalize.AlertsSummary(obj), nil
}

// Acknowledge marks an alert as acknowledged.
func (c *Client) Acknowledge(ctx context.Context, id string) error {
	if _, err := c.send(ctx, http.MethodPost, "/api/alerts/"+pathID(id)+"/acknowledge", struct{}{}); err != nil {
		return fmt.Errorf("failed to acknowledge alert %s: %w", id, err)
	}
	return nil
}

// NOCAlerts lists the alerts curated for the NOC console.
func (c *Client) NOCAlerts(ctx context.Context) ([]model.Alert, error) {
	body, err := c.get(ctx, "/api/alerts/noc", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch noc alerts: %w", err)
	}
	items, err := normalize.Envelope(body)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch noc alerts: %w", err)
	}
	return c.norm.Alerts(items), nil
}

// NoisyDevices lists the devices raising the most alerts.
func (c *Client) NoisyDevices(ctx context.Context) ([]model.DeviceNoise, error) {
	body, err := c.get(ctx, "/api/alerts/noisy-devices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch noisy devices: %w", err)
	}
	items, err := list(body)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch noisy devices: %w", err)
	}
	return normalize.Records(items, normalize.DeviceNoise), nil
}

// AIMetrics returns the AI model metrics.
func (c *Client) AIMetrics(ctx context.Context) ([]model.AIMetric, error) {
	body, err := c.get(ctx, "/api/ai/metrics", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ai metrics: %w", err)
	}
	items, err := list(body)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ai metrics: %w", err)
	}
	return normalize.Records(items, normalize.AIMetric), nil
}

// AIInsights returns AI-generated insights.
func (c *Client) AIInsights(ctx context.Context) ([]model.AIInsight, error) {
	body, err := c.get(ctx, "/api/ai/insights", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ai insights: %w", err)
	}
	items, err := normalize.Envelope(body)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ai insights: %w", err)
	}
	return normalize.Records(items, normalize.AIInsight), nil
}

// TrendsKPI returns KPI values with their previous-period counterparts.
func (c *Client) TrendsKPI(ctx context.Context) ([]model.TrendKPI, error) {
	body, err := c.get(ctx, "/api/trends/kpi", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch kpi trends: %w", err)
	}
	items, err := list(body)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch kpi trends: %w", err)
	}
	return normalize.Records(items, normalize.TrendKPI), nil
}

// AlertsOverTime returns alert counts per time bucket.
func (c *Client) AlertsOverTime(ctx context.Context, period string) ([]model.TimePoint, error) {
	body, err := c.get(ctx, "/api/alerts/over-time", periodQuery(period))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch alerts over time: %w", err)
	}
	items, err := normalize.Envelope(body)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch alerts over time: %w", err)
	}
	return normalize.Records(items, normalize.TimePoint), nil
}

// SeverityDistribution returns alert counts by severity.
func (c *Client) SeverityDistribution(ctx context.Context) ([]model.SeverityBucket, error) {
	body, err := c.get(ctx, "/api/alerts/severity-distribution", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch severity distribution: %w", err)
	}
	items, err := list(body)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch severity distribution: %w", err)
	}
	return normalize.Records(items, normalize.SeverityBucket), nil
}

// ExportReport downloads a report blob in the given format (csv by default).
func (c *Client) ExportReport(ctx context.Context, format string) (*Export, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	body, header, err := c.do(ctx, http.MethodGet, "/api/reports/export", url.Values{"format": {format}}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to export report: %w", err)
	}
	def := fmt.Sprintf("alerts-report-%s.%s", time.Now().Format("20060102-150405"), format)
	return &Export{
		Filename:    filename(header, def),
		ContentType: header.Get("Content-Type"),
		Data:        body,
	}, nil
}

func periodQuery(period string) url.Values {
	if period == "" {
		return nil
	}
	return url.Values{"period": {period}}
}
