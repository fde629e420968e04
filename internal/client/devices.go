package client

import (
	"context"
	"fmt"

	"github.com/user/nocview/internal/model"
	"github.com/user/nocview/internal/normalize"
)

// Devices lists managed devices.
func (c *Client) Devices(ctx context.Context) ([]model.Device, error) {
	body, err := c.get(ctx, "/api/devices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch devices: %w", err)
	}
	items, err := normalize.Envelope(body)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch devices: %w", err)
	}
	return c.norm.Devices(items), nil
}

// DeviceStats returns device counts by status.
func (c *Client) DeviceStats(ctx context.Context) (model.DeviceStats, error) {
	body, err := c.get(ctx, "/api/devices/stats", nil)
	if err != nil {
		return model.DeviceStats{}, fmt.Errorf("failed to fetch device stats: %w", err)
	}
	obj, err := normalize.Object(body)
	if err != nil {
		return model.DeviceStats{}, fmt.Errorf("failed to fetch device stats: %w", err)
	}
	return normalize.DeviceStats(obj), nil
}
