package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/user/nocview/internal/model"
	"github.com/user/nocview/internal/normalize"
)

// Tickets lists tickets.
func (c *Client) Tickets(ctx context.Context) ([]model.Ticket, error) {
	body, err := c.get(ctx, "/api/tickets", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tickets: %w", err)
	}
	items, err := normalize.Envelope(body)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tickets: %w", err)
	}
	return c.norm.Tickets(items), nil
}

// CreateTicket opens a ticket and returns it as stored by the backend.
func (c *Client) CreateTicket(ctx context.Context, in model.TicketInput) (model.Ticket, error) {
	body, err := c.send(ctx, http.MethodPost, "/api/tickets", in)
	if err != nil {
		return model.Ticket{}, fmt.Errorf("failed to create ticket: %w", err)
	}
	return c.norm.Ticket(echoed("/api/tickets", body)), nil
}

// UpdateTicket changes a ticket's status and/or assignee.
func (c *Client) UpdateTicket(ctx context.Context, id string, upd model.TicketUpdate) (model.Ticket, error) {
	body, err := c.send(ctx, http.MethodPatch, "/api/tickets/"+pathID(id), upd)
	if err != nil {
		return model.Ticket{}, fmt.Errorf("failed to update ticket %s: %w", id, err)
	}
	return c.norm.Ticket(echoed("/api/tickets/"+pathID(id), body)), nil
}

// TicketStats returns aggregate ticket figures.
func (c *Client) TicketStats(ctx context.Context) (model.TicketStats, error) {
	body, err := c.get(ctx, "/api/tickets/stats", nil)
	if err != nil {
		return model.TicketStats{}, fmt.Errorf("failed to fetch ticket stats: %w", err)
	}
	obj, err := normalize.Object(body)
	if err != nil {
		return model.TicketStats{}, fmt.Errorf("failed to fetch ticket stats: %w", err)
	}
	return normalize.TicketStats(obj), nil
}
