package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/user/nocview/internal/model"
	"github.com/user/nocview/internal/normalize"
)

// Users lists user accounts.
func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	body, err := c.get(ctx, "/api/users", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	items, err := normalize.Envelope(body)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %w", err)
	}
	return c.norm.Users(items), nil
}

// CreateUser adds a user account.
func (c *Client) CreateUser(ctx context.Context, in model.UserInput) (model.User, error) {
	body, err := c.send(ctx, http.MethodPost, "/api/users", in)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return c.norm.User(echoed("/api/users", body)), nil
}

// UpdateUser replaces a user's profile.
func (c *Client) UpdateUser(ctx context.Context, id string, in model.UserInput) (model.User, error) {
	body, err := c.send(ctx, http.MethodPut, "/api/users/"+pathID(id), in)
	if err != nil {
		return model.User{}, fmt.Errorf("failed to update user %s: %w", id, err)
	}
	return c.norm.User(echoed("/api/users/"+pathID(id), body)), nil
}

// DeleteUser removes a user account.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	if _, _, err := c.do(ctx, http.MethodDelete, "/api/users/"+pathID(id), nil, nil); err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	return nil
}

// ResetPassword asks the backend to reset a user's password.
func (c *Client) ResetPassword(ctx context.Context, id string) error {
	if _, err := c.send(ctx, http.MethodPost, "/api/users/"+pathID(id)+"/reset-password", struct{}{}); err != nil {
		return fmt.Errorf("failed to reset password for %s: %w", id, err)
	}
	return nil
}

// ToggleUserStatus flips a user between active and inactive.
func (c *Client) ToggleUserStatus(ctx context.Context, id string) error {
	if _, err := c.send(ctx, http.MethodPost, "/api/users/"+pathID(id)+"/toggle-status", struct{}{}); err != nil {
		return fmt.Errorf("failed to toggle status for %s: %w", id, err)
	}
	return nil
}
