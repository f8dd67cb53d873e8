// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// ListUsers fetches all platform accounts. Admin-only server-side.
func (s *Session) ListUsers(ctx context.Context) ([]User, error) {
	body, err := s.get(ctx, "/users")
	if err != nil {
		return nil, fmt.Errorf("platform: fetching users: %w", err)
	}
	var users []User
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("platform: failed to parse users response: %w", err)
	}
	return users, nil
}

// GetUser fetches a single account.
func (s *Session) GetUser(ctx context.Context, userID int64) (*User, error) {
	body, err := s.get(ctx, "/users/"+strconv.FormatInt(userID, 10))
	if err != nil {
		return nil, fmt.Errorf("platform: fetching user %d: %w", userID, err)
	}
	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("platform: failed to parse user response: %w", err)
	}
	return &user, nil
}

// CreateUser creates an account on behalf of an admin. Unlike
// Register this runs on the authenticated session, so the server can
// grant roles the self-service flow refuses.
func (s *Session) CreateUser(ctx context.Context, request RegisterRequest) (*User, error) {
	body, err := s.do(ctx, http.MethodPost, "/users", request)
	if err != nil {
		return nil, fmt.Errorf("platform: creating user: %w", err)
	}
	var created User
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("platform: failed to parse user response: %w", err)
	}
	return &created, nil
}

// UpdateUser replaces an account's profile fields.
func (s *Session) UpdateUser(ctx context.Context, userID int64, user User) (*User, error) {
	body, err := s.do(ctx, http.MethodPut, "/users/"+strconv.FormatInt(userID, 10), user)
	if err != nil {
		return nil, fmt.Errorf("platform: updating user %d: %w", userID, err)
	}
	var updated User
	if err := json.Unmarshal(body, &updated); err != nil {
		return nil, fmt.Errorf("platform: failed to parse user response: %w", err)
	}
	return &updated, nil
}

// DeleteUser removes an account.
func (s *Session) DeleteUser(ctx context.Context, userID int64) error {
	_, err := s.do(ctx, http.MethodDelete, "/users/"+strconv.FormatInt(userID, 10), nil)
	if err != nil {
		return fmt.Errorf("platform: deleting user %d: %w", userID, err)
	}
	s.client.logger.Info("deleted user", "user_id", userID)
	return nil
}
