// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// SessionStore persists the identity and credential across process
// restarts. Package store provides the SQLite-backed implementation;
// tests use an in-memory fake.
type SessionStore interface {
	// SaveSession replaces the stored identity and credential.
	SaveSession(user User, token string) error
	// LoadSession returns the stored identity and credential. ok is
	// false when no session is stored.
	LoadSession() (user User, token string, ok bool, err error)
	// ClearSession removes the stored identity and credential.
	ClearSession() error
}

// Session holds the current authenticated identity and bearer
// credential. Invariant: a credential is present exactly when
// requests are attributed to the identity — there is no state where
// one exists without the other.
//
// Session is safe for concurrent use. The authenticated API
// operations in this package are methods on Session.
type Session struct {
	client *Client
	store  SessionStore // nil means the session is not durable

	mu    sync.Mutex
	user  User
	token string
}

// NewSession creates a Session on this client. store may be nil for
// an ephemeral session (tests, one-shot scripts); pass a store to
// persist the login across restarts.
func (c *Client) NewSession(store SessionStore) *Session {
	return &Session{client: c, store: store}
}

// Login authenticates with email and password. On success the
// identity and credential are set and, when a store is configured,
// persisted.
func (s *Session) Login(ctx context.Context, email, password string) (User, error) {
	if email == "" {
		return User{}, fmt.Errorf("platform: email is required for login")
	}
	if password == "" {
		return User{}, fmt.Errorf("platform: password is required for login")
	}

	body, err := s.client.doRequest(ctx, http.MethodPost, "/login", "", LoginRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return User{}, fmt.Errorf("platform: login failed: %w", err)
	}

	var response AuthResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return User{}, fmt.Errorf("platform: failed to parse login response: %w", err)
	}

	s.mu.Lock()
	s.user = response.User
	s.token = response.Token
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.SaveSession(response.User, response.Token); err != nil {
			return User{}, fmt.Errorf("platform: persisting session: %w", err)
		}
	}

	s.client.logger.Info("logged in",
		"user_id", response.User.ID,
		"role", response.User.Role,
	)
	return response.User, nil
}

// Resume restores the identity and credential from the durable store.
// Returns false when no session is stored (or no store is
// configured). The restored credential is not validated — the first
// API call fails with an auth error if it has expired.
func (s *Session) Resume() (bool, error) {
	if s.store == nil {
		return false, nil
	}
	user, token, ok, err := s.store.LoadSession()
	if err != nil {
		return false, fmt.Errorf("platform: restoring session: %w", err)
	}
	if !ok {
		return false, nil
	}

	s.mu.Lock()
	s.user = user
	s.token = token
	s.mu.Unlock()
	return true, nil
}

// Logout clears the identity and credential from memory and from the
// durable store.
func (s *Session) Logout() error {
	s.mu.Lock()
	userID := s.user.ID
	s.user = User{}
	s.token = ""
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.ClearSession(); err != nil {
			return fmt.Errorf("platform: clearing stored session: %w", err)
		}
	}

	s.client.logger.Info("logged out", "user_id", userID)
	return nil
}

// IsAuthenticated reports whether a credential is present.
func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != ""
}

// User returns the current identity. Zero value when logged out.
func (s *Session) User() User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// AuthHeaders returns the header set for an authenticated request.
// When no credential is present it returns a safe default (no
// Authorization header) and logs a warning instead of failing, so
// callers composing requests by hand degrade the same way the API
// methods do.
func (s *Session) AuthHeaders() http.Header {
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")

	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	if token == "" {
		s.client.logger.Warn("auth headers requested without credential")
		return headers
	}
	headers.Set("Authorization", "Bearer "+token)
	return headers
}

// WhoAmI validates the credential against the backend and returns the
// server's view of the identity. Useful for checking whether a
// resumed token is still valid.
func (s *Session) WhoAmI(ctx context.Context) (User, error) {
	body, err := s.get(ctx, "/me")
	if err != nil {
		return User{}, fmt.Errorf("platform: whoami failed: %w", err)
	}
	var user User
	if err := json.Unmarshal(body, &user); err != nil {
		return User{}, fmt.Errorf("platform: failed to parse whoami response: %w", err)
	}
	return user, nil
}

// Token returns the bearer credential. Empty when logged out. Used by
// the realtime channel adapter, which authenticates at connect time.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// get performs an authenticated GET, failing fast with
// ErrNotAuthenticated when no credential is present.
func (s *Session) get(ctx context.Context, path string) ([]byte, error) {
	return s.do(ctx, http.MethodGet, path, nil)
}

// do performs an authenticated request, failing fast with
// ErrNotAuthenticated when no credential is present.
func (s *Session) do(ctx context.Context, method, path string, requestBody any) ([]byte, error) {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	return s.client.doRequest(ctx, method, path, token, requestBody)
}
