// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError represents a structured error response from the backend.
// Callers can use errors.As to extract the structured information:
//
//	var apiErr *platform.APIError
//	if errors.As(err, &apiErr) {
//	    if apiErr.StatusCode == http.StatusUnauthorized { ... }
//	}
type APIError struct {
	// Code is the backend error code (e.g., "invalid_credentials").
	Code string `json:"code"`
	// Message is the human-readable description from the server.
	Message string `json:"message"`
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Backend error codes.
const (
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeTokenExpired       = "token_expired"
	ErrCodeNotFound           = "not_found"
	ErrCodeValidation         = "validation_failed"
	ErrCodeConflict           = "conflict"
)

// ErrNotAuthenticated is returned by operations that require a
// credential when the session has none. The caller should redirect to
// login rather than retry.
var ErrNotAuthenticated = errors.New("platform: not authenticated")

// IsAuthError reports whether err indicates a missing, invalid, or
// expired credential. The user-visible recovery is re-login.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrNotAuthenticated) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized
	}
	return false
}

// IsNotFound reports whether err is the backend's not-found response.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}
