// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// maxResponseSize bounds JSON response body reads: 64 MB. Legitimate
// responses are orders of magnitude smaller; the limit only exists so
// a misbehaving server cannot exhaust memory.
const maxResponseSize int64 = 64 << 20

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the base URL of the backend (e.g., "https://api.storekeep.dev").
	BaseURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client is an unauthenticated backend client. It holds the base URL
// and HTTP transport, shared across Sessions.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new unauthenticated backend client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("platform: BaseURL is required")
	}

	// Validate the URL structure. The string form (trailing slash
	// stripped) is stored and request URLs are built by direct
	// concatenation, which sidesteps url.URL re-encoding surprises.
	if _, err := url.Parse(config.BaseURL); err != nil {
		return nil, fmt.Errorf("platform: invalid BaseURL %q: %w", config.BaseURL, err)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// CloseIdleConnections closes idle HTTP connections in the underlying
// transport's connection pool. Call this after a network disruption to
// force subsequent requests onto fresh TCP connections instead of a
// poisoned pooled connection.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// Register creates a new account. Unauthenticated — the registration
// form is reachable from the login page.
func (c *Client) Register(ctx context.Context, request RegisterRequest) (*AuthResponse, error) {
	if request.Email == "" {
		return nil, fmt.Errorf("platform: email is required for registration")
	}
	if request.Password == "" {
		return nil, fmt.Errorf("platform: password is required for registration")
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/register", "", request)
	if err != nil {
		return nil, fmt.Errorf("platform: registration failed: %w", err)
	}

	var response AuthResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("platform: failed to parse register response: %w", err)
	}

	c.logger.Info("registered account",
		"user_id", response.User.ID,
		"email", request.Email,
	)
	return &response, nil
}

// doRequest performs an HTTP request against the backend and returns
// the response body. On 2xx, returns the body. On 4xx/5xx, returns a
// *APIError. token may be empty for unauthenticated endpoints. query
// may be omitted for endpoints without query parameters.
func (c *Client) doRequest(ctx context.Context, method, path, token string, requestBody any, query ...url.Values) ([]byte, error) {
	requestURL := c.baseURL + path
	if len(query) > 0 && query[0] != nil {
		requestURL += "?" + query[0].Encode()
	}

	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("platform: failed to encode request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("platform: failed to create request: %w", err)
	}

	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("platform: request to %s %s failed: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("platform: failed to read response body: %w", err)
	}

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}

	// All backend error responses use the same JSON shape.
	var apiErr APIError
	if jsonErr := json.Unmarshal(responseBody, &apiErr); jsonErr != nil || apiErr.Message == "" && apiErr.Code == "" {
		// Server returned a non-JSON error body. Fail loud with the
		// raw body for diagnosis.
		return nil, fmt.Errorf("platform: unexpected %d response from %s %s: %s",
			response.StatusCode, method, path, string(responseBody))
	}
	apiErr.StatusCode = response.StatusCode

	return responseBody, &apiErr
}
