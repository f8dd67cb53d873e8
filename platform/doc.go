// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package platform is the client for the Storekeep retail backend's
// REST API.
//
// A Client is unauthenticated and holds the backend base URL and HTTP
// transport. A Session wraps a Client with the current identity and
// bearer credential, optionally backed by a durable SessionStore so
// the login survives process restarts. All authenticated operations
// (conversations, messages, products, orders, users, revenue) are
// methods on Session.
//
// The backend reports failures with a uniform JSON error shape that
// is decoded into *APIError; callers extract it with errors.As to
// distinguish auth failures (expired or missing credential) from
// other request errors.
package platform
