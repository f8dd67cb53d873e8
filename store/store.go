// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package store is the durable client-side state store: the saved
// login session and the per-(identity, conversation) unread counters
// that survive a restart racing a channel reconnect.
//
// State lives in a single SQLite database under the configured state
// directory. Unread counters are namespaced by identity so logging
// out and back in as a different user never reads the previous user's
// counters for a same-numbered conversation.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/storekeep/storekeep/platform"
)

// Config holds the parameters for opening the state store.
type Config struct {
	// Path is the filesystem path to the SQLite database file. The
	// parent directory must exist. The file is created if it does not
	// exist. Use ":memory:" for tests.
	Path string

	// Logger receives operational messages. If nil, a no-op logger is
	// used.
	Logger *slog.Logger
}

// Store is the durable client state store. Safe for concurrent use.
type Store struct {
	pool   *sqlitex.Pool
	logger *slog.Logger
	path   string
}

const schema = `
CREATE TABLE IF NOT EXISTS session (
	id        INTEGER PRIMARY KEY CHECK (id = 1),
	user_json TEXT NOT NULL,
	token     TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS unread (
	identity        INTEGER NOT NULL,
	conversation_id INTEGER NOT NULL,
	count           INTEGER NOT NULL CHECK (count >= 0),
	PRIMARY KEY (identity, conversation_id)
);
`

// Open creates or opens the state store. The caller must call Close
// when done.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store: Path is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// An in-memory database is per-connection, so the pool must not
	// hand out a second connection that sees an empty schema.
	poolSize := 4
	if cfg.Path == ":memory:" {
		poolSize = 1
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", cfg.Path, err)
	}

	logger.Info("state store opened", "path", cfg.Path)
	return &Store{pool: pool, logger: logger, path: cfg.Path}, nil
}

// Close closes all connections. Blocks until borrowed connections are
// returned.
func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("store: closing %s: %w", s.path, err)
	}
	return nil
}

// prepareConnection applies the standard pragmas and creates the
// schema. Runs once per pooled connection on first use.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=OFF",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("store: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("store: creating schema: %w", err)
	}
	return nil
}

// SaveSession replaces the stored identity and credential.
func (s *Store) SaveSession(user platform.User, token string) error {
	userJSON, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("store: encoding session identity: %w", err)
	}

	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return fmt.Errorf("store: take: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO session (id, user_json, token) VALUES (1, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET user_json = excluded.user_json, token = excluded.token`,
		&sqlitex.ExecOptions{Args: []any{string(userJSON), token}},
	)
	if err != nil {
		return fmt.Errorf("store: saving session: %w", err)
	}
	return nil
}

// LoadSession returns the stored identity and credential. ok is false
// when no session is stored.
func (s *Store) LoadSession() (user platform.User, token string, ok bool, err error) {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return platform.User{}, "", false, fmt.Errorf("store: take: %w", err)
	}
	defer s.pool.Put(conn)

	var userJSON string
	err = sqlitex.Execute(conn,
		`SELECT user_json, token FROM session WHERE id = 1`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				userJSON = stmt.ColumnText(0)
				token = stmt.ColumnText(1)
				ok = true
				return nil
			},
		},
	)
	if err != nil {
		return platform.User{}, "", false, fmt.Errorf("store: loading session: %w", err)
	}
	if !ok {
		return platform.User{}, "", false, nil
	}
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return platform.User{}, "", false, fmt.Errorf("store: decoding session identity: %w", err)
	}
	return user, token, true, nil
}

// ClearSession removes the stored identity and credential.
func (s *Store) ClearSession() error {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return fmt.Errorf("store: take: %w", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.Execute(conn, `DELETE FROM session`, nil); err != nil {
		return fmt.Errorf("store: clearing session: %w", err)
	}
	return nil
}

// Unread returns the stored unread counter for one conversation of
// one identity. Zero when no entry exists.
func (s *Store) Unread(ctx context.Context, identity, conversationID int64) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("store: take: %w", err)
	}
	defer s.pool.Put(conn)

	var count int
	err = sqlitex.Execute(conn,
		`SELECT count FROM unread WHERE identity = ? AND conversation_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{identity, conversationID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				count = int(stmt.ColumnInt64(0))
				return nil
			},
		},
	)
	if err != nil {
		return 0, fmt.Errorf("store: reading unread counter: %w", err)
	}
	return count, nil
}

// SetUnread stores the unread counter for one conversation of one
// identity, replacing any previous value.
func (s *Store) SetUnread(ctx context.Context, identity, conversationID int64, count int) error {
	if count < 0 {
		return fmt.Errorf("store: unread counter must be >= 0, got %d", count)
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: take: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`INSERT INTO unread (identity, conversation_id, count) VALUES (?, ?, ?)
		 ON CONFLICT (identity, conversation_id) DO UPDATE SET count = excluded.count`,
		&sqlitex.ExecOptions{Args: []any{identity, conversationID, count}},
	)
	if err != nil {
		return fmt.Errorf("store: writing unread counter: %w", err)
	}
	return nil
}

// ClearUnread removes the unread counter entry for one conversation
// of one identity. Called when the conversation is opened.
func (s *Store) ClearUnread(ctx context.Context, identity, conversationID int64) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("store: take: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn,
		`DELETE FROM unread WHERE identity = ? AND conversation_id = ?`,
		&sqlitex.ExecOptions{Args: []any{identity, conversationID}},
	)
	if err != nil {
		return fmt.Errorf("store: clearing unread counter: %w", err)
	}
	return nil
}
