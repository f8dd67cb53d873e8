// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package realtime owns the authenticated duplex connection to the
// messaging server: exactly one live websocket per active session.
//
// The wire protocol is JSON envelopes {"event": ..., "data": ...}.
// Outbound sends are "sendMessage" events; the server pushes
// "receivedMessage" events for every message in the user's
// conversations, including echoes of the user's own sends — message
// history is only ever appended from inbound events, so the server
// stays the single source of truth for message identity and order.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/storekeep/storekeep/lib/clock"
	"github.com/storekeep/storekeep/platform"
)

// InboundMessage is a "receivedMessage" event pushed by the server.
// Sender metadata is optional — the chat synchronizer synthesizes a
// fallback record when it is absent.
type InboundMessage struct {
	ConversationID int64          `json:"conversation_id"`
	MessageID      int64          `json:"message_id"`
	SenderID       int64          `json:"sender_id"`
	Sender         *platform.User `json:"sender,omitempty"`
	RecipientID    int64          `json:"recipient_id,omitempty"`
	Body           string         `json:"body"`
	SentAt         time.Time      `json:"sent_at"`
}

// StateKind classifies connection lifecycle transitions.
type StateKind int

const (
	// Connected: the websocket handshake completed.
	Connected StateKind = iota
	// Disconnected: the connection dropped; the channel is retrying.
	Disconnected
	// ChannelError: a transport or protocol failure. Followed by
	// Disconnected unless the failure is terminal (rejected
	// credential), in which case the channel stops retrying.
	ChannelError
)

// State is one connection lifecycle event.
type State struct {
	Kind StateKind
	Err  error // set for ChannelError
}

// ErrNotConnected is returned by Send while the channel has no live
// connection. The caller surfaces it as a transient failure; the
// channel keeps reconnecting on its own.
var ErrNotConnected = errors.New("realtime: channel not connected")

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("realtime: channel closed")

// Reconnect backoff bounds. The delay doubles from initial to cap on
// consecutive failures and resets after a successful handshake.
const (
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Config holds parameters for opening a Channel.
type Config struct {
	// URL is the websocket endpoint (e.g., "wss://api.storekeep.dev/ws").
	URL string
	// Token is the bearer credential, presented during the handshake.
	// The server rejects the connection when it is invalid.
	Token string
	// Logger is used for structured logging. If nil, slog.Default().
	Logger *slog.Logger
	// Clock drives the reconnect backoff. If nil, clock.Real().
	Clock clock.Clock
	// Dialer overrides the websocket dialer. If nil,
	// websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

// Channel is one authenticated realtime connection. Open starts a
// background goroutine that dials, reads, and reconnects; lifecycle
// transitions arrive on States and pushed messages on Messages, both
// in strict delivery order.
type Channel struct {
	id     string
	url    string
	token  string
	logger *slog.Logger
	clock  clock.Clock
	dialer *websocket.Dialer

	messages chan InboundMessage
	states   chan State

	mu   sync.Mutex
	conn *websocket.Conn

	closeOnce sync.Once
	closed    chan struct{}
}

// envelope is the wire frame for both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// outboundMessage is the payload of a "sendMessage" event.
type outboundMessage struct {
	RecipientID int64  `json:"recipient_id"`
	Body        string `json:"body"`
}

// Open validates the configuration and starts the connection
// goroutine. The first Connected (or ChannelError) state arrives on
// States once the handshake resolves. The caller must call Close.
func Open(cfg Config) (*Channel, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("realtime: URL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("realtime: Token is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	id := uuid.NewString()
	channel := &Channel{
		id:       id,
		url:      cfg.URL,
		token:    cfg.Token,
		logger:   logger.With("channel_id", id[:8]),
		clock:    clk,
		dialer:   dialer,
		messages: make(chan InboundMessage, 64),
		states:   make(chan State, 16),
		closed:   make(chan struct{}),
	}

	go channel.run()
	return channel, nil
}

// Messages returns the inbound event stream. Events are delivered in
// the order the server sent them. The stream ends (channel closed)
// after Close.
func (c *Channel) Messages() <-chan InboundMessage { return c.messages }

// States returns the connection lifecycle stream.
func (c *Channel) States() <-chan State { return c.states }

// Send emits a "sendMessage" event for the recipient. Returns
// ErrNotConnected while the connection is down — the message is not
// queued; the caller decides whether to retry.
func (c *Channel) Send(recipientID int64, body string) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}

	payload, err := json.Marshal(outboundMessage{RecipientID: recipientID, Body: body})
	if err != nil {
		return fmt.Errorf("realtime: encoding message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	if err := c.conn.WriteJSON(envelope{Event: "sendMessage", Data: payload}); err != nil {
		return fmt.Errorf("realtime: sending message: %w", err)
	}
	return nil
}

// Close tears down the connection and ends both streams. Idempotent.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.mu.Lock()
		if c.conn != nil {
			c.conn.Close()
			c.conn = nil
		}
		c.mu.Unlock()
	})
	return nil
}

// run is the connection loop: dial, read until failure, back off,
// redial. Exits on Close or on a rejected credential (retrying a bad
// token would loop forever; the user must log in again).
func (c *Channel) run() {
	defer close(c.messages)
	defer close(c.states)

	backoff := initialBackoff
	for {
		select {
		case <-c.closed:
			return
		default:
		}

		conn, err := c.dial()
		if err != nil {
			if errors.Is(err, errCredentialRejected) {
				c.logger.Warn("realtime credential rejected, not retrying")
				c.emitState(State{Kind: ChannelError, Err: err})
				return
			}
			c.logger.Debug("realtime dial failed, backing off",
				"error", err,
				"backoff", backoff,
			)
			c.emitState(State{Kind: ChannelError, Err: err})
			select {
			case <-c.closed:
				return
			case <-c.clock.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		backoff = initialBackoff
		c.logger.Info("realtime channel connected")
		c.emitState(State{Kind: Connected})

		err = c.readLoop(conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()

		select {
		case <-c.closed:
			return
		default:
		}
		c.logger.Info("realtime channel disconnected", "error", err)
		c.emitState(State{Kind: Disconnected})
	}
}

// errCredentialRejected marks a handshake refused with 401/403. Not
// exported: callers observe it as a terminal ChannelError state.
var errCredentialRejected = errors.New("realtime: credential rejected by server")

// dial performs one websocket handshake with the bearer credential.
func (c *Channel) dial() (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.token)

	conn, response, err := c.dialer.Dial(c.url, header)
	if err != nil {
		if response != nil &&
			(response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w (HTTP %d)", errCredentialRejected, response.StatusCode)
		}
		return nil, fmt.Errorf("realtime: dialing %s: %w", c.url, err)
	}
	return conn, nil
}

// readLoop decodes envelopes until a read error. Unknown events are
// logged and skipped; malformed payloads never kill the connection.
func (c *Channel) readLoop(conn *websocket.Conn) error {
	for {
		var frame envelope
		if err := conn.ReadJSON(&frame); err != nil {
			return err
		}

		switch frame.Event {
		case "receivedMessage":
			var message InboundMessage
			if err := json.Unmarshal(frame.Data, &message); err != nil {
				c.logger.Warn("dropping malformed receivedMessage event", "error", err)
				continue
			}
			select {
			case <-c.closed:
				return nil
			case c.messages <- message:
			}
		case "error":
			var payload struct {
				Message string `json:"message"`
			}
			_ = json.Unmarshal(frame.Data, &payload)
			c.emitState(State{Kind: ChannelError, Err: fmt.Errorf("realtime: server error: %s", payload.Message)})
		default:
			c.logger.Debug("ignoring unknown realtime event", "event", frame.Event)
		}
	}
}

// emitState delivers a lifecycle event without blocking the
// connection loop: if the consumer has fallen this far behind, the
// oldest state is dropped in favor of the newest.
func (c *Channel) emitState(state State) {
	select {
	case c.states <- state:
	default:
		select {
		case <-c.states:
		default:
		}
		select {
		case c.states <- state:
		default:
		}
	}
}
