// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"

	"github.com/storekeep/storekeep/platform"
)

// API is the REST surface the synchronizer consumes. *platform.Session
// implements it; tests use a scripted fake.
type API interface {
	// Conversations fetches the conversation list.
	Conversations(ctx context.Context) ([]platform.Conversation, error)

	// CreateConversation opens a thread with a counterparty.
	CreateConversation(ctx context.Context, counterpartyID int64) (*platform.Conversation, error)

	// Messages fetches the full history for a conversation.
	Messages(ctx context.Context, conversationID int64) ([]platform.Message, error)

	// MarkRead acknowledges one message as read server-side.
	MarkRead(ctx context.Context, messageID int64) error
}

// Compile-time check: the platform session satisfies the port.
var _ API = (*platform.Session)(nil)

// Sender emits outbound messages on the realtime channel.
// *realtime.Channel implements it.
type Sender interface {
	Send(recipientID int64, body string) error
}

// UnreadStore is the durable per-(identity, conversation) unread
// counter port — the piece of client state that must survive a page
// reload racing a channel reconnect. *store.Store implements it;
// tests use an in-memory map.
type UnreadStore interface {
	// Unread returns the stored counter, zero when absent.
	Unread(ctx context.Context, identity, conversationID int64) (int, error)

	// SetUnread replaces the stored counter.
	SetUnread(ctx context.Context, identity, conversationID int64, count int) error

	// ClearUnread removes the entry. Called when the conversation is
	// opened.
	ClearUnread(ctx context.Context, identity, conversationID int64) error
}

// Notifier surfaces non-blocking user-facing notifications. All
// methods must return promptly; implementations that render do so
// asynchronously.
type Notifier interface {
	// NewMessage announces an inbound message from another user.
	NewMessage(from platform.User, preview string)

	// Error announces a transient failure (network, channel). The
	// user can retry the triggering action; no state was lost.
	Error(message string)
}
