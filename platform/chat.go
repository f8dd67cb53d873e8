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

// Conversations fetches the conversation list for the current
// identity. The returned unread counts are the backend's view and may
// trail realtime delivery; the chat synchronizer reconciles them.
func (s *Session) Conversations(ctx context.Context) ([]Conversation, error) {
	body, err := s.get(ctx, "/conversations")
	if err != nil {
		return nil, fmt.Errorf("platform: fetching conversations: %w", err)
	}
	var conversations []Conversation
	if err := json.Unmarshal(body, &conversations); err != nil {
		return nil, fmt.Errorf("platform: failed to parse conversations response: %w", err)
	}
	return conversations, nil
}

// CreateConversation opens a thread with the given counterparty.
// Returns the existing conversation when one is already open — the
// backend deduplicates by participant pair.
func (s *Session) CreateConversation(ctx context.Context, counterpartyID int64) (*Conversation, error) {
	body, err := s.do(ctx, http.MethodPost, "/conversations", CreateConversationRequest{
		CounterpartyID: counterpartyID,
	})
	if err != nil {
		return nil, fmt.Errorf("platform: creating conversation with user %d: %w", counterpartyID, err)
	}
	var conversation Conversation
	if err := json.Unmarshal(body, &conversation); err != nil {
		return nil, fmt.Errorf("platform: failed to parse conversation response: %w", err)
	}
	return &conversation, nil
}

// Messages fetches the full message history for a conversation. The
// backend returns messages in arbitrary order; callers that need sent
// order sort by SentAt (the chat synchronizer does).
func (s *Session) Messages(ctx context.Context, conversationID int64) ([]Message, error) {
	body, err := s.get(ctx, "/conversations/"+strconv.FormatInt(conversationID, 10)+"/messages")
	if err != nil {
		return nil, fmt.Errorf("platform: fetching messages for conversation %d: %w", conversationID, err)
	}
	var messages []Message
	if err := json.Unmarshal(body, &messages); err != nil {
		return nil, fmt.Errorf("platform: failed to parse messages response: %w", err)
	}
	return messages, nil
}

// MarkRead acknowledges a message as read server-side. Idempotent:
// acknowledging an already-read message succeeds.
func (s *Session) MarkRead(ctx context.Context, messageID int64) error {
	_, err := s.do(ctx, http.MethodPut, "/messages/"+strconv.FormatInt(messageID, 10)+"/read", struct{}{})
	if err != nil {
		return fmt.Errorf("platform: marking message %d read: %w", messageID, err)
	}
	return nil
}
