// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/storekeep/storekeep/lib/clock"
	"github.com/storekeep/storekeep/platform"
	"github.com/storekeep/storekeep/realtime"
)

// ErrEmptyMessage is returned by Send for a blank body. Rejected
// before any network call.
var ErrEmptyMessage = errors.New("chat: message body is empty")

// ErrNoRecipient is returned by Send when no recipient is given.
var ErrNoRecipient = errors.New("chat: recipient is required")

// fallbackSenderName labels messages whose sender metadata the server
// omitted. Counterparties in this system are customers messaging the
// back office.
const fallbackSenderName = "Customer"

// Config holds the synchronizer's collaborators. API and Identity are
// required; the rest degrade gracefully when absent (no durable
// unread persistence, no notifications, no outbound sends).
type Config struct {
	// API is the REST surface (conversation list, histories, read acks).
	API API
	// Sender emits outbound messages. Nil makes Send fail.
	Sender Sender
	// Store persists unread counters across restarts. May be nil.
	Store UnreadStore
	// Notifier surfaces new-message and error notifications. May be nil.
	Notifier Notifier
	// Identity is the authenticated user the view belongs to.
	Identity platform.User
	// Logger is used for structured logging. If nil, slog.Default().
	Logger *slog.Logger
	// Clock supplies timestamps for events that arrive without one.
	// If nil, clock.Real().
	Clock clock.Clock
}

// Synchronizer owns the conversation list, the active selection, and
// per-conversation message histories, reconciling REST fetches,
// realtime pushes, and user actions into one consistent view.
//
// Safe for concurrent use: the Run loop and direct calls from the
// presentation layer serialize on one internal lock, and each
// reconciliation pass completes atomically under it.
type Synchronizer struct {
	api      API
	sender   Sender
	store    UnreadStore
	notifier Notifier
	identity platform.User
	logger   *slog.Logger
	clock    clock.Clock

	mu            sync.Mutex
	conversations []platform.Conversation
	histories     map[int64][]platform.Message
	activeID      int64 // 0 means no conversation is open
}

// NewSynchronizer creates a Synchronizer for one authenticated
// identity. Its lifecycle matches the session: create after login,
// discard at logout.
func NewSynchronizer(cfg Config) (*Synchronizer, error) {
	if cfg.API == nil {
		return nil, fmt.Errorf("chat: API is required")
	}
	if cfg.Identity.ID == 0 {
		return nil, fmt.Errorf("chat: Identity is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}

	return &Synchronizer{
		api:       cfg.API,
		sender:    cfg.Sender,
		store:     cfg.Store,
		notifier:  cfg.Notifier,
		identity:  cfg.Identity,
		logger:    logger,
		clock:     clk,
		histories: make(map[int64][]platform.Message),
	}, nil
}

// LoadConversations fetches the conversation list and replaces the
// in-memory view.
//
// For each conversation the authoritative unread count is the maximum
// of the backend's value, the in-memory value, and the durably stored
// value. The backend response may trail realtime delivery (a pushed
// message's unread bump not yet reflected server-side), and the
// durable value covers a restart racing a channel reconnect; taking
// the max makes the merge commutative and idempotent, so a racing
// fetch and push converge regardless of order.
//
// On error the previous view is left untouched.
func (s *Synchronizer) LoadConversations(ctx context.Context) error {
	fetched, err := s.api.Conversations(ctx)
	if err != nil {
		return fmt.Errorf("chat: loading conversations: %w", err)
	}

	// Read the durable counters before taking the lock: SQLite I/O
	// stays off the critical section, and the max-merge below is
	// order-independent anyway.
	stored := make(map[int64]int, len(fetched))
	if s.store != nil {
		for _, conversation := range fetched {
			count, err := s.store.Unread(ctx, s.identity.ID, conversation.ID)
			if err != nil {
				s.logger.Warn("reading stored unread counter",
					"conversation_id", conversation.ID,
					"error", err,
				)
				continue
			}
			stored[conversation.ID] = count
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	inMemory := make(map[int64]int, len(s.conversations))
	for _, conversation := range s.conversations {
		inMemory[conversation.ID] = conversation.UnreadCount
	}

	for i := range fetched {
		id := fetched[i].ID
		fetched[i].UnreadCount = max(fetched[i].UnreadCount, inMemory[id], stored[id])
	}
	sortConversations(fetched)
	s.conversations = fetched
	return nil
}

// LoadMessages fetches the full history for a conversation, sorted
// ascending by sent time, and replaces that conversation's in-memory
// history. A stale completion for a conversation that is no longer
// active lands in its own conversation's history and nowhere else.
func (s *Synchronizer) LoadMessages(ctx context.Context, conversationID int64) error {
	messages, err := s.api.Messages(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("chat: loading messages for conversation %d: %w", conversationID, err)
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].SentAt.Before(messages[j].SentAt)
	})

	s.mu.Lock()
	s.histories[conversationID] = messages
	s.mu.Unlock()
	return nil
}

// Select opens a conversation: loads its history, marks every unread
// message from others as read (locally at once, with a backend ack
// per message fired in the background), and resets the unread counter
// to zero in memory and in the durable store.
func (s *Synchronizer) Select(ctx context.Context, conversation platform.Conversation) error {
	s.mu.Lock()
	s.activeID = conversation.ID
	s.mu.Unlock()

	if err := s.LoadMessages(ctx, conversation.ID); err != nil {
		return err
	}

	s.mu.Lock()
	var ackIDs []int64
	history := s.histories[conversation.ID]
	for i := range history {
		if !history[i].Read && history[i].SenderID != s.identity.ID {
			history[i].Read = true
			ackIDs = append(ackIDs, history[i].ID)
		}
	}
	for i := range s.conversations {
		if s.conversations[i].ID == conversation.ID {
			s.conversations[i].UnreadCount = 0
		}
	}
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.ClearUnread(ctx, s.identity.ID, conversation.ID); err != nil {
			s.logger.Warn("clearing stored unread counter",
				"conversation_id", conversation.ID,
				"error", err,
			)
		}
	}

	if len(ackIDs) > 0 {
		// Fire-and-forget: the local flags are already flipped, and
		// the ack must outlive the Select call's context.
		go s.acknowledge(context.WithoutCancel(ctx), ackIDs)
	}
	return nil
}

// Deselect closes the open conversation. Inbound messages for it go
// back to incrementing its unread counter.
func (s *Synchronizer) Deselect() {
	s.mu.Lock()
	s.activeID = 0
	s.mu.Unlock()
}

// Send validates and emits a message to the recipient over the
// realtime channel. The message is NOT appended to history here: it
// enters history when the server echoes it back as an inbound event,
// keeping the server the single source of truth for message identity
// and ordering.
func (s *Synchronizer) Send(body string, recipientID int64) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return ErrEmptyMessage
	}
	if recipientID == 0 {
		return ErrNoRecipient
	}
	if s.sender == nil {
		return fmt.Errorf("chat: no sender configured")
	}
	if err := s.sender.Send(recipientID, body); err != nil {
		return fmt.Errorf("chat: sending message: %w", err)
	}
	return nil
}

// StartConversation opens (or reuses) a thread with the counterparty,
// refreshes the conversation list, and selects the thread.
func (s *Synchronizer) StartConversation(ctx context.Context, counterpartyID int64) (*platform.Conversation, error) {
	conversation, err := s.api.CreateConversation(ctx, counterpartyID)
	if err != nil {
		return nil, fmt.Errorf("chat: starting conversation with user %d: %w", counterpartyID, err)
	}
	if err := s.LoadConversations(ctx); err != nil {
		return nil, err
	}
	if err := s.Select(ctx, *conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

// HandleInbound reconciles one pushed message into the view. Runs for
// every message arriving on the realtime channel regardless of
// sender — including echoes of the current identity's own sends.
// Never fails: missing fields are synthesized, duplicate deliveries
// are dropped.
func (s *Synchronizer) HandleInbound(ctx context.Context, event realtime.InboundMessage) {
	sender := event.Sender
	if sender == nil {
		sender = &platform.User{ID: event.SenderID}
	}
	if sender.Name == "" {
		sender = &platform.User{ID: sender.ID, Name: fallbackSenderName, AvatarURL: sender.AvatarURL}
	}

	sentAt := event.SentAt
	if sentAt.IsZero() {
		sentAt = s.clock.Now()
	}

	s.mu.Lock()

	isActive := s.activeID != 0 && s.activeID == event.ConversationID
	isSelf := event.SenderID == s.identity.ID

	message := platform.Message{
		ID:             event.MessageID,
		ConversationID: event.ConversationID,
		SenderID:       event.SenderID,
		Sender:         sender,
		Body:           event.Body,
		SentAt:         sentAt,
		// A message in the open conversation is seen the moment it
		// renders; one's own messages need no reading.
		Read: isSelf || isActive,
	}

	// Idempotent insert: duplicate delivery of the same message ID
	// leaves history unchanged.
	duplicate := false
	for _, existing := range s.histories[event.ConversationID] {
		if existing.ID == event.MessageID {
			duplicate = true
			break
		}
	}
	if !duplicate {
		s.histories[event.ConversationID] = append(s.histories[event.ConversationID], message)
	}

	// Upsert the conversation summary.
	var persistUnread = -1 // >= 0 means write-through to the durable store
	found := false
	for i := range s.conversations {
		if s.conversations[i].ID != event.ConversationID {
			continue
		}
		found = true
		s.conversations[i].LastMessagePreview = event.Body
		s.conversations[i].LastMessageAt = sentAt
		switch {
		case isActive:
			s.conversations[i].UnreadCount = 0
		case !isSelf:
			s.conversations[i].UnreadCount++
		}
		persistUnread = s.conversations[i].UnreadCount
		break
	}
	if !found {
		counterpartyID := event.SenderID
		var counterparty *platform.User
		if isSelf {
			counterpartyID = event.RecipientID
		} else {
			counterparty = sender
		}
		unread := 0
		if !isSelf && !isActive {
			unread = 1
		}
		s.conversations = append(s.conversations, platform.Conversation{
			ID:                 event.ConversationID,
			CounterpartyID:     counterpartyID,
			Counterparty:       counterparty,
			LastMessagePreview: event.Body,
			LastMessageAt:      sentAt,
			UnreadCount:        unread,
		})
	}
	sortConversations(s.conversations)

	s.mu.Unlock()

	if persistUnread >= 0 && s.store != nil {
		if err := s.store.SetUnread(ctx, s.identity.ID, event.ConversationID, persistUnread); err != nil {
			s.logger.Warn("persisting unread counter",
				"conversation_id", event.ConversationID,
				"error", err,
			)
		}
	}

	if isActive && !isSelf && !duplicate {
		go s.acknowledge(context.WithoutCancel(ctx), []int64{event.MessageID})
	}

	if !isSelf && s.notifier != nil {
		s.notifier.NewMessage(*sender, event.Body)
	}
}

// Run consumes the realtime channel's event and lifecycle streams
// until ctx is done or the channel closes its streams. All inbound
// events pass through HandleInbound in delivery order.
func (s *Synchronizer) Run(ctx context.Context, events <-chan realtime.InboundMessage, states <-chan realtime.State) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			s.HandleInbound(ctx, event)
		case state, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			s.handleState(state)
		}
	}
}

func (s *Synchronizer) handleState(state realtime.State) {
	switch state.Kind {
	case realtime.Connected:
		s.logger.Info("chat channel connected")
	case realtime.Disconnected:
		s.logger.Warn("chat channel disconnected")
		if s.notifier != nil {
			s.notifier.Error("chat connection lost, reconnecting")
		}
	case realtime.ChannelError:
		s.logger.Warn("chat channel error", "error", state.Err)
		if s.notifier != nil {
			s.notifier.Error(fmt.Sprintf("chat connection error: %v", state.Err))
		}
	}
}

// acknowledge sends read acks for a batch of messages. Failures are
// logged and otherwise ignored: the backend count self-corrects on
// the next fetch, and the local flags are already flipped.
func (s *Synchronizer) acknowledge(ctx context.Context, messageIDs []int64) {
	for _, id := range messageIDs {
		if err := s.api.MarkRead(ctx, id); err != nil {
			s.logger.Warn("acknowledging message read", "message_id", id, "error", err)
		}
	}
}

// Conversations returns a snapshot of the conversation list, ordered
// by last message time descending.
func (s *Synchronizer) Conversations() []platform.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make([]platform.Conversation, len(s.conversations))
	copy(snapshot, s.conversations)
	return snapshot
}

// Active returns the open conversation, if any.
func (s *Synchronizer) Active() (platform.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeID == 0 {
		return platform.Conversation{}, false
	}
	for _, conversation := range s.conversations {
		if conversation.ID == s.activeID {
			return conversation, true
		}
	}
	return platform.Conversation{}, false
}

// History returns a snapshot of one conversation's message history,
// ascending by sent time.
func (s *Synchronizer) History(conversationID int64) []platform.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.histories[conversationID]
	snapshot := make([]platform.Message, len(history))
	copy(snapshot, history)
	return snapshot
}

// TotalUnread returns the sum of unread counters across all
// conversations. Computed from the owned state on every call, so it
// cannot drift from the per-conversation counters.
func (s *Synchronizer) TotalUnread() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, conversation := range s.conversations {
		total += conversation.UnreadCount
	}
	return total
}

// Identity returns the user this view belongs to.
func (s *Synchronizer) Identity() platform.User { return s.identity }

// IsOwn reports whether a message was sent by the current identity.
func (s *Synchronizer) IsOwn(message platform.Message) bool {
	return message.SenderID == s.identity.ID
}

// sortConversations orders for display: most recent activity first.
func sortConversations(conversations []platform.Conversation) {
	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].LastMessageAt.After(conversations[j].LastMessageAt)
	})
}
