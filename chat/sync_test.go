// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/storekeep/storekeep/lib/clock"
	"github.com/storekeep/storekeep/platform"
	"github.com/storekeep/storekeep/realtime"
)

// fakeAPI is an in-memory rendition of the REST surface. Mutating the
// fields between calls simulates backend-side changes.
type fakeAPI struct {
	mu            sync.Mutex
	conversations []platform.Conversation
	messages      map[int64][]platform.Message
	readAcks      []int64
	acked         chan int64

	conversationsErr error
	messagesErr      error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		messages: make(map[int64][]platform.Message),
		acked:    make(chan int64, 16),
	}
}

func (f *fakeAPI) Conversations(ctx context.Context) ([]platform.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conversationsErr != nil {
		return nil, f.conversationsErr
	}
	out := make([]platform.Conversation, len(f.conversations))
	copy(out, f.conversations)
	return out, nil
}

func (f *fakeAPI) CreateConversation(ctx context.Context, counterpartyID int64) (*platform.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conversations {
		if c.CounterpartyID == counterpartyID {
			existing := c
			return &existing, nil
		}
	}
	created := platform.Conversation{
		ID:             int64(len(f.conversations) + 100),
		CounterpartyID: counterpartyID,
	}
	f.conversations = append(f.conversations, created)
	return &created, nil
}

func (f *fakeAPI) Messages(ctx context.Context, conversationID int64) ([]platform.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.messagesErr != nil {
		return nil, f.messagesErr
	}
	history := f.messages[conversationID]
	out := make([]platform.Message, len(history))
	copy(out, history)
	return out, nil
}

func (f *fakeAPI) MarkRead(ctx context.Context, messageID int64) error {
	f.mu.Lock()
	f.readAcks = append(f.readAcks, messageID)
	f.mu.Unlock()
	f.acked <- messageID
	return nil
}

func (f *fakeAPI) waitForAck(t *testing.T) int64 {
	t.Helper()
	select {
	case id := <-f.acked:
		return id
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a read ack")
		return 0
	}
}

type fakeSender struct {
	mu   sync.Mutex
	sent []struct {
		recipientID int64
		body        string
	}
	err error
}

func (f *fakeSender) Send(recipientID int64, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, struct {
		recipientID int64
		body        string
	}{recipientID, body})
	return nil
}

// fakeUnreadStore keys counters by (identity, conversation) the way
// the SQLite store does.
type fakeUnreadStore struct {
	mu       sync.Mutex
	counters map[string]int
}

func newFakeUnreadStore() *fakeUnreadStore {
	return &fakeUnreadStore{counters: make(map[string]int)}
}

func storeKey(identity, conversationID int64) string {
	return fmt.Sprintf("%d/%d", identity, conversationID)
}

func (f *fakeUnreadStore) Unread(ctx context.Context, identity, conversationID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counters[storeKey(identity, conversationID)], nil
}

func (f *fakeUnreadStore) SetUnread(ctx context.Context, identity, conversationID int64, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[storeKey(identity, conversationID)] = count
	return nil
}

func (f *fakeUnreadStore) ClearUnread(ctx context.Context, identity, conversationID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.counters, storeKey(identity, conversationID))
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
	errors   []string
}

func (f *fakeNotifier) NewMessage(from platform.User, preview string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, from.Name+": "+preview)
}

func (f *fakeNotifier) Error(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, message)
}

var admin = platform.User{ID: 1, Name: "Admin", Role: platform.RoleAdmin}

func newTestSynchronizer(t *testing.T, api *fakeAPI) (*Synchronizer, *fakeSender, *fakeUnreadStore, *fakeNotifier) {
	t.Helper()
	sender := &fakeSender{}
	store := newFakeUnreadStore()
	notifier := &fakeNotifier{}
	sync, err := NewSynchronizer(Config{
		API:      api,
		Sender:   sender,
		Store:    store,
		Notifier: notifier,
		Identity: admin,
		Clock:    clock.NewFake(time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("NewSynchronizer: %v", err)
	}
	return sync, sender, store, notifier
}

func inbound(conversationID, messageID, senderID int64, body string) realtime.InboundMessage {
	return realtime.InboundMessage{
		ConversationID: conversationID,
		MessageID:      messageID,
		SenderID:       senderID,
		Sender:         &platform.User{ID: senderID, Name: fmt.Sprintf("user-%d", senderID)},
		Body:           body,
		SentAt:         time.Date(2026, 8, 30, 11, 0, 0, int(messageID), time.UTC),
	}
}

func TestLoadConversationsTakesMaxUnread(t *testing.T) {
	api := newFakeAPI()
	api.conversations = []platform.Conversation{{ID: 7, CounterpartyID: 9, UnreadCount: 1}}
	sync, _, store, _ := newTestSynchronizer(t, api)

	// A push arrives before the first fetch completes: the in-memory
	// counter runs ahead of the backend's snapshot.
	sync.HandleInbound(context.Background(), inbound(7, 500, 9, "hello"))
	sync.HandleInbound(context.Background(), inbound(7, 501, 9, "anyone there?"))
	sync.HandleInbound(context.Background(), inbound(7, 502, 9, "??"))

	if err := sync.LoadConversations(context.Background()); err != nil {
		t.Fatalf("LoadConversations: %v", err)
	}

	conversations := sync.Conversations()
	if len(conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(conversations))
	}
	if got := conversations[0].UnreadCount; got != 3 {
		t.Errorf("unread count = %d, want 3 (max of backend 1, memory 3)", got)
	}

	// The stored counter can also run ahead (restart after pushes).
	store.SetUnread(context.Background(), admin.ID, 7, 5)
	if err := sync.LoadConversations(context.Background()); err != nil {
		t.Fatalf("LoadConversations: %v", err)
	}
	if got := sync.Conversations()[0].UnreadCount; got != 5 {
		t.Errorf("unread count = %d, want 5 (durable store ahead)", got)
	}
}

func TestLoadConversationsErrorLeavesViewIntact(t *testing.T) {
	api := newFakeAPI()
	api.conversations = []platform.Conversation{{ID: 7, CounterpartyID: 9, UnreadCount: 2}}
	sync, _, _, _ := newTestSynchronizer(t, api)

	if err := sync.LoadConversations(context.Background()); err != nil {
		t.Fatalf("LoadConversations: %v", err)
	}

	api.conversationsErr = errors.New("backend down")
	if err := sync.LoadConversations(context.Background()); err == nil {
		t.Fatal("expected an error")
	}

	if got := len(sync.Conversations()); got != 1 {
		t.Errorf("conversation list was clobbered by a failed fetch: %d entries", got)
	}
}

func TestHandleInboundIdempotentInsert(t *testing.T) {
	api := newFakeAPI()
	sync, _, _, _ := newTestSynchronizer(t, api)

	event := inbound(3, 42, 9, "duplicate me")
	sync.HandleInbound(context.Background(), event)
	sync.HandleInbound(context.Background(), event)
	sync.HandleInbound(context.Background(), event)

	if got := len(sync.History(3)); got != 1 {
		t.Errorf("history length = %d after duplicate delivery, want 1", got)
	}
}

func TestHandleInboundOwnEchoNeverIncrementsUnread(t *testing.T) {
	api := newFakeAPI()
	api.conversations = []platform.Conversation{{ID: 3, CounterpartyID: 9, UnreadCount: 0}}
	sync, _, _, notifier := newTestSynchronizer(t, api)
	if err := sync.LoadConversations(context.Background()); err != nil {
		t.Fatalf("LoadConversations: %v", err)
	}

	echo := inbound(3, 42, admin.ID, "my own reply")
	echo.RecipientID = 9
	sync.HandleInbound(context.Background(), echo)

	if got := sync.Conversations()[0].UnreadCount; got != 0 {
		t.Errorf("unread count = %d after own echo, want 0", got)
	}
	if got := len(sync.History(3)); got != 1 {
		t.Errorf("own echo should still enter history, got %d messages", got)
	}
	if !sync.History(3)[0].Read {
		t.Error("own message should be marked read")
	}
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.messages) != 0 {
		t.Errorf("own echo should not notify, got %v", notifier.messages)
	}
}

func TestHandleInboundActiveConversationStaysRead(t *testing.T) {
	api := newFakeAPI()
	api.conversations = []platform.Conversation{{ID: 3, CounterpartyID: 9}}
	sync, _, _, _ := newTestSynchronizer(t, api)
	if err := sync.LoadConversations(context.Background()); err != nil {
		t.Fatalf("LoadConversations: %v", err)
	}
	if err := sync.Select(context.Background(), sync.Conversations()[0]); err != nil {
		t.Fatalf("Select: %v", err)
	}

	sync.HandleInbound(context.Background(), inbound(3, 42, 9, "while you watch"))

	if got := sync.Conversations()[0].UnreadCount; got != 0 {
		t.Errorf("unread count = %d for active conversation, want 0", got)
	}
	if msg := sync.History(3)[0]; !msg.Read {
		t.Error("message in the active conversation should be marked read")
	}
	if got := api.waitForAck(t); got != 42 {
		t.Errorf("acked message %d, want 42", got)
	}
}

func TestHandleInboundInactiveConversationIncrements(t *testing.T) {
	api := newFakeAPI()
	api.conversations = []platform.Conversation{
		{ID: 3, CounterpartyID: 9},
		{ID: 4, CounterpartyID: 11},
	}
	sync, _, store, notifier := newTestSynchronizer(t, api)
	if err := sync.LoadConversations(context.Background()); err != nil {
		t.Fatalf("LoadConversations: %v", err)
	}
	if err := sync.Select(context.Background(), platform.Conversation{ID: 4}); err != nil {
		t.Fatalf("Select: %v", err)
	}

	sync.HandleInbound(context.Background(), inbound(3, 42, 9, "psst"))
	sync.HandleInbound(context.Background(), inbound(3, 43, 9, "psst again"))

	for _, c := range sync.Conversations() {
		if c.ID == 3 && c.UnreadCount != 2 {
			t.Errorf("unread count = %d for background conversation, want 2", c.UnreadCount)
		}
	}
	if stored, _ := store.Unread(context.Background(), admin.ID, 3); stored != 2 {
		t.Errorf("stored unread = %d, want 2", stored)
	}
	notifier.mu.Lock()
	if len(notifier.messages) != 2 {
		t.Errorf("expected 2 notifications, got %v", notifier.messages)
	}
	notifier.mu.Unlock()
	if got := sync.TotalUnread(); got != 2 {
		t.Errorf("TotalUnread = %d, want 2", got)
	}
}

func TestHandleInboundUnknownConversation(t *testing.T) {
	api := newFakeAPI()
	sync, _, store, _ := newTestSynchronizer(t, api)

	sync.HandleInbound(context.Background(), inbound(99, 42, 9, "first contact"))

	conversations := sync.Conversations()
	if len(conversations) != 1 {
		t.Fatalf("expected a synthesized conversation, got %d", len(conversations))
	}
	c := conversations[0]
	if c.ID != 99 || c.CounterpartyID != 9 {
		t.Errorf("synthesized conversation = %+v", c)
	}
	if c.UnreadCount != 1 {
		t.Errorf("unread count = %d, want 1", c.UnreadCount)
	}
	if c.LastMessagePreview != "first contact" {
		t.Errorf("preview = %q", c.LastMessagePreview)
	}
	// The synthesized summary is provisional; only the next fetch or
	// a follow-up message in a known conversation writes through.
	if stored, _ := store.Unread(context.Background(), admin.ID, 99); stored != 0 {
		t.Errorf("stored unread = %d for synthesized conversation, want 0", stored)
	}
}

func TestHandleInboundSynthesizesSenderName(t *testing.T) {
	api := newFakeAPI()
	sync, _, _, notifier := newTestSynchronizer(t, api)

	event := realtime.InboundMessage{
		ConversationID: 3,
		MessageID:      42,
		SenderID:       9,
		Body:           "who am I",
		SentAt:         time.Date(2026, 8, 30, 11, 0, 0, 0, time.UTC),
	}
	sync.HandleInbound(context.Background(), event)

	history := sync.History(3)
	if len(history) != 1 {
		t.Fatalf("expected 1 message, got %d", len(history))
	}
	if history[0].Sender == nil || history[0].Sender.Name != "Customer" {
		t.Errorf("sender = %+v, want synthesized Customer", history[0].Sender)
	}
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.messages) != 1 || notifier.messages[0] != "Customer: who am I" {
		t.Errorf("notifications = %v", notifier.messages)
	}
}

func TestHandleInboundZeroTimestampGetsClock(t *testing.T) {
	api := newFakeAPI()
	sync, _, _, _ := newTestSynchronizer(t, api)

	event := inbound(3, 42, 9, "when?")
	event.SentAt = time.Time{}
	sync.HandleInbound(context.Background(), event)

	want := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	if got := sync.History(3)[0].SentAt; !got.Equal(want) {
		t.Errorf("SentAt = %v, want clock time %v", got, want)
	}
}

func TestSelectMarksHistoryReadAndAcks(t *testing.T) {
	api := newFakeAPI()
	api.conversations = []platform.Conversation{{ID: 3, CounterpartyID: 9, UnreadCount: 2}}
	api.messages[3] = []platform.Message{
		{ID: 40, ConversationID: 3, SenderID: admin.ID, Body: "hi", Read: true,
			SentAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)},
		{ID: 41, ConversationID: 3, SenderID: 9, Body: "hello", Read: false,
			SentAt: time.Date(2026, 8, 30, 10, 1, 0, 0, time.UTC)},
		{ID: 42, ConversationID: 3, SenderID: 9, Body: "there?", Read: false,
			SentAt: time.Date(2026, 8, 30, 10, 2, 0, 0, time.UTC)},
	}
	sync, _, store, _ := newTestSynchronizer(t, api)
	store.SetUnread(context.Background(), admin.ID, 3, 2)
	if err := sync.LoadConversations(context.Background()); err != nil {
		t.Fatalf("LoadConversations: %v", err)
	}

	if err := sync.Select(context.Background(), sync.Conversations()[0]); err != nil {
		t.Fatalf("Select: %v", err)
	}

	for _, msg := range sync.History(3) {
		if !msg.Read {
			t.Errorf("message %d still unread after Select", msg.ID)
		}
	}
	if got := sync.Conversations()[0].UnreadCount; got != 0 {
		t.Errorf("unread count = %d after Select, want 0", got)
	}
	if stored, _ := store.Unread(context.Background(), admin.ID, 3); stored != 0 {
		t.Errorf("stored unread = %d after Select, want 0", stored)
	}

	acked := map[int64]bool{api.waitForAck(t): true, api.waitForAck(t): true}
	if !acked[41] || !acked[42] {
		t.Errorf("acked %v, want messages 41 and 42", acked)
	}
	if active, ok := sync.Active(); !ok || active.ID != 3 {
		t.Errorf("Active = %+v, %v", active, ok)
	}
}

func TestSendValidation(t *testing.T) {
	api := newFakeAPI()
	sync, sender, _, _ := newTestSynchronizer(t, api)

	if err := sync.Send("   ", 9); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("blank body: got %v, want ErrEmptyMessage", err)
	}
	if err := sync.Send("hello", 0); !errors.Is(err, ErrNoRecipient) {
		t.Errorf("no recipient: got %v, want ErrNoRecipient", err)
	}
	if err := sync.Send("  hello  ", 9); err != nil {
		t.Fatalf("Send: %v", err)
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.sent) != 1 || sender.sent[0].body != "hello" || sender.sent[0].recipientID != 9 {
		t.Errorf("sent = %+v", sender.sent)
	}
	// No optimistic append: history fills in when the server echoes.
	if got := len(sync.History(3)); got != 0 {
		t.Errorf("history length = %d after Send, want 0", got)
	}
}

func TestConversationsSortedByRecency(t *testing.T) {
	api := newFakeAPI()
	sync, _, _, _ := newTestSynchronizer(t, api)

	older := inbound(1, 10, 9, "old")
	older.SentAt = time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	newer := inbound(2, 11, 12, "new")
	newer.SentAt = time.Date(2026, 8, 30, 11, 0, 0, 0, time.UTC)

	sync.HandleInbound(context.Background(), older)
	sync.HandleInbound(context.Background(), newer)

	conversations := sync.Conversations()
	if conversations[0].ID != 2 || conversations[1].ID != 1 {
		t.Errorf("order = [%d %d], want [2 1]", conversations[0].ID, conversations[1].ID)
	}

	// A fresh message in the older conversation bubbles it to the top.
	bump := inbound(1, 12, 9, "bump")
	bump.SentAt = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	sync.HandleInbound(context.Background(), bump)

	if got := sync.Conversations()[0].ID; got != 1 {
		t.Errorf("top conversation = %d after bump, want 1", got)
	}
}

func TestCrossIdentityStoreIsolation(t *testing.T) {
	api := newFakeAPI()
	api.conversations = []platform.Conversation{{ID: 3, CounterpartyID: 9}}

	store := newFakeUnreadStore()
	other := platform.User{ID: 2, Name: "Other"}
	store.SetUnread(context.Background(), other.ID, 3, 7)

	sync, err := NewSynchronizer(Config{API: api, Store: store, Identity: admin})
	if err != nil {
		t.Fatalf("NewSynchronizer: %v", err)
	}
	if err := sync.LoadConversations(context.Background()); err != nil {
		t.Fatalf("LoadConversations: %v", err)
	}

	if got := sync.Conversations()[0].UnreadCount; got != 0 {
		t.Errorf("unread count = %d, another identity's counter leaked in", got)
	}
}

func TestStartConversation(t *testing.T) {
	api := newFakeAPI()
	sync, _, _, _ := newTestSynchronizer(t, api)

	conversation, err := sync.StartConversation(context.Background(), 9)
	if err != nil {
		t.Fatalf("StartConversation: %v", err)
	}
	if conversation.CounterpartyID != 9 {
		t.Errorf("counterparty = %d, want 9", conversation.CounterpartyID)
	}
	if active, ok := sync.Active(); !ok || active.ID != conversation.ID {
		t.Errorf("Active = %+v, %v; want the new conversation selected", active, ok)
	}

	// Starting again with the same counterparty reuses the thread.
	again, err := sync.StartConversation(context.Background(), 9)
	if err != nil {
		t.Fatalf("StartConversation (reuse): %v", err)
	}
	if again.ID != conversation.ID {
		t.Errorf("got a new conversation %d, want reuse of %d", again.ID, conversation.ID)
	}
}

func TestRunConsumesEventsAndStates(t *testing.T) {
	api := newFakeAPI()
	sync, _, _, notifier := newTestSynchronizer(t, api)

	events := make(chan realtime.InboundMessage, 4)
	states := make(chan realtime.State, 4)

	events <- inbound(3, 42, 9, "over the channel")
	states <- realtime.State{Kind: realtime.Disconnected}
	states <- realtime.State{Kind: realtime.ChannelError, Err: errors.New("boom")}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sync.Run(ctx, events, states) }()

	deadline := time.Now().Add(5 * time.Second)
	for len(sync.History(3)) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("inbound event never reconciled")
		}
		time.Sleep(time.Millisecond)
	}
	for {
		notifier.mu.Lock()
		n := len(notifier.errors)
		notifier.mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("lifecycle states never surfaced")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on cancellation")
	}
}

func TestRunStopsWhenEventStreamCloses(t *testing.T) {
	api := newFakeAPI()
	sync, _, _, _ := newTestSynchronizer(t, api)

	events := make(chan realtime.InboundMessage)
	states := make(chan realtime.State)
	close(events)
	close(states)

	if err := sync.Run(context.Background(), events, states); err != nil {
		t.Errorf("Run returned %v on closed streams, want nil", err)
	}
}

func TestUnreadCounterNeverNegative(t *testing.T) {
	api := newFakeAPI()
	api.conversations = []platform.Conversation{{ID: 3, CounterpartyID: 9}}
	sync, _, _, _ := newTestSynchronizer(t, api)
	if err := sync.LoadConversations(context.Background()); err != nil {
		t.Fatalf("LoadConversations: %v", err)
	}

	// Select with nothing unread, then select again: zero stays zero.
	if err := sync.Select(context.Background(), sync.Conversations()[0]); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := sync.Select(context.Background(), sync.Conversations()[0]); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if got := sync.Conversations()[0].UnreadCount; got < 0 {
		t.Errorf("unread count went negative: %d", got)
	}
	if got := sync.TotalUnread(); got != 0 {
		t.Errorf("TotalUnread = %d, want 0", got)
	}
}
