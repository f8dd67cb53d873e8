// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/storekeep/storekeep/chat"
	"github.com/storekeep/storekeep/platform"
	"github.com/storekeep/storekeep/realtime"
)

// FocusRegion identifies which pane has keyboard focus.
type FocusRegion int

const (
	// FocusList means navigation keys move the conversation cursor.
	FocusList FocusRegion = iota
	// FocusCompose means keystrokes go to the message input.
	FocusCompose
)

// listPaneWidth is the fixed width of the conversation list pane.
const listPaneWidth = 34

// noticeFadeDelay is how long a transient notice stays in the status
// bar.
const noticeFadeDelay = 4 * time.Second

// inboundEventMsg wraps a realtime push for delivery through the
// bubbletea message loop.
type inboundEventMsg struct {
	event realtime.InboundMessage
}

// channelStateMsg wraps a connection lifecycle transition.
type channelStateMsg struct {
	state realtime.State
}

// conversationOpenedMsg is sent when an asynchronous Select completes.
type conversationOpenedMsg struct {
	conversationID int64
	err            error
}

// sendResultMsg is sent when an asynchronous Send completes.
type sendResultMsg struct {
	err error
}

// conversationsLoadedMsg is sent when the initial list fetch completes.
type conversationsLoadedMsg struct {
	err error
}

// noticeFadeMsg clears the transient status bar notice.
type noticeFadeMsg struct{}

// Config holds the model's collaborators.
type Config struct {
	// Sync is the conversation state synchronizer. Required.
	Sync *chat.Synchronizer
	// Events is the realtime push stream. May be nil (offline view).
	Events <-chan realtime.InboundMessage
	// States is the connection lifecycle stream. May be nil.
	States <-chan realtime.State
}

// Model is the top-level bubbletea model for the chat console.
type Model struct {
	sync   *chat.Synchronizer
	events <-chan realtime.InboundMessage
	states <-chan realtime.State
	theme  Theme
	keys   KeyMap

	// Terminal dimensions (set by WindowSizeMsg).
	width  int
	height int
	ready  bool

	// Conversation list state. Selection is tracked by conversation ID
	// so it survives the re-sort a new message triggers.
	conversations []platform.Conversation
	cursor        int
	selectedID    int64

	// Open conversation state.
	activeID int64
	history  []platform.Message
	opening  bool // True while an asynchronous Select is in flight.

	focus FocusRegion
	input textinput.Model

	// Connection status for the status bar.
	connected bool

	// Transient status bar notice (send failures, channel errors).
	notice string
}

// NewModel creates a Model over an already-running synchronizer. Call
// after LoadConversations so the first frame has data; the initial
// load is retried from Init when the list is empty.
func NewModel(cfg Config) Model {
	input := textinput.New()
	input.Placeholder = "Type a message"
	input.CharLimit = 2000
	input.Prompt = "> "

	model := Model{
		sync:          cfg.Sync,
		events:        cfg.Events,
		states:        cfg.States,
		theme:         DefaultTheme,
		keys:          DefaultKeyMap,
		conversations: cfg.Sync.Conversations(),
		input:         input,
	}
	if len(model.conversations) > 0 {
		model.selectedID = model.conversations[0].ID
	}
	return model
}

// Init implements tea.Model. Starts the event and lifecycle listeners
// and, when the conversation list is empty, the initial fetch.
func (model Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if model.events != nil {
		cmds = append(cmds, listenForEvent(model.events))
	}
	if model.states != nil {
		cmds = append(cmds, listenForState(model.states))
	}
	if len(model.conversations) == 0 {
		cmds = append(cmds, loadConversations(model.sync))
	}
	return tea.Batch(cmds...)
}

// listenForEvent returns a tea.Cmd that blocks until a realtime push
// arrives, then delivers it as an inboundEventMsg.
func listenForEvent(events <-chan realtime.InboundMessage) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return inboundEventMsg{event: event}
	}
}

// listenForState returns a tea.Cmd that blocks until a lifecycle
// transition arrives.
func listenForState(states <-chan realtime.State) tea.Cmd {
	return func() tea.Msg {
		state, ok := <-states
		if !ok {
			return nil
		}
		return channelStateMsg{state: state}
	}
}

func loadConversations(sync *chat.Synchronizer) tea.Cmd {
	return func() tea.Msg {
		return conversationsLoadedMsg{err: sync.LoadConversations(context.Background())}
	}
}

func openConversation(sync *chat.Synchronizer, conversation platform.Conversation) tea.Cmd {
	return func() tea.Msg {
		err := sync.Select(context.Background(), conversation)
		return conversationOpenedMsg{conversationID: conversation.ID, err: err}
	}
}

func sendMessage(sync *chat.Synchronizer, body string, recipientID int64) tea.Cmd {
	return func() tea.Msg {
		return sendResultMsg{err: sync.Send(body, recipientID)}
	}
}

func fadeNotice() tea.Cmd {
	return tea.Tick(noticeFadeDelay, func(time.Time) tea.Msg {
		return noticeFadeMsg{}
	})
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		if model.focus == FocusCompose {
			return model.handleComposeKeys(message)
		}
		return model.handleListKeys(message)

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.input.Width = max(model.width-listPaneWidth-8, 20)

	case inboundEventMsg:
		// Reconcile inside the message loop: events reach the
		// synchronizer in delivery order, from one goroutine.
		model.sync.HandleInbound(context.Background(), message.event)
		model.refresh()
		return model, listenForEvent(model.events)

	case channelStateMsg:
		var cmd tea.Cmd
		switch message.state.Kind {
		case realtime.Connected:
			model.connected = true
		case realtime.Disconnected:
			model.connected = false
			model.notice = "connection lost, reconnecting"
			cmd = fadeNotice()
		case realtime.ChannelError:
			model.connected = false
			model.notice = fmt.Sprintf("connection error: %v", message.state.Err)
			cmd = fadeNotice()
		}
		return model, tea.Batch(cmd, listenForState(model.states))

	case conversationsLoadedMsg:
		if message.err != nil {
			model.notice = fmt.Sprintf("loading conversations: %v", message.err)
			return model, fadeNotice()
		}
		model.refresh()

	case conversationOpenedMsg:
		model.opening = false
		if message.err != nil {
			model.notice = fmt.Sprintf("opening conversation: %v", message.err)
			return model, fadeNotice()
		}
		model.activeID = message.conversationID
		model.focus = FocusCompose
		model.input.Focus()
		model.refresh()

	case sendResultMsg:
		if message.err != nil {
			model.notice = fmt.Sprintf("sending: %v", message.err)
			return model, fadeNotice()
		}

	case noticeFadeMsg:
		model.notice = ""
	}
	return model, nil
}

// handleListKeys processes keys while the conversation list has focus.
func (model Model) handleListKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.Up):
		if model.cursor > 0 {
			model.cursor--
			model.selectedID = model.conversations[model.cursor].ID
		}

	case key.Matches(message, model.keys.Down):
		if model.cursor < len(model.conversations)-1 {
			model.cursor++
			model.selectedID = model.conversations[model.cursor].ID
		}

	case key.Matches(message, model.keys.Enter):
		if model.cursor < len(model.conversations) && !model.opening {
			model.opening = true
			return model, openConversation(model.sync, model.conversations[model.cursor])
		}

	case key.Matches(message, model.keys.FocusToggle):
		if model.activeID != 0 {
			model.focus = FocusCompose
			model.input.Focus()
		}
	}
	return model, nil
}

// handleComposeKeys processes keys while the message input has focus.
func (model Model) handleComposeKeys(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case message.Type == tea.KeyCtrlC:
		return model, tea.Quit

	case key.Matches(message, model.keys.Back):
		model.focus = FocusList
		model.input.Blur()
		model.sync.Deselect()
		model.activeID = 0
		model.history = nil
		return model, nil

	case key.Matches(message, model.keys.FocusToggle):
		model.focus = FocusList
		model.input.Blur()
		return model, nil

	case key.Matches(message, model.keys.Enter):
		body := strings.TrimSpace(model.input.Value())
		if body == "" {
			return model, nil
		}
		recipientID := model.activeRecipient()
		if recipientID == 0 {
			model.notice = "no recipient for this conversation"
			return model, fadeNotice()
		}
		model.input.SetValue("")
		return model, sendMessage(model.sync, body, recipientID)
	}

	var cmd tea.Cmd
	model.input, cmd = model.input.Update(message)
	return model, cmd
}

// activeRecipient returns the counterparty of the open conversation.
func (model Model) activeRecipient() int64 {
	for _, conversation := range model.conversations {
		if conversation.ID == model.activeID {
			return conversation.CounterpartyID
		}
	}
	return 0
}

// refresh re-reads the synchronizer snapshot and restores the cursor
// onto the selected conversation after any re-sort.
func (model *Model) refresh() {
	model.conversations = model.sync.Conversations()
	if model.activeID != 0 {
		model.history = model.sync.History(model.activeID)
	}

	if model.selectedID == 0 && len(model.conversations) > 0 {
		model.selectedID = model.conversations[0].ID
	}
	model.cursor = 0
	for i, conversation := range model.conversations {
		if conversation.ID == model.selectedID {
			model.cursor = i
			break
		}
	}
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return "loading..."
	}

	contentHeight := max(model.height-3, 1)
	left := model.renderList(contentHeight)
	right := model.renderConversation(contentHeight)

	panes := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	return lipgloss.JoinVertical(lipgloss.Left,
		model.renderHeader(),
		panes,
		model.renderStatusBar(),
	)
}

func (model Model) renderHeader() string {
	headerStyle := lipgloss.NewStyle().Foreground(model.theme.HeaderForeground).Bold(true)
	title := headerStyle.Render("storekeep chat")

	total := model.sync.TotalUnread()
	if total > 0 {
		title += " " + model.badge(total)
	}

	identity := lipgloss.NewStyle().Foreground(model.theme.FaintText).
		Render(fmt.Sprintf("  %s", model.sync.Identity().Name))
	return title + identity
}

// renderList renders the conversation list pane.
func (model Model) renderList(height int) string {
	normalStyle := lipgloss.NewStyle().Foreground(model.theme.NormalText)
	faintStyle := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	selectedStyle := lipgloss.NewStyle().
		Foreground(model.theme.SelectedForeground).
		Background(model.theme.SelectedBackground)

	var rows []string
	for i, conversation := range model.conversations {
		if len(rows) >= height {
			break
		}

		name := conversationName(conversation)
		row := truncate(name, listPaneWidth-8)
		if conversation.UnreadCount > 0 {
			row += " " + model.badge(conversation.UnreadCount)
		}
		if conversation.ID == model.activeID {
			row = "* " + row
		} else {
			row = "  " + row
		}

		if i == model.cursor && model.focus == FocusList {
			rows = append(rows, selectedStyle.Render(padRight(row, listPaneWidth-2)))
		} else {
			rows = append(rows, normalStyle.Render(row))
		}

		if preview := conversation.LastMessagePreview; preview != "" && len(rows) < height {
			rows = append(rows, faintStyle.Render("    "+truncate(preview, listPaneWidth-6)))
		}
	}
	if len(rows) == 0 {
		rows = append(rows, faintStyle.Render("  no conversations"))
	}

	pane := lipgloss.NewStyle().
		Width(listPaneWidth).
		Height(height).
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(model.theme.BorderColor)
	return pane.Render(strings.Join(rows, "\n"))
}

// renderConversation renders the open conversation's history and the
// compose input.
func (model Model) renderConversation(height int) string {
	faintStyle := lipgloss.NewStyle().Foreground(model.theme.FaintText)
	if model.activeID == 0 {
		return faintStyle.Render("\n  select a conversation (Enter)")
	}

	ownStyle := lipgloss.NewStyle().Foreground(model.theme.OwnMessage)
	otherStyle := lipgloss.NewStyle().Foreground(model.theme.OtherMessage)
	width := max(model.width-listPaneWidth-4, 20)

	// Render newest messages that fit above the input line.
	budget := max(height-2, 1)
	var lines []string
	for i := len(model.history) - 1; i >= 0 && len(lines) < budget; i-- {
		message := model.history[i]
		name := "Customer"
		if message.Sender != nil && message.Sender.Name != "" {
			name = message.Sender.Name
		}
		style := otherStyle
		if model.sync.IsOwn(message) {
			name = "you"
			style = ownStyle
		}
		stamp := faintStyle.Render(message.SentAt.Local().Format("15:04"))
		line := fmt.Sprintf("%s %s: %s", stamp, style.Render(name), truncate(message.Body, width))
		lines = append(lines, line)
	}
	// Reverse back into chronological order.
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	if len(lines) == 0 {
		lines = append(lines, faintStyle.Render("no messages yet"))
	}

	body := strings.Join(lines, "\n")
	filler := max(budget-len(lines), 0)
	if filler > 0 {
		body += strings.Repeat("\n", filler)
	}
	return lipgloss.NewStyle().PaddingLeft(1).Render(body + "\n" + model.input.View())
}

func (model Model) renderStatusBar() string {
	var status string
	if model.connected {
		status = lipgloss.NewStyle().Foreground(model.theme.StatusConnected).Render("● online")
	} else {
		status = lipgloss.NewStyle().Foreground(model.theme.StatusDisconnected).Render("● offline")
	}

	help := lipgloss.NewStyle().Foreground(model.theme.HelpText).
		Render("  j/k navigate · Enter open/send · Tab switch · Esc back · q quit")

	if model.notice != "" {
		notice := lipgloss.NewStyle().Foreground(model.theme.StatusDisconnected).
			Render("  " + model.notice)
		return status + notice
	}
	return status + help
}

// badge renders an unread count pill.
func (model Model) badge(count int) string {
	return lipgloss.NewStyle().
		Foreground(model.theme.BadgeForeground).
		Background(model.theme.BadgeBackground).
		Render(fmt.Sprintf(" %d ", count))
}

// conversationName returns the display name for a conversation row.
func conversationName(conversation platform.Conversation) string {
	if conversation.Counterparty != nil && conversation.Counterparty.Name != "" {
		return conversation.Counterparty.Name
	}
	return fmt.Sprintf("customer %d", conversation.CounterpartyID)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 1 {
		return string(runes[:width])
	}
	return string(runes[:width-1]) + "…"
}

// padRight pads to the visible width: the row may carry ANSI escapes
// from styled badges and multibyte counterparty names, so byte length
// overcounts.
func padRight(s string, width int) string {
	gap := width - lipgloss.Width(s)
	if gap <= 0 {
		return s
	}
	return s + strings.Repeat(" ", gap)
}
