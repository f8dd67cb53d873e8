// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/storekeep/storekeep/chat"
	"github.com/storekeep/storekeep/cmd/storekeep/cli"
	"github.com/storekeep/storekeep/platform"
	"github.com/storekeep/storekeep/realtime"
	"github.com/storekeep/storekeep/tui"
)

func chatCommand() *cli.Command {
	var configPath string
	return &cli.Command{
		Name:    "chat",
		Summary: "Open the realtime chat console",
		Description: `Open the full-screen chat console: a conversation list with
unread badges on the left, the open conversation on the right.
Messages arrive live over the realtime channel; unread counters
persist across restarts.`,
		Flags: func() *pflag.FlagSet {
			return configFlag("chat", &configPath)
		},
		Run: func(args []string) error {
			e, err := openEnv(configPath, "chat")
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.requireSession(); err != nil {
				return err
			}

			channel, err := realtime.Open(realtime.Config{
				URL:    e.cfg.Backend.RealtimeURL,
				Token:  e.session.Token(),
				Logger: e.logger,
			})
			if err != nil {
				return err
			}
			defer channel.Close()

			var notifier chat.Notifier
			if e.cfg.Chat.Notifications {
				notifier = bellNotifier{}
			}

			sync, err := chat.NewSynchronizer(chat.Config{
				API:      e.session,
				Sender:   channel,
				Store:    e.store,
				Notifier: notifier,
				Identity: e.session.User(),
				Logger:   e.logger,
			})
			if err != nil {
				return err
			}
			if err := sync.LoadConversations(context.Background()); err != nil {
				// The console still opens; Init retries the fetch.
				e.logger.Warn("initial conversation fetch failed", "error", err)
			}

			model := tui.NewModel(tui.Config{
				Sync:   sync,
				Events: channel.Messages(),
				States: channel.States(),
			})
			_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
			return err
		},
	}
}

// bellNotifier rings the terminal bell for inbound messages. The
// status bar inside the console carries the text; the bell is the
// out-of-band attention signal.
type bellNotifier struct{}

func (bellNotifier) NewMessage(platform.User, string) { fmt.Fprint(os.Stderr, "\a") }
func (bellNotifier) Error(string)                     {}
