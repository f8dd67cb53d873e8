// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui implements the terminal chat console. Built on
// bubbletea (Elm architecture), it provides a split-pane view with
// the conversation list on the left and the open conversation's
// message history plus compose input on the right.
//
// The model owns no chat state of its own: every mutation goes
// through the [chat.Synchronizer], and every render reads a fresh
// snapshot from it. Realtime events and connection lifecycle
// transitions are consumed inside the bubbletea message loop, so the
// synchronizer sees them in strict delivery order from a single
// goroutine.
//
// Data flow:
//
//	[realtime.Channel] --events/states--> [Model] <- bubbletea event loop
//	        ^                                |
//	        | sends                          | ops + snapshots
//	        +------- [chat.Synchronizer] ----+
package tui
