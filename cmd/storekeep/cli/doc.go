// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command tree, flag parsing, help output,
// and shared helpers (logger, typo suggestions) for the storekeep
// binary. Command implementations live in the sibling commands
// package; this package stays free of domain logic.
package cli
