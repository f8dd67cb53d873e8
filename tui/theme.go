// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import "github.com/charmbracelet/lipgloss"

// Theme defines the color palette for the chat console. All colors
// use lipgloss ANSI 256-color codes for broad terminal compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Selected conversation row.
	SelectedBackground lipgloss.Color
	SelectedForeground lipgloss.Color

	// Unread badge.
	BadgeBackground lipgloss.Color
	BadgeForeground lipgloss.Color

	// Message authorship.
	OwnMessage   lipgloss.Color
	OtherMessage lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// Connection status.
	StatusConnected    lipgloss.Color
	StatusDisconnected lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText:         lipgloss.Color("252"),
	FaintText:          lipgloss.Color("242"),
	SelectedBackground: lipgloss.Color("237"),
	SelectedForeground: lipgloss.Color("255"),
	BadgeBackground:    lipgloss.Color("160"),
	BadgeForeground:    lipgloss.Color("255"),
	OwnMessage:         lipgloss.Color("75"),
	OtherMessage:       lipgloss.Color("252"),
	HeaderForeground:   lipgloss.Color("81"),
	BorderColor:        lipgloss.Color("240"),
	HelpText:           lipgloss.Color("242"),
	StatusConnected:    lipgloss.Color("40"),
	StatusDisconnected: lipgloss.Color("196"),
}
