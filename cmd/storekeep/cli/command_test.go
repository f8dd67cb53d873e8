// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "storekeep",
		Subcommands: []*Command{
			{
				Name: "version",
				Run: func(args []string) error {
					called = "version"
					return nil
				},
			},
			{
				Name: "products",
				Run: func(args []string) error {
					called = "products"
					return nil
				},
			},
		},
	}

	if err := root.Execute([]string{"products"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "products" {
		t.Errorf("dispatched to %q, want %q", called, "products")
	}
}

func TestCommand_Execute_NestedSubcommands(t *testing.T) {
	var called string
	var receivedArgs []string

	root := &Command{
		Name: "storekeep",
		Subcommands: []*Command{
			{
				Name: "orders",
				Subcommands: []*Command{
					{
						Name: "status",
						Run: func(args []string) error {
							called = "orders status"
							receivedArgs = args
							return nil
						},
					},
				},
			},
		},
	}

	if err := root.Execute([]string{"orders", "status", "42", "delivered"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "orders status" {
		t.Errorf("dispatched to %q, want %q", called, "orders status")
	}
	if len(receivedArgs) != 2 || receivedArgs[0] != "42" {
		t.Errorf("args = %v, want [42 delivered]", receivedArgs)
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var configPath string
	var target string

	command := &Command{
		Name: "login",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("login", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "config file path")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				target = args[0]
			}
			return nil
		},
	}

	if err := command.Execute([]string{"--config", "/etc/storekeep.yaml", "admin@example.com"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if configPath != "/etc/storekeep.yaml" {
		t.Errorf("configPath = %q", configPath)
	}
	if target != "admin@example.com" {
		t.Errorf("target = %q", target)
	}
}

func TestCommand_Execute_UnknownSubcommandSuggestion(t *testing.T) {
	root := &Command{
		Name: "storekeep",
		Subcommands: []*Command{
			{Name: "products", Run: func(args []string) error { return nil }},
			{Name: "orders", Run: func(args []string) error { return nil }},
		},
	}

	err := root.Execute([]string{"prodcuts"})
	if err == nil {
		t.Fatal("expected error for unknown subcommand")
	}
	if !strings.Contains(err.Error(), `did you mean "products"`) {
		t.Errorf("error lacks suggestion: %v", err)
	}
}

func TestCommand_Execute_UnknownFlagSuggestion(t *testing.T) {
	command := &Command{
		Name: "chat",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("chat", pflag.ContinueOnError)
			flagSet.String("config", "", "config file path")
			return flagSet
		},
		Run: func(args []string) error { return nil },
	}

	err := command.Execute([]string{"--confg", "x"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if !strings.Contains(err.Error(), "--config") {
		t.Errorf("error lacks flag suggestion: %v", err)
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	root := &Command{
		Name:    "storekeep",
		Summary: "Retail back-office console",
		Subcommands: []*Command{
			{Name: "chat", Summary: "Open the chat console"},
			{Name: "orders", Summary: "Manage orders"},
		},
		Examples: []Example{
			{Description: "Log in", Command: "storekeep login admin@example.com"},
		},
	}

	var buf bytes.Buffer
	root.PrintHelp(&buf)
	help := buf.String()

	for _, want := range []string{"chat", "Open the chat console", "orders", "storekeep login admin@example.com"} {
		if !strings.Contains(help, want) {
			t.Errorf("help output missing %q:\n%s", want, help)
		}
	}
}

func TestSuggestCommandThreshold(t *testing.T) {
	commands := []*Command{{Name: "products"}, {Name: "revenue"}}

	if got := suggestCommand("product", commands); got != "products" {
		t.Errorf("suggestCommand(product) = %q", got)
	}
	if got := suggestCommand("zzzzzz", commands); got != "" {
		t.Errorf("suggestCommand(zzzzzz) = %q, want no suggestion", got)
	}
}
