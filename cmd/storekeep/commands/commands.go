// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete storekeep CLI command tree:
// authentication, the chat console, catalog and order management,
// account administration, and reporting.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/storekeep/storekeep/cmd/storekeep/cli"
	"github.com/storekeep/storekeep/lib/config"
	"github.com/storekeep/storekeep/platform"
	"github.com/storekeep/storekeep/store"
)

// version is stamped by the release build; "dev" for local builds.
var version = "dev"

// Root builds and returns the complete storekeep CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "storekeep",
		Description: `Storekeep: retail back-office console.

Manage the catalog, orders, and customer accounts of a Storekeep
backend, and chat with customers in real time from the terminal.`,
		Subcommands: []*cli.Command{
			loginCommand(),
			logoutCommand(),
			whoamiCommand(),
			registerCommand(),
			chatCommand(),
			productsCommand(),
			ordersCommand(),
			usersCommand(),
			revenueCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("storekeep %s\n", version)
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Authenticate (saves the session locally)",
				Command:     "storekeep login admin@example.com",
			},
			{
				Description: "Open the realtime chat console",
				Command:     "storekeep chat",
			},
			{
				Description: "List pending orders",
				Command:     "storekeep orders list --status pending",
			},
			{
				Description: "Show monthly revenue",
				Command:     "storekeep revenue",
			},
		},
	}
}

// env bundles the dependencies every authenticated command needs:
// validated configuration, the durable state store, and a platform
// session restored from it.
type env struct {
	cfg     *config.Config
	store   *store.Store
	client  *platform.Client
	session *platform.Session
	logger  *slog.Logger
}

// configFlag registers the shared --config flag on a fresh flag set.
func configFlag(name string, configPath *string) *pflag.FlagSet {
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.StringVar(configPath, "config", "",
		"config file path (default: $STOREKEEP_CONFIG)")
	return flagSet
}

// openEnv loads configuration and opens the state store. The caller
// must call close on the returned env.
func openEnv(configPath, command string) (*env, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return nil, err
	}

	logger := cli.NewCommandLogger().With("command", command)

	stateStore, err := store.Open(store.Config{Path: cfg.StatePath(), Logger: logger})
	if err != nil {
		return nil, err
	}

	client, err := platform.NewClient(platform.ClientConfig{
		BaseURL: cfg.Backend.APIURL,
		Logger:  logger,
	})
	if err != nil {
		stateStore.Close()
		return nil, err
	}

	return &env{
		cfg:     cfg,
		store:   stateStore,
		client:  client,
		session: client.NewSession(stateStore),
		logger:  logger,
	}, nil
}

func (e *env) close() {
	if err := e.store.Close(); err != nil {
		e.logger.Warn("closing state store", "error", err)
	}
	e.client.CloseIdleConnections()
}

// requireSession restores the saved session and fails with a
// login hint when none exists.
func (e *env) requireSession() error {
	ok, err := e.session.Resume()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("not logged in; run 'storekeep login <email>' first")
	}
	return nil
}
