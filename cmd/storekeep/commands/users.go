// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/storekeep/storekeep/cmd/storekeep/cli"
)

func usersCommand() *cli.Command {
	return &cli.Command{
		Name:    "users",
		Summary: "Manage customer and employee accounts",
		Subcommands: []*cli.Command{
			usersListCommand(),
			usersDeleteCommand(),
		},
	}
}

func usersListCommand() *cli.Command {
	var configPath string
	var role string
	return &cli.Command{
		Name:    "list",
		Summary: "List accounts",
		Flags: func() *pflag.FlagSet {
			flagSet := configFlag("users list", &configPath)
			flagSet.StringVar(&role, "role", "", "filter by role (customer, employee, admin)")
			return flagSet
		},
		Run: func(args []string) error {
			e, err := openEnv(configPath, "users list")
			if err != nil {
				return err
			}
			defer e.close()
			if err := e.requireSession(); err != nil {
				return err
			}

			users, err := e.session.ListUsers(context.Background())
			if err != nil {
				return err
			}

			writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "ID\tNAME\tEMAIL\tROLE")
			for _, user := range users {
				if role != "" && user.Role != role {
					continue
				}
				fmt.Fprintf(writer, "%d\t%s\t%s\t%s\n", user.ID, user.Name, user.Email, user.Role)
			}
			return writer.Flush()
		},
	}
}

func usersDeleteCommand() *cli.Command {
	var configPath string
	return &cli.Command{
		Name:    "delete",
		Summary: "Delete an account",
		Usage:   "storekeep users delete <id>",
		Flags: func() *pflag.FlagSet {
			return configFlag("users delete", &configPath)
		},
		Run: func(args []string) error {
			userID, err := parseID(args, "users delete")
			if err != nil {
				return err
			}

			e, err := openEnv(configPath, "users delete")
			if err != nil {
				return err
			}
			defer e.close()
			if err := e.requireSession(); err != nil {
				return err
			}

			if err := e.session.DeleteUser(context.Background(), userID); err != nil {
				return err
			}
			fmt.Printf("deleted user %d\n", userID)
			return nil
		},
	}
}
