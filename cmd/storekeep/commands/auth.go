// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/storekeep/storekeep/cmd/storekeep/cli"
	"github.com/storekeep/storekeep/platform"
)

func loginCommand() *cli.Command {
	var configPath string
	var passwordFile string
	return &cli.Command{
		Name:    "login",
		Summary: "Authenticate against the backend",
		Usage:   "storekeep login <email> [flags]",
		Description: `Authenticate with the Storekeep backend and save the session
locally, so subsequent commands run without prompting.

The password is read from the terminal. For non-interactive use,
pass --password-file.`,
		Flags: func() *pflag.FlagSet {
			flagSet := configFlag("login", &configPath)
			flagSet.StringVar(&passwordFile, "password-file", "",
				"read the password from this file instead of prompting")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: storekeep login <email>")
			}
			email := args[0]

			password, err := readPassword(passwordFile)
			if err != nil {
				return err
			}

			e, err := openEnv(configPath, "login")
			if err != nil {
				return err
			}
			defer e.close()

			user, err := e.session.Login(context.Background(), email, password)
			if err != nil {
				return err
			}
			fmt.Printf("logged in as %s (%s)\n", user.Name, user.Role)
			return nil
		},
	}
}

func logoutCommand() *cli.Command {
	var configPath string
	return &cli.Command{
		Name:    "logout",
		Summary: "Discard the saved session",
		Flags: func() *pflag.FlagSet {
			return configFlag("logout", &configPath)
		},
		Run: func(args []string) error {
			e, err := openEnv(configPath, "logout")
			if err != nil {
				return err
			}
			defer e.close()

			if _, err := e.session.Resume(); err != nil {
				return err
			}
			if err := e.session.Logout(); err != nil {
				return err
			}
			fmt.Println("logged out")
			return nil
		},
	}
}

func whoamiCommand() *cli.Command {
	var configPath string
	return &cli.Command{
		Name:    "whoami",
		Summary: "Show the authenticated identity",
		Flags: func() *pflag.FlagSet {
			return configFlag("whoami", &configPath)
		},
		Run: func(args []string) error {
			e, err := openEnv(configPath, "whoami")
			if err != nil {
				return err
			}
			defer e.close()

			if err := e.requireSession(); err != nil {
				return err
			}
			user, err := e.session.WhoAmI(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("%s <%s> role=%s id=%d\n", user.Name, user.Email, user.Role, user.ID)
			return nil
		},
	}
}

func registerCommand() *cli.Command {
	var configPath string
	var name string
	var role string
	var passwordFile string
	return &cli.Command{
		Name:    "register",
		Summary: "Create a new account",
		Usage:   "storekeep register <email> --name <name> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := configFlag("register", &configPath)
			flagSet.StringVar(&name, "name", "", "display name for the account")
			flagSet.StringVar(&role, "role", platform.RoleCustomer,
				"account role (customer, employee, admin)")
			flagSet.StringVar(&passwordFile, "password-file", "",
				"read the password from this file instead of prompting")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: storekeep register <email> --name <name>")
			}
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			password, err := readPassword(passwordFile)
			if err != nil {
				return err
			}

			e, err := openEnv(configPath, "register")
			if err != nil {
				return err
			}
			defer e.close()

			response, err := e.client.Register(context.Background(), platform.RegisterRequest{
				Email:    args[0],
				Password: password,
				Name:     name,
				Role:     role,
			})
			if err != nil {
				return err
			}
			fmt.Printf("created account %s (id %d)\n", response.User.Email, response.User.ID)
			return nil
		},
	}
}

// readPassword reads a password from passwordFile when set, or
// prompts on the terminal without echo otherwise.
func readPassword(passwordFile string) (string, error) {
	if passwordFile != "" {
		data, err := os.ReadFile(passwordFile)
		if err != nil {
			return "", fmt.Errorf("reading password file: %w", err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal; use --password-file")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(password), nil
}
