// Copyright 2026 The Storekeep Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/storekeep/storekeep/cmd/storekeep/cli"
	"github.com/storekeep/storekeep/platform"
)

func productsCommand() *cli.Command {
	return &cli.Command{
		Name:    "products",
		Summary: "Manage the product catalog",
		Subcommands: []*cli.Command{
			productsListCommand(),
			productsAddCommand(),
			productsUpdateCommand(),
			productsDeleteCommand(),
		},
	}
}

func productsListCommand() *cli.Command {
	var configPath string
	var menu string
	return &cli.Command{
		Name:    "list",
		Summary: "List products",
		Flags: func() *pflag.FlagSet {
			flagSet := configFlag("products list", &configPath)
			flagSet.StringVar(&menu, "menu", "", "filter by menu category")
			return flagSet
		},
		Run: func(args []string) error {
			e, err := openEnv(configPath, "products list")
			if err != nil {
				return err
			}
			defer e.close()
			if err := e.requireSession(); err != nil {
				return err
			}

			products, err := e.session.ListProducts(context.Background(), menu)
			if err != nil {
				return err
			}

			writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "ID\tNAME\tPRICE\tSTOCK\tMENU")
			for _, product := range products {
				fmt.Fprintf(writer, "%d\t%s\t%.2f\t%d\t%s\n",
					product.ID, product.Name, product.Price, product.Stock, product.Menu)
			}
			return writer.Flush()
		},
	}
}

func productsAddCommand() *cli.Command {
	var configPath string
	request := platform.CreateProductRequest{}
	return &cli.Command{
		Name:    "add",
		Summary: "Add a product to the catalog",
		Usage:   "storekeep products add --name <name> --price <price> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := configFlag("products add", &configPath)
			flagSet.StringVar(&request.Name, "name", "", "product name")
			flagSet.StringVar(&request.Description, "description", "", "product description")
			flagSet.Float64Var(&request.Price, "price", 0, "unit price")
			flagSet.IntVar(&request.Stock, "stock", 0, "units in stock")
			flagSet.StringVar(&request.Menu, "menu", "", "menu category")
			flagSet.StringVar(&request.PhotoURL, "photo-url", "", "product photo URL")
			return flagSet
		},
		Run: func(args []string) error {
			if request.Name == "" {
				return fmt.Errorf("--name is required")
			}

			e, err := openEnv(configPath, "products add")
			if err != nil {
				return err
			}
			defer e.close()
			if err := e.requireSession(); err != nil {
				return err
			}

			product, err := e.session.CreateProduct(context.Background(), request)
			if err != nil {
				return err
			}
			fmt.Printf("created product %d: %s\n", product.ID, product.Name)
			return nil
		},
	}
}

func productsUpdateCommand() *cli.Command {
	var configPath string
	request := platform.CreateProductRequest{}
	return &cli.Command{
		Name:    "update",
		Summary: "Update a product",
		Usage:   "storekeep products update <id> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := configFlag("products update", &configPath)
			flagSet.StringVar(&request.Name, "name", "", "product name")
			flagSet.StringVar(&request.Description, "description", "", "product description")
			flagSet.Float64Var(&request.Price, "price", 0, "unit price")
			flagSet.IntVar(&request.Stock, "stock", 0, "units in stock")
			flagSet.StringVar(&request.Menu, "menu", "", "menu category")
			flagSet.StringVar(&request.PhotoURL, "photo-url", "", "product photo URL")
			return flagSet
		},
		Run: func(args []string) error {
			productID, err := parseID(args, "products update")
			if err != nil {
				return err
			}

			e, err := openEnv(configPath, "products update")
			if err != nil {
				return err
			}
			defer e.close()
			if err := e.requireSession(); err != nil {
				return err
			}

			product, err := e.session.UpdateProduct(context.Background(), productID, request)
			if err != nil {
				return err
			}
			fmt.Printf("updated product %d: %s\n", product.ID, product.Name)
			return nil
		},
	}
}

func productsDeleteCommand() *cli.Command {
	var configPath string
	return &cli.Command{
		Name:    "delete",
		Summary: "Remove a product from the catalog",
		Usage:   "storekeep products delete <id>",
		Flags: func() *pflag.FlagSet {
			return configFlag("products delete", &configPath)
		},
		Run: func(args []string) error {
			productID, err := parseID(args, "products delete")
			if err != nil {
				return err
			}

			e, err := openEnv(configPath, "products delete")
			if err != nil {
				return err
			}
			defer e.close()
			if err := e.requireSession(); err != nil {
				return err
			}

			if err := e.session.DeleteProduct(context.Background(), productID); err != nil {
				return err
			}
			fmt.Printf("deleted product %d\n", productID)
			return nil
		},
	}
}

// parseID reads the single numeric-ID positional argument commands of
// the form "storekeep <noun> <verb> <id>" take.
func parseID(args []string, command string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: storekeep %s <id>", command)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}
