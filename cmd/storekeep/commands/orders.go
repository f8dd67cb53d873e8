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
	"github.com/storekeep/storekeep/platform"
)

func ordersCommand() *cli.Command {
	return &cli.Command{
		Name:    "orders",
		Summary: "Manage purchase orders",
		Subcommands: []*cli.Command{
			ordersListCommand(),
			ordersStatusCommand(),
			ordersDeleteCommand(),
		},
	}
}

func ordersListCommand() *cli.Command {
	var configPath string
	var status string
	return &cli.Command{
		Name:    "list",
		Summary: "List orders",
		Flags: func() *pflag.FlagSet {
			flagSet := configFlag("orders list", &configPath)
			flagSet.StringVar(&status, "status", "",
				"filter by status (pending, confirmed, delivered, cancelled)")
			return flagSet
		},
		Run: func(args []string) error {
			e, err := openEnv(configPath, "orders list")
			if err != nil {
				return err
			}
			defer e.close()
			if err := e.requireSession(); err != nil {
				return err
			}

			orders, err := e.session.ListOrders(context.Background())
			if err != nil {
				return err
			}

			writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "ID\tPRODUCT\tCUSTOMER\tQTY\tTOTAL\tSTATUS\tDELIVERY")
			for _, order := range orders {
				if status != "" && order.Status != status {
					continue
				}
				fmt.Fprintf(writer, "%d\t%s\t%s\t%d\t%.2f\t%s\t%s\n",
					order.ID,
					orderProductName(order),
					orderCustomerName(order),
					order.Quantity,
					order.Total(),
					order.Status,
					order.DeliveryAt.Format("2006-01-02 15:04"))
			}
			return writer.Flush()
		},
	}
}

func ordersStatusCommand() *cli.Command {
	var configPath string
	return &cli.Command{
		Name:    "status",
		Summary: "Set an order's status",
		Usage:   "storekeep orders status <id> <pending|confirmed|delivered|cancelled>",
		Flags: func() *pflag.FlagSet {
			return configFlag("orders status", &configPath)
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: storekeep orders status <id> <status>")
			}
			orderID, err := parseID(args[:1], "orders status")
			if err != nil {
				return err
			}
			status := args[1]
			switch status {
			case platform.OrderPending, platform.OrderConfirmed,
				platform.OrderDelivered, platform.OrderCancelled:
			default:
				return fmt.Errorf("unknown status %q", status)
			}

			e, err := openEnv(configPath, "orders status")
			if err != nil {
				return err
			}
			defer e.close()
			if err := e.requireSession(); err != nil {
				return err
			}

			if err := e.session.UpdateOrderStatus(context.Background(), orderID, status); err != nil {
				return err
			}
			fmt.Printf("order %d is now %s\n", orderID, status)
			return nil
		},
	}
}

func ordersDeleteCommand() *cli.Command {
	var configPath string
	return &cli.Command{
		Name:    "delete",
		Summary: "Delete an order",
		Usage:   "storekeep orders delete <id>",
		Flags: func() *pflag.FlagSet {
			return configFlag("orders delete", &configPath)
		},
		Run: func(args []string) error {
			orderID, err := parseID(args, "orders delete")
			if err != nil {
				return err
			}

			e, err := openEnv(configPath, "orders delete")
			if err != nil {
				return err
			}
			defer e.close()
			if err := e.requireSession(); err != nil {
				return err
			}

			if err := e.session.DeleteOrder(context.Background(), orderID); err != nil {
				return err
			}
			fmt.Printf("deleted order %d\n", orderID)
			return nil
		},
	}
}

func revenueCommand() *cli.Command {
	var configPath string
	return &cli.Command{
		Name:    "revenue",
		Summary: "Show monthly revenue from delivered orders",
		Flags: func() *pflag.FlagSet {
			return configFlag("revenue", &configPath)
		},
		Run: func(args []string) error {
			e, err := openEnv(configPath, "revenue")
			if err != nil {
				return err
			}
			defer e.close()
			if err := e.requireSession(); err != nil {
				return err
			}

			rows, err := e.session.RevenueReport(context.Background())
			if err != nil {
				return err
			}

			writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(writer, "MONTH\tORDERS\tREVENUE")
			var total float64
			for _, row := range rows {
				fmt.Fprintf(writer, "%s\t%d\t%.2f\n", row.Month, row.Orders, row.Total)
				total += row.Total
			}
			fmt.Fprintf(writer, "\t\t%.2f\n", total)
			return writer.Flush()
		},
	}
}

func orderProductName(order platform.Order) string {
	if order.Product != nil {
		return order.Product.Name
	}
	return fmt.Sprintf("#%d", order.ProductID)
}

func orderCustomerName(order platform.Order) string {
	if order.Customer != nil {
		return order.Customer.Name
	}
	return fmt.Sprintf("#%d", order.CustomerID)
}
