package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jesses-code-adventures/billing/internal/money"
	"github.com/jesses-code-adventures/billing/internal/service"
)

func newExpensesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "Add, list and delete business expenses",
	}
	cmd.AddCommand(newExpensesAddCmd(a), newExpensesListCmd(a), newExpensesDeleteCmd(a))
	return cmd
}

func newExpensesAddCmd(a *app) *cobra.Command {
	var vendor, item, price, date string
	var quantity int64
	var refund bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cents, err := parseAmountFlag("price", price)
			if err != nil {
				return err
			}
			d, err := parseDateFlag("date", date)
			if err != nil {
				return err
			}
			e, err := a.svc.AddExpense(cmd.Context(), service.ExpenseInput{
				Vendor:     vendor,
				Item:       item,
				PriceCents: cents,
				Quantity:   quantity,
				Date:       d,
				IsRefund:   refund,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Added expense %s from %s: %s (ID: %s)\n", e.Item, e.Vendor, money.Format(e.NetCents()), e.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&vendor, "vendor", "v", "", "Vendor (required)")
	cmd.Flags().StringVarP(&item, "item", "i", "", "Item (required)")
	cmd.Flags().StringVarP(&price, "price", "p", "", "Unit price (required)")
	cmd.Flags().Int64VarP(&quantity, "quantity", "q", 1, "Quantity")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Expense date (YYYY-MM-DD), default today")
	cmd.Flags().BoolVar(&refund, "refund", false, "Record a refund, which reduces expenses")
	cmd.MarkFlagRequired("vendor")
	cmd.MarkFlagRequired("item")
	cmd.MarkFlagRequired("price")
	return cmd
}

func newExpensesListCmd(a *app) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := parseDatePtrFlag("from", from)
			if err != nil {
				return err
			}
			t, err := parseDatePtrFlag("to", to)
			if err != nil {
				return err
			}
			expenses, err := a.svc.ListExpenses(cmd.Context(), f, t)
			if err != nil {
				return err
			}
			if len(expenses) == 0 {
				fmt.Println("No expenses found.")
				return nil
			}
			var total int64
			for _, e := range expenses {
				fmt.Printf("%s  %-20s %-24s %3d x %10s  %10s  %s\n", formatDate(e.ExpenseDate), e.Vendor, e.Item,
					e.Quantity, money.Format(e.PriceCents), money.Format(e.NetCents()), e.ID)
				total += e.NetCents()
			}
			fmt.Printf("Total: %s\n", money.Format(total))
			return nil
		},
	}
	cmd.Flags().StringVarP(&from, "from", "f", "", "From date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&to, "to", "t", "", "To date (YYYY-MM-DD)")
	return cmd
}

func newExpensesDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.DeleteExpense(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted expense %s\n", args[0])
			return nil
		},
	}
}
