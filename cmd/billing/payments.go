package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jesses-code-adventures/billing/internal/money"
	"github.com/jesses-code-adventures/billing/internal/service"
	"github.com/jesses-code-adventures/billing/internal/utils"
)

func newPaymentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Record payments and apply them to invoices",
	}
	cmd.AddCommand(
		newPaymentsAddCmd(a),
		newPaymentsApplyCmd(a),
		newPaymentsListCmd(a),
		newPaymentsDeleteCmd(a),
	)
	return cmd
}

// parseApplication parses NUMBER:AMOUNT.
func parseApplication(s string) (service.ApplicationInput, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return service.ApplicationInput{}, fmt.Errorf("invalid --apply %q, expected INVOICE:AMOUNT", s)
	}
	cents, err := parseAmountFlag("apply", s[i+1:])
	if err != nil {
		return service.ApplicationInput{}, err
	}
	return service.ApplicationInput{Invoice: s[:i], AmountCents: cents}, nil
}

func newPaymentsAddCmd(a *app) *cobra.Command {
	var amount, date, note string
	var apply []string

	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Record a payment, optionally applying it to invoices",
		Example: `  billing payments add --amount 1500 --apply INV-0001:1000 --apply INV-0002:500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cents, err := parseAmountFlag("amount", amount)
			if err != nil {
				return err
			}
			d, err := parseDateFlag("date", date)
			if err != nil {
				return err
			}
			in := service.PaymentInput{Date: d, AmountCents: cents, Note: note}
			for _, s := range apply {
				appl, err := parseApplication(s)
				if err != nil {
					return err
				}
				in.Applications = append(in.Applications, appl)
			}

			p, err := a.svc.RecordPayment(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Printf("Recorded payment of %s on %s (ID: %s)\n", money.Format(p.AmountCents), formatDate(p.PaymentDate), p.ID)
			for _, appl := range p.Applications {
				fmt.Printf("  Applied %s to %s\n", money.Format(appl.AmountCents), appl.InvoiceNumber)
			}
			if u := p.UnappliedCents(); u > 0 {
				fmt.Printf("  Unapplied: %s\n", money.Format(u))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Amount received (required)")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Payment date (YYYY-MM-DD), default today")
	cmd.Flags().StringVarP(&note, "note", "n", "", "Note, e.g. a bank reference")
	cmd.Flags().StringArrayVar(&apply, "apply", nil, "Apply part of the payment as INVOICE:AMOUNT (repeatable)")
	cmd.MarkFlagRequired("amount")
	return cmd
}

func newPaymentsApplyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "apply PAYMENT_ID INVOICE AMOUNT",
		Short: "Apply part of an existing payment to an invoice",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cents, err := parseAmountFlag("amount", args[2])
			if err != nil {
				return err
			}
			appl, err := a.svc.ApplyPayment(cmd.Context(), args[0], args[1], cents)
			if err != nil {
				return err
			}
			fmt.Printf("Applied %s to %s\n", money.Format(appl.AmountCents), args[1])
			return nil
		},
	}
}

func newPaymentsListCmd(a *app) *cobra.Command {
	var client string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List payments with their applications",
		RunE: func(cmd *cobra.Command, args []string) error {
			payments, err := a.svc.ListPayments(cmd.Context(), client)
			if err != nil {
				return err
			}
			if len(payments) == 0 {
				fmt.Println("No payments found.")
				return nil
			}
			for _, p := range payments {
				fmt.Printf("%s  %s  %10s  unapplied %10s  %s\n", p.ID, formatDate(p.PaymentDate),
					money.Format(p.AmountCents), money.Format(p.UnappliedCents()), utils.FromPtr(p.Note))
				for _, appl := range p.Applications {
					fmt.Printf("    -> %-10s %10s\n", appl.InvoiceNumber, money.Format(appl.AmountCents))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&client, "client", "c", "", "Only payments applied to this client's invoices")
	return cmd
}

func newPaymentsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a payment and its applications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.DeletePayment(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted payment %s\n", args[0])
			return nil
		},
	}
}
