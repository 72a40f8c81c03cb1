package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jesses-code-adventures/billing/internal/dashboard"
	"github.com/jesses-code-adventures/billing/internal/money"
)

func newStatementCmd(a *app) *cobra.Command {
	var client, pdfPath string
	var r rangeFlags

	cmd := &cobra.Command{
		Use:   "statement",
		Short: "Show a client's account statement for a date range",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dr, err := r.resolve(a)
			if err != nil {
				return err
			}

			if pdfPath != "" {
				out, err := a.svc.StatementPDF(ctx, client, dr.Start, dr.End)
				if err != nil {
					return err
				}
				if err := writeOutput(pdfPath, out); err != nil {
					return err
				}
				fmt.Printf("Generated statement: %s\n", pdfPath)
				return nil
			}

			st, _, err := a.svc.Statement(ctx, client, dr.Start, dr.End)
			if err != nil {
				return err
			}
			fmt.Printf("Statement for %s, %s to %s\n", st.ClientName, formatDate(st.StartDate), formatDate(st.EndDate))
			fmt.Printf("  %-10s %-8s %-38s %10s %10s\n", "Date", "Type", "Document", "Amount", "Balance")
			fmt.Printf("  %-10s %-8s %-38s %10s %10s\n", formatDate(st.StartDate), "", "Opening balance", "", money.Format(st.BeginningBalanceCents))
			for _, t := range st.Transactions {
				fmt.Printf("  %-10s %-8s %-38s %10s %10s\n", formatDate(t.Date), t.Type, t.DocumentNumber,
					money.Format(t.AmountCents), money.Format(t.RunningBalanceCents))
			}
			fmt.Printf("  Invoiced: %s  Paid: %s\n", money.Format(st.PeriodInvoicesTotalCents), money.Format(st.PeriodPaymentsTotalCents))
			fmt.Printf("  Closing balance: %s\n", money.Format(st.EndingBalanceCents))
			return nil
		},
	}
	cmd.Flags().StringVarP(&client, "client", "c", "", "Client name (required)")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "Write the statement as PDF to this file instead of printing it")
	r.register(cmd)
	cmd.MarkFlagRequired("client")
	return cmd
}

func newDashboardCmd(a *app) *cobra.Command {
	var basis string

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show outstanding totals and income trends",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := dashboard.ParseBasis(basis)
			if err != nil {
				return err
			}
			sum, err := a.svc.Dashboard(cmd.Context(), b)
			if err != nil {
				return err
			}

			st := sum.Status
			fmt.Printf("Dashboard as of %s (%s basis)\n", formatDate(sum.AsOf), sum.Basis)
			fmt.Printf("  Revenue:     %10s  (%d paid)\n", money.Format(st.RevenueCents), st.PaidCount)
			fmt.Printf("  Outstanding: %10s  (%d invoices)\n", money.Format(st.OutstandingCents), st.OutstandingCount)
			fmt.Printf("  Pending:     %10s\n", money.Format(st.PendingCents))
			fmt.Printf("  Overdue:     %10s  (%d invoices)\n", money.Format(st.OverdueCents), st.OverdueCount)
			fmt.Printf("  Draft:       %10s  (%d invoices)\n", money.Format(st.DraftCents), st.DraftCount)
			fmt.Printf("  Uninvoiced:  %10s  (%sh)\n", money.Format(sum.UninvoicedCents), money.Hours(sum.UninvoicedMinutes))
			for _, w := range sum.Windows {
				fmt.Printf("  Last %d days: income %s (%s), expenses %s (%s), net %s (%s)\n", w.Days,
					money.Format(w.Current.IncomeCents), w.IncomeChange,
					money.Format(w.Current.ExpenseCents), w.ExpenseChange,
					money.Format(w.Current.NetCents), w.NetChange)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&basis, "basis", "b", string(dashboard.BasisAccrual), "Income basis: cash, accrual or time")
	return cmd
}
