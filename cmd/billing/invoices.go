package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/money"
	"github.com/jesses-code-adventures/billing/internal/service"
)

func newInvoicesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "Create, list and export invoices",
		Long:  "Turn unbilled time into invoices, move them between draft and sent, and export them as HTML or PDF.",
	}
	cmd.AddCommand(
		newInvoicesPreviewCmd(a),
		newInvoicesCreateCmd(a),
		newInvoicesListCmd(a),
		newInvoicesShowCmd(a),
		newInvoicesStatusCmd(a, "send", models.InvoiceStatusSent),
		newInvoicesStatusCmd(a, "unsend", models.InvoiceStatusDraft),
		newInvoicesVoidCmd(a),
		newInvoicesDeleteCmd(a),
		newInvoicesDescribeCmd(a),
		newInvoicesExportCmd(a, "html"),
		newInvoicesExportCmd(a, "pdf"),
	)
	return cmd
}

type rangeFlags struct {
	period     string
	periodDate string
	from       string
	to         string
}

func (f *rangeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.period, "period", "p", "", "Period: day, week, fortnight or month")
	cmd.Flags().StringVarP(&f.periodDate, "date", "d", "", "Date within the period (YYYY-MM-DD), default today")
	cmd.Flags().StringVarP(&f.from, "from", "f", "", "From date (YYYY-MM-DD), default start of the month")
	cmd.Flags().StringVarP(&f.to, "to", "t", "", "To date (YYYY-MM-DD), default today")
}

func (f *rangeFlags) resolve(a *app) (service.DateRange, error) {
	return service.ResolveRange(f.period, f.periodDate, f.from, f.to, a.svc.Today())
}

func newInvoicesPreviewCmd(a *app) *cobra.Command {
	var client string
	var r rangeFlags

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show what an invoice would contain without creating it",
		RunE: func(cmd *cobra.Command, args []string) error {
			dr, err := r.resolve(a)
			if err != nil {
				return err
			}
			p, err := a.svc.PreviewInvoice(cmd.Context(), client, dr.Start, dr.End)
			if err != nil {
				return err
			}
			if p.Empty {
				fmt.Printf("No unbilled time for %s from %s to %s\n", client, formatDate(dr.Start), formatDate(dr.End))
				return nil
			}
			fmt.Printf("Preview for %s, %s to %s\n", client, formatDate(dr.Start), formatDate(dr.End))
			for _, l := range p.Lines {
				label := l.WorkTypeCode
				if l.ProjectName != nil {
					label += " / " + *l.ProjectName
				}
				fmt.Printf("  %-36s %6sh  %10s\n", label, money.Hours(l.TotalMinutes), money.Format(l.AmountCents))
			}
			fmt.Printf("  Subtotal: %s\n", money.Format(p.SubtotalCents))
			if p.DiscountCents > 0 {
				fmt.Printf("  Discount: %s (%s)\n", money.Format(-p.DiscountCents), money.FormatPercent(p.DiscountPercent))
			}
			fmt.Printf("  Total:    %s across %d entries\n", money.Format(p.TotalCents), len(p.EntryIDs))
			return nil
		},
	}
	cmd.Flags().StringVarP(&client, "client", "c", "", "Client name")
	r.register(cmd)
	cmd.MarkFlagRequired("client")
	return cmd
}

func newInvoicesCreateCmd(a *app) *cobra.Command {
	var client, invoiceDate, notes string
	var r rangeFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create draft invoices from unbilled time",
		Long: `Create a draft invoice from the unbilled time in the range. Without --client,
an invoice is created for every client with unbilled time in the range.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dr, err := r.resolve(a)
			if err != nil {
				return err
			}
			date, err := parseDateFlag("invoice-date", invoiceDate)
			if err != nil {
				return err
			}

			clients := []string{client}
			if client == "" {
				all, err := a.svc.ListClients(ctx)
				if err != nil {
					return err
				}
				clients = clients[:0]
				for _, c := range all {
					clients = append(clients, c.Name)
				}
			}

			created := 0
			for _, name := range clients {
				inv, err := a.svc.CreateInvoice(ctx, service.InvoiceRequest{
					Client:      name,
					Start:       dr.Start,
					End:         dr.End,
					InvoiceDate: date,
					Notes:       notes,
				})
				if errors.Is(err, models.ErrEmptySelection) && client == "" {
					continue
				}
				if err != nil {
					return err
				}
				fmt.Printf("Created invoice %s for %s (Total: %s, due %s)\n",
					inv.InvoiceNumber, inv.ClientName, money.Format(inv.TotalCents), formatDate(inv.DueDate))
				created++
			}
			if created == 0 {
				fmt.Println("No invoices created - no unbilled time in the range")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&client, "client", "c", "", "Client name (default all clients)")
	cmd.Flags().StringVar(&invoiceDate, "invoice-date", "", "Invoice date (YYYY-MM-DD), default today")
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "Notes printed on the invoice")
	r.register(cmd)
	return cmd
}

func newInvoicesListCmd(a *app) *cobra.Command {
	var client, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List invoices",
		RunE: func(cmd *cobra.Command, args []string) error {
			var statuses []models.InvoiceStatus
			if status != "" {
				for _, s := range strings.Split(status, ",") {
					statuses = append(statuses, models.InvoiceStatus(strings.TrimSpace(s)))
				}
			}
			invoices, err := a.svc.ListInvoices(cmd.Context(), client, statuses)
			if err != nil {
				return err
			}
			if len(invoices) == 0 {
				fmt.Println("No invoices found.")
				return nil
			}
			for _, inv := range invoices {
				fmt.Printf("%-10s %s  %-16s %-15s %10s  balance %10s\n",
					inv.InvoiceNumber, formatDate(inv.InvoiceDate), inv.ClientName, inv.Status,
					money.Format(inv.TotalCents), money.Format(inv.BalanceCents()))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&client, "client", "c", "", "Filter by client name")
	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status, comma separated")
	return cmd
}

func newInvoicesShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show NUMBER",
		Short: "Show an invoice with its lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := a.svc.GetInvoice(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printInvoice(inv)
			return nil
		},
	}
}

func newInvoicesStatusCmd(a *app, use string, to models.InvoiceStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " NUMBER",
		Short: fmt.Sprintf("Mark an invoice as %s", to),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := a.svc.SetInvoiceStatus(cmd.Context(), args[0], to)
			if err != nil {
				return err
			}
			fmt.Printf("Invoice %s is now %s\n", inv.InvoiceNumber, inv.Status)
			return nil
		},
	}
}

func newInvoicesVoidCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "void NUMBER",
		Short: "Void an unpaid invoice, releasing its time and payments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv, err := a.svc.VoidInvoice(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Voided invoice %s\n", inv.InvoiceNumber)
			return nil
		},
	}
}

func newInvoicesDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NUMBER",
		Short: "Delete an invoice without payments, releasing its time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.svc.DeleteInvoice(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted invoice %s\n", args[0])
			return nil
		},
	}
}

func newInvoicesDescribeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe LINE_ID DESCRIPTION",
		Short: "Set the description of an invoice line; an empty description clears it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := a.svc.SetLineDescription(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Updated line %s\n", line.ID)
			return nil
		},
	}
}

func newInvoicesExportCmd(a *app, format string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   format + " NUMBER",
		Short: fmt.Sprintf("Export an invoice as %s", strings.ToUpper(format)),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			inv, err := a.svc.GetInvoice(ctx, args[0])
			if err != nil {
				return err
			}

			var data []byte
			if format == "pdf" {
				data, err = a.svc.InvoicePDF(ctx, inv.ID)
			} else {
				var html string
				html, err = a.svc.RenderInvoiceHTML(ctx, inv.ID)
				data = []byte(html)
			}
			if err != nil {
				return err
			}

			if output == "" {
				output = service.InvoiceFileName(inv, format)
			}
			if err := writeOutput(output, data); err != nil {
				return err
			}
			fmt.Printf("Generated invoice: %s (Total: %s)\n", output, money.Format(inv.TotalCents))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default NUMBER_CLIENT."+format+")")
	return cmd
}
