package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/money"
	"github.com/jesses-code-adventures/billing/internal/utils"
)

// parseDateFlag parses an optional YYYY-MM-DD flag; empty yields the zero time.
func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	d, err := models.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s: %w", name, err)
	}
	return d, nil
}

func parseDatePtrFlag(name, value string) (*time.Time, error) {
	d, err := parseDateFlag(name, value)
	if err != nil || d.IsZero() {
		return nil, err
	}
	return &d, nil
}

func parseAmountFlag(name, value string) (int64, error) {
	cents, err := money.ParseCents(value)
	if err != nil {
		return 0, &models.ValidationError{Field: name, Msg: "expected an amount like 150 or 150.00", Err: err}
	}
	return cents, nil
}

// changedString returns a pointer to the flag value only if the flag was set,
// so an explicit empty value clears the field.
func changedString(changed bool, value string) *string {
	if !changed {
		return nil
	}
	return &value
}

func formatDate(t time.Time) string {
	return t.Format(models.DateFormat)
}

func writeOutput(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func printInvoice(inv *models.Invoice) {
	fmt.Printf("Invoice %s (%s)\n", inv.InvoiceNumber, inv.Status)
	fmt.Printf("  Client:   %s\n", inv.ClientName)
	fmt.Printf("  Date:     %s  Due: %s\n", formatDate(inv.InvoiceDate), formatDate(inv.DueDate))
	if inv.PeriodStart != nil && inv.PeriodEnd != nil {
		fmt.Printf("  Period:   %s to %s\n", formatDate(*inv.PeriodStart), formatDate(*inv.PeriodEnd))
	}
	for _, l := range inv.Lines {
		label := l.WorkTypeCode
		if l.ProjectName != nil {
			label += " / " + *l.ProjectName
		}
		fmt.Printf("  %-36s %6sh @ %s  %10s\n", label, money.Hours(l.TotalMinutes), money.Format(l.HourlyRateCents), money.Format(l.AmountCents))
		if l.Description != nil {
			fmt.Printf("      %s\n", strings.ReplaceAll(*l.Description, "\n", "\n      "))
		}
		fmt.Printf("      line id: %s\n", l.ID)
	}
	fmt.Printf("  Subtotal: %s\n", money.Format(inv.SubtotalCents))
	if inv.DiscountCents > 0 {
		fmt.Printf("  Discount: %s (%s)\n", money.Format(-inv.DiscountCents), money.FormatPercent(inv.DiscountPercent))
	}
	fmt.Printf("  Total:    %s\n", money.Format(inv.TotalCents))
	if inv.AppliedCents > 0 {
		fmt.Printf("  Paid:     %s  Balance: %s\n", money.Format(inv.AppliedCents), money.Format(inv.BalanceCents()))
	}
	if n := utils.FromPtr(inv.Notes); n != "" {
		fmt.Printf("  Notes:    %s\n", n)
	}
}
