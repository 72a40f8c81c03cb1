// Package dashboard derives summary figures from already-loaded invoices,
// payments, time entries and expenses. It does no I/O of its own.
package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/money"
)

// Basis selects which records make up the income series.
type Basis string

const (
	BasisCash    Basis = "cash"
	BasisAccrual Basis = "accrual"
	BasisTime    Basis = "time"
)

// WindowDays are the trailing window widths reported on every summary.
var WindowDays = []int{30, 60, 90}

func ParseBasis(s string) (Basis, error) {
	switch b := Basis(strings.ToLower(strings.TrimSpace(s))); b {
	case BasisCash, BasisAccrual, BasisTime:
		return b, nil
	case "":
		return BasisAccrual, nil
	}
	return "", &models.ValidationError{Field: "basis", Msg: fmt.Sprintf("unknown basis %q (want cash, accrual or time)", s)}
}

// Input is the full data set the aggregator works over. Clients is keyed by id
// and must contain every client referenced by a time entry.
type Input struct {
	Invoices    []*models.Invoice
	Payments    []*models.Payment
	TimeEntries []*models.TimeEntry
	Expenses    []*models.Expense
	Clients     map[string]*models.Client
}

type StatusTotals struct {
	RevenueCents     int64 `json:"revenue_cents"`
	OutstandingCents int64 `json:"outstanding_cents"`
	PendingCents     int64 `json:"pending_cents"`
	OverdueCents     int64 `json:"overdue_cents"`
	DraftCents       int64 `json:"draft_cents"`
	PaidCount        int   `json:"paid_count"`
	OutstandingCount int   `json:"outstanding_count"`
	OverdueCount     int   `json:"overdue_count"`
	DraftCount       int   `json:"draft_count"`
}

// Comparison is the change from the previous window to the current one.
type Comparison struct {
	Percent decimal.Decimal `json:"percent"`
	Higher  bool            `json:"higher"`
}

func (c *Comparison) String() string {
	if c == nil {
		return "n/a"
	}
	if c.Higher {
		return "+" + c.Percent.StringFixed(2) + "%"
	}
	return "-" + c.Percent.StringFixed(2) + "%"
}

type Period struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	IncomeCents  int64     `json:"income_cents"`
	ExpenseCents int64     `json:"expense_cents"`
	NetCents     int64     `json:"net_cents"`
}

type Window struct {
	Days          int         `json:"days"`
	Current       Period      `json:"current"`
	Previous      Period      `json:"previous"`
	IncomeChange  *Comparison `json:"income_change"`
	ExpenseChange *Comparison `json:"expense_change"`
	NetChange     *Comparison `json:"net_change"`
}

type Summary struct {
	Basis             Basis        `json:"basis"`
	AsOf              time.Time    `json:"as_of"`
	Status            StatusTotals `json:"status"`
	UninvoicedCents   int64        `json:"uninvoiced_cents"`
	UninvoicedMinutes int64        `json:"uninvoiced_minutes"`
	Windows           []Window     `json:"windows"`
}

// Compare reports the change from previous to current. It returns nil when both
// are zero. A zero previous with a non-zero current is reported as 100%.
func Compare(current, previous int64) *Comparison {
	switch {
	case previous == 0 && current == 0:
		return nil
	case previous == 0:
		return &Comparison{Percent: decimal.NewFromInt(100), Higher: current > 0}
	}
	return &Comparison{Percent: money.PercentChange(current, previous), Higher: current > previous}
}

// Aggregate computes the dashboard summary as of today. Invoices are overdue when
// their due date is strictly before today.
func Aggregate(in Input, basis Basis, today time.Time) (*Summary, error) {
	switch basis {
	case BasisCash, BasisAccrual, BasisTime:
	default:
		return nil, &models.ValidationError{Field: "basis", Msg: fmt.Sprintf("unknown basis %q", basis)}
	}
	today = models.DateOnly(today)

	s := &Summary{
		Basis:  basis,
		AsOf:   today,
		Status: statusTotals(in.Invoices, today),
	}

	for _, e := range in.TimeEntries {
		if e == nil || e.Billed() {
			continue
		}
		amount, err := entryValue(e, in.Clients)
		if err != nil {
			return nil, err
		}
		s.UninvoicedCents += amount
		s.UninvoicedMinutes += e.MinutesSpent
	}

	income, err := incomeSeries(in, basis)
	if err != nil {
		return nil, err
	}
	expenses := expenseSeries(in.Expenses)

	for _, days := range WindowDays {
		curStart := today.AddDate(0, 0, -(days - 1))
		prevEnd := curStart.AddDate(0, 0, -1)
		prevStart := prevEnd.AddDate(0, 0, -(days - 1))

		w := Window{
			Days:     days,
			Current:  period(curStart, today, income, expenses),
			Previous: period(prevStart, prevEnd, income, expenses),
		}
		w.IncomeChange = Compare(w.Current.IncomeCents, w.Previous.IncomeCents)
		w.ExpenseChange = Compare(w.Current.ExpenseCents, w.Previous.ExpenseCents)
		w.NetChange = Compare(w.Current.NetCents, w.Previous.NetCents)
		s.Windows = append(s.Windows, w)
	}

	return s, nil
}

func statusTotals(invoices []*models.Invoice, today time.Time) StatusTotals {
	var t StatusTotals
	for _, inv := range invoices {
		if inv == nil {
			continue
		}
		switch inv.Status {
		case models.InvoiceStatusPaid:
			t.RevenueCents += inv.TotalCents
			t.PaidCount++
		case models.InvoiceStatusSent, models.InvoiceStatusPartiallyPaid:
			t.OutstandingCents += inv.TotalCents
			t.OutstandingCount++
			if !inv.DueDate.IsZero() && models.DateOnly(inv.DueDate).Before(today) {
				t.OverdueCents += inv.TotalCents
				t.OverdueCount++
			} else {
				t.PendingCents += inv.TotalCents
			}
		case models.InvoiceStatusDraft:
			t.DraftCents += inv.TotalCents
			t.DraftCount++
		}
	}
	return t
}

// entryValue is the post-discount value of a time entry at its client's current
// rate and discount.
func entryValue(e *models.TimeEntry, clients map[string]*models.Client) (int64, error) {
	c, ok := clients[e.ClientID]
	if !ok || c == nil {
		return 0, fmt.Errorf("time entry %s: %w", e.ID, models.ErrUnknownClient)
	}
	return money.Bill(e.MinutesSpent, c.HourlyRateCents, c.DiscountPercent).AmountCents, nil
}

type dated struct {
	date   time.Time
	amount int64
}

func incomeSeries(in Input, basis Basis) ([]dated, error) {
	var out []dated
	switch basis {
	case BasisCash:
		for _, p := range in.Payments {
			if p != nil {
				out = append(out, dated{models.DateOnly(p.PaymentDate), p.AmountCents})
			}
		}
	case BasisAccrual:
		for _, inv := range in.Invoices {
			if inv != nil && inv.Status.Obligation() {
				out = append(out, dated{models.DateOnly(inv.InvoiceDate), inv.TotalCents})
			}
		}
	case BasisTime:
		for _, e := range in.TimeEntries {
			if e == nil {
				continue
			}
			amount, err := entryValue(e, in.Clients)
			if err != nil {
				return nil, err
			}
			out = append(out, dated{models.DateOnly(e.WorkDate), amount})
		}
	}
	return out, nil
}

func expenseSeries(expenses []*models.Expense) []dated {
	out := make([]dated, 0, len(expenses))
	for _, e := range expenses {
		if e != nil {
			out = append(out, dated{models.DateOnly(e.ExpenseDate), e.NetCents()})
		}
	}
	return out
}

func sumBetween(series []dated, start, end time.Time) int64 {
	var sum int64
	for _, d := range series {
		if !d.date.Before(start) && !d.date.After(end) {
			sum += d.amount
		}
	}
	return sum
}

func period(start, end time.Time, income, expenses []dated) Period {
	p := Period{
		Start:        start,
		End:          end,
		IncomeCents:  sumBetween(income, start, end),
		ExpenseCents: sumBetween(expenses, start, end),
	}
	p.NetCents = p.IncomeCents - p.ExpenseCents
	return p
}
