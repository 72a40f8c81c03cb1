// Package statement reconciles a client's invoices and payments over a date range
// into a running-balance statement.
package statement

import (
	"fmt"
	"sort"
	"time"

	"github.com/jesses-code-adventures/billing/internal/models"
)

// Reconcile builds the statement for clientID over [start, end] inclusive.
//
// Only invoices owed by the client count: drafts and voided invoices are left
// out of balances and transactions, and so are applications made against them.
// Payment applications are assumed valid; over-application is rejected when
// payments are written, not here.
//
// Transactions sharing a date are ordered invoices first, then by document
// number, then by source id.
func Reconcile(clientID string, start, end time.Time, invoices []*models.Invoice, payments []*models.Payment) (*models.Statement, error) {
	start, end = models.DateOnly(start), models.DateOnly(end)
	if start.After(end) {
		return nil, fmt.Errorf("%w: %s > %s", models.ErrInvalidRange, start.Format(models.DateFormat), end.Format(models.DateFormat))
	}

	st := &models.Statement{
		ClientID:     clientID,
		StartDate:    start,
		EndDate:      end,
		Transactions: []*models.Transaction{},
	}

	owed := make(map[string]*models.Invoice)
	for _, inv := range invoices {
		if inv == nil || inv.ClientID != clientID || !inv.Status.Obligation() {
			continue
		}
		owed[inv.ID] = inv
		if st.ClientName == "" {
			st.ClientName = inv.ClientName
		}

		d := models.DateOnly(inv.InvoiceDate)
		switch {
		case d.Before(start):
			st.BeginningBalanceCents += inv.TotalCents
		case !d.After(end):
			st.Transactions = append(st.Transactions, &models.Transaction{
				Type:           models.TransactionInvoice,
				Date:           d,
				DocumentNumber: inv.InvoiceNumber,
				Description:    "Invoice " + inv.InvoiceNumber,
				AmountCents:    inv.TotalCents,
				SourceID:       inv.ID,
			})
			st.PeriodInvoicesTotalCents += inv.TotalCents
		}
	}

	for _, p := range payments {
		if p == nil {
			continue
		}
		d := models.DateOnly(p.PaymentDate)
		for _, app := range p.Applications {
			inv, ok := owed[app.InvoiceID]
			if !ok {
				continue
			}
			switch {
			case d.Before(start):
				st.BeginningBalanceCents -= app.AmountCents
			case !d.After(end):
				st.Transactions = append(st.Transactions, &models.Transaction{
					Type:           models.TransactionPayment,
					Date:           d,
					DocumentNumber: p.ID,
					Description:    paymentDescription(p, inv),
					AmountCents:    -app.AmountCents,
					SourceID:       app.ID,
				})
				st.PeriodPaymentsTotalCents += app.AmountCents
			}
		}
	}

	sortTransactions(st.Transactions)

	running := st.BeginningBalanceCents
	for _, tx := range st.Transactions {
		running += tx.AmountCents
		tx.RunningBalanceCents = running
	}
	st.EndingBalanceCents = running

	return st, nil
}

func paymentDescription(p *models.Payment, inv *models.Invoice) string {
	desc := "Payment applied to " + inv.InvoiceNumber
	if p.Note != nil && *p.Note != "" {
		desc += " (" + *p.Note + ")"
	}
	return desc
}

func typeRank(t models.TransactionType) int {
	if t == models.TransactionInvoice {
		return 0
	}
	return 1
}

func sortTransactions(txs []*models.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if ra, rb := typeRank(a.Type), typeRank(b.Type); ra != rb {
			return ra < rb
		}
		if a.DocumentNumber != b.DocumentNumber {
			return a.DocumentNumber < b.DocumentNumber
		}
		return a.SourceID < b.SourceID
	})
}
