package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jesses-code-adventures/billing/internal/dashboard"
	"github.com/jesses-code-adventures/billing/internal/database"
	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/pdf"
	"github.com/jesses-code-adventures/billing/internal/statement"
)

// Statement loads the client's invoices and payments concurrently and
// reconciles them over [start, end].
func (s *BillingService) Statement(ctx context.Context, clientName string, start, end time.Time) (*models.Statement, *models.Client, error) {
	client, err := s.GetClient(ctx, clientName)
	if err != nil {
		return nil, nil, err
	}

	var (
		invoices []*models.Invoice
		payments []*models.Payment
	)
	began := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		invoices, err = s.db.ListInvoices(gctx, database.InvoiceFilter{ClientID: client.ID})
		return err
	})
	g.Go(func() error {
		var err error
		payments, err = s.db.ListPayments(gctx, client.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("failed to load statement data: %w", err)
	}
	s.log.Debug().Str("client", client.Name).Int("invoices", len(invoices)).Int("payments", len(payments)).
		Dur("took", time.Since(began)).Msg("fetched statement data")

	st, err := statement.Reconcile(client.ID, start, end, invoices, payments)
	if err != nil {
		return nil, nil, err
	}
	st.ClientName = client.Name
	return st, client, nil
}

func (s *BillingService) StatementPDF(ctx context.Context, clientName string, start, end time.Time) ([]byte, error) {
	st, client, err := s.Statement(ctx, clientName, start, end)
	if err != nil {
		return nil, err
	}
	return pdf.Statement(st, client, s.letterhead())
}

// Dashboard loads every invoice, payment, time entry, expense and client
// concurrently and aggregates them as of today.
func (s *BillingService) Dashboard(ctx context.Context, basis dashboard.Basis) (*dashboard.Summary, error) {
	var (
		in      dashboard.Input
		clients []*models.Client
	)
	began := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		in.Invoices, err = s.db.ListInvoices(gctx, database.InvoiceFilter{})
		return err
	})
	g.Go(func() (err error) {
		in.Payments, err = s.db.ListPayments(gctx, "")
		return err
	})
	g.Go(func() (err error) {
		in.TimeEntries, err = s.db.ListTimeEntries(gctx, database.TimeEntryFilter{})
		return err
	})
	g.Go(func() (err error) {
		in.Expenses, err = s.db.ListExpenses(gctx, database.ExpenseFilter{})
		return err
	})
	g.Go(func() (err error) {
		clients, err = s.db.ListClients(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load dashboard data: %w", err)
	}

	in.Clients = make(map[string]*models.Client, len(clients))
	for _, c := range clients {
		in.Clients[c.ID] = c
	}
	s.log.Debug().Int("invoices", len(in.Invoices)).Int("payments", len(in.Payments)).
		Int("entries", len(in.TimeEntries)).Int("expenses", len(in.Expenses)).
		Dur("took", time.Since(began)).Msg("fetched dashboard data")

	return dashboard.Aggregate(in, basis, s.Today())
}
