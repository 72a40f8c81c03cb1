package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jesses-code-adventures/billing/internal/database"
	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/utils"
)

type ApplicationInput struct {
	Invoice     string
	AmountCents int64
}

type PaymentInput struct {
	Date         time.Time
	AmountCents  int64
	Note         string
	Applications []ApplicationInput
}

// RecordPayment stores a payment together with any applications. Either all of
// it is stored or none of it.
func (s *BillingService) RecordPayment(ctx context.Context, in PaymentInput) (*models.Payment, error) {
	if in.AmountCents <= 0 {
		return nil, &models.ValidationError{Field: "amount", Msg: "must be greater than zero"}
	}
	date := in.Date
	if date.IsZero() {
		date = s.Today()
	}

	p := &models.Payment{
		PaymentDate: models.DateOnly(date),
		AmountCents: in.AmountCents,
		Note:        utils.ToPtrNil(in.Note),
	}
	for _, a := range in.Applications {
		inv, err := s.GetInvoice(ctx, a.Invoice)
		if err != nil {
			return nil, err
		}
		p.Applications = append(p.Applications, &models.PaymentApplication{InvoiceID: inv.ID, AmountCents: a.AmountCents})
	}

	payment, err := s.db.CreatePayment(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}
	s.log.Info().Str("payment", payment.ID).Int64("amount_cents", payment.AmountCents).
		Int("applications", len(payment.Applications)).Msg("payment recorded")
	return payment, nil
}

func (s *BillingService) ApplyPayment(ctx context.Context, paymentID, invoice string, amountCents int64) (*models.PaymentApplication, error) {
	inv, err := s.GetInvoice(ctx, invoice)
	if err != nil {
		return nil, err
	}
	app, err := s.db.ApplyPayment(ctx, paymentID, inv.ID, amountCents)
	if err != nil {
		return nil, fmt.Errorf("failed to apply payment: %w", err)
	}
	s.log.Info().Str("payment", paymentID).Str("invoice", inv.InvoiceNumber).Int64("amount_cents", amountCents).Msg("payment applied")
	return app, nil
}

func (s *BillingService) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	return s.db.GetPayment(ctx, id)
}

func (s *BillingService) ListPayments(ctx context.Context, clientName string) ([]*models.Payment, error) {
	clientID := ""
	if clientName != "" {
		client, err := s.GetClient(ctx, clientName)
		if err != nil {
			return nil, err
		}
		clientID = client.ID
	}
	return s.db.ListPayments(ctx, clientID)
}

func (s *BillingService) DeletePayment(ctx context.Context, id string) error {
	if err := s.db.DeletePayment(ctx, id); err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	s.log.Info().Str("payment", id).Msg("payment deleted")
	return nil
}

type ExpenseInput struct {
	Vendor     string
	Item       string
	PriceCents int64
	Quantity   int64
	Date       time.Time
	IsRefund   bool
}

func (s *BillingService) AddExpense(ctx context.Context, in ExpenseInput) (*models.Expense, error) {
	vendor, item := strings.TrimSpace(in.Vendor), strings.TrimSpace(in.Item)
	if vendor == "" {
		return nil, &models.ValidationError{Field: "vendor", Msg: "is required"}
	}
	if item == "" {
		return nil, &models.ValidationError{Field: "item", Msg: "is required"}
	}
	if in.PriceCents < 0 {
		return nil, &models.ValidationError{Field: "price", Msg: "must not be negative; mark refunds instead"}
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 0 {
		return nil, &models.ValidationError{Field: "quantity", Msg: "must be positive"}
	}
	date := in.Date
	if date.IsZero() {
		date = s.Today()
	}

	e, err := s.db.CreateExpense(ctx, &models.Expense{
		Vendor:      vendor,
		Item:        item,
		PriceCents:  in.PriceCents,
		Quantity:    in.Quantity,
		ExpenseDate: models.DateOnly(date),
		IsRefund:    in.IsRefund,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add expense: %w", err)
	}
	s.log.Info().Str("vendor", e.Vendor).Int64("net_cents", e.NetCents()).Msg("expense added")
	return e, nil
}

func (s *BillingService) ListExpenses(ctx context.Context, from, to *time.Time) ([]*models.Expense, error) {
	if from != nil && to != nil && from.After(*to) {
		return nil, fmt.Errorf("%w: %s > %s", models.ErrInvalidRange, from.Format(models.DateFormat), to.Format(models.DateFormat))
	}
	return s.db.ListExpenses(ctx, database.ExpenseFilter{From: from, To: to})
}

func (s *BillingService) DeleteExpense(ctx context.Context, id string) error {
	if err := s.db.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return nil
}
