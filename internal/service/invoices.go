package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jesses-code-adventures/billing/internal/billing"
	"github.com/jesses-code-adventures/billing/internal/config"
	"github.com/jesses-code-adventures/billing/internal/database"
	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/pdf"
	"github.com/jesses-code-adventures/billing/internal/render"
	"github.com/jesses-code-adventures/billing/internal/utils"
)

// PreviewInvoice computes what an invoice for the client over [start, end] would
// contain without storing anything.
func (s *BillingService) PreviewInvoice(ctx context.Context, clientName string, start, end time.Time) (*billing.Preview, error) {
	client, err := s.GetClient(ctx, clientName)
	if err != nil {
		return nil, err
	}
	return s.preview(ctx, client, start, end)
}

func (s *BillingService) preview(ctx context.Context, client *models.Client, start, end time.Time) (*billing.Preview, error) {
	if models.DateOnly(start).After(models.DateOnly(end)) {
		return nil, fmt.Errorf("%w: %s > %s", models.ErrInvalidRange, start.Format(models.DateFormat), end.Format(models.DateFormat))
	}

	began := time.Now()
	entries, err := s.db.ListUnbilledTimeEntries(ctx, client.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list unbilled time entries: %w", err)
	}
	s.log.Debug().Str("client", client.Name).Int("entries", len(entries)).Dur("took", time.Since(began)).Msg("fetched unbilled entries")

	return billing.Calculate(client, start, end, entries)
}

type InvoiceRequest struct {
	Client      string
	Start       time.Time
	End         time.Time
	InvoiceDate time.Time
	Notes       string
}

// CreateInvoice bills the client's unbilled entries in the range. The invoice is
// stored as a draft, numbered from the next sequence value and due after the
// configured payment terms. A range with nothing to bill returns ErrEmptySelection.
func (s *BillingService) CreateInvoice(ctx context.Context, req InvoiceRequest) (*models.Invoice, error) {
	client, err := s.GetClient(ctx, req.Client)
	if err != nil {
		return nil, err
	}
	p, err := s.preview(ctx, client, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	if p.Empty {
		return nil, fmt.Errorf("%w: %s %s to %s", models.ErrEmptySelection, client.Name,
			p.StartDate.Format(models.DateFormat), p.EndDate.Format(models.DateFormat))
	}

	invoiceDate := req.InvoiceDate
	if invoiceDate.IsZero() {
		invoiceDate = s.Today()
	}
	draft, err := billing.BuildInvoice(p, "", invoiceDate, invoiceDate.AddDate(0, 0, s.cfg.PaymentTermsDays))
	if err != nil {
		return nil, err
	}
	draft.Notes = utils.ToPtrNil(req.Notes)

	inv, err := s.db.CreateInvoiceAndMarkEntriesBilled(ctx, draft, p.EntryIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	s.log.Info().Str("invoice", inv.InvoiceNumber).Str("client", client.Name).
		Int64("total_cents", inv.TotalCents).Int("entries", len(p.EntryIDs)).Msg("invoice created")
	return inv, nil
}

// GetInvoice resolves an invoice by number, falling back to id.
func (s *BillingService) GetInvoice(ctx context.Context, numberOrID string) (*models.Invoice, error) {
	inv, err := s.db.GetInvoiceByNumber(ctx, numberOrID)
	if errors.Is(err, models.ErrNotFound) {
		inv, err = s.db.GetInvoice(ctx, numberOrID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return inv, nil
}

func (s *BillingService) ListInvoices(ctx context.Context, clientName string, statuses []models.InvoiceStatus) ([]*models.Invoice, error) {
	filter := database.InvoiceFilter{Statuses: statuses}
	for _, st := range statuses {
		if !st.Valid() {
			return nil, &models.ValidationError{Field: "status", Msg: fmt.Sprintf("unknown invoice status %q", st)}
		}
	}
	if clientName != "" {
		client, err := s.GetClient(ctx, clientName)
		if err != nil {
			return nil, err
		}
		filter.ClientID = client.ID
	}
	return s.db.ListInvoices(ctx, filter)
}

// SetInvoiceStatus toggles an invoice between draft and sent. Payment-driven
// statuses are managed by payment applications and voiding by VoidInvoice.
func (s *BillingService) SetInvoiceStatus(ctx context.Context, numberOrID string, to models.InvoiceStatus) (*models.Invoice, error) {
	inv, err := s.GetInvoice(ctx, numberOrID)
	if err != nil {
		return nil, err
	}

	var from models.InvoiceStatus
	switch to {
	case models.InvoiceStatusSent:
		from = models.InvoiceStatusDraft
	case models.InvoiceStatusDraft:
		from = models.InvoiceStatusSent
	default:
		return nil, fmt.Errorf("%w: cannot set status to %q manually", models.ErrInvalidStatusTransition, to)
	}
	if inv.Status != from {
		return nil, fmt.Errorf("%w: invoice %s is %s", models.ErrInvalidStatusTransition, inv.InvoiceNumber, inv.Status)
	}

	updated, err := s.db.UpdateInvoiceStatus(ctx, inv.ID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to update invoice status: %w", err)
	}
	s.log.Info().Str("invoice", updated.InvoiceNumber).Str("from", string(from)).Str("to", string(to)).Msg("invoice status changed")
	return updated, nil
}

func (s *BillingService) VoidInvoice(ctx context.Context, numberOrID string) (*models.Invoice, error) {
	inv, err := s.GetInvoice(ctx, numberOrID)
	if err != nil {
		return nil, err
	}
	voided, err := s.db.VoidInvoice(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to void invoice: %w", err)
	}
	s.log.Info().Str("invoice", voided.InvoiceNumber).Msg("invoice voided")
	return voided, nil
}

func (s *BillingService) DeleteInvoice(ctx context.Context, numberOrID string) error {
	inv, err := s.GetInvoice(ctx, numberOrID)
	if err != nil {
		return err
	}
	if err := s.db.DeleteInvoice(ctx, inv.ID); err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	s.log.Info().Str("invoice", inv.InvoiceNumber).Msg("invoice deleted")
	return nil
}

// SetLineDescription replaces the free-text description of an invoice line. An
// empty description clears it.
func (s *BillingService) SetLineDescription(ctx context.Context, lineID, description string) (*models.InvoiceLine, error) {
	line, err := s.db.UpdateInvoiceLineDescription(ctx, lineID, utils.ToPtrNil(description))
	if err != nil {
		return nil, fmt.Errorf("failed to update line description: %w", err)
	}
	return line, nil
}

func (s *BillingService) letterhead() render.Letterhead {
	return render.Letterhead{
		Name:      s.cfg.CompanyName,
		Address:   s.cfg.CompanyAddress,
		Email:     s.cfg.CompanyEmail,
		Phone:     s.cfg.CompanyPhone,
		TaxNumber: s.cfg.CompanyTaxNumber,
	}
}

func (s *BillingService) paymentDetails() render.PaymentDetails {
	return render.PaymentDetails{
		Bank:          s.cfg.BillingBank,
		AccountName:   s.cfg.BillingAccountName,
		AccountNumber: s.cfg.BillingAccountNumber,
		BSB:           s.cfg.BillingBSB,
	}
}

func (s *BillingService) invoiceDocument(ctx context.Context, numberOrID string) (render.Document, error) {
	inv, err := s.GetInvoice(ctx, numberOrID)
	if err != nil {
		return render.Document{}, err
	}
	client, err := s.db.GetClientByID(ctx, inv.ClientID)
	if err != nil {
		return render.Document{}, fmt.Errorf("failed to get invoice client: %w", err)
	}
	return render.Document{
		Invoice:    inv,
		Client:     client,
		Letterhead: s.letterhead(),
		Payment:    s.paymentDetails(),
	}, nil
}

func (s *BillingService) RenderInvoiceHTML(ctx context.Context, numberOrID string) (string, error) {
	doc, err := s.invoiceDocument(ctx, numberOrID)
	if err != nil {
		return "", err
	}
	return render.Render(doc)
}

// InvoicePDF renders the invoice with the configured engine.
func (s *BillingService) InvoicePDF(ctx context.Context, numberOrID string) ([]byte, error) {
	doc, err := s.invoiceDocument(ctx, numberOrID)
	if err != nil {
		return nil, err
	}

	switch s.cfg.PDFEngine {
	case config.PDFEngineChromeDP:
		html, err := render.Render(doc)
		if err != nil {
			return nil, err
		}
		out, err := s.rasterizer.Rasterize(ctx, html)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrRenderFailure, err)
		}
		return out, nil
	default:
		return pdf.Invoice(doc)
	}
}

// InvoiceFileName is the default file name for an exported invoice.
func InvoiceFileName(inv *models.Invoice, ext string) string {
	return sanitizeFileName(fmt.Sprintf("%s_%s.%s", inv.InvoiceNumber, inv.ClientName, ext))
}

func sanitizeFileName(fileName string) string {
	var b strings.Builder
	for _, r := range fileName {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' || r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return b.String()
}
