package pdf

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/render"
	"github.com/jesses-code-adventures/billing/internal/utils"
)

func testDocument() render.Document {
	day := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	return render.Document{
		Invoice: &models.Invoice{
			ID:              "inv-1",
			InvoiceNumber:   "INV-0001",
			InvoiceDate:     day,
			DueDate:         day.AddDate(0, 0, 14),
			Status:          models.InvoiceStatusSent,
			DiscountPercent: decimal.NewFromInt(10),
			SubtotalCents:   20000,
			DiscountCents:   2000,
			TotalCents:      18000,
			Notes:           utils.ToPtr("Thanks for your business"),
			Lines: []*models.InvoiceLine{
				{WorkTypeCode: "backend", TotalMinutes: 90, HourlyRateCents: 10000, DiscountCents: 1500, AmountCents: 13500,
					Description: utils.ToPtr("API work including a fairly long description that wraps across more than one line of the cell")},
				{WorkTypeCode: "frontend", TotalMinutes: 30, HourlyRateCents: 10000, DiscountCents: 500, AmountCents: 4500},
			},
		},
		Client: &models.Client{
			Name:         "Café Müller",
			CompanyName:  utils.ToPtr("Café Müller Pty Ltd"),
			AddressLine1: utils.ToPtr("1 Main St"),
			City:         utils.ToPtr("Melbourne"),
			State:        utils.ToPtr("VIC"),
			PostalCode:   utils.ToPtr("3000"),
			Email:        utils.ToPtr("hello@cafe.test"),
		},
		Letterhead: render.Letterhead{Name: "Jesse Williams Consulting", Address: "2 Side St\nMelbourne"},
		Payment:    render.PaymentDetails{Bank: "Bank", AccountName: "J Williams", AccountNumber: "1234", BSB: "000-000"},
	}
}

func TestInvoicePDF(t *testing.T) {
	out, err := Invoice(testDocument())
	if err != nil {
		t.Fatalf("Invoice failed: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", out[:min(len(out), 16)])
	}
}

func TestInvoicePDFDatesFollowInvoiceDate(t *testing.T) {
	out, err := Invoice(testDocument())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"/CreationDate (D:20250401000000)", "/ModDate (D:20250401000000)"} {
		if !bytes.Contains(out, []byte(key)) {
			t.Errorf("expected %s in the PDF info", key)
		}
	}
}

func TestInvoicePDFRejectsMalformedInvoice(t *testing.T) {
	doc := testDocument()
	doc.Invoice.TotalCents = 0
	if _, err := Invoice(doc); !errors.Is(err, models.ErrRenderFailure) {
		t.Fatalf("expected ErrRenderFailure, got %v", err)
	}
}

func TestStatementPDF(t *testing.T) {
	st := &models.Statement{
		ClientID:              "c1",
		ClientName:            "Acme",
		StartDate:             time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:               time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		BeginningBalanceCents: 50000,
		EndingBalanceCents:    40000,
		Transactions: []*models.Transaction{
			{Type: models.TransactionInvoice, Date: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), DocumentNumber: "INV-0002",
				Description: "Invoice INV-0002", AmountCents: 20000, RunningBalanceCents: 70000},
			{Type: models.TransactionPayment, Date: time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), DocumentNumber: "0199a0c2-7e4b-7cc1-9f00-5f1e2d3c4b5a",
				Description: "Payment applied to " + strings.Repeat("INV-0001 ", 10), AmountCents: -30000, RunningBalanceCents: 40000},
		},
		PeriodInvoicesTotalCents: 20000,
		PeriodPaymentsTotalCents: 30000,
	}
	out, err := Statement(st, nil, render.Letterhead{})
	if err != nil {
		t.Fatalf("Statement failed: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatal("output is not a PDF")
	}
	if _, err := Statement(nil, nil, render.Letterhead{}); !errors.Is(err, models.ErrRenderFailure) {
		t.Errorf("expected ErrRenderFailure for nil statement, got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("abcdefghijkl", 8); got != "abcde..." {
		t.Errorf("truncate long = %q", got)
	}
}

func TestChromeRasterizer(t *testing.T) {
	path := ""
	for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "headless-shell"} {
		if p, err := exec.LookPath(name); err == nil {
			path = p
			break
		}
	}
	if path == "" {
		t.Skip("no Chromium binary available")
	}

	html, err := render.Render(testDocument())
	if err != nil {
		t.Fatal(err)
	}
	out, err := NewChromeRasterizer(path, 30*time.Second).Rasterize(context.Background(), html)
	if err != nil {
		t.Fatalf("Rasterize failed: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatal("output is not a PDF")
	}
}
