package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/money"
	"github.com/jesses-code-adventures/billing/internal/render"
	"github.com/jesses-code-adventures/billing/internal/utils"
)

const (
	pageWidth   = 190.0
	lineHeight  = 6.0
	labelWidth  = 88.0
	numberWidth = 25.5
)

type writer struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func newWriter() *writer {
	p := gofpdf.New("P", "mm", "A4", "")
	p.SetAutoPageBreak(true, 15)
	return &writer{pdf: p, tr: p.UnicodeTranslatorFromDescriptor("")}
}

func (w *writer) text(width, height float64, s string) {
	w.pdf.Cell(width, height, w.tr(s))
}

func (w *writer) output() ([]byte, error) {
	var buf bytes.Buffer
	if err := w.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (w *writer) letterhead(l render.Letterhead, title string) {
	w.pdf.SetFont("Arial", "B", 16)
	w.text(120, 10, utils.FirstNonEmpty(l.Name, title))
	w.pdf.Ln(10)
	w.pdf.SetFont("Arial", "", 10)
	for _, line := range strings.Split(l.Address, "\n") {
		if strings.TrimSpace(line) != "" {
			w.text(120, 5, line)
			w.pdf.Ln(5)
		}
	}
	for _, line := range []string{l.Email, l.Phone} {
		if line != "" {
			w.text(120, 5, line)
			w.pdf.Ln(5)
		}
	}
	if l.TaxNumber != "" {
		w.text(120, 5, "Tax ID: "+l.TaxNumber)
		w.pdf.Ln(5)
	}
	w.pdf.Ln(4)
}

// billTo draws the client's billing details in two columns: address on the
// left, contact details on the right.
func (w *writer) billTo(c *models.Client) {
	w.pdf.SetFont("Arial", "B", 12)
	w.text(40, 8, "Bill To:")
	w.pdf.Ln(8)

	w.pdf.SetFont("Arial", "", 11)
	leftColY := w.pdf.GetY()
	w.text(95, lineHeight, c.Name)
	w.pdf.Ln(lineHeight)
	for _, line := range addressLines(c) {
		w.text(95, lineHeight, line)
		w.pdf.Ln(lineHeight)
	}
	leftEnd := w.pdf.GetY()

	w.pdf.SetXY(105, leftColY)
	for _, line := range contactLines(c) {
		w.text(85, lineHeight, line)
		w.pdf.SetXY(105, w.pdf.GetY()+lineHeight)
	}
	rightEnd := w.pdf.GetY()

	w.pdf.SetXY(10, max(leftEnd, rightEnd))
	w.pdf.Ln(6)
}

func addressLines(c *models.Client) []string {
	var lines []string
	for _, s := range []*string{c.CompanyName, c.ContactName, c.AddressLine1, c.AddressLine2} {
		if v := strings.TrimSpace(utils.FromPtr(s)); v != "" {
			lines = append(lines, v)
		}
	}

	// City, State, Postal Code on one line
	addressLine := utils.FromPtr(c.City)
	if st := utils.FromPtr(c.State); st != "" {
		if addressLine != "" {
			addressLine += ", "
		}
		addressLine += st
	}
	if pc := utils.FromPtr(c.PostalCode); pc != "" {
		if addressLine != "" {
			addressLine += " "
		}
		addressLine += pc
	}
	if addressLine != "" {
		lines = append(lines, addressLine)
	}
	if country := utils.FromPtr(c.Country); country != "" {
		lines = append(lines, country)
	}
	return lines
}

func contactLines(c *models.Client) []string {
	var lines []string
	if v := utils.FromPtr(c.Email); v != "" {
		lines = append(lines, "Email: "+v)
	}
	if v := utils.FromPtr(c.Phone); v != "" {
		lines = append(lines, "Phone: "+v)
	}
	if v := utils.FromPtr(c.TaxNumber); v != "" {
		lines = append(lines, "Tax ID: "+v)
	}
	return lines
}

// Invoice lays out an invoice as a fixed A4 page. It refuses the same malformed
// invoices the HTML renderer does.
func Invoice(doc render.Document) ([]byte, error) {
	if err := render.Validate(doc.Invoice); err != nil {
		return nil, err
	}
	inv := doc.Invoice
	client := doc.Client
	if client == nil {
		client = &models.Client{Name: inv.ClientName}
	}
	if strings.TrimSpace(client.Name) == "" {
		return nil, fmt.Errorf("%w: missing client name", models.ErrRenderFailure)
	}

	w := newWriter()
	w.pdf.SetTitle(w.tr("Invoice "+inv.InvoiceNumber), false)
	w.pdf.SetCreationDate(inv.InvoiceDate)
	w.pdf.SetModificationDate(inv.InvoiceDate)
	w.pdf.AddPage()

	w.letterhead(doc.Letterhead, "Invoice")

	w.pdf.SetFont("Arial", "B", 14)
	title := "Invoice " + inv.InvoiceNumber
	switch inv.Status {
	case models.InvoiceStatusDraft:
		title += " (DRAFT)"
	case models.InvoiceStatusVoided:
		title += " (VOID)"
	}
	w.text(pageWidth, 8, title)
	w.pdf.Ln(9)
	w.pdf.SetFont("Arial", "", 11)
	w.text(60, lineHeight, "Date: "+inv.InvoiceDate.Format(models.DateFormat))
	w.text(60, lineHeight, "Due: "+inv.DueDate.Format(models.DateFormat))
	if inv.PeriodStart != nil && inv.PeriodEnd != nil {
		w.text(70, lineHeight, fmt.Sprintf("Period: %s to %s",
			inv.PeriodStart.Format(models.DateFormat), inv.PeriodEnd.Format(models.DateFormat)))
	}
	w.pdf.Ln(10)

	w.billTo(client)

	w.pdf.SetFont("Arial", "B", 9)
	w.pdf.CellFormat(labelWidth, 8, "Item", "1", 0, "L", false, 0, "")
	w.pdf.CellFormat(20, 8, "Hours", "1", 0, "C", false, 0, "")
	w.pdf.CellFormat(25, 8, "Rate", "1", 0, "C", false, 0, "")
	w.pdf.CellFormat(20, 8, "Discount", "1", 0, "C", false, 0, "")
	w.pdf.CellFormat(37, 8, "Amount", "1", 1, "C", false, 0, "")

	discount := money.FormatPercent(inv.DiscountPercent)
	for _, l := range inv.Lines {
		lines := []string{render.LineLabel(l)}
		if d := strings.TrimSpace(utils.FromPtr(l.Description)); d != "" {
			w.pdf.SetFont("Arial", "I", 8)
			for _, part := range w.pdf.SplitLines([]byte(w.tr(d)), labelWidth-2) {
				lines = append(lines, string(part))
			}
		}
		rowHeight := float64(len(lines)) * lineHeight

		x, y := w.pdf.GetXY()
		w.pdf.Rect(x, y, labelWidth, rowHeight, "D")
		for i, text := range lines {
			w.pdf.SetXY(x+1, y+float64(i)*lineHeight)
			if i == 0 {
				w.pdf.SetFont("Arial", "", 9)
				w.text(labelWidth-2, lineHeight, text)
				continue
			}
			// descriptions are already translated by SplitLines above
			w.pdf.SetFont("Arial", "I", 8)
			w.pdf.SetTextColor(107, 114, 128)
			w.pdf.Cell(labelWidth-2, lineHeight, text)
			w.pdf.SetTextColor(0, 0, 0)
		}
		w.pdf.SetFont("Arial", "", 9)
		w.pdf.SetXY(x+labelWidth, y)
		w.pdf.CellFormat(20, rowHeight, money.Hours(l.TotalMinutes), "1", 0, "C", false, 0, "")
		w.pdf.CellFormat(25, rowHeight, money.Format(l.HourlyRateCents), "1", 0, "R", false, 0, "")
		w.pdf.CellFormat(20, rowHeight, discount, "1", 0, "C", false, 0, "")
		w.pdf.CellFormat(37, rowHeight, money.Format(l.AmountCents), "1", 1, "R", false, 0, "")
	}

	w.pdf.Ln(5)
	w.pdf.SetFont("Arial", "B", 11)
	w.pdf.Cell(153, 8, "Subtotal:")
	w.pdf.CellFormat(37, 8, money.Format(inv.SubtotalCents), "", 1, "R", false, 0, "")
	if inv.DiscountCents > 0 {
		w.pdf.Cell(153, 8, fmt.Sprintf("Discount (%s):", discount))
		w.pdf.CellFormat(37, 8, money.Format(-inv.DiscountCents), "", 1, "R", false, 0, "")
	}
	w.pdf.SetFont("Arial", "B", 12)
	w.pdf.Cell(153, 10, "Total:")
	w.pdf.CellFormat(37, 10, money.Format(inv.TotalCents), "", 1, "R", false, 0, "")

	if notes := strings.TrimSpace(utils.FromPtr(inv.Notes)); notes != "" {
		w.pdf.Ln(6)
		w.pdf.SetFont("Arial", "B", 11)
		w.text(40, 8, "Notes:")
		w.pdf.Ln(8)
		w.pdf.SetFont("Arial", "", 10)
		w.pdf.MultiCell(pageWidth, 5, w.tr(notes), "", "L", false)
	}

	p := doc.Payment
	if p.Bank != "" || p.AccountName != "" || p.AccountNumber != "" || p.BSB != "" {
		w.pdf.Ln(8)
		w.pdf.SetFont("Arial", "B", 12)
		w.pdf.Cell(40, 8, "Payment Details:")
		w.pdf.Ln(10)

		w.pdf.SetFont("Arial", "", 11)
		for _, kv := range [][2]string{
			{"Bank", p.Bank},
			{"Account Name", p.AccountName},
			{"Account Number", p.AccountNumber},
			{"BSB", p.BSB},
		} {
			if kv[1] == "" {
				continue
			}
			w.text(pageWidth, lineHeight, fmt.Sprintf("%s: %s", kv[0], kv[1]))
			w.pdf.Ln(lineHeight)
		}
	}

	return w.output()
}

// Statement lays out a statement of account with its running balance.
func Statement(st *models.Statement, client *models.Client, letterhead render.Letterhead) ([]byte, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: missing statement", models.ErrRenderFailure)
	}
	if client == nil {
		client = &models.Client{ID: st.ClientID, Name: st.ClientName}
	}

	w := newWriter()
	w.pdf.SetTitle(w.tr("Statement "+client.Name), false)
	w.pdf.SetCreationDate(st.EndDate)
	w.pdf.SetModificationDate(st.EndDate)
	w.pdf.AddPage()

	w.letterhead(letterhead, "Statement")

	w.pdf.SetFont("Arial", "B", 14)
	w.text(pageWidth, 8, "Statement of Account")
	w.pdf.Ln(9)
	w.pdf.SetFont("Arial", "", 11)
	w.text(pageWidth, lineHeight, fmt.Sprintf("Period: %s to %s",
		st.StartDate.Format(models.DateFormat), st.EndDate.Format(models.DateFormat)))
	w.pdf.Ln(10)

	w.billTo(client)

	w.pdf.SetFont("Arial", "B", 9)
	w.pdf.CellFormat(24, 8, "Date", "1", 0, "C", false, 0, "")
	w.pdf.CellFormat(34, 8, "Document", "1", 0, "C", false, 0, "")
	w.pdf.CellFormat(81, 8, "Description", "1", 0, "C", false, 0, "")
	w.pdf.CellFormat(numberWidth, 8, "Amount", "1", 0, "C", false, 0, "")
	w.pdf.CellFormat(numberWidth, 8, "Balance", "1", 1, "C", false, 0, "")

	w.pdf.SetFont("Arial", "", 8)
	w.pdf.CellFormat(24, 7, st.StartDate.Format(models.DateFormat), "1", 0, "L", false, 0, "")
	w.pdf.CellFormat(34+81+numberWidth, 7, "Beginning balance", "1", 0, "L", false, 0, "")
	w.pdf.CellFormat(numberWidth, 7, money.Format(st.BeginningBalanceCents), "1", 1, "R", false, 0, "")

	for _, tx := range st.Transactions {
		doc := tx.DocumentNumber
		if tx.Type == models.TransactionPayment && len(doc) > 13 {
			doc = doc[:13]
		}
		w.pdf.CellFormat(24, 7, tx.Date.Format(models.DateFormat), "1", 0, "L", false, 0, "")
		w.pdf.CellFormat(34, 7, w.tr(doc), "1", 0, "L", false, 0, "")
		w.pdf.CellFormat(81, 7, w.tr(truncate(tx.Description, 60)), "1", 0, "L", false, 0, "")
		w.pdf.CellFormat(numberWidth, 7, money.Format(tx.AmountCents), "1", 0, "R", false, 0, "")
		w.pdf.CellFormat(numberWidth, 7, money.Format(tx.RunningBalanceCents), "1", 1, "R", false, 0, "")
	}

	w.pdf.Ln(5)
	w.pdf.SetFont("Arial", "B", 11)
	for _, kv := range []struct {
		label string
		cents int64
	}{
		{"Invoiced this period:", st.PeriodInvoicesTotalCents},
		{"Payments this period:", st.PeriodPaymentsTotalCents},
		{"Balance due:", st.EndingBalanceCents},
	} {
		w.pdf.Cell(pageWidth-37, 8, kv.label)
		w.pdf.CellFormat(37, 8, money.Format(kv.cents), "", 1, "R", false, 0, "")
	}

	return w.output()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
