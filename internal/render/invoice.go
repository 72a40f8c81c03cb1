// Package render produces self-contained HTML invoice documents. Rendering is a
// pure function of its input: the same invoice always yields the same bytes.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/money"
	"github.com/jesses-code-adventures/billing/internal/utils"
)

// Letterhead is the issuing business shown at the top of the document.
type Letterhead struct {
	Name      string
	Address   string
	Email     string
	Phone     string
	TaxNumber string
}

type PaymentDetails struct {
	Bank          string
	AccountName   string
	AccountNumber string
	BSB           string
}

func (p PaymentDetails) empty() bool {
	return p.Bank == "" && p.AccountName == "" && p.AccountNumber == "" && p.BSB == ""
}

// Document is everything needed to render one invoice. Invoice lines are expected
// to carry their work type code/description.
type Document struct {
	Invoice    *models.Invoice
	Client     *models.Client
	Letterhead Letterhead
	Payment    PaymentDetails
}

type lineView struct {
	Label       string
	Description *string
	Hours       string
	Rate        string
	Discount    string
	Amount      string
}

type view struct {
	Doc          Document
	ClientName   string
	BillTo       []string
	Contact      []string
	Lines        []lineView
	Subtotal     string
	Discount     string
	HasDiscount  bool
	Total        string
	ShowPayment  bool
	PeriodStart  string
	PeriodEnd    string
	InvoiceDate  string
	DueDate      string
	StatusBanner string
}

var invoiceTemplate = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"text":     Escape,
	"freetext": FreeText,
}).Parse(invoiceHTML))

// LineLabel is the short label for a line: work type description, else code,
// else "Work", suffixed with " - project" when the line has a project.
func LineLabel(l *models.InvoiceLine) string {
	label := utils.FirstNonEmpty(utils.FromPtr(l.WorkTypeDescription), l.WorkTypeCode, "Work")
	if p := strings.TrimSpace(utils.FromPtr(l.ProjectName)); p != "" {
		label += " - " + p
	}
	return label
}

// Validate reports why an invoice cannot be rendered, wrapping models.ErrRenderFailure.
func Validate(inv *models.Invoice) error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", models.ErrRenderFailure, fmt.Sprintf(format, args...))
	}
	if inv == nil {
		return fail("missing invoice")
	}
	if strings.TrimSpace(inv.InvoiceNumber) == "" {
		return fail("missing invoice number")
	}
	if inv.InvoiceDate.IsZero() {
		return fail("missing invoice date")
	}
	if inv.SubtotalCents < 0 || inv.DiscountCents < 0 || inv.TotalCents < 0 {
		return fail("negative totals")
	}
	if inv.TotalCents != inv.SubtotalCents-inv.DiscountCents {
		return fail("total %d != subtotal %d - discount %d", inv.TotalCents, inv.SubtotalCents, inv.DiscountCents)
	}
	var amounts, pre int64
	for i, l := range inv.Lines {
		if l == nil {
			return fail("line %d is missing", i+1)
		}
		amounts += l.AmountCents
		pre += l.PreDiscountCents()
	}
	if amounts != inv.TotalCents {
		return fail("line amounts %d != total %d", amounts, inv.TotalCents)
	}
	if pre != inv.SubtotalCents {
		return fail("line subtotals %d != subtotal %d", pre, inv.SubtotalCents)
	}
	return nil
}

// Render returns the invoice as a standalone HTML document.
func Render(doc Document) (string, error) {
	if err := Validate(doc.Invoice); err != nil {
		return "", err
	}
	inv := doc.Invoice

	clientName := inv.ClientName
	if doc.Client != nil {
		clientName = doc.Client.Name
	}
	if strings.TrimSpace(clientName) == "" {
		return "", fmt.Errorf("%w: missing client name", models.ErrRenderFailure)
	}

	v := view{
		Doc:         doc,
		ClientName:  clientName,
		Subtotal:    money.Format(inv.SubtotalCents),
		Discount:    money.Format(-inv.DiscountCents),
		HasDiscount: inv.DiscountCents > 0,
		Total:       money.Format(inv.TotalCents),
		ShowPayment: !doc.Payment.empty(),
		InvoiceDate: inv.InvoiceDate.Format(models.DateFormat),
	}
	if !inv.DueDate.IsZero() {
		v.DueDate = inv.DueDate.Format(models.DateFormat)
	}
	if inv.PeriodStart != nil && inv.PeriodEnd != nil {
		v.PeriodStart = inv.PeriodStart.Format(models.DateFormat)
		v.PeriodEnd = inv.PeriodEnd.Format(models.DateFormat)
	}
	switch inv.Status {
	case models.InvoiceStatusDraft:
		v.StatusBanner = "DRAFT"
	case models.InvoiceStatusVoided:
		v.StatusBanner = "VOID"
	case models.InvoiceStatusPaid:
		v.StatusBanner = "PAID"
	}
	if doc.Client != nil {
		v.BillTo, v.Contact = billTo(doc.Client)
	}

	discount := money.FormatPercent(inv.DiscountPercent)
	for _, l := range inv.Lines {
		var desc *string
		if l.Description != nil && strings.TrimSpace(*l.Description) != "" {
			desc = l.Description
		}
		v.Lines = append(v.Lines, lineView{
			Label:       LineLabel(l),
			Description: desc,
			Hours:       money.Hours(l.TotalMinutes),
			Rate:        money.Format(l.HourlyRateCents),
			Discount:    discount,
			Amount:      money.Format(l.AmountCents),
		})
	}

	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrRenderFailure, err)
	}
	return buf.String(), nil
}

func billTo(c *models.Client) (address, contact []string) {
	add := func(dst []string, s *string) []string {
		if s != nil && strings.TrimSpace(*s) != "" {
			return append(dst, *s)
		}
		return dst
	}
	address = add(address, c.CompanyName)
	address = add(address, c.ContactName)
	address = add(address, c.AddressLine1)
	address = add(address, c.AddressLine2)

	// City, State, Postal Code on one line
	locality := utils.FromPtr(c.City)
	if st := utils.FromPtr(c.State); st != "" {
		if locality != "" {
			locality += ", "
		}
		locality += st
	}
	if pc := utils.FromPtr(c.PostalCode); pc != "" {
		if locality != "" {
			locality += " "
		}
		locality += pc
	}
	if locality != "" {
		address = append(address, locality)
	}
	address = add(address, c.Country)

	if c.Email != nil && *c.Email != "" {
		contact = append(contact, "Email: "+*c.Email)
	}
	if c.Phone != nil && *c.Phone != "" {
		contact = append(contact, "Phone: "+*c.Phone)
	}
	if c.TaxNumber != nil && *c.TaxNumber != "" {
		contact = append(contact, "Tax ID: "+*c.TaxNumber)
	}
	return address, contact
}

const invoiceHTML = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Invoice {{text .Doc.Invoice.InvoiceNumber}}</title>
<style>
  @page { size: A4; margin: 16mm; }
  body { font-family: 'Helvetica Neue', Arial, sans-serif; color: #111827; margin: 24px; font-size: 13px; }
  h1 { margin: 0; font-size: 24px; }
  .header { display: flex; justify-content: space-between; margin-bottom: 20px; }
  .letterhead div, .meta div { margin-bottom: 2px; }
  .meta { text-align: right; }
  .banner { color: #b91c1c; font-weight: 700; letter-spacing: 2px; }
  .parties { display: flex; gap: 24px; margin-bottom: 16px; }
  .parties .col { flex: 1; }
  .label { font-size: 11px; color: #6b7280; text-transform: uppercase; }
  table { width: 100%; border-collapse: collapse; margin-top: 8px; }
  th, td { padding: 6px 8px; border-bottom: 1px solid #e5e7eb; text-align: left; vertical-align: top; }
  th { background: #f9fafb; font-size: 11px; text-transform: uppercase; color: #374151; }
  td.num, th.num { text-align: right; white-space: nowrap; }
  .line-description { color: #6b7280; font-size: 11px; margin-top: 2px; }
  .totals { margin-left: auto; margin-top: 12px; width: 260px; }
  .totals div { display: flex; justify-content: space-between; padding: 2px 0; }
  .totals .total { font-weight: 700; border-top: 1px solid #111827; margin-top: 4px; padding-top: 4px; }
  .notes, .payment { margin-top: 20px; }
</style>
</head>
<body>
<div class="header">
  <div class="letterhead">
    {{- with .Doc.Letterhead}}
    {{if .Name}}<h1>{{text .Name}}</h1>{{else}}<h1>Invoice</h1>{{end}}
    {{if .Address}}<div>{{freetext .Address}}</div>{{end}}
    {{if .Email}}<div>{{text .Email}}</div>{{end}}
    {{if .Phone}}<div>{{text .Phone}}</div>{{end}}
    {{if .TaxNumber}}<div>Tax ID: {{text .TaxNumber}}</div>{{end}}
    {{- end}}
  </div>
  <div class="meta">
    {{if .StatusBanner}}<div class="banner">{{.StatusBanner}}</div>{{end}}
    <div><span class="label">Invoice</span> {{text .Doc.Invoice.InvoiceNumber}}</div>
    <div><span class="label">Date</span> {{.InvoiceDate}}</div>
    {{if .DueDate}}<div><span class="label">Due</span> {{.DueDate}}</div>{{end}}
    {{if .PeriodStart}}<div><span class="label">Period</span> {{.PeriodStart}} to {{.PeriodEnd}}</div>{{end}}
  </div>
</div>
<div class="parties">
  <div class="col">
    <div class="label">Bill To</div>
    <div><strong>{{text .ClientName}}</strong></div>
    {{range .BillTo}}<div>{{text .}}</div>{{end}}
  </div>
  <div class="col">
    {{range .Contact}}<div>{{text .}}</div>{{end}}
  </div>
</div>
<table>
  <thead>
    <tr>
      <th>Item</th>
      <th class="num">Hours</th>
      <th class="num">Rate</th>
      <th class="num">Discount</th>
      <th class="num">Amount</th>
    </tr>
  </thead>
  <tbody>
  {{- range .Lines}}
    <tr>
      <td><div class="line-label">{{text .Label}}</div>{{with .Description}}<div class="line-description">{{freetext .}}</div>{{end}}</td>
      <td class="num">{{.Hours}}</td>
      <td class="num">{{.Rate}}</td>
      <td class="num">{{.Discount}}</td>
      <td class="num">{{.Amount}}</td>
    </tr>
  {{- end}}
  </tbody>
</table>
<div class="totals">
  <div><span>Subtotal</span><span>{{.Subtotal}}</span></div>
  {{if .HasDiscount}}<div><span>Discount</span><span>{{.Discount}}</span></div>{{end}}
  <div class="total"><span>Total</span><span>{{.Total}}</span></div>
</div>
{{with .Doc.Invoice.Notes}}<div class="notes"><div class="label">Notes</div><div>{{freetext .}}</div></div>{{end}}
{{if .ShowPayment}}
<div class="payment">
  <div class="label">Payment Details</div>
  {{with .Doc.Payment}}
  {{if .Bank}}<div>Bank: {{text .Bank}}</div>{{end}}
  {{if .AccountName}}<div>Account Name: {{text .AccountName}}</div>{{end}}
  {{if .AccountNumber}}<div>Account Number: {{text .AccountNumber}}</div>{{end}}
  {{if .BSB}}<div>BSB: {{text .BSB}}</div>{{end}}
  {{end}}
</div>
{{end}}
</body>
</html>
`
