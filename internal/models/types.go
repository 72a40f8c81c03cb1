package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DateFormat = "2006-01-02"

type ClientType string

const (
	ClientTypeCompany    ClientType = "company"
	ClientTypeIndividual ClientType = "individual"
)

func (t ClientType) Valid() bool {
	return t == ClientTypeCompany || t == ClientTypeIndividual
}

type Client struct {
	ID              string          `json:"id" db:"id"`
	Name            string          `json:"name" db:"name"`
	Email           *string         `json:"email,omitempty" db:"email"`
	Type            ClientType      `json:"type" db:"type"`
	HourlyRateCents int64           `json:"hourly_rate_cents" db:"hourly_rate_cents"`
	DiscountPercent decimal.Decimal `json:"discount_percent" db:"discount_percent"`
	CompanyName     *string         `json:"company_name,omitempty" db:"company_name"`
	ContactName     *string         `json:"contact_name,omitempty" db:"contact_name"`
	Phone           *string         `json:"phone,omitempty" db:"phone"`
	AddressLine1    *string         `json:"address_line1,omitempty" db:"address_line1"`
	AddressLine2    *string         `json:"address_line2,omitempty" db:"address_line2"`
	City            *string         `json:"city,omitempty" db:"city"`
	State           *string         `json:"state,omitempty" db:"state"`
	PostalCode      *string         `json:"postal_code,omitempty" db:"postal_code"`
	Country         *string         `json:"country,omitempty" db:"country"`
	TaxNumber       *string         `json:"tax_number,omitempty" db:"tax_number"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

type WorkType struct {
	ID          string    `json:"id" db:"id"`
	Code        string    `json:"code" db:"code"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// TimeEntry is unbilled while InvoiceID is nil. It is billed at most once.
type TimeEntry struct {
	ID           string     `json:"id" db:"id"`
	ClientID     string     `json:"client_id" db:"client_id"`
	WorkTypeID   string     `json:"work_type_id" db:"work_type_id"`
	ProjectName  *string    `json:"project_name,omitempty" db:"project_name"`
	MinutesSpent int64      `json:"minutes_spent" db:"minutes_spent"`
	WorkDate     time.Time  `json:"work_date" db:"work_date"`
	Note         *string    `json:"note,omitempty" db:"note"`
	InvoiceID    *string    `json:"invoice_id,omitempty" db:"invoice_id"`
	InvoiceDate  *time.Time `json:"invoice_date,omitempty" db:"invoice_date"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`

	ClientName   string `json:"client_name,omitempty" db:"client_name"`
	WorkTypeCode string `json:"work_type_code,omitempty" db:"work_type_code"`
}

func (e *TimeEntry) Billed() bool {
	return e.InvoiceID != nil
}

type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusSent          InvoiceStatus = "sent"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusVoided        InvoiceStatus = "voided"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPartiallyPaid, InvoiceStatusPaid, InvoiceStatusVoided:
		return true
	}
	return false
}

// Obligation reports whether an invoice in this status is owed by the client.
func (s InvoiceStatus) Obligation() bool {
	return s != InvoiceStatusDraft && s != InvoiceStatusVoided
}

type Invoice struct {
	ID              string          `json:"id" db:"id"`
	InvoiceNumber   string          `json:"invoice_number" db:"invoice_number"`
	ClientID        string          `json:"client_id" db:"client_id"`
	InvoiceDate     time.Time       `json:"invoice_date" db:"invoice_date"`
	DueDate         time.Time       `json:"due_date" db:"due_date"`
	PeriodStart     *time.Time      `json:"period_start,omitempty" db:"period_start"`
	PeriodEnd       *time.Time      `json:"period_end,omitempty" db:"period_end"`
	Status          InvoiceStatus   `json:"status" db:"status"`
	DiscountPercent decimal.Decimal `json:"discount_percent" db:"discount_percent"`
	SubtotalCents   int64           `json:"subtotal_cents" db:"subtotal_cents"`
	DiscountCents   int64           `json:"discount_cents" db:"discount_cents"`
	TotalCents      int64           `json:"total_cents" db:"total_cents"`
	Notes           *string         `json:"notes,omitempty" db:"notes"`
	Lines           []*InvoiceLine  `json:"lines"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`

	ClientName   string `json:"client_name,omitempty" db:"client_name"`
	AppliedCents int64  `json:"applied_cents" db:"applied_cents"`
}

// BalanceCents is the part of the total not yet covered by payment applications.
func (i *Invoice) BalanceCents() int64 {
	return i.TotalCents - i.AppliedCents
}

// InvoiceLine stores the discount and the post-discount amount separately, so the
// pre-discount amount is AmountCents + DiscountCents.
type InvoiceLine struct {
	ID              string  `json:"id" db:"id"`
	InvoiceID       string  `json:"invoice_id" db:"invoice_id"`
	Position        int     `json:"position" db:"position"`
	WorkTypeID      string  `json:"work_type_id" db:"work_type_id"`
	ProjectName     *string `json:"project_name,omitempty" db:"project_name"`
	TotalMinutes    int64   `json:"total_minutes" db:"total_minutes"`
	HourlyRateCents int64   `json:"hourly_rate_cents" db:"hourly_rate_cents"`
	DiscountCents   int64   `json:"discount_cents" db:"discount_cents"`
	AmountCents     int64   `json:"amount_cents" db:"amount_cents"`
	Description     *string `json:"description,omitempty" db:"description"`

	WorkTypeCode        string  `json:"work_type_code,omitempty" db:"work_type_code"`
	WorkTypeDescription *string `json:"work_type_description,omitempty" db:"work_type_description"`
}

func (l *InvoiceLine) PreDiscountCents() int64 {
	return l.AmountCents + l.DiscountCents
}

type Payment struct {
	ID           string                `json:"id" db:"id"`
	PaymentDate  time.Time             `json:"payment_date" db:"payment_date"`
	AmountCents  int64                 `json:"amount_cents" db:"amount_cents"`
	Note         *string               `json:"note,omitempty" db:"note"`
	Applications []*PaymentApplication `json:"applications"`
	CreatedAt    time.Time             `json:"created_at" db:"created_at"`
}

func (p *Payment) AppliedCents() int64 {
	var sum int64
	for _, a := range p.Applications {
		sum += a.AmountCents
	}
	return sum
}

func (p *Payment) UnappliedCents() int64 {
	return p.AmountCents - p.AppliedCents()
}

type PaymentApplication struct {
	ID          string `json:"id" db:"id"`
	PaymentID   string `json:"payment_id" db:"payment_id"`
	InvoiceID   string `json:"invoice_id" db:"invoice_id"`
	AmountCents int64  `json:"amount_cents" db:"amount_cents"`

	InvoiceNumber   string `json:"invoice_number,omitempty" db:"invoice_number"`
	InvoiceClientID string `json:"invoice_client_id,omitempty" db:"invoice_client_id"`
}

// Expense amounts are stored as magnitudes; IsRefund flips the sign of the net.
type Expense struct {
	ID          string    `json:"id" db:"id"`
	Vendor      string    `json:"vendor" db:"vendor"`
	Item        string    `json:"item" db:"item"`
	PriceCents  int64     `json:"price_cents" db:"price_cents"`
	Quantity    int64     `json:"quantity" db:"quantity"`
	ExpenseDate time.Time `json:"expense_date" db:"expense_date"`
	IsRefund    bool      `json:"is_refund" db:"is_refund"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

func (e *Expense) TotalCents() int64 {
	return e.PriceCents * e.Quantity
}

func (e *Expense) NetCents() int64 {
	total := e.TotalCents()
	if total < 0 {
		total = -total
	}
	if e.IsRefund {
		return -total
	}
	return total
}

type TransactionType string

const (
	TransactionInvoice TransactionType = "invoice"
	TransactionPayment TransactionType = "payment"
)

type Transaction struct {
	Type                TransactionType `json:"type"`
	Date                time.Time       `json:"date"`
	DocumentNumber      string          `json:"document_number"`
	Description         string          `json:"description"`
	AmountCents         int64           `json:"amount_cents"`
	RunningBalanceCents int64           `json:"running_balance_cents"`

	SourceID string `json:"source_id"`
}

type Statement struct {
	ClientID                 string         `json:"client_id"`
	ClientName               string         `json:"client_name,omitempty"`
	StartDate                time.Time      `json:"start_date"`
	EndDate                  time.Time      `json:"end_date"`
	BeginningBalanceCents    int64          `json:"beginning_balance_cents"`
	Transactions             []*Transaction `json:"transactions"`
	EndingBalanceCents       int64          `json:"ending_balance_cents"`
	PeriodInvoicesTotalCents int64          `json:"period_invoices_total_cents"`
	PeriodPaymentsTotalCents int64          `json:"period_payments_total_cents"`
}

func NewUUID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// DateOnly drops the clock and zone, keeping the calendar date as UTC midnight.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Msg: "expected YYYY-MM-DD", Err: err}
	}
	return t, nil
}
