package database

import (
	"context"
	"time"

	"github.com/jesses-code-adventures/billing/internal/models"
)

type DB interface {
	Close() error

	CreateClient(ctx context.Context, client *models.Client) (*models.Client, error)
	GetClientByID(ctx context.Context, id string) (*models.Client, error)
	GetClientByName(ctx context.Context, name string) (*models.Client, error)
	ListClients(ctx context.Context) ([]*models.Client, error)
	UpdateClient(ctx context.Context, client *models.Client) (*models.Client, error)

	CreateWorkType(ctx context.Context, code string, description *string) (*models.WorkType, error)
	GetWorkTypeByCode(ctx context.Context, code string) (*models.WorkType, error)
	ListWorkTypes(ctx context.Context) ([]*models.WorkType, error)

	CreateTimeEntry(ctx context.Context, entry *models.TimeEntry) (*models.TimeEntry, error)
	GetTimeEntry(ctx context.Context, id string) (*models.TimeEntry, error)
	ListTimeEntries(ctx context.Context, filter TimeEntryFilter) ([]*models.TimeEntry, error)
	ListUnbilledTimeEntries(ctx context.Context, clientID string, start, end time.Time) ([]*models.TimeEntry, error)
	DeleteTimeEntry(ctx context.Context, id string) error

	// CreateInvoiceAndMarkEntriesBilled stores the invoice and its lines and marks
	// every entry in entryIDs as billed, all in one transaction. An empty
	// InvoiceNumber is assigned from the next sequence value.
	CreateInvoiceAndMarkEntriesBilled(ctx context.Context, invoice *models.Invoice, entryIDs []string) (*models.Invoice, error)
	GetInvoice(ctx context.Context, id string) (*models.Invoice, error)
	GetInvoiceByNumber(ctx context.Context, number string) (*models.Invoice, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]*models.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, id string, from, to models.InvoiceStatus) (*models.Invoice, error)
	VoidInvoice(ctx context.Context, id string) (*models.Invoice, error)
	UpdateInvoiceLineDescription(ctx context.Context, lineID string, description *string) (*models.InvoiceLine, error)
	DeleteInvoice(ctx context.Context, id string) error

	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	ApplyPayment(ctx context.Context, paymentID, invoiceID string, amountCents int64) (*models.PaymentApplication, error)
	GetPayment(ctx context.Context, id string) (*models.Payment, error)
	ListPayments(ctx context.Context, clientID string) ([]*models.Payment, error)
	DeletePayment(ctx context.Context, id string) error

	CreateExpense(ctx context.Context, expense *models.Expense) (*models.Expense, error)
	ListExpenses(ctx context.Context, filter ExpenseFilter) ([]*models.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
}

type TimeEntryFilter struct {
	ClientID  string
	From      *time.Time
	To        *time.Time
	Billed    *bool
	InvoiceID string
}

// InvoiceFilter matches every invoice when empty.
type InvoiceFilter struct {
	ClientID string
	Statuses []models.InvoiceStatus
}

type ExpenseFilter struct {
	From *time.Time
	To   *time.Time
}
