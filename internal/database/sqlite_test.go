package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jesses-code-adventures/billing/internal/billing"
	"github.com/jesses-code-adventures/billing/internal/config"
	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/utils"
)

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	cfg := &config.Config{
		DatabaseDriver: "sqlite3",
		DatabaseURL:    filepath.Join(t.TempDir(), "test.db"),
		InvoicePrefix:  "INV-",
	}
	if err := RunMigrations(cfg); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	db, err := NewDB(cfg)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func date(s string) time.Time {
	t, err := time.Parse(models.DateFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

type fixture struct {
	client   *models.Client
	backend  *models.WorkType
	frontend *models.WorkType
	entries  []*models.TimeEntry
}

func seed(t *testing.T, db *SQLiteDB) fixture {
	t.Helper()
	ctx := context.Background()

	client, err := db.CreateClient(ctx, &models.Client{
		Name:            "Acme",
		Type:            models.ClientTypeCompany,
		HourlyRateCents: 10000,
		DiscountPercent: decimal.NewFromInt(10),
		Email:           utils.ToPtr("ap@acme.test"),
	})
	if err != nil {
		t.Fatalf("CreateClient failed: %v", err)
	}
	backend, err := db.CreateWorkType(ctx, "backend", utils.ToPtr("Backend development"))
	if err != nil {
		t.Fatalf("CreateWorkType failed: %v", err)
	}
	frontend, err := db.CreateWorkType(ctx, "frontend", nil)
	if err != nil {
		t.Fatalf("CreateWorkType failed: %v", err)
	}

	f := fixture{client: client, backend: backend, frontend: frontend}
	for _, e := range []struct {
		wt      *models.WorkType
		minutes int64
		day     string
	}{
		{backend, 90, "2025-03-03"},
		{frontend, 30, "2025-03-04"},
		{backend, 60, "2025-04-02"},
	} {
		entry, err := db.CreateTimeEntry(ctx, &models.TimeEntry{
			ClientID:     client.ID,
			WorkTypeID:   e.wt.ID,
			MinutesSpent: e.minutes,
			WorkDate:     date(e.day),
		})
		if err != nil {
			t.Fatalf("CreateTimeEntry failed: %v", err)
		}
		f.entries = append(f.entries, entry)
	}
	return f
}

// commitMarch bills the March entries and returns the sent invoice.
func commitMarch(t *testing.T, db *SQLiteDB, f fixture) *models.Invoice {
	t.Helper()
	ctx := context.Background()
	start, end := date("2025-03-01"), date("2025-03-31")

	entries, err := db.ListUnbilledTimeEntries(ctx, f.client.ID, start, end)
	if err != nil {
		t.Fatal(err)
	}
	preview, err := billing.Calculate(f.client, start, end, entries)
	if err != nil {
		t.Fatal(err)
	}
	draft, err := billing.BuildInvoice(preview, "", end, end.AddDate(0, 0, 14))
	if err != nil {
		t.Fatal(err)
	}
	inv, err := db.CreateInvoiceAndMarkEntriesBilled(ctx, draft, preview.EntryIDs)
	if err != nil {
		t.Fatalf("CreateInvoiceAndMarkEntriesBilled failed: %v", err)
	}
	inv, err = db.UpdateInvoiceStatus(ctx, inv.ID, models.InvoiceStatusDraft, models.InvoiceStatusSent)
	if err != nil {
		t.Fatalf("UpdateInvoiceStatus failed: %v", err)
	}
	return inv
}

func TestClients(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := seed(t, db)

	got, err := db.GetClientByName(ctx, "Acme")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != f.client.ID || got.HourlyRateCents != 10000 || !got.DiscountPercent.Equal(decimal.NewFromInt(10)) {
		t.Errorf("unexpected client %+v", got)
	}
	if got.Email == nil || *got.Email != "ap@acme.test" || got.Phone != nil {
		t.Errorf("optional fields not round-tripped: %+v", got)
	}

	if _, err := db.CreateClient(ctx, &models.Client{Name: "Acme", Type: models.ClientTypeCompany}); !errors.Is(err, models.ErrValidation) {
		t.Errorf("expected validation error for duplicate client, got %v", err)
	}
	if _, err := db.GetClientByName(ctx, "Nobody"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	got.DiscountPercent = decimal.RequireFromString("12.5")
	got.City = utils.ToPtr("Melbourne")
	updated, err := db.UpdateClient(ctx, got)
	if err != nil {
		t.Fatal(err)
	}
	if !updated.DiscountPercent.Equal(decimal.RequireFromString("12.5")) || utils.FromPtr(updated.City) != "Melbourne" {
		t.Errorf("update not stored: %+v", updated)
	}
}

func TestCreateInvoiceMarksEntriesBilled(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := seed(t, db)

	inv := commitMarch(t, db, f)
	if inv.InvoiceNumber != "INV-0001" {
		t.Errorf("invoice number = %q", inv.InvoiceNumber)
	}
	if inv.SubtotalCents != 20000 || inv.DiscountCents != 2000 || inv.TotalCents != 18000 {
		t.Errorf("totals %d/%d/%d", inv.SubtotalCents, inv.DiscountCents, inv.TotalCents)
	}
	if len(inv.Lines) != 2 || inv.Lines[0].WorkTypeCode != "backend" || inv.Lines[1].WorkTypeCode != "frontend" {
		t.Fatalf("unexpected lines %+v", inv.Lines)
	}
	if utils.FromPtr(inv.Lines[0].WorkTypeDescription) != "Backend development" {
		t.Errorf("work type description not joined")
	}

	unbilled, err := db.ListUnbilledTimeEntries(ctx, f.client.ID, date("2025-03-01"), date("2025-04-30"))
	if err != nil {
		t.Fatal(err)
	}
	if len(unbilled) != 1 || unbilled[0].ID != f.entries[2].ID {
		t.Errorf("expected only the April entry unbilled, got %d", len(unbilled))
	}

	billed := true
	onInvoice, err := db.ListTimeEntries(ctx, TimeEntryFilter{InvoiceID: inv.ID, Billed: &billed})
	if err != nil {
		t.Fatal(err)
	}
	if len(onInvoice) != 2 {
		t.Fatalf("expected 2 billed entries, got %d", len(onInvoice))
	}
	for _, e := range onInvoice {
		if e.InvoiceDate == nil || !e.InvoiceDate.Equal(date("2025-03-31")) {
			t.Errorf("entry %s invoice date %v", e.ID, e.InvoiceDate)
		}
	}

	if err := db.DeleteTimeEntry(ctx, f.entries[0].ID); !errors.Is(err, models.ErrAlreadyBilled) {
		t.Errorf("expected ErrAlreadyBilled, got %v", err)
	}
}

func TestCreateInvoiceIsAtomic(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := seed(t, db)
	first := commitMarch(t, db, f)

	start, end := date("2025-03-01"), date("2025-04-30")
	stale := []*models.TimeEntry{f.entries[0], f.entries[2]}
	stale[0].InvoiceID = nil
	preview, err := billing.Calculate(f.client, start, end, stale)
	if err != nil {
		t.Fatal(err)
	}
	draft, err := billing.BuildInvoice(preview, "", end, end)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateInvoiceAndMarkEntriesBilled(ctx, draft, preview.EntryIDs); !errors.Is(err, models.ErrAlreadyBilled) {
		t.Fatalf("expected ErrAlreadyBilled, got %v", err)
	}

	invoices, err := db.ListInvoices(ctx, InvoiceFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(invoices) != 1 || invoices[0].ID != first.ID {
		t.Errorf("failed commit left %d invoices behind", len(invoices))
	}
	april, err := db.GetTimeEntry(ctx, f.entries[2].ID)
	if err != nil {
		t.Fatal(err)
	}
	if april.Billed() {
		t.Error("failed commit marked an entry billed")
	}

	if _, err := db.CreateInvoiceAndMarkEntriesBilled(ctx, draft, nil); !errors.Is(err, models.ErrEmptySelection) {
		t.Errorf("expected ErrEmptySelection, got %v", err)
	}
}

func TestInvoiceStatusTransitions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	inv := commitMarch(t, db, seed(t, db))

	if _, err := db.UpdateInvoiceStatus(ctx, inv.ID, models.InvoiceStatusDraft, models.InvoiceStatusSent); !errors.Is(err, models.ErrInvalidStatusTransition) {
		t.Errorf("expected ErrInvalidStatusTransition, got %v", err)
	}
	back, err := db.UpdateInvoiceStatus(ctx, inv.ID, models.InvoiceStatusSent, models.InvoiceStatusDraft)
	if err != nil {
		t.Fatal(err)
	}
	if back.Status != models.InvoiceStatusDraft {
		t.Errorf("status = %s", back.Status)
	}
	if _, err := db.UpdateInvoiceStatus(ctx, "missing", models.InvoiceStatusDraft, models.InvoiceStatusSent); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	line, err := db.UpdateInvoiceLineDescription(ctx, inv.Lines[1].ID, utils.ToPtr("Login  page"))
	if err != nil {
		t.Fatal(err)
	}
	if utils.FromPtr(line.Description) != "Login  page" || line.AmountCents != inv.Lines[1].AmountCents {
		t.Errorf("unexpected line after description edit %+v", line)
	}
}

func TestPaymentsApplyAndRecomputeStatus(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := seed(t, db)
	inv := commitMarch(t, db, f)

	payment, err := db.CreatePayment(ctx, &models.Payment{
		PaymentDate:  date("2025-04-10"),
		AmountCents:  25000,
		Applications: []*models.PaymentApplication{{InvoiceID: inv.ID, AmountCents: 8000}},
	})
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}
	if payment.AppliedCents() != 8000 || payment.UnappliedCents() != 17000 {
		t.Errorf("applied=%d unapplied=%d", payment.AppliedCents(), payment.UnappliedCents())
	}
	got, _ := db.GetInvoice(ctx, inv.ID)
	if got.Status != models.InvoiceStatusPartiallyPaid || got.BalanceCents() != 10000 {
		t.Errorf("after partial payment status=%s balance=%d", got.Status, got.BalanceCents())
	}

	if _, err := db.ApplyPayment(ctx, payment.ID, inv.ID, 10001); !errors.Is(err, models.ErrOverApplication) {
		t.Errorf("expected ErrOverApplication past invoice total, got %v", err)
	}
	app, err := db.ApplyPayment(ctx, payment.ID, inv.ID, 10000)
	if err != nil {
		t.Fatal(err)
	}
	if app.InvoiceNumber != inv.InvoiceNumber || app.InvoiceClientID != f.client.ID {
		t.Errorf("application not joined to invoice: %+v", app)
	}
	got, _ = db.GetInvoice(ctx, inv.ID)
	if got.Status != models.InvoiceStatusPaid {
		t.Errorf("expected paid, got %s", got.Status)
	}

	if err := db.DeletePayment(ctx, payment.ID); err != nil {
		t.Fatal(err)
	}
	got, _ = db.GetInvoice(ctx, inv.ID)
	if got.Status != models.InvoiceStatusSent || got.AppliedCents != 0 {
		t.Errorf("after deleting payment status=%s applied=%d", got.Status, got.AppliedCents)
	}
}

func TestPaymentOverApplicationAgainstPayment(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	inv := commitMarch(t, db, seed(t, db))

	_, err := db.CreatePayment(ctx, &models.Payment{
		PaymentDate:  date("2025-04-10"),
		AmountCents:  5000,
		Applications: []*models.PaymentApplication{{InvoiceID: inv.ID, AmountCents: 6000}},
	})
	if !errors.Is(err, models.ErrOverApplication) {
		t.Fatalf("expected ErrOverApplication, got %v", err)
	}
	payments, err := db.ListPayments(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(payments) != 0 {
		t.Error("rejected payment was stored")
	}
}

func TestPaymentRejectedForDraftInvoice(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	inv := commitMarch(t, db, seed(t, db))
	if _, err := db.UpdateInvoiceStatus(ctx, inv.ID, models.InvoiceStatusSent, models.InvoiceStatusDraft); err != nil {
		t.Fatal(err)
	}
	p, err := db.CreatePayment(ctx, &models.Payment{PaymentDate: date("2025-04-10"), AmountCents: 1000})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.ApplyPayment(ctx, p.ID, inv.ID, 500); !errors.Is(err, models.ErrInvalidStatusTransition) {
		t.Errorf("expected ErrInvalidStatusTransition, got %v", err)
	}
}

func TestListPaymentsByClient(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	inv := commitMarch(t, db, seed(t, db))

	other, err := db.CreateClient(ctx, &models.Client{Name: "Globex", Type: models.ClientTypeIndividual})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreatePayment(ctx, &models.Payment{
		PaymentDate:  date("2025-04-01"),
		AmountCents:  1000,
		Applications: []*models.PaymentApplication{{InvoiceID: inv.ID, AmountCents: 1000}},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreatePayment(ctx, &models.Payment{PaymentDate: date("2025-04-02"), AmountCents: 700}); err != nil {
		t.Fatal(err)
	}

	all, err := db.ListPayments(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 payments, got %d", len(all))
	}
	mine, err := db.ListPayments(ctx, inv.ClientID)
	if err != nil {
		t.Fatal(err)
	}
	if len(mine) != 1 || len(mine[0].Applications) != 1 {
		t.Errorf("expected one applied payment for client, got %+v", mine)
	}
	theirs, err := db.ListPayments(ctx, other.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(theirs) != 0 {
		t.Errorf("expected no payments for other client, got %d", len(theirs))
	}
}

func TestDeleteAndVoidReleaseEntries(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	f := seed(t, db)
	inv := commitMarch(t, db, f)

	p, err := db.CreatePayment(ctx, &models.Payment{
		PaymentDate:  date("2025-04-10"),
		AmountCents:  1000,
		Applications: []*models.PaymentApplication{{InvoiceID: inv.ID, AmountCents: 1000}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteInvoice(ctx, inv.ID); !errors.Is(err, models.ErrInvalidStatusTransition) {
		t.Fatalf("expected delete to be refused with payments applied, got %v", err)
	}

	voided, err := db.VoidInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if voided.Status != models.InvoiceStatusVoided || voided.AppliedCents != 0 {
		t.Errorf("void left status=%s applied=%d", voided.Status, voided.AppliedCents)
	}
	p, _ = db.GetPayment(ctx, p.ID)
	if p.UnappliedCents() != 1000 {
		t.Errorf("voiding should return the application to the payment, unapplied=%d", p.UnappliedCents())
	}
	if _, err := db.VoidInvoice(ctx, inv.ID); !errors.Is(err, models.ErrInvalidStatusTransition) {
		t.Errorf("expected voiding twice to fail, got %v", err)
	}

	unbilled, err := db.ListUnbilledTimeEntries(ctx, f.client.ID, date("2025-03-01"), date("2025-03-31"))
	if err != nil {
		t.Fatal(err)
	}
	if len(unbilled) != 2 {
		t.Errorf("expected voided invoice entries released, got %d unbilled", len(unbilled))
	}

	second := commitMarch(t, db, f)
	if second.InvoiceNumber != "INV-0002" {
		t.Errorf("expected next sequence number, got %s", second.InvoiceNumber)
	}
	if err := db.DeleteInvoice(ctx, second.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetInvoice(ctx, second.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected deleted invoice to be gone, got %v", err)
	}
	unbilled, _ = db.ListUnbilledTimeEntries(ctx, f.client.ID, date("2025-03-01"), date("2025-03-31"))
	if len(unbilled) != 2 {
		t.Errorf("expected deleted invoice entries released, got %d unbilled", len(unbilled))
	}
}

func TestExpenses(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, e := range []*models.Expense{
		{Vendor: "Officeworks", Item: "Paper", PriceCents: 1250, Quantity: 2, ExpenseDate: date("2025-03-01")},
		{Vendor: "Officeworks", Item: "Paper", PriceCents: 1250, Quantity: 1, ExpenseDate: date("2025-03-05"), IsRefund: true},
		{Vendor: "AWS", Item: "Hosting", PriceCents: 4000, Quantity: 1, ExpenseDate: date("2025-04-01")},
	} {
		if _, err := db.CreateExpense(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	from, to := date("2025-03-01"), date("2025-03-31")
	march, err := db.ListExpenses(ctx, ExpenseFilter{From: &from, To: &to})
	if err != nil {
		t.Fatal(err)
	}
	if len(march) != 2 {
		t.Fatalf("expected 2 March expenses, got %d", len(march))
	}
	var net int64
	for _, e := range march {
		net += e.NetCents()
	}
	if net != 1250 || !march[1].IsRefund {
		t.Errorf("net = %d, refund flag %v", net, march[1].IsRefund)
	}

	if err := db.DeleteExpense(ctx, march[0].ID); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteExpense(ctx, march[0].ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMigrationVersion(t *testing.T) {
	cfg := &config.Config{DatabaseDriver: "sqlite3", DatabaseURL: filepath.Join(t.TempDir(), "v.db")}
	if v, _, err := MigrationVersion(cfg); err != nil || v != 0 {
		t.Fatalf("fresh database version = %d, %v", v, err)
	}
	if err := RunMigrations(cfg); err != nil {
		t.Fatal(err)
	}
	if err := RunMigrations(cfg); err != nil {
		t.Fatalf("second run should be a no-op: %v", err)
	}
	v, dirty, err := MigrationVersion(cfg)
	if err != nil || v != 1 || dirty {
		t.Fatalf("version = %d dirty=%v err=%v", v, dirty, err)
	}
}
