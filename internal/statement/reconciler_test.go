package statement

import (
	"errors"
	"testing"
	"time"

	"github.com/jesses-code-adventures/billing/internal/models"
)

func date(s string) time.Time {
	t, err := time.Parse(models.DateFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

func invoice(id, number string, status models.InvoiceStatus, total int64, day string) *models.Invoice {
	return &models.Invoice{
		ID:            id,
		InvoiceNumber: number,
		ClientID:      "client-1",
		InvoiceDate:   date(day),
		Status:        status,
		SubtotalCents: total,
		TotalCents:    total,
	}
}

func payment(id string, day string, apps ...*models.PaymentApplication) *models.Payment {
	p := &models.Payment{ID: id, PaymentDate: date(day)}
	for _, a := range apps {
		a.PaymentID = id
		p.AmountCents += a.AmountCents
		p.Applications = append(p.Applications, a)
	}
	return p
}

func app(id, invoiceID string, amount int64) *models.PaymentApplication {
	return &models.PaymentApplication{ID: id, InvoiceID: invoiceID, AmountCents: amount}
}

func assertChain(t *testing.T, st *models.Statement) {
	t.Helper()
	running := st.BeginningBalanceCents
	for i, tx := range st.Transactions {
		running += tx.AmountCents
		if tx.RunningBalanceCents != running {
			t.Errorf("transaction %d running balance %d, want %d", i, tx.RunningBalanceCents, running)
		}
	}
	if st.EndingBalanceCents != running {
		t.Errorf("ending balance %d, want %d", st.EndingBalanceCents, running)
	}
}

func TestReconcileScenario(t *testing.T) {
	invoices := []*models.Invoice{
		invoice("old", "INV-0001", models.InvoiceStatusSent, 50000, "2025-02-10"),
		invoice("mid", "INV-0002", models.InvoiceStatusSent, 20000, "2025-03-10"),
	}
	payments := []*models.Payment{
		payment("pay-1", "2025-03-20", app("a1", "old", 30000)),
	}

	st, err := Reconcile("client-1", date("2025-03-01"), date("2025-03-31"), invoices, payments)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if st.BeginningBalanceCents != 50000 {
		t.Errorf("beginning balance %d, want 50000", st.BeginningBalanceCents)
	}
	if len(st.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(st.Transactions))
	}
	first, second := st.Transactions[0], st.Transactions[1]
	if first.Type != models.TransactionInvoice || first.AmountCents != 20000 || first.RunningBalanceCents != 70000 {
		t.Errorf("unexpected first transaction %+v", first)
	}
	if second.Type != models.TransactionPayment || second.AmountCents != -30000 || second.RunningBalanceCents != 40000 {
		t.Errorf("unexpected second transaction %+v", second)
	}
	if st.EndingBalanceCents != 40000 {
		t.Errorf("ending balance %d, want 40000", st.EndingBalanceCents)
	}
	if st.PeriodInvoicesTotalCents != 20000 || st.PeriodPaymentsTotalCents != 30000 {
		t.Errorf("period totals invoices=%d payments=%d", st.PeriodInvoicesTotalCents, st.PeriodPaymentsTotalCents)
	}
	assertChain(t, st)
}

func TestReconcileBeginningBalanceSubtractsEarlierPayments(t *testing.T) {
	invoices := []*models.Invoice{
		invoice("a", "INV-0001", models.InvoiceStatusPartiallyPaid, 40000, "2025-01-05"),
		invoice("b", "INV-0002", models.InvoiceStatusPaid, 10000, "2025-01-20"),
	}
	payments := []*models.Payment{
		payment("p1", "2025-02-01", app("x1", "a", 15000), app("x2", "b", 10000)),
		payment("p2", "2025-03-02", app("x3", "a", 5000)),
	}

	st, err := Reconcile("client-1", date("2025-03-01"), date("2025-03-31"), invoices, payments)
	if err != nil {
		t.Fatal(err)
	}
	if st.BeginningBalanceCents != 25000 {
		t.Errorf("beginning balance %d, want 25000", st.BeginningBalanceCents)
	}
	if st.EndingBalanceCents != 20000 {
		t.Errorf("ending balance %d, want 20000", st.EndingBalanceCents)
	}
	assertChain(t, st)
}

func TestReconcileExcludesDraftVoidedAndOtherClients(t *testing.T) {
	other := invoice("other", "INV-0009", models.InvoiceStatusSent, 99999, "2025-03-05")
	other.ClientID = "client-2"

	invoices := []*models.Invoice{
		invoice("draft", "INV-0003", models.InvoiceStatusDraft, 11111, "2025-03-05"),
		invoice("void", "INV-0004", models.InvoiceStatusVoided, 22222, "2025-02-05"),
		other,
	}
	payments := []*models.Payment{
		payment("p1", "2025-03-06", app("x1", "draft", 100), app("x2", "other", 200), app("x3", "void", 300)),
	}

	st, err := Reconcile("client-1", date("2025-03-01"), date("2025-03-31"), invoices, payments)
	if err != nil {
		t.Fatal(err)
	}
	if st.BeginningBalanceCents != 0 || st.EndingBalanceCents != 0 || len(st.Transactions) != 0 {
		t.Errorf("expected empty statement, got %+v", st)
	}
}

func TestReconcileNoTransactions(t *testing.T) {
	invoices := []*models.Invoice{
		invoice("a", "INV-0001", models.InvoiceStatusSent, 12345, "2025-01-05"),
		invoice("later", "INV-0002", models.InvoiceStatusSent, 500, "2025-04-01"),
	}
	st, err := Reconcile("client-1", date("2025-03-01"), date("2025-03-31"), invoices, nil)
	if err != nil {
		t.Fatal(err)
	}
	if st.EndingBalanceCents != st.BeginningBalanceCents || st.EndingBalanceCents != 12345 {
		t.Errorf("expected ending == beginning == 12345, got %d/%d", st.BeginningBalanceCents, st.EndingBalanceCents)
	}
	if st.Transactions == nil {
		t.Error("transactions should be an empty slice")
	}
}

func TestReconcileSameDayTieBreak(t *testing.T) {
	invoices := []*models.Invoice{
		invoice("b", "INV-0011", models.InvoiceStatusSent, 1000, "2025-03-10"),
		invoice("a", "INV-0010", models.InvoiceStatusSent, 2000, "2025-03-10"),
	}
	payments := []*models.Payment{
		payment("p-1", "2025-03-10", app("x1", "a", 500)),
	}

	st, err := Reconcile("client-1", date("2025-03-01"), date("2025-03-31"), invoices, payments)
	if err != nil {
		t.Fatal(err)
	}
	got := []string{}
	for _, tx := range st.Transactions {
		got = append(got, tx.DocumentNumber)
	}
	want := []string{"INV-0010", "INV-0011", "p-1"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
	assertChain(t, st)
}

func TestReconcileRangeBoundsInclusive(t *testing.T) {
	invoices := []*models.Invoice{
		invoice("start", "INV-0001", models.InvoiceStatusSent, 100, "2025-03-01"),
		invoice("end", "INV-0002", models.InvoiceStatusSent, 200, "2025-03-31"),
	}
	st, err := Reconcile("client-1", date("2025-03-01"), date("2025-03-31"), invoices, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Transactions) != 2 || st.BeginningBalanceCents != 0 || st.EndingBalanceCents != 300 {
		t.Errorf("unexpected statement %+v", st)
	}
}

func TestReconcileInvalidRange(t *testing.T) {
	_, err := Reconcile("client-1", date("2025-03-31"), date("2025-03-01"), nil, nil)
	if !errors.Is(err, models.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}
