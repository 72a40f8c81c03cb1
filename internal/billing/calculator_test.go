package billing

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/utils"
)

func date(s string) time.Time {
	t, err := time.Parse(models.DateFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

func testClient() *models.Client {
	return &models.Client{
		ID:              "client-1",
		Name:            "acme",
		Type:            models.ClientTypeCompany,
		HourlyRateCents: 10000,
		DiscountPercent: decimal.NewFromInt(10),
	}
}

func entry(id, workType string, project *string, minutes int64, day string) *models.TimeEntry {
	return &models.TimeEntry{
		ID:           id,
		ClientID:     "client-1",
		WorkTypeID:   workType,
		ProjectName:  project,
		MinutesSpent: minutes,
		WorkDate:     date(day),
	}
}

func TestCalculateTwoWorkTypes(t *testing.T) {
	entries := []*models.TimeEntry{
		entry("e1", "backend", nil, 90, "2025-03-03"),
		entry("e2", "frontend", nil, 30, "2025-03-04"),
	}

	p, err := Calculate(testClient(), date("2025-03-01"), date("2025-03-31"), entries)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	if len(p.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(p.Lines))
	}

	backend, frontend := p.Lines[0], p.Lines[1]
	if backend.WorkTypeID != "backend" || backend.PreDiscountCents() != 15000 || backend.DiscountCents != 1500 || backend.AmountCents != 13500 {
		t.Errorf("unexpected backend line %+v", backend)
	}
	if frontend.WorkTypeID != "frontend" || frontend.PreDiscountCents() != 5000 || frontend.DiscountCents != 500 || frontend.AmountCents != 4500 {
		t.Errorf("unexpected frontend line %+v", frontend)
	}
	if p.SubtotalCents != 20000 || p.DiscountCents != 2000 || p.TotalCents != 18000 {
		t.Errorf("unexpected totals: subtotal=%d discount=%d total=%d", p.SubtotalCents, p.DiscountCents, p.TotalCents)
	}
	if p.Empty {
		t.Error("expected non-empty preview")
	}
}

func TestCalculateEmptySelection(t *testing.T) {
	p, err := Calculate(testClient(), date("2025-03-01"), date("2025-03-31"), nil)
	if err != nil {
		t.Fatalf("expected no error for empty selection, got %v", err)
	}
	if !p.Empty {
		t.Error("expected Empty to be set")
	}
	if len(p.Lines) != 0 || p.SubtotalCents != 0 || p.TotalCents != 0 {
		t.Errorf("expected zero preview, got %+v", p)
	}
	if p.Lines == nil {
		t.Error("expected lines to be an empty slice, not nil")
	}
}

func TestCalculateInvalidRange(t *testing.T) {
	_, err := Calculate(testClient(), date("2025-03-02"), date("2025-03-01"), nil)
	if !errors.Is(err, models.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestCalculateUnknownClient(t *testing.T) {
	_, err := Calculate(nil, date("2025-03-01"), date("2025-03-02"), nil)
	if !errors.Is(err, models.ErrUnknownClient) || !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrUnknownClient, got %v", err)
	}
}

func TestCalculateSkipsBilledAndOutOfRange(t *testing.T) {
	billed := entry("e-billed", "backend", nil, 600, "2025-03-05")
	billed.InvoiceID = utils.ToPtr("invoice-a")

	other := entry("e-other", "backend", nil, 600, "2025-03-05")
	other.ClientID = "client-2"

	entries := []*models.TimeEntry{
		billed,
		other,
		entry("e-before", "backend", nil, 600, "2025-02-28"),
		entry("e-after", "backend", nil, 600, "2025-04-01"),
		entry("e-first-day", "backend", nil, 60, "2025-03-01"),
		entry("e-last-day", "backend", nil, 60, "2025-03-31"),
	}

	p, err := Calculate(testClient(), date("2025-03-01"), date("2025-03-31"), entries)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}
	if !reflect.DeepEqual(p.EntryIDs, []string{"e-first-day", "e-last-day"}) {
		t.Errorf("unexpected entry ids %v", p.EntryIDs)
	}
	if len(p.Lines) != 1 || p.Lines[0].TotalMinutes != 120 {
		t.Errorf("unexpected lines %+v", p.Lines)
	}
}

func TestCalculateGroupingInvariants(t *testing.T) {
	alpha, beta := utils.ToPtr("alpha"), utils.ToPtr("beta")
	entries := []*models.TimeEntry{
		entry("e5", "design", beta, 15, "2025-03-02"),
		entry("e1", "backend", beta, 45, "2025-03-01"),
		entry("e2", "backend", nil, 30, "2025-03-01"),
		entry("e3", "backend", alpha, 20, "2025-03-03"),
		entry("e4", "design", nil, 10, "2025-03-04"),
		entry("e6", "backend", beta, 5, "2025-03-05"),
	}

	p, err := Calculate(testClient(), date("2025-03-01"), date("2025-03-31"), entries)
	if err != nil {
		t.Fatalf("Calculate failed: %v", err)
	}

	type key struct{ workType, project string }
	var got []key
	var minutes int64
	for _, l := range p.Lines {
		got = append(got, key{l.WorkTypeID, utils.FromPtr(l.ProjectName)})
		minutes += l.TotalMinutes
	}
	want := []key{
		{"backend", ""},
		{"backend", "alpha"},
		{"backend", "beta"},
		{"design", ""},
		{"design", "beta"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected line order:\n got %v\nwant %v", got, want)
	}
	if minutes != 125 {
		t.Errorf("expected 125 total minutes, got %d", minutes)
	}
	if p.Lines[2].TotalMinutes != 50 {
		t.Errorf("expected backend/beta to sum to 50, got %d", p.Lines[2].TotalMinutes)
	}

	seen := make(map[string]bool)
	for _, id := range p.EntryIDs {
		if seen[id] {
			t.Errorf("entry %s appears twice", id)
		}
		seen[id] = true
	}
	if len(seen) != len(entries) {
		t.Errorf("expected %d entries selected, got %d", len(entries), len(seen))
	}

	var lineSum int64
	for _, l := range p.Lines {
		lineSum += l.AmountCents
	}
	if lineSum != p.TotalCents {
		t.Errorf("line amounts %d != total %d", lineSum, p.TotalCents)
	}
	if p.TotalCents != p.SubtotalCents-p.DiscountCents {
		t.Error("total != subtotal - discount")
	}
}

func TestCalculateIsDeterministic(t *testing.T) {
	entries := []*models.TimeEntry{
		entry("e3", "design", nil, 15, "2025-03-02"),
		entry("e1", "backend", utils.ToPtr("x"), 45, "2025-03-01"),
		entry("e2", "backend", nil, 30, "2025-03-01"),
	}
	reversed := []*models.TimeEntry{entries[2], entries[1], entries[0]}

	first, err := Calculate(testClient(), date("2025-03-01"), date("2025-03-31"), entries)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Calculate(testClient(), date("2025-03-01"), date("2025-03-31"), reversed)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("previews differ:\n%+v\n%+v", first, second)
	}
}

func TestBuildInvoice(t *testing.T) {
	entries := []*models.TimeEntry{
		entry("e1", "backend", nil, 90, "2025-03-03"),
		entry("e2", "frontend", nil, 30, "2025-03-04"),
	}
	p, err := Calculate(testClient(), date("2025-03-01"), date("2025-03-31"), entries)
	if err != nil {
		t.Fatal(err)
	}

	inv, err := BuildInvoice(p, "INV-0001", date("2025-04-01"), date("2025-04-15"))
	if err != nil {
		t.Fatalf("BuildInvoice failed: %v", err)
	}
	if inv.Status != models.InvoiceStatusDraft {
		t.Errorf("expected draft, got %s", inv.Status)
	}
	if inv.TotalCents != 18000 || inv.SubtotalCents != 20000 || inv.DiscountCents != 2000 {
		t.Errorf("unexpected totals %+v", inv)
	}
	for _, l := range inv.Lines {
		if l.InvoiceID != inv.ID || l.ID == "" {
			t.Errorf("line not attached to invoice: %+v", l)
		}
	}
	if p.Lines[0].ID != "" {
		t.Error("preview lines must not be mutated")
	}

	MarkBilled(entries, p.EntryIDs, inv.ID, inv.InvoiceDate)
	for _, e := range entries {
		if !e.Billed() || *e.InvoiceID != inv.ID {
			t.Errorf("entry %s not marked billed", e.ID)
		}
	}

	again, err := Calculate(testClient(), date("2025-03-01"), date("2025-03-31"), entries)
	if err != nil {
		t.Fatal(err)
	}
	if !again.Empty {
		t.Error("billed entries must not be billed twice")
	}
}

func TestBuildInvoiceRejectsEmpty(t *testing.T) {
	p, err := Calculate(testClient(), date("2025-03-01"), date("2025-03-31"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := BuildInvoice(p, "INV-0001", date("2025-04-01"), date("2025-04-15")); !errors.Is(err, models.ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
}

func TestCalculateSnapshotsRate(t *testing.T) {
	c := testClient()
	p, err := Calculate(c, date("2025-03-01"), date("2025-03-31"), []*models.TimeEntry{entry("e1", "backend", nil, 60, "2025-03-03")})
	if err != nil {
		t.Fatal(err)
	}
	c.HourlyRateCents = 50000
	if p.Lines[0].HourlyRateCents != 10000 || p.Lines[0].AmountCents != 9000 {
		t.Errorf("line should keep the rate at calculation time, got %+v", p.Lines[0])
	}
}
