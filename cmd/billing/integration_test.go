package main

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jesses-code-adventures/billing/internal/config"
	"github.com/jesses-code-adventures/billing/internal/database"
	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/service"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	tempDir := t.TempDir()
	cfg := &config.Config{
		DatabaseURL:      filepath.Join(tempDir, "test.db"),
		DatabaseDriver:   "sqlite3",
		InvoicePrefix:    "INV-",
		PaymentTermsDays: 14,
		PDFEngine:        config.PDFEngineGoFPDF,
		PDFTimeout:       time.Second,
		CompanyName:      "Test Consulting",
	}
	if err := database.RunMigrations(cfg); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	db, err := database.NewDB(cfg)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	today := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	svc := service.NewBillingService(db, cfg).WithClock(func() time.Time { return today })
	return &app{svc: svc}
}

// runCmd executes one command line against a fresh command tree, since cobra keeps
// flag values between executions.
func runCmd(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	var err error
	output := captureOutput(func() {
		rootCmd := newRootCmd(a)
		rootCmd.SetArgs(args)
		rootCmd.SetErr(io.Discard)
		err = rootCmd.ExecuteContext(context.Background())
	})
	return output, err
}

func mustRun(t *testing.T, a *app, want string, args ...string) string {
	t.Helper()
	output, err := runCmd(t, a, args...)
	if err != nil {
		t.Fatalf("%s failed: %v", strings.Join(args, " "), err)
	}
	if !strings.Contains(output, want) {
		t.Fatalf("Expected %q in output of %s, got: %s", want, strings.Join(args, " "), output)
	}
	return output
}

func TestIntegrationBillingCommands(t *testing.T) {
	a := newTestApp(t)
	dir := t.TempDir()

	t.Run("Clients", func(t *testing.T) {
		mustRun(t, a, "Created client 'Acme Co' at $100.00/hr",
			"clients", "create", "-n", "Acme Co", "-r", "100", "--discount", "10")
		mustRun(t, a, "Acme Co", "clients", "list")
		mustRun(t, a, "Updated client 'Acme Co'",
			"clients", "update", "-c", "Acme Co", "--email", "ap@acme.test")
	})

	t.Run("Work Types", func(t *testing.T) {
		mustRun(t, a, "Created work type 'backend'", "work-types", "create", "Backend", "-d", "Backend development")
		mustRun(t, a, "backend", "work-types", "list")
	})

	t.Run("Entries", func(t *testing.T) {
		mustRun(t, a, "Logged 1.50 hours of backend for Acme Co on 2025-03-03",
			"entries", "add", "-c", "Acme Co", "-w", "backend", "-m", "90", "--date", "2025-03-03")
		mustRun(t, a, "Logged 0.50 hours",
			"time", "add", "-c", "Acme Co", "-w", "backend", "-f", "09:00", "-t", "09:30", "--date", "2025-04-01")
		mustRun(t, a, "Total: 1.50 hours across 1 entries",
			"entries", "list", "-c", "Acme Co", "-p", "month", "-d", "2025-03-15")

		if _, err := runCmd(t, a, "entries", "add", "-c", "Acme Co", "-w", "backend", "-m", "30", "-f", "09:00", "-t", "09:30"); err == nil {
			t.Error("Expected an error when both minutes and a clock range are given")
		}

		csvPath := filepath.Join(dir, "entries.csv")
		mustRun(t, a, "Exported 2 entries", "entries", "export", "-o", csvPath)
		data, err := os.ReadFile(csvPath)
		if err != nil {
			t.Fatalf("Failed to read export: %v", err)
		}
		if !strings.HasPrefix(string(data), "ID,Date,Client") {
			t.Errorf("Unexpected CSV header: %s", data)
		}
	})

	t.Run("Invoices", func(t *testing.T) {
		mustRun(t, a, "Total:    $135.00 across 1 entries",
			"invoices", "preview", "-c", "Acme Co", "-f", "2025-03-01", "-t", "2025-03-31")
		mustRun(t, a, "Created invoice INV-0001 for Acme Co (Total: $135.00, due 2025-04-15)",
			"invoices", "create", "-c", "Acme Co", "-f", "2025-03-01", "-t", "2025-03-31", "--invoice-date", "2025-04-01")
		mustRun(t, a, "No invoices created",
			"invoices", "create", "-f", "2025-03-01", "-t", "2025-03-31")

		_, err := runCmd(t, a, "invoices", "create", "-c", "Acme Co", "-f", "2025-03-01", "-t", "2025-03-31")
		if !errors.Is(err, models.ErrEmptySelection) {
			t.Errorf("Expected ErrEmptySelection when rebilling, got %v", err)
		}

		mustRun(t, a, "Invoice INV-0001 (draft)", "invoices", "show", "INV-0001")
		mustRun(t, a, "Invoice INV-0001 is now sent", "invoices", "send", "INV-0001")
		if _, err := runCmd(t, a, "invoices", "send", "INV-0001"); !errors.Is(err, models.ErrInvalidStatusTransition) {
			t.Errorf("Expected ErrInvalidStatusTransition, got %v", err)
		}

		pdfPath := filepath.Join(dir, "invoice.pdf")
		mustRun(t, a, "Generated invoice: "+pdfPath, "invoices", "pdf", "INV-0001", "-o", pdfPath)
		data, err := os.ReadFile(pdfPath)
		if err != nil {
			t.Fatalf("Failed to read PDF: %v", err)
		}
		if !strings.HasPrefix(string(data), "%PDF") {
			t.Error("Expected a PDF file")
		}

		htmlPath := filepath.Join(dir, "invoice.html")
		mustRun(t, a, "Generated invoice", "invoices", "html", "INV-0001", "-o", htmlPath)

		if _, err := runCmd(t, a, "invoices", "show", "INV-9999"); !errors.Is(err, models.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for unknown invoice, got %v", err)
		}
	})

	t.Run("Payments And Statement", func(t *testing.T) {
		mustRun(t, a, "Recorded payment of $100.00 on 2025-04-10",
			"payments", "add", "--amount", "100", "--date", "2025-04-10", "--apply", "INV-0001:100")
		mustRun(t, a, "partially_paid", "invoices", "list", "-c", "Acme Co")

		if _, err := runCmd(t, a, "payments", "add", "--amount", "50", "--apply", "INV-0001:50"); !errors.Is(err, models.ErrOverApplication) {
			t.Errorf("Expected ErrOverApplication, got %v", err)
		}

		out := mustRun(t, a, "Closing balance: $35.00",
			"statement", "-c", "Acme Co", "-f", "2025-03-01", "-t", "2025-04-30")
		if !strings.Contains(out, "INV-0001") {
			t.Errorf("Expected the invoice on the statement, got: %s", out)
		}
	})

	t.Run("Expenses And Dashboard", func(t *testing.T) {
		mustRun(t, a, "Added expense Hosting from Cloud Co: $20.00",
			"expenses", "add", "-v", "Cloud Co", "-i", "Hosting", "-p", "20", "-d", "2025-03-20")
		mustRun(t, a, "Total: $20.00", "expenses", "list")
		mustRun(t, a, "$135.00  (1 invoices)", "dashboard", "--basis", "cash")

		if _, err := runCmd(t, a, "dashboard", "--basis", "barter"); !errors.Is(err, models.ErrValidation) {
			t.Errorf("Expected ErrValidation for unknown basis, got %v", err)
		}
	})
}

func captureOutput(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = old

	var buf strings.Builder
	io.Copy(&buf, r)
	return buf.String()
}
