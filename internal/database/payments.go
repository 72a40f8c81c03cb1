package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jesses-code-adventures/billing/internal/models"
)

const paymentApplicationSelect = `SELECT pa.id, pa.payment_id, pa.invoice_id, pa.amount_cents,
	i.invoice_number, i.client_id
	FROM payment_applications pa
	JOIN invoices i ON i.id = pa.invoice_id`

func scanPayment(row rowScanner) (*models.Payment, error) {
	var (
		p                    models.Payment
		note                 sql.NullString
		paymentDate, created string
	)
	if err := row.Scan(&p.ID, &paymentDate, &p.AmountCents, &note, &created); err != nil {
		return nil, err
	}
	p.Note = nullStringToPtr(note)
	p.Applications = []*models.PaymentApplication{}
	var err error
	if p.PaymentDate, err = parseDate(paymentDate); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTimestamp(created); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPaymentApplication(row rowScanner) (*models.PaymentApplication, error) {
	var a models.PaymentApplication
	if err := row.Scan(&a.ID, &a.PaymentID, &a.InvoiceID, &a.AmountCents, &a.InvoiceNumber, &a.InvoiceClientID); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreatePayment stores the payment and any applications it carries in one
// transaction. Each application is validated as by ApplyPayment.
func (s *SQLiteDB) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if payment.AmountCents <= 0 {
		return nil, &models.ValidationError{Field: "amount", Msg: "must be greater than zero"}
	}
	id := models.NewUUID()
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO payments (id, payment_date, amount_cents, note, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			id, formatDate(payment.PaymentDate), payment.AmountCents, ptrToNullString(payment.Note), now())
		if err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}
		for _, app := range payment.Applications {
			if _, err := applyPayment(ctx, tx, id, app.InvoiceID, app.AmountCents); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetPayment(ctx, id)
}

// ApplyPayment allocates part of a payment to an invoice. The application is
// rejected with ErrOverApplication if it would take the payment's applications
// past the payment amount or the invoice's applications past its total.
func (s *SQLiteDB) ApplyPayment(ctx context.Context, paymentID, invoiceID string, amountCents int64) (*models.PaymentApplication, error) {
	var appID string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		id, err := applyPayment(ctx, tx, paymentID, invoiceID, amountCents)
		appID = id
		return err
	})
	if err != nil {
		return nil, err
	}
	a, err := scanPaymentApplication(s.conn.QueryRowContext(ctx, paymentApplicationSelect+` WHERE pa.id = ?`, appID))
	if err != nil {
		return nil, notFound("payment application", appID, err)
	}
	return a, nil
}

func applyPayment(ctx context.Context, tx *sql.Tx, paymentID, invoiceID string, amountCents int64) (string, error) {
	if amountCents <= 0 {
		return "", &models.ValidationError{Field: "amount", Msg: "application must be greater than zero"}
	}

	var paymentAmount, paymentApplied int64
	err := tx.QueryRowContext(ctx, `SELECT p.amount_cents,
		COALESCE((SELECT SUM(amount_cents) FROM payment_applications WHERE payment_id = p.id), 0)
		FROM payments p WHERE p.id = ?`, paymentID).Scan(&paymentAmount, &paymentApplied)
	if err != nil {
		return "", notFound("payment", paymentID, err)
	}

	var (
		status                       string
		invoiceTotal, invoiceApplied int64
	)
	err = tx.QueryRowContext(ctx, `SELECT i.status, i.total_cents,
		COALESCE((SELECT SUM(amount_cents) FROM payment_applications WHERE invoice_id = i.id), 0)
		FROM invoices i WHERE i.id = ?`, invoiceID).Scan(&status, &invoiceTotal, &invoiceApplied)
	if err != nil {
		return "", notFound("invoice", invoiceID, err)
	}
	if !models.InvoiceStatus(status).Obligation() {
		return "", fmt.Errorf("%w: cannot apply a payment to a %s invoice", models.ErrInvalidStatusTransition, status)
	}

	if paymentApplied+amountCents > paymentAmount {
		return "", fmt.Errorf("%w: payment has %d cents unapplied, %d requested",
			models.ErrOverApplication, paymentAmount-paymentApplied, amountCents)
	}
	if invoiceApplied+amountCents > invoiceTotal {
		return "", fmt.Errorf("%w: invoice has %d cents outstanding, %d requested",
			models.ErrOverApplication, invoiceTotal-invoiceApplied, amountCents)
	}

	id := models.NewUUID()
	if _, err := tx.ExecContext(ctx, `INSERT INTO payment_applications (id, payment_id, invoice_id, amount_cents, created_at)
		VALUES (?, ?, ?, ?, ?)`, id, paymentID, invoiceID, amountCents, now()); err != nil {
		return "", fmt.Errorf("failed to insert payment application: %w", err)
	}
	if err := refreshPaymentStatus(ctx, tx, invoiceID); err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLiteDB) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	p, err := scanPayment(s.conn.QueryRowContext(ctx,
		`SELECT id, payment_date, amount_cents, note, created_at FROM payments WHERE id = ?`, id))
	if err != nil {
		return nil, notFound("payment", id, err)
	}
	rows, err := s.conn.QueryContext(ctx, paymentApplicationSelect+` WHERE pa.payment_id = ? ORDER BY pa.created_at, pa.id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment applications: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanPaymentApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment application: %w", err)
		}
		p.Applications = append(p.Applications, a)
	}
	return p, rows.Err()
}

// ListPayments returns payments with their applications, oldest first. When
// clientID is set, only payments applied to that client's invoices are returned,
// and only the applications against that client's invoices are attached.
func (s *SQLiteDB) ListPayments(ctx context.Context, clientID string) ([]*models.Payment, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT p.id, p.payment_date, p.amount_cents, p.note, p.created_at
		FROM payments p
		WHERE ? = '' OR EXISTS (
			SELECT 1 FROM payment_applications pa JOIN invoices i ON i.id = pa.invoice_id
			WHERE pa.payment_id = p.id AND i.client_id = ?)
		ORDER BY p.payment_date, p.id`, clientID, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	result := []*models.Payment{}
	byID := map[string]*models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		result = append(result, p)
		byID[p.ID] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	appRows, err := s.conn.QueryContext(ctx, paymentApplicationSelect+`
		WHERE ? = '' OR i.client_id = ?
		ORDER BY pa.created_at, pa.id`, clientID, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment applications: %w", err)
	}
	defer appRows.Close()
	for appRows.Next() {
		a, err := scanPaymentApplication(appRows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment application: %w", err)
		}
		if p, ok := byID[a.PaymentID]; ok {
			p.Applications = append(p.Applications, a)
		}
	}
	return result, appRows.Err()
}

// DeletePayment removes a payment and its applications, then recomputes the
// status of every invoice it had been applied to.
func (s *SQLiteDB) DeletePayment(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT 1 FROM payments WHERE id = ?`, id).Scan(&exists); err != nil {
			return notFound("payment", id, err)
		}

		rows, err := tx.QueryContext(ctx, `SELECT DISTINCT invoice_id FROM payment_applications WHERE payment_id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to list applied invoices: %w", err)
		}
		var invoiceIDs []string
		for rows.Next() {
			var invoiceID string
			if err := rows.Scan(&invoiceID); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan applied invoice: %w", err)
			}
			invoiceIDs = append(invoiceIDs, invoiceID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to list applied invoices: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM payment_applications WHERE payment_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete payment applications: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete payment: %w", err)
		}
		for _, invoiceID := range invoiceIDs {
			if err := refreshPaymentStatus(ctx, tx, invoiceID); err != nil {
				return err
			}
		}
		return nil
	})
}

const expenseColumns = `id, vendor, item, price_cents, quantity, expense_date, is_refund, created_at`

func scanExpense(row rowScanner) (*models.Expense, error) {
	var (
		e                    models.Expense
		expenseDate, created string
	)
	if err := row.Scan(&e.ID, &e.Vendor, &e.Item, &e.PriceCents, &e.Quantity, &expenseDate, &e.IsRefund, &created); err != nil {
		return nil, err
	}
	var err error
	if e.ExpenseDate, err = parseDate(expenseDate); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = parseTimestamp(created); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SQLiteDB) CreateExpense(ctx context.Context, expense *models.Expense) (*models.Expense, error) {
	id := models.NewUUID()
	_, err := s.conn.ExecContext(ctx, `INSERT INTO expenses (`+expenseColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, expense.Vendor, expense.Item, expense.PriceCents, expense.Quantity,
		formatDate(expense.ExpenseDate), expense.IsRefund, now())
	if err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}
	e, err := scanExpense(s.conn.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id))
	if err != nil {
		return nil, notFound("expense", id, err)
	}
	return e, nil
}

func (s *SQLiteDB) ListExpenses(ctx context.Context, filter ExpenseFilter) ([]*models.Expense, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+expenseColumns+` FROM expenses
		WHERE (? IS NULL OR expense_date >= ?)
		AND (? IS NULL OR expense_date <= ?)
		ORDER BY expense_date, id`,
		dateArg(filter.From), dateArg(filter.From), dateArg(filter.To), dateArg(filter.To))
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	result := []*models.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *SQLiteDB) DeleteExpense(ctx context.Context, id string) error {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM expenses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("expense %q: %w", id, models.ErrNotFound)
	}
	return nil
}
