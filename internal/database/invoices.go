package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jesses-code-adventures/billing/internal/models"
)

const invoiceSelect = `SELECT i.id, i.invoice_number, i.client_id, i.invoice_date, i.due_date,
	i.period_start, i.period_end, i.status, i.discount_percent, i.subtotal_cents,
	i.discount_cents, i.total_cents, i.notes, i.created_at, i.updated_at, c.name,
	COALESCE((SELECT SUM(pa.amount_cents) FROM payment_applications pa WHERE pa.invoice_id = i.id), 0)
	FROM invoices i
	JOIN clients c ON c.id = i.client_id`

const invoiceLineSelect = `SELECT l.id, l.invoice_id, l.position, l.work_type_id, l.project_name,
	l.total_minutes, l.hourly_rate_cents, l.discount_cents, l.amount_cents, l.description,
	wt.code, wt.description
	FROM invoice_lines l
	JOIN work_types wt ON wt.id = l.work_type_id`

func scanInvoice(row rowScanner) (*models.Invoice, error) {
	var (
		inv                           models.Invoice
		invoiceDate, dueDate, status  string
		periodStart, periodEnd, notes sql.NullString
		created, updated              string
	)
	err := row.Scan(&inv.ID, &inv.InvoiceNumber, &inv.ClientID, &invoiceDate, &dueDate,
		&periodStart, &periodEnd, &status, &inv.DiscountPercent, &inv.SubtotalCents,
		&inv.DiscountCents, &inv.TotalCents, &notes, &created, &updated, &inv.ClientName,
		&inv.AppliedCents)
	if err != nil {
		return nil, err
	}
	inv.Status = models.InvoiceStatus(status)
	inv.Notes = nullStringToPtr(notes)
	inv.Lines = []*models.InvoiceLine{}
	if inv.InvoiceDate, err = parseDate(invoiceDate); err != nil {
		return nil, err
	}
	if inv.DueDate, err = parseDate(dueDate); err != nil {
		return nil, err
	}
	if inv.PeriodStart, err = nullDateToPtr(periodStart); err != nil {
		return nil, err
	}
	if inv.PeriodEnd, err = nullDateToPtr(periodEnd); err != nil {
		return nil, err
	}
	if inv.CreatedAt, err = parseTimestamp(created); err != nil {
		return nil, err
	}
	if inv.UpdatedAt, err = parseTimestamp(updated); err != nil {
		return nil, err
	}
	return &inv, nil
}

func scanInvoiceLine(row rowScanner) (*models.InvoiceLine, error) {
	var (
		l                    models.InvoiceLine
		project, description sql.NullString
		workTypeDescription  sql.NullString
	)
	err := row.Scan(&l.ID, &l.InvoiceID, &l.Position, &l.WorkTypeID, &project,
		&l.TotalMinutes, &l.HourlyRateCents, &l.DiscountCents, &l.AmountCents, &description,
		&l.WorkTypeCode, &workTypeDescription)
	if err != nil {
		return nil, err
	}
	l.ProjectName = nullStringToPtr(project)
	l.Description = nullStringToPtr(description)
	l.WorkTypeDescription = nullStringToPtr(workTypeDescription)
	return &l, nil
}

func (s *SQLiteDB) CreateInvoiceAndMarkEntriesBilled(ctx context.Context, invoice *models.Invoice, entryIDs []string) (*models.Invoice, error) {
	if len(entryIDs) == 0 || len(invoice.Lines) == 0 {
		return nil, fmt.Errorf("failed to create invoice: %w", models.ErrEmptySelection)
	}

	id := invoice.ID
	if id == "" {
		id = models.NewUUID()
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var seq int64
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(sequence), 0) + 1 FROM invoices`).Scan(&seq); err != nil {
			return fmt.Errorf("failed to get next invoice sequence: %w", err)
		}
		number := invoice.InvoiceNumber
		if number == "" {
			number = fmt.Sprintf("%s%04d", s.invoicePrefix, seq)
		}

		ts := now()
		_, err := tx.ExecContext(ctx, `INSERT INTO invoices
			(id, invoice_number, sequence, client_id, invoice_date, due_date, period_start, period_end,
			 status, discount_percent, subtotal_cents, discount_cents, total_cents, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, number, seq, invoice.ClientID, formatDate(invoice.InvoiceDate), formatDate(invoice.DueDate),
			datePtrToNull(invoice.PeriodStart), datePtrToNull(invoice.PeriodEnd),
			string(invoice.Status), invoice.DiscountPercent, invoice.SubtotalCents, invoice.DiscountCents,
			invoice.TotalCents, ptrToNullString(invoice.Notes), ts, ts)
		if err != nil {
			if isUniqueViolation(err) {
				return &models.ValidationError{Field: "invoice_number", Msg: fmt.Sprintf("invoice %q already exists", number)}
			}
			return fmt.Errorf("failed to insert invoice: %w", err)
		}

		for i, l := range invoice.Lines {
			lineID := l.ID
			if lineID == "" {
				lineID = models.NewUUID()
			}
			_, err := tx.ExecContext(ctx, `INSERT INTO invoice_lines
				(id, invoice_id, position, work_type_id, project_name, total_minutes,
				 hourly_rate_cents, discount_cents, amount_cents, description)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				lineID, id, i+1, l.WorkTypeID, ptrToNullString(l.ProjectName), l.TotalMinutes,
				l.HourlyRateCents, l.DiscountCents, l.AmountCents, ptrToNullString(l.Description))
			if err != nil {
				return fmt.Errorf("failed to insert invoice line: %w", err)
			}
		}

		invoiceDate := formatDate(invoice.InvoiceDate)
		for _, entryID := range entryIDs {
			res, err := tx.ExecContext(ctx, `UPDATE time_entries
				SET invoice_id = ?, invoice_date = ?, updated_at = ?
				WHERE id = ? AND client_id = ? AND invoice_id IS NULL`,
				id, invoiceDate, ts, entryID, invoice.ClientID)
			if err != nil {
				return fmt.Errorf("failed to mark time entry billed: %w", err)
			}
			if n, err := res.RowsAffected(); err != nil {
				return fmt.Errorf("failed to mark time entry billed: %w", err)
			} else if n != 1 {
				return fmt.Errorf("time entry %s: %w", entryID, models.ErrAlreadyBilled)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().Str("invoice_id", id).Int("entries", len(entryIDs)).Msg("invoice committed")
	return s.GetInvoice(ctx, id)
}

func (s *SQLiteDB) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	inv, err := scanInvoice(s.conn.QueryRowContext(ctx, invoiceSelect+` WHERE i.id = ?`, id))
	if err != nil {
		return nil, notFound("invoice", id, err)
	}
	if inv.Lines, err = s.listInvoiceLines(ctx, inv.ID); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *SQLiteDB) GetInvoiceByNumber(ctx context.Context, number string) (*models.Invoice, error) {
	inv, err := scanInvoice(s.conn.QueryRowContext(ctx, invoiceSelect+` WHERE i.invoice_number = ?`, number))
	if err != nil {
		return nil, notFound("invoice", number, err)
	}
	if inv.Lines, err = s.listInvoiceLines(ctx, inv.ID); err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *SQLiteDB) listInvoiceLines(ctx context.Context, invoiceID string) ([]*models.InvoiceLine, error) {
	rows, err := s.conn.QueryContext(ctx, invoiceLineSelect+` WHERE l.invoice_id = ? ORDER BY l.position`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice lines: %w", err)
	}
	defer rows.Close()

	lines := []*models.InvoiceLine{}
	for rows.Next() {
		l, err := scanInvoiceLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// ListInvoices returns invoices without their lines, oldest first.
func (s *SQLiteDB) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]*models.Invoice, error) {
	query := invoiceSelect + ` WHERE (? = '' OR i.client_id = ?)`
	args := []any{filter.ClientID, filter.ClientID}
	if len(filter.Statuses) > 0 {
		query += ` AND i.status IN (?` + strings.Repeat(", ?", len(filter.Statuses)-1) + `)`
		for _, st := range filter.Statuses {
			args = append(args, string(st))
		}
	}
	query += ` ORDER BY i.invoice_date, i.sequence`

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	result := []*models.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}

// UpdateInvoiceStatus moves an invoice from one status to another, failing with
// ErrInvalidStatusTransition if it is no longer in the from status.
func (s *SQLiteDB) UpdateInvoiceStatus(ctx context.Context, id string, from, to models.InvoiceStatus) (*models.Invoice, error) {
	res, err := s.conn.ExecContext(ctx, `UPDATE invoices SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), now(), id, string(from))
	if err != nil {
		return nil, fmt.Errorf("failed to update invoice status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		current, err := s.invoiceStatus(ctx, s.conn, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: invoice is %s, not %s", models.ErrInvalidStatusTransition, current, from)
	}
	return s.GetInvoice(ctx, id)
}

// VoidInvoice marks an unpaid invoice voided. Its payment applications are
// removed and its time entries released back to unbilled.
func (s *SQLiteDB) VoidInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		status, err := s.invoiceStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		if status == models.InvoiceStatusPaid || status == models.InvoiceStatusVoided {
			return fmt.Errorf("%w: cannot void a %s invoice", models.ErrInvalidStatusTransition, status)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM payment_applications WHERE invoice_id = ?`, id); err != nil {
			return fmt.Errorf("failed to remove payment applications: %w", err)
		}
		if err := releaseEntries(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE invoices SET status = ?, updated_at = ? WHERE id = ?`,
			string(models.InvoiceStatusVoided), now(), id); err != nil {
			return fmt.Errorf("failed to void invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, id)
}

func (s *SQLiteDB) UpdateInvoiceLineDescription(ctx context.Context, lineID string, description *string) (*models.InvoiceLine, error) {
	res, err := s.conn.ExecContext(ctx, `UPDATE invoice_lines SET description = ? WHERE id = ?`,
		ptrToNullString(description), lineID)
	if err != nil {
		return nil, fmt.Errorf("failed to update line description: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("invoice line %q: %w", lineID, models.ErrNotFound)
	}
	l, err := scanInvoiceLine(s.conn.QueryRowContext(ctx, invoiceLineSelect+` WHERE l.id = ?`, lineID))
	if err != nil {
		return nil, notFound("invoice line", lineID, err)
	}
	return l, nil
}

// DeleteInvoice removes an invoice and its lines and releases its time entries.
// Invoices with payments applied must have those payments removed first.
func (s *SQLiteDB) DeleteInvoice(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.invoiceStatus(ctx, tx, id); err != nil {
			return err
		}
		var applied int64
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM payment_applications WHERE invoice_id = ?`, id).Scan(&applied); err != nil {
			return fmt.Errorf("failed to count payment applications: %w", err)
		}
		if applied > 0 {
			return fmt.Errorf("%w: invoice has %d payment application(s)", models.ErrInvalidStatusTransition, applied)
		}
		if err := releaseEntries(ctx, tx, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM invoice_lines WHERE invoice_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete invoice lines: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete invoice: %w", err)
		}
		return nil
	})
}

func (s *SQLiteDB) invoiceStatus(ctx context.Context, q queryer, id string) (models.InvoiceStatus, error) {
	var status string
	if err := q.QueryRowContext(ctx, `SELECT status FROM invoices WHERE id = ?`, id).Scan(&status); err != nil {
		return "", notFound("invoice", id, err)
	}
	return models.InvoiceStatus(status), nil
}

func releaseEntries(ctx context.Context, q queryer, invoiceID string) error {
	_, err := q.ExecContext(ctx, `UPDATE time_entries SET invoice_id = NULL, invoice_date = NULL, updated_at = ?
		WHERE invoice_id = ?`, now(), invoiceID)
	if err != nil {
		return fmt.Errorf("failed to release time entries: %w", err)
	}
	return nil
}

// refreshPaymentStatus derives sent, partially_paid or paid from the amount
// applied. Draft and voided invoices are left alone.
func refreshPaymentStatus(ctx context.Context, q queryer, invoiceID string) error {
	var (
		status         string
		total, applied int64
	)
	err := q.QueryRowContext(ctx, `SELECT i.status, i.total_cents,
		COALESCE((SELECT SUM(amount_cents) FROM payment_applications WHERE invoice_id = i.id), 0)
		FROM invoices i WHERE i.id = ?`, invoiceID).Scan(&status, &total, &applied)
	if err != nil {
		return notFound("invoice", invoiceID, err)
	}
	if !models.InvoiceStatus(status).Obligation() {
		return nil
	}

	next := models.InvoiceStatusSent
	switch {
	case applied >= total && total > 0:
		next = models.InvoiceStatusPaid
	case applied > 0:
		next = models.InvoiceStatusPartiallyPaid
	}
	if string(next) == status {
		return nil
	}
	if _, err := q.ExecContext(ctx, `UPDATE invoices SET status = ?, updated_at = ? WHERE id = ?`,
		string(next), now(), invoiceID); err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	return nil
}
