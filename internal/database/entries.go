package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jesses-code-adventures/billing/internal/models"
)

const timeEntrySelect = `SELECT te.id, te.client_id, te.work_type_id, te.project_name, te.minutes_spent,
	te.work_date, te.note, te.invoice_id, te.invoice_date, te.created_at, te.updated_at,
	c.name, wt.code
	FROM time_entries te
	JOIN clients c ON c.id = te.client_id
	JOIN work_types wt ON wt.id = te.work_type_id`

func scanTimeEntry(row rowScanner) (*models.TimeEntry, error) {
	var (
		e                          models.TimeEntry
		project, note, invoiceID   sql.NullString
		invoiceDate                sql.NullString
		workDate, created, updated string
	)
	err := row.Scan(&e.ID, &e.ClientID, &e.WorkTypeID, &project, &e.MinutesSpent,
		&workDate, &note, &invoiceID, &invoiceDate, &created, &updated,
		&e.ClientName, &e.WorkTypeCode)
	if err != nil {
		return nil, err
	}
	e.ProjectName = nullStringToPtr(project)
	e.Note = nullStringToPtr(note)
	e.InvoiceID = nullStringToPtr(invoiceID)
	if e.WorkDate, err = parseDate(workDate); err != nil {
		return nil, err
	}
	if e.InvoiceDate, err = nullDateToPtr(invoiceDate); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = parseTimestamp(created); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTimestamp(updated); err != nil {
		return nil, err
	}
	return &e, nil
}

func collectTimeEntries(rows *sql.Rows) ([]*models.TimeEntry, error) {
	defer rows.Close()
	result := []*models.TimeEntry{}
	for rows.Next() {
		e, err := scanTimeEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *SQLiteDB) CreateTimeEntry(ctx context.Context, entry *models.TimeEntry) (*models.TimeEntry, error) {
	id := models.NewUUID()
	ts := now()
	_, err := s.conn.ExecContext(ctx, `INSERT INTO time_entries
		(id, client_id, work_type_id, project_name, minutes_spent, work_date, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, entry.ClientID, entry.WorkTypeID, ptrToNullString(entry.ProjectName), entry.MinutesSpent,
		formatDate(entry.WorkDate), ptrToNullString(entry.Note), ts, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to create time entry: %w", err)
	}
	return s.GetTimeEntry(ctx, id)
}

func (s *SQLiteDB) GetTimeEntry(ctx context.Context, id string) (*models.TimeEntry, error) {
	e, err := scanTimeEntry(s.conn.QueryRowContext(ctx, timeEntrySelect+` WHERE te.id = ?`, id))
	if err != nil {
		return nil, notFound("time entry", id, err)
	}
	return e, nil
}

func (s *SQLiteDB) ListTimeEntries(ctx context.Context, filter TimeEntryFilter) ([]*models.TimeEntry, error) {
	var billed any
	if filter.Billed != nil {
		billed = *filter.Billed
	}
	rows, err := s.conn.QueryContext(ctx, timeEntrySelect+`
		WHERE (? = '' OR te.client_id = ?)
		AND (? IS NULL OR te.work_date >= ?)
		AND (? IS NULL OR te.work_date <= ?)
		AND (? IS NULL OR (te.invoice_id IS NOT NULL) = ?)
		AND (? = '' OR te.invoice_id = ?)
		ORDER BY te.work_date, te.id`,
		filter.ClientID, filter.ClientID,
		dateArg(filter.From), dateArg(filter.From),
		dateArg(filter.To), dateArg(filter.To),
		billed, billed,
		filter.InvoiceID, filter.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}
	return collectTimeEntries(rows)
}

func (s *SQLiteDB) ListUnbilledTimeEntries(ctx context.Context, clientID string, start, end time.Time) ([]*models.TimeEntry, error) {
	rows, err := s.conn.QueryContext(ctx, timeEntrySelect+`
		WHERE te.client_id = ? AND te.invoice_id IS NULL
		AND te.work_date >= ? AND te.work_date <= ?
		ORDER BY te.work_date, te.id`,
		clientID, formatDate(start), formatDate(end))
	if err != nil {
		return nil, fmt.Errorf("failed to list unbilled time entries: %w", err)
	}
	return collectTimeEntries(rows)
}

// DeleteTimeEntry refuses to delete entries that are on an invoice.
func (s *SQLiteDB) DeleteTimeEntry(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var invoiceID sql.NullString
		err := tx.QueryRowContext(ctx, `SELECT invoice_id FROM time_entries WHERE id = ?`, id).Scan(&invoiceID)
		if err != nil {
			return notFound("time entry", id, err)
		}
		if invoiceID.Valid {
			return fmt.Errorf("time entry %s is on invoice %s: %w", id, invoiceID.String, models.ErrAlreadyBilled)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM time_entries WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete time entry: %w", err)
		}
		return nil
	})
}
