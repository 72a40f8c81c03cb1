package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"

	"github.com/jesses-code-adventures/billing/internal/config"
	"github.com/jesses-code-adventures/billing/internal/logger"
	"github.com/jesses-code-adventures/billing/internal/models"
)

const timestampFormat = time.RFC3339Nano

type SQLiteDB struct {
	conn          *sql.DB
	log           zerolog.Logger
	invoicePrefix string
}

var _ DB = (*SQLiteDB)(nil)

// NewDB opens the configured database. Local SQLite files are limited to a single
// connection so writers never contend for the file lock.
func NewDB(cfg *config.Config) (*SQLiteDB, error) {
	conn, err := sql.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.DatabaseDriver != "libsql" {
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s := SQLiteDB{
		conn:          conn,
		log:           logger.WithComponent("database"),
		invoicePrefix: cfg.InvoicePrefix,
	}
	return &s, nil
}

func (s *SQLiteDB) Close() error {
	return s.conn.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// withTx runs fn in a transaction, committing only if fn returns nil.
func (s *SQLiteDB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func notFound(kind, key string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %q: %w", kind, key, models.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", kind, err)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func now() string {
	return time.Now().UTC().Format(timestampFormat)
}

func formatDate(t time.Time) string {
	return t.Format(models.DateFormat)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(models.DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored date %q: %w", s, err)
	}
	return t, nil
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(timestampFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullDateToPtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func datePtrToNull(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatDate(*t), Valid: true}
}

// dateArg is a nullable date query parameter.
func dateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatDate(*t)
}

func nullStringToPtr(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

func ptrToNullString(s *string) sql.NullString {
	if s != nil {
		return sql.NullString{String: *s, Valid: true}
	}
	return sql.NullString{Valid: false}
}

const clientColumns = `id, name, email, type, hourly_rate_cents, discount_percent,
	company_name, contact_name, phone, address_line1, address_line2, city, state,
	postal_code, country, tax_number, created_at, updated_at`

func scanClient(row rowScanner) (*models.Client, error) {
	var (
		c                             models.Client
		email, company, contact       sql.NullString
		phone, addr1, addr2, city     sql.NullString
		state, postcode, country, tax sql.NullString
		clientType                    string
		createdAt, updatedAt          string
	)
	err := row.Scan(&c.ID, &c.Name, &email, &clientType, &c.HourlyRateCents, &c.DiscountPercent,
		&company, &contact, &phone, &addr1, &addr2, &city, &state,
		&postcode, &country, &tax, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.Type = models.ClientType(clientType)
	c.Email = nullStringToPtr(email)
	c.CompanyName = nullStringToPtr(company)
	c.ContactName = nullStringToPtr(contact)
	c.Phone = nullStringToPtr(phone)
	c.AddressLine1 = nullStringToPtr(addr1)
	c.AddressLine2 = nullStringToPtr(addr2)
	c.City = nullStringToPtr(city)
	c.State = nullStringToPtr(state)
	c.PostalCode = nullStringToPtr(postcode)
	c.Country = nullStringToPtr(country)
	c.TaxNumber = nullStringToPtr(tax)
	if c.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLiteDB) CreateClient(ctx context.Context, client *models.Client) (*models.Client, error) {
	id := models.NewUUID()
	ts := now()
	_, err := s.conn.ExecContext(ctx, `INSERT INTO clients (`+clientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, client.Name, ptrToNullString(client.Email), string(client.Type), client.HourlyRateCents, client.DiscountPercent,
		ptrToNullString(client.CompanyName), ptrToNullString(client.ContactName), ptrToNullString(client.Phone),
		ptrToNullString(client.AddressLine1), ptrToNullString(client.AddressLine2), ptrToNullString(client.City),
		ptrToNullString(client.State), ptrToNullString(client.PostalCode), ptrToNullString(client.Country),
		ptrToNullString(client.TaxNumber), ts, ts)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &models.ValidationError{Field: "name", Msg: fmt.Sprintf("client %q already exists", client.Name)}
		}
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return s.GetClientByID(ctx, id)
}

func (s *SQLiteDB) GetClientByID(ctx context.Context, id string) (*models.Client, error) {
	c, err := scanClient(s.conn.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id))
	if err != nil {
		return nil, notFound("client", id, err)
	}
	return c, nil
}

func (s *SQLiteDB) GetClientByName(ctx context.Context, name string) (*models.Client, error) {
	c, err := scanClient(s.conn.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE name = ?`, name))
	if err != nil {
		return nil, notFound("client", name, err)
	}
	return c, nil
}

func (s *SQLiteDB) ListClients(ctx context.Context) ([]*models.Client, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	result := []*models.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *SQLiteDB) UpdateClient(ctx context.Context, client *models.Client) (*models.Client, error) {
	res, err := s.conn.ExecContext(ctx, `UPDATE clients SET
		name = ?, email = ?, type = ?, hourly_rate_cents = ?, discount_percent = ?,
		company_name = ?, contact_name = ?, phone = ?, address_line1 = ?, address_line2 = ?,
		city = ?, state = ?, postal_code = ?, country = ?, tax_number = ?, updated_at = ?
		WHERE id = ?`,
		client.Name, ptrToNullString(client.Email), string(client.Type), client.HourlyRateCents, client.DiscountPercent,
		ptrToNullString(client.CompanyName), ptrToNullString(client.ContactName), ptrToNullString(client.Phone),
		ptrToNullString(client.AddressLine1), ptrToNullString(client.AddressLine2), ptrToNullString(client.City),
		ptrToNullString(client.State), ptrToNullString(client.PostalCode), ptrToNullString(client.Country),
		ptrToNullString(client.TaxNumber), now(), client.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &models.ValidationError{Field: "name", Msg: fmt.Sprintf("client %q already exists", client.Name)}
		}
		return nil, fmt.Errorf("failed to update client: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("client %q: %w", client.ID, models.ErrNotFound)
	}
	return s.GetClientByID(ctx, client.ID)
}

const workTypeColumns = `id, code, description, created_at`

func scanWorkType(row rowScanner) (*models.WorkType, error) {
	var (
		wt        models.WorkType
		desc      sql.NullString
		createdAt string
	)
	if err := row.Scan(&wt.ID, &wt.Code, &desc, &createdAt); err != nil {
		return nil, err
	}
	wt.Description = nullStringToPtr(desc)
	t, err := parseTimestamp(createdAt)
	if err != nil {
		return nil, err
	}
	wt.CreatedAt = t
	return &wt, nil
}

func (s *SQLiteDB) CreateWorkType(ctx context.Context, code string, description *string) (*models.WorkType, error) {
	id := models.NewUUID()
	_, err := s.conn.ExecContext(ctx, `INSERT INTO work_types (`+workTypeColumns+`) VALUES (?, ?, ?, ?)`,
		id, code, ptrToNullString(description), now())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &models.ValidationError{Field: "code", Msg: fmt.Sprintf("work type %q already exists", code)}
		}
		return nil, fmt.Errorf("failed to create work type: %w", err)
	}
	return s.GetWorkTypeByCode(ctx, code)
}

func (s *SQLiteDB) GetWorkTypeByCode(ctx context.Context, code string) (*models.WorkType, error) {
	wt, err := scanWorkType(s.conn.QueryRowContext(ctx, `SELECT `+workTypeColumns+` FROM work_types WHERE code = ?`, code))
	if err != nil {
		return nil, notFound("work type", code, err)
	}
	return wt, nil
}

func (s *SQLiteDB) ListWorkTypes(ctx context.Context) ([]*models.WorkType, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT `+workTypeColumns+` FROM work_types ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list work types: %w", err)
	}
	defer rows.Close()

	result := []*models.WorkType{}
	for rows.Next() {
		wt, err := scanWorkType(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan work type: %w", err)
		}
		result = append(result, wt)
	}
	return result, rows.Err()
}
