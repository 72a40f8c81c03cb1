package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jesses-code-adventures/billing/internal/database"
	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/money"
	"github.com/jesses-code-adventures/billing/internal/utils"
)

// TimeEntryInput records work either as Minutes or as a From/To clock range.
type TimeEntryInput struct {
	Client   string
	WorkType string
	Project  string
	Minutes  int64
	From     string
	To       string
	Date     string
	Note     string
}

// ParseClockTime accepts HH:MM on the given day or a full YYYY-MM-DD HH:MM.
func ParseClockTime(value string, day time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse("2006-01-02 15:04", value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("15:04", value); err == nil {
		return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
	}
	return time.Time{}, &models.ValidationError{Field: "time", Msg: fmt.Sprintf("%q must be HH:MM or YYYY-MM-DD HH:MM", value)}
}

func (s *BillingService) entryMinutesAndDate(in TimeEntryInput) (int64, time.Time, error) {
	day := s.Today()
	if in.Date != "" {
		d, err := models.ParseDate(in.Date)
		if err != nil {
			return 0, time.Time{}, err
		}
		day = d
	}

	if in.From == "" && in.To == "" {
		if in.Minutes <= 0 {
			return 0, time.Time{}, &models.ValidationError{Field: "minutes", Msg: "must be positive"}
		}
		return in.Minutes, day, nil
	}
	if in.Minutes != 0 {
		return 0, time.Time{}, &models.ValidationError{Field: "minutes", Msg: "cannot be combined with from/to"}
	}
	if in.From == "" || in.To == "" {
		return 0, time.Time{}, &models.ValidationError{Field: "from", Msg: "from and to must be given together"}
	}

	from, err := ParseClockTime(in.From, day)
	if err != nil {
		return 0, time.Time{}, err
	}
	to, err := ParseClockTime(in.To, from)
	if err != nil {
		return 0, time.Time{}, err
	}
	minutes := int64(to.Sub(from) / time.Minute)
	if minutes <= 0 {
		return 0, time.Time{}, &models.ValidationError{Field: "to", Msg: "must be after from"}
	}
	return minutes, models.DateOnly(from), nil
}

func (s *BillingService) LogTime(ctx context.Context, in TimeEntryInput) (*models.TimeEntry, error) {
	minutes, day, err := s.entryMinutesAndDate(in)
	if err != nil {
		return nil, err
	}
	client, err := s.GetClient(ctx, in.Client)
	if err != nil {
		return nil, err
	}
	wt, err := s.getWorkType(ctx, in.WorkType)
	if err != nil {
		return nil, err
	}

	entry, err := s.db.CreateTimeEntry(ctx, &models.TimeEntry{
		ClientID:     client.ID,
		WorkTypeID:   wt.ID,
		ProjectName:  utils.ToPtrNil(strings.TrimSpace(in.Project)),
		MinutesSpent: minutes,
		WorkDate:     day,
		Note:         utils.ToPtrNil(in.Note),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create time entry: %w", err)
	}
	entry.ClientName = client.Name
	entry.WorkTypeCode = wt.Code
	s.log.Info().Str("client", client.Name).Str("work_type", wt.Code).Int64("minutes", minutes).
		Str("date", day.Format(models.DateFormat)).Msg("time logged")
	return entry, nil
}

// TimeEntryQuery filters time entries. Zero values match everything.
type TimeEntryQuery struct {
	Client string
	From   *time.Time
	To     *time.Time
	Billed *bool
}

func (s *BillingService) ListTimeEntries(ctx context.Context, q TimeEntryQuery) ([]*models.TimeEntry, error) {
	filter := database.TimeEntryFilter{From: q.From, To: q.To, Billed: q.Billed}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return nil, fmt.Errorf("%w: %s > %s", models.ErrInvalidRange, q.From.Format(models.DateFormat), q.To.Format(models.DateFormat))
	}
	if q.Client != "" {
		client, err := s.GetClient(ctx, q.Client)
		if err != nil {
			return nil, err
		}
		filter.ClientID = client.ID
	}
	return s.db.ListTimeEntries(ctx, filter)
}

func (s *BillingService) DeleteTimeEntry(ctx context.Context, id string) error {
	if err := s.db.DeleteTimeEntry(ctx, id); err != nil {
		return fmt.Errorf("failed to delete time entry: %w", err)
	}
	return nil
}

// ExportTimeEntriesCSV writes the matching entries to w and returns how many
// were written.
func (s *BillingService) ExportTimeEntriesCSV(ctx context.Context, q TimeEntryQuery, w io.Writer) (int, error) {
	entries, err := s.ListTimeEntries(ctx, q)
	if err != nil {
		return 0, err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{
		"ID", "Date", "Client", "Work Type", "Project", "Minutes", "Hours", "Note", "Invoice ID",
	}); err != nil {
		return 0, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, e := range entries {
		record := []string{
			e.ID,
			e.WorkDate.Format(models.DateFormat),
			e.ClientName,
			e.WorkTypeCode,
			utils.FromPtr(e.ProjectName),
			strconv.FormatInt(e.MinutesSpent, 10),
			money.Hours(e.MinutesSpent),
			utils.FromPtr(e.Note),
			utils.FromPtr(e.InvoiceID),
		}
		if err := writer.Write(record); err != nil {
			return 0, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return len(entries), nil
}
