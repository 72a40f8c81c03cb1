package service

import (
	"fmt"
	"time"

	"github.com/jesses-code-adventures/billing/internal/models"
)

var Periods = []string{"day", "week", "fortnight", "month"}

// CalculatePeriodRange returns the first and last calendar day of the period
// containing targetDate. Weeks and fortnights start on Monday.
func CalculatePeriodRange(period string, targetDate time.Time) (time.Time, time.Time, error) {
	day := models.DateOnly(targetDate)
	switch period {
	case "day":
		return day, day, nil
	case "week", "fortnight":
		weekday := day.Weekday()
		if weekday == time.Sunday {
			weekday = 7
		}
		start := day.AddDate(0, 0, -int(weekday-1))
		length := 7
		if period == "fortnight" {
			length = 14
		}
		return start, start.AddDate(0, 0, length-1), nil
	case "month":
		start := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, -1), nil
	default:
		return time.Time{}, time.Time{}, &models.ValidationError{Field: "period", Msg: fmt.Sprintf("unknown period %q (want day, week, fortnight or month)", period)}
	}
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ResolveRange turns command-line style arguments into a date range. A period
// wins over from/to; the period is anchored at periodDate or today. An open
// from defaults to the first day of the month containing to.
func ResolveRange(period, periodDate, from, to string, today time.Time) (DateRange, error) {
	if period != "" {
		anchor := today
		if periodDate != "" {
			d, err := models.ParseDate(periodDate)
			if err != nil {
				return DateRange{}, err
			}
			anchor = d
		}
		start, end, err := CalculatePeriodRange(period, anchor)
		if err != nil {
			return DateRange{}, err
		}
		return DateRange{Start: start, End: end}, nil
	}

	end := models.DateOnly(today)
	if to != "" {
		d, err := models.ParseDate(to)
		if err != nil {
			return DateRange{}, err
		}
		end = d
	}
	start := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	if from != "" {
		d, err := models.ParseDate(from)
		if err != nil {
			return DateRange{}, err
		}
		start = d
	}
	if start.After(end) {
		return DateRange{}, fmt.Errorf("%w: %s > %s", models.ErrInvalidRange, start.Format(models.DateFormat), end.Format(models.DateFormat))
	}
	return DateRange{Start: start, End: end}, nil
}
