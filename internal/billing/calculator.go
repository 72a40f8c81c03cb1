// Package billing turns a client's unbilled time entries into invoice lines.
package billing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jesses-code-adventures/billing/internal/models"
	"github.com/jesses-code-adventures/billing/internal/money"
	"github.com/jesses-code-adventures/billing/internal/utils"
)

// Preview is the computed, unsaved content of an invoice. Empty is set when no
// entry matched, in which case Lines is empty and every amount is zero.
type Preview struct {
	ClientID        string                `json:"client_id"`
	StartDate       time.Time             `json:"start_date"`
	EndDate         time.Time             `json:"end_date"`
	HourlyRateCents int64                 `json:"hourly_rate_cents"`
	DiscountPercent decimal.Decimal       `json:"discount_percent"`
	Lines           []*models.InvoiceLine `json:"lines"`
	SubtotalCents   int64                 `json:"subtotal_cents"`
	DiscountCents   int64                 `json:"discount_cents"`
	TotalCents      int64                 `json:"total_cents"`
	TotalMinutes    int64                 `json:"total_minutes"`
	EntryIDs        []string              `json:"entry_ids"`
	Empty           bool                  `json:"empty"`
}

type groupKey struct {
	workTypeID string
	project    string
}

type group struct {
	key     groupKey
	minutes int64
	// work type code carried through for display in previews
	workTypeCode string
}

// Calculate selects the client's entries dated within [start, end] that have no
// invoice, groups them by (work type, project) and prices each group at the
// client's current rate and discount. Entries for other clients or already on an
// invoice are skipped, never counted.
func Calculate(client *models.Client, start, end time.Time, entries []*models.TimeEntry) (*Preview, error) {
	if client == nil {
		return nil, models.ErrUnknownClient
	}
	start, end = models.DateOnly(start), models.DateOnly(end)
	if start.After(end) {
		return nil, fmt.Errorf("%w: %s > %s", models.ErrInvalidRange, start.Format(models.DateFormat), end.Format(models.DateFormat))
	}

	selected := selectEntries(client.ID, start, end, entries)

	p := &Preview{
		ClientID:        client.ID,
		StartDate:       start,
		EndDate:         end,
		HourlyRateCents: client.HourlyRateCents,
		DiscountPercent: client.DiscountPercent,
		Lines:           []*models.InvoiceLine{},
		EntryIDs:        make([]string, 0, len(selected)),
	}

	if len(selected) == 0 {
		p.Empty = true
		return p, nil
	}

	for _, g := range groupEntries(selected) {
		b := money.Bill(g.minutes, client.HourlyRateCents, client.DiscountPercent)
		line := &models.InvoiceLine{
			Position:        len(p.Lines) + 1,
			WorkTypeID:      g.key.workTypeID,
			ProjectName:     utils.ToPtrNil(g.key.project),
			TotalMinutes:    g.minutes,
			HourlyRateCents: client.HourlyRateCents,
			DiscountCents:   b.DiscountCents,
			AmountCents:     b.AmountCents,
			WorkTypeCode:    g.workTypeCode,
		}
		p.Lines = append(p.Lines, line)
		p.SubtotalCents += b.PreDiscountCents
		p.DiscountCents += b.DiscountCents
		p.TotalMinutes += g.minutes
	}
	p.TotalCents = p.SubtotalCents - p.DiscountCents

	for _, e := range selected {
		p.EntryIDs = append(p.EntryIDs, e.ID)
	}

	return p, nil
}

func selectEntries(clientID string, start, end time.Time, entries []*models.TimeEntry) []*models.TimeEntry {
	var selected []*models.TimeEntry
	for _, e := range entries {
		if e == nil || e.ClientID != clientID || e.Billed() {
			continue
		}
		d := models.DateOnly(e.WorkDate)
		if d.Before(start) || d.After(end) {
			continue
		}
		selected = append(selected, e)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		di, dj := models.DateOnly(selected[i].WorkDate), models.DateOnly(selected[j].WorkDate)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return selected[i].ID < selected[j].ID
	})
	return selected
}

// groupEntries orders work types by first appearance and, within a work type,
// projects ascending with the no-project group first.
func groupEntries(entries []*models.TimeEntry) []*group {
	var workTypeOrder []string
	byWorkType := make(map[string][]*group)
	index := make(map[groupKey]*group)

	for _, e := range entries {
		key := groupKey{workTypeID: e.WorkTypeID, project: strings.TrimSpace(utils.FromPtr(e.ProjectName))}
		g, ok := index[key]
		if !ok {
			if _, seen := byWorkType[key.workTypeID]; !seen {
				workTypeOrder = append(workTypeOrder, key.workTypeID)
			}
			g = &group{key: key, workTypeCode: e.WorkTypeCode}
			index[key] = g
			byWorkType[key.workTypeID] = append(byWorkType[key.workTypeID], g)
		}
		g.minutes += e.MinutesSpent
	}

	groups := make([]*group, 0, len(index))
	for _, wt := range workTypeOrder {
		projects := byWorkType[wt]
		sort.SliceStable(projects, func(i, j int) bool {
			return projects[i].key.project < projects[j].key.project
		})
		groups = append(groups, projects...)
	}
	return groups
}

// BuildInvoice turns a preview into a draft invoice ready to be persisted together
// with marking p.EntryIDs as billed. Lines are copied so the preview stays reusable.
func BuildInvoice(p *Preview, invoiceNumber string, invoiceDate, dueDate time.Time) (*models.Invoice, error) {
	if p == nil {
		return nil, fmt.Errorf("nil preview")
	}
	if p.Empty || len(p.Lines) == 0 {
		return nil, models.ErrEmptySelection
	}

	inv := &models.Invoice{
		ID:              models.NewUUID(),
		InvoiceNumber:   invoiceNumber,
		ClientID:        p.ClientID,
		InvoiceDate:     models.DateOnly(invoiceDate),
		DueDate:         models.DateOnly(dueDate),
		PeriodStart:     utils.ToPtr(p.StartDate),
		PeriodEnd:       utils.ToPtr(p.EndDate),
		Status:          models.InvoiceStatusDraft,
		DiscountPercent: p.DiscountPercent,
		SubtotalCents:   p.SubtotalCents,
		DiscountCents:   p.DiscountCents,
		TotalCents:      p.TotalCents,
		Lines:           make([]*models.InvoiceLine, 0, len(p.Lines)),
	}
	for _, l := range p.Lines {
		line := *l
		line.ID = models.NewUUID()
		line.InvoiceID = inv.ID
		inv.Lines = append(inv.Lines, &line)
	}
	return inv, nil
}

// MarkBilled applies the post-commit state to the given entries in memory.
func MarkBilled(entries []*models.TimeEntry, ids []string, invoiceID string, invoiceDate time.Time) {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	d := models.DateOnly(invoiceDate)
	for _, e := range entries {
		if _, ok := want[e.ID]; ok {
			e.InvoiceID = utils.ToPtr(invoiceID)
			e.InvoiceDate = utils.ToPtr(d)
		}
	}
}
