package ledger

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"miluim/internal/domain/dates"
	"miluim/internal/domain/importer"
)

// DutyInput adds duty either as a list of dates or as a start/end range.
// A zero DailyRate prices the days at the employee's rate.
type DutyInput struct {
	EmployeeID int64
	Dates      []string
	StartDate  string
	EndDate    string
	DailyRate  decimal.Decimal
	Status     string
	Notes      string
}

type DutyPatch struct {
	Dates     *[]string
	DailyRate *decimal.Decimal
	Status    *string
	Notes     *string
}

// UpsertResult tells whether a draft created a period or merged into one.
type UpsertResult struct {
	DutyPeriod DutyPeriod `json:"dutyPeriod"`
	Created    bool       `json:"created"`
	AddedDays  int        `json:"addedDays"`
	Repriced   bool       `json:"repriced"`
}

func (r UpsertResult) changed() bool {
	return r.Created || r.AddedDays > 0 || r.Repriced
}

// UpsertDutyPeriod merges a draft into the period with the same key, or
// creates one. Merging unions the date sets, so replaying a draft is a
// no-op.
func (l *Ledger) UpsertDutyPeriod(ctx context.Context, draft importer.Draft) (UpsertResult, error) {
	if len(draft.Dates) == 0 {
		return UpsertResult{}, fmt.Errorf("%w: a duty period needs at least one date", ErrInvalidInput)
	}
	return mutate(ctx, l, func(doc *Document) (UpsertResult, bool, error) {
		if doc.employeeIndex(draft.EmployeeID) < 0 {
			return UpsertResult{}, false, ErrEmployeeNotFound
		}
		res := l.upsert(doc, draft)
		return res, res.changed(), nil
	})
}

// AddDutyPeriods turns manual input into drafts and upserts each of them.
// A start/end range is expanded and grouped like imported rows, so in month
// mode it merges with the month's existing period.
func (l *Ledger) AddDutyPeriods(ctx context.Context, in DutyInput) ([]UpsertResult, error) {
	if in.DailyRate.IsNegative() {
		return nil, fmt.Errorf("%w: daily rate must not be negative", ErrInvalidInput)
	}
	if in.Status != "" && !slices.Contains(DutyStatuses, in.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	}
	normalizer := dates.Normalizer{Order: l.opts.DateOrder}

	var records []importer.Record
	switch {
	case in.StartDate != "" || in.EndDate != "":
		start, ok := normalizer.Normalize(in.StartDate)
		if !ok {
			return nil, fmt.Errorf("%w: start date %q", ErrInvalidDate, in.StartDate)
		}
		end, ok := normalizer.Normalize(in.EndDate)
		if !ok {
			return nil, fmt.Errorf("%w: end date %q", ErrInvalidDate, in.EndDate)
		}
		if end < start {
			return nil, fmt.Errorf("%w: end date is before start date", ErrInvalidInput)
		}
		records = append(records, importer.Record{Date: start, EndDate: end})
	case len(in.Dates) > 0:
		for _, raw := range in.Dates {
			day, ok := normalizer.Normalize(raw)
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
			}
			records = append(records, importer.Record{Date: day})
		}
	default:
		return nil, fmt.Errorf("%w: dates or a start and end date are required", ErrInvalidInput)
	}

	return mutate(ctx, l, func(doc *Document) ([]UpsertResult, bool, error) {
		i := doc.employeeIndex(in.EmployeeID)
		if i < 0 {
			return nil, false, ErrEmployeeNotFound
		}
		items := make([]importer.Resolved, 0, len(records))
		for _, rec := range records {
			items = append(items, importer.Resolved{
				Record:       rec,
				EmployeeID:   in.EmployeeID,
				EmployeeRate: doc.Employees[i].DailyRate,
			})
		}
		agg, err := importer.NewAggregator(l.opts.Grouping, l.opts.DefaultRate)
		if err != nil {
			return nil, false, err
		}

		results := make([]UpsertResult, 0, 1)
		changed := false
		for _, draft := range agg.Aggregate(items) {
			if in.DailyRate.IsPositive() {
				draft.DailyRate = in.DailyRate
			}
			res := l.upsert(doc, draft)
			p := &doc.DutyPeriods[doc.dutyPeriodIndex(res.DutyPeriod.ID)]
			if in.DailyRate.IsPositive() && !p.DailyRateApplied.Equal(in.DailyRate) {
				p.DailyRateApplied = in.DailyRate
				p.recompute()
				res.Repriced = true
			}
			if in.Status != "" && p.Status != in.Status {
				p.Status = in.Status
				changed = true
			}
			if note := strings.TrimSpace(in.Notes); note != "" && p.Notes != note {
				p.Notes = note
				changed = true
			}
			res.DutyPeriod = *p
			changed = changed || res.changed()
			results = append(results, res)
		}
		return results, changed, nil
	})
}

func (l *Ledger) UpdateDutyPeriod(ctx context.Context, id int64, patch DutyPatch) (DutyPeriod, error) {
	if patch.DailyRate != nil && patch.DailyRate.IsNegative() {
		return DutyPeriod{}, fmt.Errorf("%w: daily rate must not be negative", ErrInvalidInput)
	}
	if patch.Status != nil && !slices.Contains(DutyStatuses, *patch.Status) {
		return DutyPeriod{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *patch.Status)
	}
	var days []string
	if patch.Dates != nil {
		if len(*patch.Dates) == 0 {
			return DutyPeriod{}, fmt.Errorf("%w: a duty period needs at least one date", ErrInvalidInput)
		}
		normalizer := dates.Normalizer{Order: l.opts.DateOrder}
		for _, raw := range *patch.Dates {
			day, ok := normalizer.Normalize(raw)
			if !ok {
				return DutyPeriod{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
			}
			days = append(days, day)
		}
	}

	return mutate(ctx, l, func(doc *Document) (DutyPeriod, bool, error) {
		i := doc.dutyPeriodIndex(id)
		if i < 0 {
			return DutyPeriod{}, false, ErrDutyPeriodNotFound
		}
		p := &doc.DutyPeriods[i]
		if days != nil {
			month := days[0][:7]
			if p.Grouping != importer.GroupByRange {
				month = fmt.Sprintf("%04d-%02d", p.Year, p.Month)
			}
			for _, day := range days {
				if day[:7] != month {
					return DutyPeriod{}, false, fmt.Errorf("%w: %s", ErrDateOutsidePeriod, day)
				}
			}
			p.Dates = days
		}
		if patch.DailyRate != nil {
			p.DailyRateApplied = *patch.DailyRate
		}
		if patch.Status != nil {
			p.Status = *patch.Status
		}
		if patch.Notes != nil {
			p.Notes = strings.TrimSpace(*patch.Notes)
		}
		p.recompute()
		p.UpdatedAt = l.now()
		return *p, true, nil
	})
}

// DeleteDutyPeriod removes a period and the payments attributed to it. It
// returns how many payments went with it.
func (l *Ledger) DeleteDutyPeriod(ctx context.Context, id int64) (int, error) {
	return mutate(ctx, l, func(doc *Document) (int, bool, error) {
		i := doc.dutyPeriodIndex(id)
		if i < 0 {
			return 0, false, ErrDutyPeriodNotFound
		}
		doc.DutyPeriods = slices.Delete(doc.DutyPeriods, i, i+1)
		removed := 0
		doc.Payments = slices.DeleteFunc(doc.Payments, func(p Payment) bool {
			if p.DutyPeriodID != nil && *p.DutyPeriodID == id {
				removed++
				return true
			}
			return false
		})
		return removed, true, nil
	})
}

// upsert runs on the writer. Months match on (employee, year, month) and
// ranges on (employee, start, end).
func (l *Ledger) upsert(doc *Document, draft importer.Draft) UpsertResult {
	now := l.now()
	rule := draft.Grouping
	if rule == "" {
		rule = importer.GroupByMonth
	}
	for i := range doc.DutyPeriods {
		p := &doc.DutyPeriods[i]
		if p.EmployeeID != draft.EmployeeID || !sameKey(*p, draft, rule) {
			continue
		}
		before := p.TotalDays
		repriced := false
		p.Dates = append(p.Dates, draft.Dates...)
		if p.DailyRateApplied.Equal(l.opts.DefaultRate) && draft.DailyRate.IsPositive() && !draft.DailyRate.Equal(l.opts.DefaultRate) {
			p.DailyRateApplied = draft.DailyRate
			repriced = true
		}
		p.recompute()
		res := UpsertResult{AddedDays: p.TotalDays - before, Repriced: repriced}
		if res.changed() {
			p.UpdatedAt = now
		}
		res.DutyPeriod = *p
		return res
	}

	p := DutyPeriod{
		ID:               doc.nextDutyPeriodID(),
		EmployeeID:       draft.EmployeeID,
		Grouping:         rule,
		Dates:            append([]string(nil), draft.Dates...),
		DailyRateApplied: draft.DailyRate,
		Status:           DutyPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	p.recompute()
	doc.DutyPeriods = append(doc.DutyPeriods, p)
	return UpsertResult{DutyPeriod: p, Created: true, AddedDays: p.TotalDays}
}

func sameKey(p DutyPeriod, draft importer.Draft, grouping importer.Grouping) bool {
	if grouping == importer.GroupByRange {
		return p.Grouping == importer.GroupByRange && p.StartDate == draft.StartDate && p.EndDate == draft.EndDate
	}
	return p.Grouping != importer.GroupByRange && p.Year == draft.Year && p.Month == draft.Month
}
