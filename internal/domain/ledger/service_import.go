package ledger

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"miluim/internal/domain/dates"
	"miluim/internal/domain/importer"
)

type ImportOptions struct {
	Grouping importer.Grouping
	DryRun   bool
}

type PaymentImportOptions struct {
	FallbackDate string
	DryRun       bool
}

// ImportResult reports an attendance import. RawRowCount counts data rows,
// ClassifiedRowCount the rows that passed classification and DraftCount
// the periods they produced.
type ImportResult struct {
	RawRowCount        int                       `json:"rawRowCount"`
	ClassifiedRowCount int                       `json:"classifiedRowCount"`
	DraftCount         int                       `json:"draftCount"`
	ImportedEmployees  int                       `json:"importedEmployees"`
	MatchedEmployees   int                       `json:"matchedEmployees"`
	ImportedDuties     int                       `json:"importedDuties"`
	MergedDuties       int                       `json:"mergedDuties"`
	AddedDays          int                       `json:"addedDays"`
	Skipped            int                       `json:"skipped"`
	Errors             []string                  `json:"errors"`
	Columns            map[importer.Field]string `json:"columns,omitempty"`
	Drafts             []importer.Draft          `json:"drafts,omitempty"`
	DryRun             bool                      `json:"dryRun"`
	BackupLocation     string                    `json:"backupLocation,omitempty"`
}

type PaymentImportResult struct {
	RawRowCount          int                       `json:"rawRowCount"`
	ClassifiedRowCount   int                       `json:"classifiedRowCount"`
	ImportedPayments     int                       `json:"importedPayments"`
	AttributedPayments   int                       `json:"attributedPayments"`
	UnattributedPayments int                       `json:"unattributedPayments"`
	Unmatched            []string                  `json:"unmatched"`
	Skipped              int                       `json:"skipped"`
	Errors               []string                  `json:"errors"`
	Columns              map[importer.Field]string `json:"columns,omitempty"`
	DryRun               bool                      `json:"dryRun"`
	BackupLocation       string                    `json:"backupLocation,omitempty"`
}

// Vocabulary is the header vocabulary the ledger was configured with.
func (l *Ledger) Vocabulary() importer.Vocabulary {
	return l.opts.Vocabulary
}

func (l *Ledger) classifier(cols importer.Columns) *importer.Classifier {
	return importer.NewClassifier(cols, importer.Options{
		Dates:         dates.Normalizer{Order: l.opts.DateOrder},
		DutySentinels: l.opts.DutySentinels,
	})
}

// ImportAttendance classifies, matches and aggregates the rows of table and
// merges the resulting periods as one mutation. Rejected rows are counted
// and reported but never stop the batch.
func (l *Ledger) ImportAttendance(ctx context.Context, table importer.Table, cols importer.Columns, opts ImportOptions) (ImportResult, error) {
	grouping := opts.Grouping
	if grouping == "" {
		grouping = l.opts.Grouping
	}
	agg, err := importer.NewAggregator(grouping, l.opts.DefaultRate)
	if err != nil {
		return ImportResult{}, err
	}

	res := ImportResult{RawRowCount: len(table.Rows), Errors: []string{}, DryRun: opts.DryRun}
	if len(table.Rows) == 0 {
		return res, nil
	}
	res.Columns = cols.Mapping()

	records, skips := l.classifier(cols).ClassifyAll(table)
	res.ClassifiedRowCount = len(records)
	res.Skipped = len(skips)
	res.Errors = skipMessages(skips)

	out, err := mutate(ctx, l, func(doc *Document) (ImportResult, bool, error) {
		r := res
		m := newMatcher(doc, l.opts.DefaultRate, l.opts.StrictNameIdentity, l.now())
		matched := map[int64]bool{}
		items := make([]importer.Resolved, 0, len(records))
		for _, rec := range records {
			i, created := m.resolve(rec)
			e := doc.Employees[i]
			if created {
				r.ImportedEmployees++
			} else if !m.created[e.ID] && !matched[e.ID] {
				matched[e.ID] = true
				r.MatchedEmployees++
			}
			items = append(items, importer.Resolved{Record: rec, EmployeeID: e.ID, EmployeeRate: e.DailyRate})
		}

		drafts := agg.Aggregate(items)
		r.DraftCount = len(drafts)
		for _, draft := range drafts {
			up := l.upsert(doc, draft)
			if up.Created {
				r.ImportedDuties++
			} else if up.changed() {
				r.MergedDuties++
			}
			r.AddedDays += up.AddedDays
		}
		if opts.DryRun {
			r.Drafts = drafts
			return r, false, nil
		}
		changed := r.ImportedEmployees > 0 || r.ImportedDuties > 0 || r.MergedDuties > 0 || m.updated > 0
		if changed && l.opts.BackupBeforeImport {
			r.BackupLocation = l.backupBefore(ctx, l.snapshot(), "pre-import")
		}
		return r, changed, nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return out, nil
}

// ImportPayments matches payment rows to employees and appends them.
// Employees are never created here; rows that match nobody are listed in
// Unmatched and dropped. A payment is attributed to the employee's period
// holding its service start date, else to one in the same month.
func (l *Ledger) ImportPayments(ctx context.Context, table importer.Table, cols importer.Columns, opts PaymentImportOptions) (PaymentImportResult, error) {
	res := PaymentImportResult{RawRowCount: len(table.Rows), Unmatched: []string{}, Errors: []string{}, DryRun: opts.DryRun}
	if len(table.Rows) == 0 {
		return res, nil
	}
	res.Columns = cols.Mapping()

	records, skips := l.classifier(cols).ClassifyPayments(table, opts.FallbackDate)
	res.ClassifiedRowCount = len(records)
	res.Skipped = len(skips)
	res.Errors = skipMessages(skips)

	out, err := mutate(ctx, l, func(doc *Document) (PaymentImportResult, bool, error) {
		r := res
		r.Unmatched = []string{}

		m := newMatcher(doc, l.opts.DefaultRate, l.opts.StrictNameIdentity, l.now())
		unmatched := map[string]bool{}
		for _, rec := range records {
			i, ok := m.lookup(rec.NationalID, rec.FirstName, rec.LastName)
			if !ok {
				if id := rec.Identifier(); !unmatched[id] {
					unmatched[id] = true
					r.Unmatched = append(r.Unmatched, id)
				}
				continue
			}
			m.fill(i, importer.Record{NationalID: rec.NationalID})
			employeeID := doc.Employees[i].ID

			p := Payment{
				ID:           doc.nextPaymentID(),
				EmployeeID:   employeeID,
				DutyPeriodID: attribute(doc, employeeID, rec.ServiceStart),
				Amount:       rec.Amount,
				PaymentDate:  rec.PaymentDate,
				Reference:    rec.Reference,
				Notes:        rec.Notes,
				Source:       SourceImport,
				CreatedAt:    l.now(),
			}
			doc.Payments = append(doc.Payments, p)
			r.ImportedPayments++
			if p.DutyPeriodID != nil {
				r.AttributedPayments++
			} else {
				r.UnattributedPayments++
			}
		}
		changed := !opts.DryRun && r.ImportedPayments > 0
		if changed && l.opts.BackupBeforeImport {
			r.BackupLocation = l.backupBefore(ctx, l.snapshot(), "pre-import")
		}
		return r, changed, nil
	})
	if err != nil {
		return PaymentImportResult{}, err
	}
	return out, nil
}

// backupBefore copies doc before a bulk change. On the writer,
// l.snapshot() is still the document as it was before the mutation. Empty documents are
// skipped and a failed backup only logs.
func (l *Ledger) backupBefore(ctx context.Context, doc *Document, label string) string {
	if len(doc.Employees) == 0 && len(doc.DutyPeriods) == 0 && len(doc.Payments) == 0 {
		return ""
	}
	location, err := l.backend.Backup(ctx, doc, label)
	if err != nil {
		l.logger.Warn("backup failed", zap.String("label", label), zap.Error(err))
		return ""
	}
	return location
}

func attribute(doc *Document, employeeID int64, serviceStart string) *int64 {
	if serviceStart == "" {
		return nil
	}
	var sameMonth []DutyPeriod
	for _, p := range doc.DutyPeriods {
		if p.EmployeeID != employeeID {
			continue
		}
		if p.Contains(serviceStart) {
			id := p.ID
			return &id
		}
		if fmt.Sprintf("%04d-%02d", p.Year, p.Month) == serviceStart[:7] {
			sameMonth = append(sameMonth, p)
		}
	}
	if len(sameMonth) == 0 {
		return nil
	}
	sort.Slice(sameMonth, func(i, j int) bool { return sameMonth[i].StartDate < sameMonth[j].StartDate })
	id := sameMonth[0].ID
	return &id
}

func skipMessages(skips []importer.Skip) []string {
	out := make([]string, 0, len(skips))
	for _, s := range skips {
		out = append(out, fmt.Sprintf("row %d: %s", s.Line, s.Reason))
	}
	return out
}
