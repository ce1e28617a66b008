package importer

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"miluim/internal/domain/dates"
)

// Record is one accepted attendance row. DailyRate is zero when the row
// carries no usable rate. EndDate is set only for rows that describe a
// whole range.
type Record struct {
	Line       int             `json:"line"`
	FullName   string          `json:"fullName"`
	FirstName  string          `json:"firstName"`
	LastName   string          `json:"lastName"`
	NationalID string          `json:"nationalId,omitempty"`
	Department string          `json:"department,omitempty"`
	Date       string          `json:"date"`
	EndDate    string          `json:"endDate,omitempty"`
	DailyRate  decimal.Decimal `json:"dailyRate"`
}

// Days lists every duty date the record covers.
func (r Record) Days() []string {
	if r.EndDate == "" || r.EndDate == r.Date {
		return []string{r.Date}
	}
	days, err := dates.Span(r.Date, r.EndDate)
	if err != nil {
		return []string{r.Date}
	}
	return days
}

// PaymentRecord is one accepted row of a payment sheet.
type PaymentRecord struct {
	Line         int             `json:"line"`
	FullName     string          `json:"fullName,omitempty"`
	FirstName    string          `json:"firstName,omitempty"`
	LastName     string          `json:"lastName,omitempty"`
	NationalID   string          `json:"nationalId,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	PaymentDate  string          `json:"paymentDate"`
	ServiceStart string          `json:"serviceStart,omitempty"`
	ServiceEnd   string          `json:"serviceEnd,omitempty"`
	Reference    string          `json:"reference,omitempty"`
	Notes        string          `json:"notes,omitempty"`
}

// Identifier is the text reported for a row that matched no employee.
func (p PaymentRecord) Identifier() string {
	switch {
	case p.NationalID != "" && p.FullName != "":
		return p.NationalID + " " + p.FullName
	case p.NationalID != "":
		return p.NationalID
	default:
		return p.FullName
	}
}

// Skip records why a row was left out of an import.
type Skip struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type Options struct {
	Dates         dates.Normalizer
	DutySentinels []string
}

func DefaultDutySentinels() []string {
	return []string{"1", "true", "yes", "y", "כן", "v", "x"}
}

type Classifier struct {
	cols      Columns
	dates     dates.Normalizer
	sentinels map[string]bool
}

func NewClassifier(cols Columns, opts Options) *Classifier {
	sentinels := opts.DutySentinels
	if len(sentinels) == 0 {
		sentinels = DefaultDutySentinels()
	}
	set := make(map[string]bool, len(sentinels))
	for _, s := range sentinels {
		set[strings.ToLower(strings.TrimSpace(s))] = true
	}
	return &Classifier{cols: cols, dates: opts.Dates, sentinels: set}
}

// ClassifyAll classifies every row. A rejected row is reported in skips and
// never affects its neighbours.
func (c *Classifier) ClassifyAll(t Table) ([]Record, []Skip) {
	records := make([]Record, 0, len(t.Rows))
	var skips []Skip
	for _, row := range t.Rows {
		rec, err := c.Classify(row)
		if err != nil {
			skips = append(skips, Skip{Line: row.Line, Reason: err.Error()})
			continue
		}
		records = append(records, rec)
	}
	return records, skips
}

func (c *Classifier) Classify(row Row) (Record, error) {
	rec := Record{Line: row.Line}

	full, first, last, ok := c.name(row)
	if !ok {
		return Record{}, ErrMissingName
	}
	rec.FullName, rec.FirstName, rec.LastName = full, first, last

	if c.cols.Has(FieldDutyFlag) && !c.truthy(c.cols.value(row, FieldDutyFlag)) {
		return Record{}, ErrNotDuty
	}

	start, ok := c.dates.Normalize(c.cols.value(row, FieldDate))
	if !ok {
		start, ok = c.dates.Normalize(c.cols.value(row, FieldStartDate))
	}
	if !ok {
		return Record{}, ErrInvalidDate
	}
	rec.Date = start
	if end, ok := c.dates.Normalize(c.cols.value(row, FieldEndDate)); ok {
		if end < start {
			return Record{}, ErrInvalidRange
		}
		if end != start {
			rec.EndDate = end
		}
	}

	rec.NationalID = cellID(c.cols.value(row, FieldNationalID))
	rec.Department = cellText(c.cols.value(row, FieldDepartment))
	if rate, ok := cellDecimal(c.cols.value(row, FieldDailyRate)); ok && rate.IsPositive() {
		rec.DailyRate = rate
	}
	return rec, nil
}

// ClassifyPayments classifies a payment sheet. fallbackDate is used for rows
// without a payment date column or value.
func (c *Classifier) ClassifyPayments(t Table, fallbackDate string) ([]PaymentRecord, []Skip) {
	records := make([]PaymentRecord, 0, len(t.Rows))
	var skips []Skip
	for _, row := range t.Rows {
		rec, err := c.ClassifyPayment(row, fallbackDate)
		if err != nil {
			skips = append(skips, Skip{Line: row.Line, Reason: err.Error()})
			continue
		}
		records = append(records, rec)
	}
	return records, skips
}

func (c *Classifier) ClassifyPayment(row Row, fallbackDate string) (PaymentRecord, error) {
	rec := PaymentRecord{Line: row.Line}
	rec.NationalID = cellID(c.cols.value(row, FieldNationalID))
	if full, first, last, ok := c.name(row); ok {
		rec.FullName, rec.FirstName, rec.LastName = full, first, last
	}
	if rec.NationalID == "" && rec.FullName == "" {
		return PaymentRecord{}, ErrMissingIdentity
	}

	amount, ok := cellDecimal(c.cols.value(row, FieldAmount))
	if !ok || !amount.IsPositive() {
		return PaymentRecord{}, ErrInvalidAmount
	}
	rec.Amount = amount

	if start, ok := c.dates.Normalize(c.cols.value(row, FieldStartDate)); ok {
		rec.ServiceStart = start
	} else if start, ok := c.dates.Normalize(c.cols.value(row, FieldDate)); ok {
		rec.ServiceStart = start
	}
	if end, ok := c.dates.Normalize(c.cols.value(row, FieldEndDate)); ok {
		rec.ServiceEnd = end
	}

	paid, ok := c.dates.Normalize(c.cols.value(row, FieldPaymentDate))
	if !ok {
		paid, ok = c.dates.Normalize(fallbackDate)
	}
	if !ok {
		return PaymentRecord{}, ErrInvalidDate
	}
	rec.PaymentDate = paid

	rec.Reference = cellText(c.cols.value(row, FieldReference))
	rec.Notes = cellText(c.cols.value(row, FieldNotes))
	return rec, nil
}

func (c *Classifier) name(row Row) (full, first, last string, ok bool) {
	full = collapse(cellText(c.cols.value(row, FieldFullName)))
	if full == "" {
		first = collapse(cellText(c.cols.value(row, FieldFirstName)))
		last = collapse(cellText(c.cols.value(row, FieldLastName)))
		if first == "" && last == "" {
			return "", "", "", false
		}
		if first == "" {
			first = last
		}
		if last == "" {
			last = first
		}
		return first + " " + last, first, last, true
	}
	first, last = SplitName(full)
	return full, first, last, true
}

func (c *Classifier) truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x == 1
	case int:
		return x == 1
	case int64:
		return x == 1
	case json.Number:
		f, err := x.Float64()
		return err == nil && f == 1
	case string:
		return c.sentinels[strings.ToLower(strings.TrimSpace(x))]
	default:
		return false
	}
}

// SplitName splits a full name on whitespace: the first token is the first
// name and the rest is the last name. A single token is used for both.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], parts[0]
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// cellID renders a national id. Whole numbers lose any float formatting.
func cellID(v any) string {
	switch x := v.(type) {
	case float64:
		if x == math.Trunc(x) {
			return strconv.FormatInt(int64(x), 10)
		}
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
	}
	s := cellText(v)
	if f, err := strconv.ParseFloat(s, 64); err == nil && strings.ContainsAny(s, ".eE") && f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}

func cellDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return x, true
	case float64:
		return decimal.NewFromFloat(x), true
	case int:
		return decimal.NewFromInt(int64(x)), true
	case int64:
		return decimal.NewFromInt(x), true
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		return d, err == nil
	}
	s := cellText(v)
	s = strings.NewReplacer("₪", "", ",", "", " ", "", "NIS", "", "nis", "").Replace(s)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
