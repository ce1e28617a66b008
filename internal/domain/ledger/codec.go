package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"miluim/internal/domain/dates"
	"miluim/internal/domain/importer"
)

func encodeDocument(doc *Document, sealer Sealer) ([]byte, error) {
	out := doc.Clone()
	for i := range out.Employees {
		sealed, err := sealer.Seal(out.Employees[i].NationalID)
		if err != nil {
			return nil, fmt.Errorf("seal national id of employee %d: %w", out.Employees[i].ID, err)
		}
		out.Employees[i].NationalID = sealed
	}
	return json.MarshalIndent(out, "", "  ")
}

func decodeDocument(raw []byte, sealer Sealer, now time.Time) (*Document, error) {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, fmt.Errorf("decode ledger document: %w", err)
	}
	_, current := keys["dutyPeriods"]
	_, duties := keys["duties"]
	_, reserveDuty := keys["reserve_duty"]

	var doc *Document
	switch {
	case current || (!duties && !reserveDuty):
		doc = &Document{}
		if err := json.Unmarshal(raw, doc); err != nil {
			return nil, fmt.Errorf("decode ledger document: %w", err)
		}
	case duties:
		var legacy legacyDocument
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, fmt.Errorf("decode legacy ledger document: %w", err)
		}
		converted, err := legacy.convert(now)
		if err != nil {
			return nil, err
		}
		doc = converted
	default:
		return nil, fmt.Errorf("%w: reserve_duty records carry a day count without dates", ErrUnsupportedFormat)
	}

	if doc.Employees == nil {
		doc.Employees = []Employee{}
	}
	if doc.DutyPeriods == nil {
		doc.DutyPeriods = []DutyPeriod{}
	}
	if doc.Payments == nil {
		doc.Payments = []Payment{}
	}
	for i := range doc.Employees {
		plain, err := sealer.Open(doc.Employees[i].NationalID)
		if err != nil {
			return nil, fmt.Errorf("open national id of employee %d: %w", doc.Employees[i].ID, err)
		}
		doc.Employees[i].NationalID = plain
	}
	for i := range doc.DutyPeriods {
		doc.DutyPeriods[i].recompute()
	}
	if err := checkReferences(doc); err != nil {
		return nil, err
	}
	if doc.Meta.Created.IsZero() {
		doc.Meta.Created = now
	}
	if doc.Meta.LastModified.IsZero() {
		doc.Meta.LastModified = doc.Meta.Created
	}
	doc.Meta.Version = documentVersion
	return doc, nil
}

// checkReferences rejects documents whose ids are missing or repeated, or
// whose periods and payments point at records that do not exist. Loading
// such a document and saving it again would lose data silently.
func checkReferences(doc *Document) error {
	employees := map[int64]bool{}
	for _, e := range doc.Employees {
		if e.ID <= 0 || employees[e.ID] {
			return fmt.Errorf("%w: employee id %d is missing or repeated", ErrCorruptDocument, e.ID)
		}
		employees[e.ID] = true
	}
	periods := map[int64]int64{}
	for _, p := range doc.DutyPeriods {
		if _, seen := periods[p.ID]; p.ID <= 0 || seen {
			return fmt.Errorf("%w: duty period id %d is missing or repeated", ErrCorruptDocument, p.ID)
		}
		if !employees[p.EmployeeID] {
			return fmt.Errorf("%w: duty period %d refers to unknown employee %d", ErrCorruptDocument, p.ID, p.EmployeeID)
		}
		periods[p.ID] = p.EmployeeID
	}
	payments := map[int64]bool{}
	for _, p := range doc.Payments {
		if p.ID <= 0 || payments[p.ID] {
			return fmt.Errorf("%w: payment id %d is missing or repeated", ErrCorruptDocument, p.ID)
		}
		payments[p.ID] = true
		if !employees[p.EmployeeID] {
			return fmt.Errorf("%w: payment %d refers to unknown employee %d", ErrCorruptDocument, p.ID, p.EmployeeID)
		}
		if p.DutyPeriodID == nil {
			continue
		}
		owner, ok := periods[*p.DutyPeriodID]
		if !ok {
			return fmt.Errorf("%w: payment %d refers to unknown duty period %d", ErrCorruptDocument, p.ID, *p.DutyPeriodID)
		}
		if owner != p.EmployeeID {
			return fmt.Errorf("%w: payment %d and duty period %d belong to different employees", ErrCorruptDocument, p.ID, *p.DutyPeriodID)
		}
	}
	return nil
}

// legacyDocument is the snake_case layout written by the earlier dashboard
// server: employees keyed by tz, duties merged per month with an
// expected_amount but no stored rate, and payments linked through duty_id.
type legacyDocument struct {
	Employees []legacyEmployee `json:"employees"`
	Duties    []legacyDuty     `json:"duties"`
	Payments  []legacyPayment  `json:"payments"`
	Meta      Meta             `json:"_meta"`
}

type legacyEmployee struct {
	ID         int64           `json:"id"`
	TZ         looseText       `json:"tz"`
	FirstName  string          `json:"first_name"`
	LastName   string          `json:"last_name"`
	Department string          `json:"department"`
	DailyRate  decimal.Decimal `json:"daily_rate"`
	Status     string          `json:"status"`
	Created    string          `json:"created"`
}

type legacyDuty struct {
	ID             int64           `json:"id"`
	EmployeeID     int64           `json:"employee_id"`
	Dates          []string        `json:"dates"`
	TotalDays      int             `json:"total_days"`
	ExpectedAmount decimal.Decimal `json:"expected_amount"`
	Status         string          `json:"status"`
	Notes          string          `json:"notes"`
	Created        string          `json:"created"`
}

type legacyPayment struct {
	ID          int64           `json:"id"`
	EmployeeID  int64           `json:"employee_id"`
	DutyID      *int64          `json:"duty_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date"`
	Reference   string          `json:"reference"`
	Notes       string          `json:"notes"`
	Created     string          `json:"created"`
}

// looseText accepts a JSON string or number. Spreadsheets often turn
// national ids into numbers.
type looseText string

func (t *looseText) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		*t = ""
		return nil
	}
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		*t = looseText(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return fmt.Errorf("expected text or number, got %s", raw)
	}
	*t = looseText(n.String())
	return nil
}

func (l legacyDocument) convert(now time.Time) (*Document, error) {
	normalizer := dates.Normalizer{}
	doc := &Document{
		Employees:   make([]Employee, 0, len(l.Employees)),
		DutyPeriods: make([]DutyPeriod, 0, len(l.Duties)),
		Payments:    make([]Payment, 0, len(l.Payments)),
		Meta:        l.Meta,
	}

	rates := map[int64]decimal.Decimal{}
	for _, e := range l.Employees {
		created := legacyTime(e.Created, now)
		status := e.Status
		if !slices.Contains(EmployeeStatuses, status) {
			status = EmployeeActive
		}
		doc.Employees = append(doc.Employees, Employee{
			ID:         e.ID,
			NationalID: string(e.TZ),
			FirstName:  strings.TrimSpace(e.FirstName),
			LastName:   strings.TrimSpace(e.LastName),
			Department: strings.TrimSpace(e.Department),
			DailyRate:  e.DailyRate,
			Status:     status,
			CreatedAt:  created,
			UpdatedAt:  created,
		})
		rates[e.ID] = e.DailyRate
	}

	for _, d := range l.Duties {
		days := make([]string, 0, len(d.Dates))
		for _, raw := range d.Dates {
			day, ok := normalizer.Normalize(raw)
			if !ok {
				return nil, fmt.Errorf("%w: duty %d has date %q", ErrCorruptDocument, d.ID, raw)
			}
			days = append(days, day)
		}
		if len(days) == 0 {
			return nil, fmt.Errorf("%w: duty %d has no dates", ErrCorruptDocument, d.ID)
		}
		rate := rates[d.EmployeeID]
		if d.TotalDays > 0 && d.ExpectedAmount.IsPositive() {
			rate = d.ExpectedAmount.DivRound(decimal.NewFromInt(int64(d.TotalDays)), 2)
		}
		status := d.Status
		if status == "" {
			status = DutySubmitted
		} else if !slices.Contains(DutyStatuses, status) {
			status = DutyPending
		}
		created := legacyTime(d.Created, now)
		doc.DutyPeriods = append(doc.DutyPeriods, DutyPeriod{
			ID:               d.ID,
			EmployeeID:       d.EmployeeID,
			Grouping:         importer.GroupByMonth,
			Dates:            days,
			DailyRateApplied: rate,
			Status:           status,
			Notes:            d.Notes,
			CreatedAt:        created,
			UpdatedAt:        created,
		})
	}

	for _, p := range l.Payments {
		created := legacyTime(p.Created, now)
		day, ok := normalizer.Normalize(p.PaymentDate)
		if !ok {
			if p.PaymentDate != "" || p.Created == "" {
				return nil, fmt.Errorf("%w: payment %d has date %q", ErrCorruptDocument, p.ID, p.PaymentDate)
			}
			day = created.Format("2006-01-02")
		}
		doc.Payments = append(doc.Payments, Payment{
			ID:           p.ID,
			EmployeeID:   p.EmployeeID,
			DutyPeriodID: copyID(p.DutyID),
			Amount:       p.Amount,
			PaymentDate:  day,
			Reference:    p.Reference,
			Notes:        p.Notes,
			Source:       SourceManual,
			CreatedAt:    created,
		})
	}
	return doc, nil
}

func legacyTime(raw string, fallback time.Time) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC()
	}
	return fallback
}
