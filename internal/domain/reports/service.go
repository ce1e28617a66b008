package reports

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"miluim/internal/domain/ledger"
)

const (
	FormatJSON = "json"
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
)

func ParseFormat(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatPDF:
		return FormatPDF, nil
	case FormatXLSX, "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unknown report format %q", raw)
	}
}

// Filter narrows a reconciliation. From and To are inclusive YYYY-MM bounds.
type Filter struct {
	Year          int    `json:"year,omitempty"`
	Month         int    `json:"month,omitempty"`
	EmployeeID    int64  `json:"employeeId,omitempty"`
	Department    string `json:"department,omitempty"`
	PaymentStatus string `json:"paymentStatus,omitempty"`
	From          string `json:"from,omitempty"`
	To            string `json:"to,omitempty"`
}

type Totals struct {
	Employees int             `json:"employees"`
	Periods   int             `json:"periods"`
	Days      int             `json:"days"`
	Expected  decimal.Decimal `json:"expected"`
	Paid      decimal.Decimal `json:"paid"`
	Balance   decimal.Decimal `json:"balance"`
	Status    string          `json:"status"`
}

func (t *Totals) add(p ledger.DutyPeriodView) {
	t.Periods++
	t.Days += p.TotalDays
	t.Expected = t.Expected.Add(p.ExpectedAmount)
	t.Paid = t.Paid.Add(p.TotalPaid)
	t.Balance = t.Expected.Sub(t.Paid)
	t.Status = ledger.PaymentStatus(t.Expected, t.Paid)
}

func newTotals() Totals {
	return Totals{Expected: decimal.Zero, Paid: decimal.Zero, Balance: decimal.Zero, Status: ledger.StatusPending}
}

// EmployeeLine totals an employee's periods. Paid and Balance count only
// payments attributed to those periods; payments the employee received with
// no period are shown apart in Unattributed.
type EmployeeLine struct {
	EmployeeID   int64           `json:"employeeId"`
	Name         string          `json:"name"`
	NationalID   string          `json:"nationalId"`
	Department   string          `json:"department"`
	Unattributed decimal.Decimal `json:"unattributed"`
	Totals
}

type MonthLine struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Totals
}

// Reconciliation compares expected and paid amounts by employee and by
// month for the periods a filter selects.
type Reconciliation struct {
	GeneratedAt  time.Time               `json:"generatedAt"`
	Filter       Filter                  `json:"filter"`
	Totals       Totals                  `json:"totals"`
	Unattributed decimal.Decimal         `json:"unattributed"`
	Employees    []EmployeeLine          `json:"employees"`
	Months       []MonthLine             `json:"months"`
	Periods      []ledger.DutyPeriodView `json:"periods"`
}

type Service struct {
	source   Source
	fontFile string
	now      func() time.Time
}

// NewService builds reports from source. fontFile is an optional TTF used
// for PDF output so Hebrew names render.
func NewService(source Source, fontFile string) *Service {
	return &Service{source: source, fontFile: fontFile, now: time.Now}
}

func (s *Service) FontFile() string {
	return s.fontFile
}

func (s *Service) Reconciliation(f Filter) Reconciliation {
	periods := s.source.ListDutyPeriods(ledger.DutyFilter{
		Year:          f.Year,
		Month:         f.Month,
		EmployeeID:    f.EmployeeID,
		Department:    f.Department,
		PaymentStatus: f.PaymentStatus,
		From:          f.From,
		To:            f.To,
	})
	r := Build(f, periods, s.now().UTC())
	for i := range r.Employees {
		line := &r.Employees[i]
		for _, p := range s.source.ListPayments(ledger.PaymentFilter{EmployeeID: line.EmployeeID}) {
			if p.DutyPeriodID == nil && f.covers(p.PaymentDate) {
				line.Unattributed = line.Unattributed.Add(p.Amount)
			}
		}
		r.Unattributed = r.Unattributed.Add(line.Unattributed)
	}
	return r
}

// covers reports whether a payment date falls in the filter's date window.
func (f Filter) covers(day string) bool {
	if len(day) < 7 {
		return f.Year == 0 && f.Month == 0 && f.From == "" && f.To == ""
	}
	ym := day[:7]
	if f.Year != 0 && ym[:4] != fmt.Sprintf("%04d", f.Year) {
		return false
	}
	if f.Month != 0 && ym[5:] != fmt.Sprintf("%02d", f.Month) {
		return false
	}
	if f.From != "" && ym < f.From {
		return false
	}
	if f.To != "" && ym > f.To {
		return false
	}
	return true
}

// Build groups periods into the employee and month summaries.
func Build(f Filter, periods []ledger.DutyPeriodView, now time.Time) Reconciliation {
	r := Reconciliation{
		GeneratedAt:  now,
		Filter:       f,
		Totals:       newTotals(),
		Unattributed: decimal.Zero,
		Employees:    []EmployeeLine{},
		Months:       []MonthLine{},
		Periods:      periods,
	}
	if r.Periods == nil {
		r.Periods = []ledger.DutyPeriodView{}
	}

	byEmployee := map[int64]*EmployeeLine{}
	byMonth := map[[2]int]*MonthLine{}
	monthEmployees := map[[2]int]map[int64]bool{}
	for _, p := range periods {
		r.Totals.add(p)

		line, ok := byEmployee[p.EmployeeID]
		if !ok {
			line = &EmployeeLine{
				EmployeeID:   p.EmployeeID,
				Name:         p.EmployeeName,
				NationalID:   p.NationalID,
				Department:   p.Department,
				Unattributed: decimal.Zero,
				Totals:       newTotals(),
			}
			line.Employees = 1
			byEmployee[p.EmployeeID] = line
		}
		line.add(p)

		key := [2]int{p.Year, p.Month}
		month, ok := byMonth[key]
		if !ok {
			month = &MonthLine{Year: p.Year, Month: p.Month, Totals: newTotals()}
			byMonth[key] = month
			monthEmployees[key] = map[int64]bool{}
		}
		month.add(p)
		if !monthEmployees[key][p.EmployeeID] {
			monthEmployees[key][p.EmployeeID] = true
			month.Employees++
		}
	}
	r.Totals.Employees = len(byEmployee)

	for _, line := range byEmployee {
		r.Employees = append(r.Employees, *line)
	}
	sort.Slice(r.Employees, func(i, j int) bool {
		a, b := r.Employees[i], r.Employees[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.EmployeeID < b.EmployeeID
	})
	for _, month := range byMonth {
		r.Months = append(r.Months, *month)
	}
	sort.Slice(r.Months, func(i, j int) bool {
		a, b := r.Months[i], r.Months[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Month < b.Month
	})
	return r
}

// Title describes the filter in a line suitable for a document header.
func (r Reconciliation) Title() string {
	parts := []string{"Reserve duty reconciliation"}
	switch {
	case r.Filter.Year != 0 && r.Filter.Month != 0:
		parts = append(parts, fmt.Sprintf("%02d/%04d", r.Filter.Month, r.Filter.Year))
	case r.Filter.Year != 0:
		parts = append(parts, fmt.Sprintf("%04d", r.Filter.Year))
	}
	switch {
	case r.Filter.From != "" && r.Filter.To != "":
		parts = append(parts, r.Filter.From+" to "+r.Filter.To)
	case r.Filter.From != "":
		parts = append(parts, "from "+r.Filter.From)
	case r.Filter.To != "":
		parts = append(parts, "until "+r.Filter.To)
	}
	if r.Filter.Department != "" {
		parts = append(parts, r.Filter.Department)
	}
	return strings.Join(parts, " - ")
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
