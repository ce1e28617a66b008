package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"miluim/internal/domain/dates"
	"miluim/internal/domain/importer"
)

type Employee struct {
	ID         int64           `json:"id"`
	NationalID string          `json:"nationalId"`
	FirstName  string          `json:"firstName"`
	LastName   string          `json:"lastName"`
	Department string          `json:"department"`
	DailyRate  decimal.Decimal `json:"dailyRate"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

type DutyPeriod struct {
	ID               int64             `json:"id"`
	EmployeeID       int64             `json:"employeeId"`
	Grouping         importer.Grouping `json:"grouping"`
	Year             int               `json:"year"`
	Month            int               `json:"month"`
	StartDate        string            `json:"startDate"`
	EndDate          string            `json:"endDate"`
	Dates            []string          `json:"dates"`
	TotalDays        int               `json:"totalDays"`
	DailyRateApplied decimal.Decimal   `json:"dailyRateApplied"`
	ExpectedAmount   decimal.Decimal   `json:"expectedAmount"`
	Status           string            `json:"status"`
	Notes            string            `json:"notes,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// recompute restores the derived fields from dates and rate.
func (d *DutyPeriod) recompute() {
	d.Dates = uniqueSorted(d.Dates)
	d.TotalDays = len(d.Dates)
	d.ExpectedAmount = decimal.NewFromInt(int64(d.TotalDays)).Mul(d.DailyRateApplied)
	if len(d.Dates) > 0 {
		d.StartDate = d.Dates[0]
		d.EndDate = d.Dates[len(d.Dates)-1]
		if y, m, err := dates.YearMonth(d.StartDate); err == nil {
			d.Year, d.Month = y, m
		}
	}
}

// Contains reports whether day is one of the period's dates.
func (d DutyPeriod) Contains(day string) bool {
	i := sort.SearchStrings(d.Dates, day)
	return i < len(d.Dates) && d.Dates[i] == day
}

type Payment struct {
	ID           int64           `json:"id"`
	EmployeeID   int64           `json:"employeeId"`
	DutyPeriodID *int64          `json:"dutyPeriodId"`
	Amount       decimal.Decimal `json:"amount"`
	PaymentDate  string          `json:"paymentDate"`
	Reference    string          `json:"reference,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	Source       string          `json:"source"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type Meta struct {
	Version      int       `json:"version"`
	Created      time.Time `json:"created"`
	LastModified time.Time `json:"lastModified"`
}

// Document is the whole persisted ledger.
type Document struct {
	Employees   []Employee   `json:"employees"`
	DutyPeriods []DutyPeriod `json:"dutyPeriods"`
	Payments    []Payment    `json:"payments"`
	Meta        Meta         `json:"_meta"`
}

func NewDocument(now time.Time) *Document {
	return &Document{
		Employees:   []Employee{},
		DutyPeriods: []DutyPeriod{},
		Payments:    []Payment{},
		Meta:        Meta{Version: documentVersion, Created: now, LastModified: now},
	}
}

// Clone returns a deep copy that can be changed without affecting d.
func (d *Document) Clone() *Document {
	out := &Document{
		Employees:   make([]Employee, len(d.Employees)),
		DutyPeriods: make([]DutyPeriod, len(d.DutyPeriods)),
		Payments:    make([]Payment, len(d.Payments)),
		Meta:        d.Meta,
	}
	copy(out.Employees, d.Employees)
	for i, p := range d.DutyPeriods {
		p.Dates = append([]string(nil), p.Dates...)
		out.DutyPeriods[i] = p
	}
	for i, p := range d.Payments {
		if p.DutyPeriodID != nil {
			id := *p.DutyPeriodID
			p.DutyPeriodID = &id
		}
		out.Payments[i] = p
	}
	return out
}

func (d *Document) nextEmployeeID() int64 {
	var top int64
	for _, e := range d.Employees {
		top = max(top, e.ID)
	}
	return top + 1
}

func (d *Document) nextDutyPeriodID() int64 {
	var top int64
	for _, p := range d.DutyPeriods {
		top = max(top, p.ID)
	}
	return top + 1
}

func (d *Document) nextPaymentID() int64 {
	var top int64
	for _, p := range d.Payments {
		top = max(top, p.ID)
	}
	return top + 1
}

func (d *Document) employeeIndex(id int64) int {
	for i := range d.Employees {
		if d.Employees[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *Document) dutyPeriodIndex(id int64) int {
	for i := range d.DutyPeriods {
		if d.DutyPeriods[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *Document) paymentIndex(id int64) int {
	for i := range d.Payments {
		if d.Payments[i].ID == id {
			return i
		}
	}
	return -1
}

func uniqueSorted(days []string) []string {
	if len(days) == 0 {
		return []string{}
	}
	sorted := append([]string(nil), days...)
	sort.Strings(sorted)
	out := sorted[:1]
	for _, day := range sorted[1:] {
		if day != out[len(out)-1] {
			out = append(out, day)
		}
	}
	return out
}
