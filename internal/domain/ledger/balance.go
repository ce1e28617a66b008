package ledger

import (
	"github.com/shopspring/decimal"

	"miluim/internal/domain/dates"
)

// PaymentStatus derives the state of an expected amount against what was
// paid toward it.
func PaymentStatus(expected, paid decimal.Decimal) string {
	balance := expected.Sub(paid)
	switch {
	case expected.IsPositive() && !balance.IsPositive():
		return StatusPaid
	case paid.IsPositive() && paid.LessThan(expected):
		return StatusPartial
	default:
		return StatusPending
	}
}

type EmployeeView struct {
	Employee
	FullName      string          `json:"fullName"`
	DutyCount     int             `json:"dutyCount"`
	PaymentCount  int             `json:"paymentCount"`
	TotalDays     int             `json:"totalDays"`
	TotalExpected decimal.Decimal `json:"totalExpected"`
	TotalPaid     decimal.Decimal `json:"totalPaid"`
	Balance       decimal.Decimal `json:"balance"`
	PaymentStatus string          `json:"paymentStatus"`
}

type DutyPeriodView struct {
	DutyPeriod
	EmployeeName  string          `json:"employeeName"`
	NationalID    string          `json:"nationalId"`
	Department    string          `json:"department"`
	TotalPaid     decimal.Decimal `json:"totalPaid"`
	Balance       decimal.Decimal `json:"balance"`
	PaymentStatus string          `json:"paymentStatus"`
	PaymentCount  int             `json:"paymentCount"`
	Breakdown     dates.Breakdown `json:"breakdown"`
}

type PaymentView struct {
	Payment
	EmployeeName string `json:"employeeName"`
	DutyYear     int    `json:"dutyYear,omitempty"`
	DutyMonth    int    `json:"dutyMonth,omitempty"`
}

type Stats struct {
	TotalEmployees     int             `json:"totalEmployees"`
	TotalDays          int             `json:"totalDays"`
	TotalExpected      decimal.Decimal `json:"totalExpected"`
	TotalPaid          decimal.Decimal `json:"totalPaid"`
	Balance            decimal.Decimal `json:"balance"`
	PendingCount       int             `json:"pendingCount"`
	AvgDaysPerEmployee decimal.Decimal `json:"avgDaysPerEmployee"`
}

// index is a read-side view of one snapshot.
type index struct {
	doc           *Document
	employees     map[int64]*Employee
	periods       map[int64]*DutyPeriod
	paidByPeriod  map[int64]decimal.Decimal
	countByPeriod map[int64]int
}

func newIndex(doc *Document) *index {
	idx := &index{
		doc:           doc,
		employees:     make(map[int64]*Employee, len(doc.Employees)),
		periods:       make(map[int64]*DutyPeriod, len(doc.DutyPeriods)),
		paidByPeriod:  map[int64]decimal.Decimal{},
		countByPeriod: map[int64]int{},
	}
	for i := range doc.Employees {
		idx.employees[doc.Employees[i].ID] = &doc.Employees[i]
	}
	for i := range doc.DutyPeriods {
		idx.periods[doc.DutyPeriods[i].ID] = &doc.DutyPeriods[i]
	}
	for _, p := range doc.Payments {
		if p.DutyPeriodID == nil {
			continue
		}
		idx.paidByPeriod[*p.DutyPeriodID] = idx.paidByPeriod[*p.DutyPeriodID].Add(p.Amount)
		idx.countByPeriod[*p.DutyPeriodID]++
	}
	return idx
}

func (idx *index) periodView(p DutyPeriod, cal dates.Calendar) DutyPeriodView {
	paid := idx.paidByPeriod[p.ID]
	view := DutyPeriodView{
		DutyPeriod:    p,
		TotalPaid:     paid,
		Balance:       p.ExpectedAmount.Sub(paid),
		PaymentStatus: PaymentStatus(p.ExpectedAmount, paid),
		PaymentCount:  idx.countByPeriod[p.ID],
		Breakdown:     cal.Breakdown(p.Dates),
	}
	if e, ok := idx.employees[p.EmployeeID]; ok {
		view.EmployeeName = e.FullName()
		view.NationalID = e.NationalID
		view.Department = e.Department
	}
	return view
}

// employeeView totals an employee. With a year filter only periods of that
// year count, and only payments attributed to those periods.
func (idx *index) employeeView(e Employee, year int) EmployeeView {
	view := EmployeeView{
		Employee:      e,
		FullName:      e.FullName(),
		TotalExpected: decimal.Zero,
		TotalPaid:     decimal.Zero,
	}
	inScope := map[int64]bool{}
	for _, p := range idx.doc.DutyPeriods {
		if p.EmployeeID != e.ID || (year != 0 && p.Year != year) {
			continue
		}
		inScope[p.ID] = true
		view.DutyCount++
		view.TotalDays += p.TotalDays
		view.TotalExpected = view.TotalExpected.Add(p.ExpectedAmount)
	}
	for _, pay := range idx.doc.Payments {
		if pay.EmployeeID != e.ID {
			continue
		}
		if year != 0 && (pay.DutyPeriodID == nil || !inScope[*pay.DutyPeriodID]) {
			continue
		}
		view.PaymentCount++
		view.TotalPaid = view.TotalPaid.Add(pay.Amount)
	}
	view.Balance = view.TotalExpected.Sub(view.TotalPaid)
	view.PaymentStatus = PaymentStatus(view.TotalExpected, view.TotalPaid)
	return view
}

func (idx *index) paymentView(p Payment) PaymentView {
	view := PaymentView{Payment: p}
	if e, ok := idx.employees[p.EmployeeID]; ok {
		view.EmployeeName = e.FullName()
	}
	if p.DutyPeriodID != nil {
		if period, ok := idx.periods[*p.DutyPeriodID]; ok {
			view.DutyYear, view.DutyMonth = period.Year, period.Month
		}
	}
	return view
}
