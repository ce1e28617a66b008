package ledger

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

type EmployeeFilter struct {
	Year       int
	Department string
	Status     string
}

type EmployeeDetail struct {
	EmployeeView
	DutyPeriods []DutyPeriodView `json:"dutyPeriods"`
	Payments    []PaymentView    `json:"payments"`
}

// DutyFilter narrows duty periods. From and To are inclusive YYYY-MM bounds.
type DutyFilter struct {
	Year          int
	Month         int
	EmployeeID    int64
	Department    string
	PaymentStatus string
	From          string
	To            string
}

type PaymentFilter struct {
	EmployeeID   int64
	DutyPeriodID int64
	Year         int
}

// ListEmployees returns employees with their totals. With a year filter,
// employees with no duty in that year are left out.
func (l *Ledger) ListEmployees(f EmployeeFilter) []EmployeeView {
	idx := newIndex(l.snapshot())
	out := make([]EmployeeView, 0, len(idx.doc.Employees))
	for _, e := range idx.doc.Employees {
		if f.Department != "" && !strings.EqualFold(e.Department, f.Department) {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		view := idx.employeeView(e, f.Year)
		if f.Year != 0 && view.TotalDays == 0 && view.TotalExpected.IsZero() {
			continue
		}
		out = append(out, view)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FullName != out[j].FullName {
			return out[i].FullName < out[j].FullName
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (l *Ledger) GetEmployee(id int64) (EmployeeDetail, error) {
	idx := newIndex(l.snapshot())
	e, ok := idx.employees[id]
	if !ok {
		return EmployeeDetail{}, ErrEmployeeNotFound
	}
	detail := EmployeeDetail{
		EmployeeView: idx.employeeView(*e, 0),
		DutyPeriods:  []DutyPeriodView{},
		Payments:     []PaymentView{},
	}
	for _, p := range idx.doc.DutyPeriods {
		if p.EmployeeID == id {
			detail.DutyPeriods = append(detail.DutyPeriods, idx.periodView(p, l.calendar))
		}
	}
	sortPeriodViews(detail.DutyPeriods)
	for _, p := range idx.doc.Payments {
		if p.EmployeeID == id {
			detail.Payments = append(detail.Payments, idx.paymentView(p))
		}
	}
	sortPaymentViews(detail.Payments)
	return detail, nil
}

func (l *Ledger) ListDutyPeriods(f DutyFilter) []DutyPeriodView {
	idx := newIndex(l.snapshot())
	out := make([]DutyPeriodView, 0, len(idx.doc.DutyPeriods))
	for _, p := range idx.doc.DutyPeriods {
		if f.Year != 0 && p.Year != f.Year {
			continue
		}
		if f.Month != 0 && p.Month != f.Month {
			continue
		}
		if f.EmployeeID != 0 && p.EmployeeID != f.EmployeeID {
			continue
		}
		ym := fmt.Sprintf("%04d-%02d", p.Year, p.Month)
		if f.From != "" && ym < f.From {
			continue
		}
		if f.To != "" && ym > f.To {
			continue
		}
		view := idx.periodView(p, l.calendar)
		if f.Department != "" && !strings.EqualFold(view.Department, f.Department) {
			continue
		}
		if f.PaymentStatus != "" && view.PaymentStatus != f.PaymentStatus {
			continue
		}
		out = append(out, view)
	}
	sortPeriodViews(out)
	return out
}

func (l *Ledger) GetDutyPeriod(id int64) (DutyPeriodView, error) {
	idx := newIndex(l.snapshot())
	p, ok := idx.periods[id]
	if !ok {
		return DutyPeriodView{}, ErrDutyPeriodNotFound
	}
	return idx.periodView(*p, l.calendar), nil
}

func (l *Ledger) ListPayments(f PaymentFilter) []PaymentView {
	idx := newIndex(l.snapshot())
	out := make([]PaymentView, 0, len(idx.doc.Payments))
	for _, p := range idx.doc.Payments {
		if f.EmployeeID != 0 && p.EmployeeID != f.EmployeeID {
			continue
		}
		if f.DutyPeriodID != 0 && (p.DutyPeriodID == nil || *p.DutyPeriodID != f.DutyPeriodID) {
			continue
		}
		view := idx.paymentView(p)
		if f.Year != 0 && view.DutyYear != f.Year && !strings.HasPrefix(p.PaymentDate, fmt.Sprintf("%04d-", f.Year)) {
			continue
		}
		out = append(out, view)
	}
	sortPaymentViews(out)
	return out
}

func (l *Ledger) GetPayment(id int64) (PaymentView, error) {
	idx := newIndex(l.snapshot())
	for _, p := range idx.doc.Payments {
		if p.ID == id {
			return idx.paymentView(p), nil
		}
	}
	return PaymentView{}, ErrPaymentNotFound
}

// Stats totals the ledger, optionally for one year. Paid amounts count
// only toward periods in scope when a year is given.
func (l *Ledger) Stats(year int) Stats {
	idx := newIndex(l.snapshot())
	stats := Stats{
		TotalExpected:      decimal.Zero,
		TotalPaid:          decimal.Zero,
		Balance:            decimal.Zero,
		AvgDaysPerEmployee: decimal.Zero,
	}
	employees := map[int64]bool{}
	if year == 0 {
		for _, e := range idx.doc.Employees {
			employees[e.ID] = true
		}
	}
	inScope := map[int64]bool{}
	for _, p := range idx.doc.DutyPeriods {
		if year != 0 && p.Year != year {
			continue
		}
		inScope[p.ID] = true
		employees[p.EmployeeID] = true
		stats.TotalDays += p.TotalDays
		stats.TotalExpected = stats.TotalExpected.Add(p.ExpectedAmount)
		if idx.paidByPeriod[p.ID].LessThan(p.ExpectedAmount) {
			stats.PendingCount++
		}
	}
	for _, pay := range idx.doc.Payments {
		if year != 0 && (pay.DutyPeriodID == nil || !inScope[*pay.DutyPeriodID]) {
			continue
		}
		stats.TotalPaid = stats.TotalPaid.Add(pay.Amount)
	}
	stats.TotalEmployees = len(employees)
	stats.Balance = stats.TotalExpected.Sub(stats.TotalPaid)
	if stats.TotalEmployees > 0 {
		stats.AvgDaysPerEmployee = decimal.NewFromInt(int64(stats.TotalDays)).
			DivRound(decimal.NewFromInt(int64(stats.TotalEmployees)), 1)
	}
	return stats
}

// Years lists the years with duty periods, newest first. An empty ledger
// reports the current year.
func (l *Ledger) Years() []int {
	seen := map[int]bool{}
	var out []int
	for _, p := range l.snapshot().DutyPeriods {
		if !seen[p.Year] {
			seen[p.Year] = true
			out = append(out, p.Year)
		}
	}
	if len(out) == 0 {
		return []int{l.now().Year()}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

func (l *Ledger) Months(year int) []int {
	seen := map[int]bool{}
	out := []int{}
	for _, p := range l.snapshot().DutyPeriods {
		if p.Year == year && !seen[p.Month] {
			seen[p.Month] = true
			out = append(out, p.Month)
		}
	}
	sort.Ints(out)
	return out
}

func (l *Ledger) Departments() []string {
	seen := map[string]bool{}
	out := []string{}
	for _, e := range l.snapshot().Employees {
		if e.Department != "" && !seen[e.Department] {
			seen[e.Department] = true
			out = append(out, e.Department)
		}
	}
	sort.Strings(out)
	return out
}

func sortPeriodViews(views []DutyPeriodView) {
	sort.SliceStable(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		if a.Month != b.Month {
			return a.Month > b.Month
		}
		if a.EmployeeName != b.EmployeeName {
			return a.EmployeeName < b.EmployeeName
		}
		return a.StartDate < b.StartDate
	})
}

func sortPaymentViews(views []PaymentView) {
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].PaymentDate != views[j].PaymentDate {
			return views[i].PaymentDate > views[j].PaymentDate
		}
		return views[i].ID > views[j].ID
	})
}
