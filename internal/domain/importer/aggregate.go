package importer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"miluim/internal/domain/dates"
)

// Grouping selects how duty dates are gathered into periods.
type Grouping string

const (
	GroupByMonth Grouping = "month"
	GroupByRange Grouping = "range"
)

func ParseGrouping(value string) (Grouping, error) {
	switch Grouping(strings.ToLower(strings.TrimSpace(value))) {
	case GroupByMonth:
		return GroupByMonth, nil
	case GroupByRange:
		return GroupByRange, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidGrouping, value)
	}
}

// Resolved is a record bound to an employee. EmployeeRate is the rate the
// employee already carries.
type Resolved struct {
	Record       Record
	EmployeeID   int64
	EmployeeRate decimal.Decimal
}

// Draft is a duty period ready to be merged into the ledger.
type Draft struct {
	EmployeeID int64           `json:"employeeId"`
	Grouping   Grouping        `json:"grouping"`
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	StartDate  string          `json:"startDate"`
	EndDate    string          `json:"endDate"`
	Dates      []string        `json:"dates"`
	DailyRate  decimal.Decimal `json:"dailyRate"`
}

func (d Draft) TotalDays() int {
	return len(d.Dates)
}

func (d Draft) ExpectedAmount() decimal.Decimal {
	return decimal.NewFromInt(int64(len(d.Dates))).Mul(d.DailyRate)
}

type Aggregator interface {
	Aggregate(items []Resolved) []Draft
}

func NewAggregator(g Grouping, defaultRate decimal.Decimal) (Aggregator, error) {
	switch g {
	case GroupByMonth, "":
		return MonthAggregator{DefaultRate: defaultRate}, nil
	case GroupByRange:
		return RangeAggregator{DefaultRate: defaultRate}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidGrouping, g)
	}
}

// rateRule carries a row rate into a group only while the group still has
// the default rate and the row names a different positive one. The first
// such row wins.
type rateRule struct {
	def decimal.Decimal
}

func (r rateRule) initial(employeeRate decimal.Decimal) decimal.Decimal {
	if employeeRate.IsPositive() {
		return employeeRate
	}
	return r.def
}

func (r rateRule) overrides(row decimal.Decimal) bool {
	return row.IsPositive() && !row.Equal(r.def)
}

func (r rateRule) apply(current, row decimal.Decimal) decimal.Decimal {
	if current.Equal(r.def) && r.overrides(row) {
		return row
	}
	return current
}

// MonthAggregator groups dates by employee and calendar month.
type MonthAggregator struct {
	DefaultRate decimal.Decimal
}

type monthKey struct {
	employee    int64
	year, month int
}

func (a MonthAggregator) Aggregate(items []Resolved) []Draft {
	rule := rateRule{def: a.DefaultRate}
	groups := map[monthKey]*Draft{}
	seen := map[monthKey]map[string]bool{}

	for _, item := range items {
		for _, day := range item.Record.Days() {
			year, month, err := dates.YearMonth(day)
			if err != nil {
				continue
			}
			key := monthKey{employee: item.EmployeeID, year: year, month: month}
			group, ok := groups[key]
			if !ok {
				group = &Draft{
					EmployeeID: item.EmployeeID,
					Grouping:   GroupByMonth,
					Year:       year,
					Month:      month,
					DailyRate:  rule.initial(item.EmployeeRate),
				}
				groups[key] = group
				seen[key] = map[string]bool{}
			}
			if !seen[key][day] {
				seen[key][day] = true
				group.Dates = append(group.Dates, day)
			}
			group.DailyRate = rule.apply(group.DailyRate, item.Record.DailyRate)
		}
	}

	out := make([]Draft, 0, len(groups))
	for _, group := range groups {
		sort.Strings(group.Dates)
		group.StartDate = group.Dates[0]
		group.EndDate = group.Dates[len(group.Dates)-1]
		out = append(out, *group)
	}
	sortDrafts(out)
	return out
}

// RangeAggregator builds one period per contiguous run of dates, never
// crossing a calendar month. Rows with an explicit end date become periods
// directly; single-day rows are joined into runs per employee.
type RangeAggregator struct {
	DefaultRate decimal.Decimal
}

type rangeKey struct {
	employee   int64
	start, end string
}

type dayRate struct {
	rate  decimal.Decimal
	order int
}

func (a RangeAggregator) Aggregate(items []Resolved) []Draft {
	rule := rateRule{def: a.DefaultRate}
	drafts := map[rangeKey]*Draft{}
	order := map[rangeKey]int{}

	put := func(employee int64, days []string, initial decimal.Decimal, rates []dayRate) {
		key := rangeKey{employee: employee, start: days[0], end: days[len(days)-1]}
		year, month, _ := dates.YearMonth(days[0])
		first := len(items)
		rate := initial
		for _, r := range rates {
			if r.order < first && initial.Equal(rule.def) && rule.overrides(r.rate) {
				first, rate = r.order, r.rate
			}
		}
		if existing, ok := drafts[key]; ok {
			if first < order[key] && existing.DailyRate.Equal(rule.def) {
				existing.DailyRate = rate
				order[key] = first
			}
			return
		}
		drafts[key] = &Draft{
			EmployeeID: employee,
			Grouping:   GroupByRange,
			Year:       year,
			Month:      month,
			StartDate:  key.start,
			EndDate:    key.end,
			Dates:      days,
			DailyRate:  rate,
		}
		order[key] = first
	}

	type pending struct {
		initial decimal.Decimal
		days    map[string]dayRate
	}
	daily := map[int64]*pending{}
	var employees []int64

	for i, item := range items {
		rec := item.Record
		if rec.EndDate != "" {
			for _, run := range splitByMonth(rec.Days()) {
				put(item.EmployeeID, run, rule.initial(item.EmployeeRate), []dayRate{{rate: rec.DailyRate, order: i}})
			}
			continue
		}
		p, ok := daily[item.EmployeeID]
		if !ok {
			p = &pending{initial: rule.initial(item.EmployeeRate), days: map[string]dayRate{}}
			daily[item.EmployeeID] = p
			employees = append(employees, item.EmployeeID)
		}
		current, seen := p.days[rec.Date]
		if !seen || (!rule.overrides(current.rate) && rule.overrides(rec.DailyRate)) {
			p.days[rec.Date] = dayRate{rate: rec.DailyRate, order: i}
		}
	}

	for _, employee := range employees {
		p := daily[employee]
		days := make([]string, 0, len(p.days))
		for day := range p.days {
			days = append(days, day)
		}
		sort.Strings(days)
		for _, run := range contiguousRuns(days) {
			rates := make([]dayRate, 0, len(run))
			for _, day := range run {
				rates = append(rates, p.days[day])
			}
			put(employee, run, p.initial, rates)
		}
	}

	out := make([]Draft, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, *d)
	}
	sortDrafts(out)
	return out
}

// contiguousRuns splits sorted unique dates into runs of consecutive days
// that stay within one calendar month.
func contiguousRuns(days []string) [][]string {
	var runs [][]string
	var run []string
	for _, day := range days {
		if len(run) > 0 && (dates.Next(run[len(run)-1]) != day || day[:7] != run[0][:7]) {
			runs = append(runs, run)
			run = nil
		}
		run = append(run, day)
	}
	if len(run) > 0 {
		runs = append(runs, run)
	}
	return runs
}

func splitByMonth(days []string) [][]string {
	var out [][]string
	var current []string
	for _, day := range days {
		if len(current) > 0 && day[:7] != current[0][:7] {
			out = append(out, current)
			current = nil
		}
		current = append(current, day)
	}
	if len(current) > 0 {
		out = append(out, current)
	}
	return out
}

func sortDrafts(drafts []Draft) {
	sort.Slice(drafts, func(i, j int) bool {
		if drafts[i].EmployeeID != drafts[j].EmployeeID {
			return drafts[i].EmployeeID < drafts[j].EmployeeID
		}
		if drafts[i].StartDate != drafts[j].StartDate {
			return drafts[i].StartDate < drafts[j].StartDate
		}
		return drafts[i].EndDate < drafts[j].EndDate
	})
}
