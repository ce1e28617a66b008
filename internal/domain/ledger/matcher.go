package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"miluim/internal/domain/importer"
)

// matcher resolves imported rows to employees of one document. It is built
// once per import and sees the employees it creates.
type matcher struct {
	doc         *Document
	defaultRate decimal.Decimal
	strict      bool
	now         time.Time

	byID    map[string]int
	byName  map[string][]int
	created map[int64]bool
	// updated counts existing employees that had empty fields filled.
	updated int
}

func newMatcher(doc *Document, defaultRate decimal.Decimal, strict bool, now time.Time) *matcher {
	m := &matcher{
		doc:         doc,
		defaultRate: defaultRate,
		strict:      strict,
		now:         now,
		byID:        map[string]int{},
		byName:      map[string][]int{},
		created:     map[int64]bool{},
	}
	for i := range doc.Employees {
		m.index(i)
	}
	return m
}

func (m *matcher) index(i int) {
	e := m.doc.Employees[i]
	if key := idKey(e.NationalID); key != "" {
		m.byID[key] = i
	}
	if key := nameKey(e.FullName()); key != "" {
		m.byName[key] = append(m.byName[key], i)
	}
}

// lookup finds an employee by national id, or else by name in either
// order. A name match never crosses a different national id.
func (m *matcher) lookup(nationalID, first, last string) (int, bool) {
	if key := idKey(nationalID); key != "" {
		if i, ok := m.byID[key]; ok {
			return i, true
		}
	}
	for _, candidate := range []string{first + " " + last, last + " " + first} {
		for _, i := range m.byName[nameKey(candidate)] {
			e := m.doc.Employees[i]
			if nationalID != "" && e.NationalID != "" {
				continue
			}
			if m.strict && nationalID == "" && !m.created[e.ID] {
				continue
			}
			return i, true
		}
	}
	return -1, false
}

// resolve returns the index of the employee for rec, creating one when
// nothing matches. Existing employees only have empty fields filled in.
func (m *matcher) resolve(rec importer.Record) (int, bool) {
	if i, ok := m.lookup(rec.NationalID, rec.FirstName, rec.LastName); ok {
		m.fill(i, rec)
		return i, false
	}

	rate := rec.DailyRate
	if !rate.IsPositive() {
		rate = m.defaultRate
	}
	e := Employee{
		ID:         m.doc.nextEmployeeID(),
		NationalID: rec.NationalID,
		FirstName:  rec.FirstName,
		LastName:   rec.LastName,
		Department: rec.Department,
		DailyRate:  rate,
		Status:     EmployeeActive,
		CreatedAt:  m.now,
		UpdatedAt:  m.now,
	}
	m.doc.Employees = append(m.doc.Employees, e)
	i := len(m.doc.Employees) - 1
	m.created[e.ID] = true
	m.index(i)
	return i, true
}

func (m *matcher) fill(i int, rec importer.Record) {
	e := &m.doc.Employees[i]
	changed := false
	if e.NationalID == "" && rec.NationalID != "" {
		e.NationalID = rec.NationalID
		m.byID[idKey(rec.NationalID)] = i
		changed = true
	}
	if e.Department == "" && rec.Department != "" {
		e.Department = rec.Department
		changed = true
	}
	if (!e.DailyRate.IsPositive() || e.DailyRate.Equal(m.defaultRate)) &&
		rec.DailyRate.IsPositive() && !rec.DailyRate.Equal(m.defaultRate) {
		e.DailyRate = rec.DailyRate
		changed = true
	}
	if changed {
		e.UpdatedAt = m.now
		m.updated++
	}
}

// idKey compares national ids without the leading zeros that spreadsheets
// tend to drop.
func idKey(id string) string {
	id = strings.TrimSpace(id)
	if trimmed := strings.TrimLeft(id, "0"); trimmed != "" {
		return trimmed
	}
	return id
}

func nameKey(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
