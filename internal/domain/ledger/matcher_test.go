package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"miluim/internal/domain/importer"
)

func matcherDoc() *Document {
	doc := NewDocument(fixedNow())
	doc.Employees = []Employee{
		{ID: 1, NationalID: "012345678", FirstName: "Dana", LastName: "Levi", DailyRate: dec("500"), Status: EmployeeActive},
		{ID: 2, FirstName: "Avi", LastName: "Ron", DailyRate: dec("500"), Department: "Ops", Status: EmployeeActive},
		{ID: 3, NationalID: "999", FirstName: "Noa", LastName: "Bar", DailyRate: dec("650"), Status: EmployeeActive},
	}
	return doc
}

func TestMatcherLookup(t *testing.T) {
	cases := []struct {
		name   string
		strict bool
		id     string
		first  string
		last   string
		want   int64
		found  bool
	}{
		{name: "id without leading zero", id: "12345678", first: "x", last: "y", want: 1, found: true},
		{name: "name", first: "Avi", last: "Ron", want: 2, found: true},
		{name: "reversed name", first: "Ron", last: "Avi", want: 2, found: true},
		{name: "extra spaces", first: " Avi ", last: "Ron", want: 2, found: true},
		{name: "name with foreign id", id: "111", first: "Noa", last: "Bar", found: false},
		{name: "name with id adopts empty", id: "222", first: "Avi", last: "Ron", want: 2, found: true},
		{name: "strict name only", strict: true, first: "Avi", last: "Ron", found: false},
		{name: "strict id", strict: true, id: "999", want: 3, found: true},
		{name: "unknown", first: "Nobody", last: "Here", found: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := matcherDoc()
			m := newMatcher(doc, dec("500"), tc.strict, fixedNow())
			i, ok := m.lookup(tc.id, nameKey(tc.first), nameKey(tc.last))
			require.Equal(t, tc.found, ok)
			if ok {
				assert.Equal(t, tc.want, doc.Employees[i].ID)
			}
		})
	}
}

func TestMatcherResolveCreatesAndFills(t *testing.T) {
	doc := matcherDoc()
	m := newMatcher(doc, dec("500"), false, fixedNow())

	i, created := m.resolve(importer.Record{FirstName: "Avi", LastName: "Ron", NationalID: "222", Department: "HR", DailyRate: dec("700")})
	require.False(t, created)
	e := doc.Employees[i]
	assert.Equal(t, "222", e.NationalID)
	assert.Equal(t, "Ops", e.Department)
	assert.True(t, e.DailyRate.Equal(dec("700")))

	i, created = m.resolve(importer.Record{FirstName: "Yael", LastName: "Tal"})
	require.True(t, created)
	assert.Equal(t, int64(4), doc.Employees[i].ID)
	assert.True(t, doc.Employees[i].DailyRate.Equal(dec("500")))
	assert.Equal(t, EmployeeActive, doc.Employees[i].Status)

	again, created := m.resolve(importer.Record{FirstName: "Tal", LastName: "Yael"})
	assert.False(t, created)
	assert.Equal(t, i, again)

	i, created = m.resolve(importer.Record{FirstName: "Noa", LastName: "Bar", DailyRate: dec("800")})
	assert.False(t, created)
	assert.True(t, doc.Employees[i].DailyRate.Equal(dec("650")))
}
