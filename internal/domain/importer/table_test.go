package importer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestTableFromGridFindsHeaderBelowMetadata(t *testing.T) {
	grid := [][]string{
		{"דוח תגמולים"},
		{"", "מעסיק", "ליטאי"},
		{},
		{"זהות", "שם פרטי", "שם משפחה", "תאריך שרות", "תגמול"},
		{"123", "David", "Cohen", "45731", "1000"},
		{"", "", ""},
		{"456", "Dana"},
	}

	table, cols, err := TableFromGrid(grid, DefaultVocabulary(), KindPayment)
	require.NoError(t, err)
	assert.Equal(t, "תגמול", cols.Header(FieldAmount))
	require.Len(t, table.Rows, 2)
	assert.Equal(t, 5, table.Rows[0].Line)
	assert.Equal(t, "Cohen", table.Rows[0].Values["שם משפחה"])
	assert.Equal(t, 7, table.Rows[1].Line)
	_, hasAmount := table.Rows[1].Values["תגמול"]
	assert.False(t, hasAmount)
}

func TestTableFromGridWithoutHeader(t *testing.T) {
	_, _, err := TableFromGrid([][]string{{"foo", "bar"}, {"1", "2"}}, DefaultVocabulary(), KindAttendance)
	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.True(t, IsInputError(err))

	_, _, err = TableFromGrid(nil, DefaultVocabulary(), KindAttendance)
	assert.ErrorIs(t, err, ErrEmptyWorkbook)
}

func TestReadWorkbook(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "שם עובד"))
	require.NoError(t, f.SetCellValue(sheet, "B1", "תאריך"))
	require.NoError(t, f.SetCellValue(sheet, "A2", "David Cohen"))
	require.NoError(t, f.SetCellValue(sheet, "B2", 45731))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	grid, err := ReadWorkbook(&buf, "")
	require.NoError(t, err)
	table, cols, err := TableFromGrid(grid, DefaultVocabulary(), KindAttendance)
	require.NoError(t, err)

	records, skips := NewClassifier(cols, Options{}).ClassifyAll(table)
	assert.Empty(t, skips)
	require.Len(t, records, 1)
	assert.Equal(t, "2025-03-15", records[0].Date)
	assert.Equal(t, 2, records[0].Line)
}

func TestReadWorkbookRejectsGarbage(t *testing.T) {
	_, err := ReadWorkbook(bytes.NewReader([]byte("not a zip")), "")
	assert.Error(t, err)
}
