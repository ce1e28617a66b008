package importer

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// headerScanLimit bounds how many leading rows may precede the header row.
const headerScanLimit = 25

// Row is one data row keyed by the header text of its sheet. Line is the
// 1-based row number in the source.
type Row struct {
	Line   int
	Values map[string]any
}

// Table is a header plus its data rows.
type Table struct {
	Headers []string
	Rows    []Row
}

// TableFromMaps builds a table from decoded JSON objects. Headers are the
// sorted union of keys, so column resolution does not depend on map order.
func TableFromMaps(rows []map[string]any) Table {
	seen := map[string]bool{}
	var headers []string
	out := make([]Row, 0, len(rows))
	for i, values := range rows {
		for k := range values {
			if !seen[k] {
				seen[k] = true
				headers = append(headers, k)
			}
		}
		out = append(out, Row{Line: i + 1, Values: values})
	}
	sort.Strings(headers)
	return Table{Headers: headers, Rows: out}
}

// TableFromGrid locates the header row of a sheet and turns the rows below
// it into a table. The header is the first row, within the first rows of the
// sheet, whose cells resolve every required field of kind. Blank rows are
// dropped.
func TableFromGrid(grid [][]string, vocab Vocabulary, kind Kind) (Table, Columns, error) {
	headerAt := -1
	var cols Columns
	var firstErr error
	for i := 0; i < len(grid) && i < headerScanLimit; i++ {
		if blank(grid[i]) {
			continue
		}
		resolved, err := vocab.Resolve(trimAll(grid[i]), kind)
		if err == nil {
			headerAt, cols = i, resolved
			break
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if headerAt < 0 {
		if firstErr == nil {
			return Table{}, Columns{}, ErrEmptyWorkbook
		}
		return Table{}, Columns{}, firstErr
	}

	headers := trimAll(grid[headerAt])
	table := Table{Headers: headers}
	for i := headerAt + 1; i < len(grid); i++ {
		if blank(grid[i]) {
			continue
		}
		values := make(map[string]any, len(headers))
		for c, header := range headers {
			if header == "" || c >= len(grid[i]) {
				continue
			}
			if _, dup := values[header]; dup {
				continue
			}
			values[header] = strings.TrimSpace(grid[i][c])
		}
		table.Rows = append(table.Rows, Row{Line: i + 1, Values: values})
	}
	return table, cols, nil
}

// ReadWorkbook returns the raw cell grid of one sheet. An empty sheet name
// selects the first sheet. Cells come back unformatted so dates arrive as
// serial numbers.
func ReadWorkbook(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	defer f.Close()

	if strings.TrimSpace(sheet) == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %v", ErrUnreadableWorkbook, sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyWorkbook
	}
	return rows, nil
}

// IsInputError reports whether err comes from the shape of the uploaded
// data rather than from the server.
func IsInputError(err error) bool {
	return errors.Is(err, ErrMissingColumns) ||
		errors.Is(err, ErrEmptyWorkbook) ||
		errors.Is(err, ErrUnreadableWorkbook) ||
		errors.Is(err, ErrInvalidGrouping)
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func trimAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}
	return out
}
