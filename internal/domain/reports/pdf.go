package reports

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jung-kurt/gofpdf"
)

type column struct {
	title string
	width float64
	align string
}

var employeeColumns = []column{
	{"Employee", 50, "L"},
	{"National ID", 30, "L"},
	{"Department", 32, "L"},
	{"Periods", 18, "R"},
	{"Days", 15, "R"},
	{"Expected", 28, "R"},
	{"Paid", 28, "R"},
	{"Balance", 28, "R"},
	{"Unattributed", 24, "R"},
	{"Status", 20, "C"},
}

var monthColumns = []column{
	{"Month", 30, "L"},
	{"Employees", 25, "R"},
	{"Periods", 20, "R"},
	{"Days", 20, "R"},
	{"Expected", 35, "R"},
	{"Paid", 35, "R"},
	{"Balance", 35, "R"},
	{"Status", 25, "C"},
}

// RenderPDF writes r as an A4 landscape document. Core fonts cannot draw
// Hebrew, so fontFile should point at a UTF-8 TTF when names are Hebrew.
func RenderPDF(w io.Writer, r Reconciliation, fontFile string) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	family := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if fontFile != "" {
		pdf.AddUTF8Font("body", "", fontFile)
		pdf.AddUTF8Font("body", "B", fontFile)
		family = "body"
		tr = func(s string) string { return s }
	}
	pdf.SetTitle(r.Title(), true)
	pdf.AddPage()

	pdf.SetFont(family, "B", 14)
	pdf.CellFormat(0, 10, tr(r.Title()), "", 1, "L", false, 0, "")
	pdf.SetFont(family, "", 9)
	pdf.CellFormat(0, 6, "Generated "+r.GeneratedAt.Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Employees %d   Periods %d   Days %d   Expected %s   Paid %s   Balance %s   Unattributed %s",
		r.Totals.Employees, r.Totals.Periods, r.Totals.Days,
		money(r.Totals.Expected), money(r.Totals.Paid), money(r.Totals.Balance), money(r.Unattributed)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	rows := make([][]string, 0, len(r.Employees))
	for _, e := range r.Employees {
		rows = append(rows, []string{
			e.Name, e.NationalID, e.Department,
			strconv.Itoa(e.Periods), strconv.Itoa(e.Days),
			money(e.Expected), money(e.Paid), money(e.Balance), money(e.Unattributed), e.Status,
		})
	}
	section(pdf, family, tr, "By employee", employeeColumns, rows)

	rows = rows[:0]
	for _, m := range r.Months {
		rows = append(rows, []string{
			fmt.Sprintf("%02d/%04d", m.Month, m.Year),
			strconv.Itoa(m.Employees), strconv.Itoa(m.Periods), strconv.Itoa(m.Days),
			money(m.Expected), money(m.Paid), money(m.Balance), m.Status,
		})
	}
	pdf.Ln(6)
	section(pdf, family, tr, "By month", monthColumns, rows)

	return pdf.Output(w)
}

func section(pdf *gofpdf.Fpdf, family string, tr func(string) string, title string, cols []column, rows [][]string) {
	pdf.SetFont(family, "B", 11)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")

	pdf.SetFont(family, "B", 9)
	pdf.SetFillColor(230, 243, 255)
	for _, c := range cols {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 9)
	if len(rows) == 0 {
		pdf.CellFormat(0, 7, "No duty periods", "1", 1, "C", false, 0, "")
		return
	}
	for _, row := range rows {
		for i, c := range cols {
			pdf.CellFormat(c.width, 6, tr(row[i]), "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
}
