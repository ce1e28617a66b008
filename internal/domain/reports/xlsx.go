package reports

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// RenderXLSX writes r as a workbook with one sheet per summary and one
// listing every period.
func RenderXLSX(w io.Writer, r Reconciliation) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", "Employees"); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	employees := make([][]any, 0, len(r.Employees)+1)
	for _, e := range r.Employees {
		employees = append(employees, []any{
			e.Name, e.NationalID, e.Department, e.Periods, e.Days,
			e.Expected.InexactFloat64(), e.Paid.InexactFloat64(), e.Balance.InexactFloat64(),
			e.Unattributed.InexactFloat64(), e.Status,
		})
	}
	employees = append(employees, []any{
		"Total", "", "", r.Totals.Periods, r.Totals.Days,
		r.Totals.Expected.InexactFloat64(), r.Totals.Paid.InexactFloat64(), r.Totals.Balance.InexactFloat64(),
		r.Unattributed.InexactFloat64(), r.Totals.Status,
	})
	if err := writeSheet(f, "Employees", headerStyle,
		[]string{"Employee", "National ID", "Department", "Periods", "Days", "Expected", "Paid", "Balance", "Unattributed", "Status"},
		employees); err != nil {
		return err
	}

	months := make([][]any, 0, len(r.Months))
	for _, m := range r.Months {
		months = append(months, []any{
			fmt.Sprintf("%04d-%02d", m.Year, m.Month), m.Employees, m.Periods, m.Days,
			m.Expected.InexactFloat64(), m.Paid.InexactFloat64(), m.Balance.InexactFloat64(), m.Status,
		})
	}
	if err := writeSheet(f, "Months", headerStyle,
		[]string{"Month", "Employees", "Periods", "Days", "Expected", "Paid", "Balance", "Status"},
		months); err != nil {
		return err
	}

	periods := make([][]any, 0, len(r.Periods))
	for _, p := range r.Periods {
		periods = append(periods, []any{
			p.EmployeeName, p.NationalID, p.Department, p.StartDate, p.EndDate, p.TotalDays,
			p.DailyRateApplied.InexactFloat64(), p.ExpectedAmount.InexactFloat64(),
			p.TotalPaid.InexactFloat64(), p.Balance.InexactFloat64(), p.PaymentStatus,
		})
	}
	if err := writeSheet(f, "Periods", headerStyle,
		[]string{"Employee", "National ID", "Department", "Start", "End", "Days", "Daily rate", "Expected", "Paid", "Balance", "Status"},
		periods); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, style int, headers []string, rows [][]any) error {
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	}
	header := make([]any, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 16); err != nil {
		return fmt.Errorf("size %s columns: %w", sheet, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}

	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}
