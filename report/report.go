/*
Package report renders spreadsheet exports of the ledger and the insights.

EXPORTS:
  WriteInvoices: one row per invoice view (amount, paid, balance, status)
  WriteInsights: heatmap grid on "Heatmap", per-student metrics on "At Risk"

Amounts are written as numbers so the sheet can total them. Empty heatmap
cells stay blank rather than 0.
*/
package report

import (
	"fmt"
	"io"

	"github.com/warp/student-ledger/fees"
	"github.com/warp/student-ledger/generic"
	"github.com/warp/student-ledger/insights"
	"github.com/xuri/excelize/v2"
)

// Sheet names.
const (
	InvoicesSheet = "Invoices"
	HeatmapSheet  = "Heatmap"
	AtRiskSheet   = "At Risk"
)

// ContentType is the MIME type of the generated files.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// =============================================================================
// INVOICES
// =============================================================================

// WriteInvoices writes the invoice views as an XLSX workbook.
func WriteInvoices(w io.Writer, views []fees.InvoiceView) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", InvoicesSheet); err != nil {
		return err
	}
	header := []any{"Invoice", "Student ID", "Student", "Description", "Amount", "Paid", "Balance", "Due Date", "Status"}
	if err := writeHeader(f, InvoicesSheet, header); err != nil {
		return err
	}

	for i, v := range views {
		due := ""
		if v.DueDate != nil {
			due = v.DueDate.String()
		}
		row := []any{
			int64(v.ID), int64(v.StudentID), v.StudentName, v.Description,
			generic.Float(v.Amount), generic.Float(v.PaidTotal), generic.Float(v.Balance),
			due, string(v.Status),
		}
		if err := setRow(f, InvoicesSheet, i+2, row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(InvoicesSheet, "C", "D", 24); err != nil {
		return err
	}
	return f.Write(w)
}

// =============================================================================
// INSIGHTS
// =============================================================================

// WriteInsights writes the heatmap and the per-student metrics.
func WriteInsights(w io.Writer, in insights.Insights) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", HeatmapSheet); err != nil {
		return err
	}
	header := []any{"Term"}
	for _, s := range in.Heatmap.Subjects {
		header = append(header, s)
	}
	if err := writeHeader(f, HeatmapSheet, header); err != nil {
		return err
	}
	for ti, term := range in.Heatmap.Terms {
		row := []any{term}
		for _, v := range in.Heatmap.Values[ti] {
			if v == nil {
				row = append(row, nil)
				continue
			}
			row = append(row, *v)
		}
		if err := setRow(f, HeatmapSheet, ti+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(AtRiskSheet); err != nil {
		return err
	}
	if err := writeHeader(f, AtRiskSheet, []any{"Student ID", "Name", "Course", "Attendance %", "Latest Average", "At Risk"}); err != nil {
		return err
	}
	for i, s := range in.Students {
		row := []any{int64(s.ID), s.Name, s.Course, optional(s.AttendancePercent), optional(s.LatestAverage), yesNo(s.AtRisk)}
		if err := setRow(f, AtRiskSheet, i+2, row); err != nil {
			return err
		}
	}
	return f.Write(w)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeHeader(f *excelize.File, sheet string, header []any) error {
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("report: write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func optional(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
