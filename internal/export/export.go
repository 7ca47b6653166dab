// Package export renders the transaction table as downloadable files.
package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"fintrack/internal/core"
	"fintrack/internal/storage/csvfile"
)

const (
	CSVFilename  = "transactions.csv"
	XLSXFilename = "transactions.xlsx"

	CSVContentType  = "text/csv; charset=utf-8"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	TransactionsSheet = "Transactions"
	SummarySheet      = "Summary"
)

// CSV writes rows in the backing-file format.
func CSV(w io.Writer, rows []core.Transaction) error {
	return csvfile.Encode(w, rows)
}

// XLSX writes a workbook with every transaction and a per-month summary.
func XLSX(w io.Writer, rows []core.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", TransactionsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	// #,##0 renders with the viewer's locale separators
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 3})
	if err != nil {
		return fmt.Errorf("amount style: %w", err)
	}

	if err := writeTransactions(f, rows, headerStyle, amountStyle); err != nil {
		return err
	}
	if err := writeSummary(f, rows, headerStyle, amountStyle); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeTransactions(f *excelize.File, rows []core.Transaction, headerStyle, amountStyle int) error {
	sheet := TransactionsSheet
	header := []any{"Date", "Category", "Description", "Amount"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "D1", headerStyle); err != nil {
		return err
	}
	f.SetColWidth(sheet, "A", "B", 14)
	f.SetColWidth(sheet, "C", "C", 40)
	f.SetColWidth(sheet, "D", "D", 16)

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{r.Date.ISO(), string(r.Category), r.Description, r.Amount}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if len(rows) > 0 {
		last := fmt.Sprintf("D%d", len(rows)+1)
		if err := f.SetCellStyle(sheet, "D2", last, amountStyle); err != nil {
			return err
		}
	}
	return nil
}

func writeSummary(f *excelize.File, rows []core.Transaction, headerStyle, amountStyle int) error {
	type monthTotal struct {
		total int64
		count int
	}
	totals := make(map[core.MonthKey]*monthTotal)
	for _, r := range rows {
		m := r.Month()
		if totals[m] == nil {
			totals[m] = &monthTotal{}
		}
		totals[m].total += r.Amount
		totals[m].count++
	}
	months := make([]core.MonthKey, 0, len(totals))
	for m := range totals {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i] > months[j] })

	sheet := SummarySheet
	header := []any{"Month", "Transactions", "Total"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "C1", headerStyle); err != nil {
		return err
	}
	f.SetColWidth(sheet, "A", "C", 16)

	for i, m := range months {
		values := []any{string(m), totals[m].count, totals[m].total}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return fmt.Errorf("write summary row: %w", err)
		}
	}
	if len(months) > 0 {
		if err := f.SetCellStyle(sheet, "C2", fmt.Sprintf("C%d", len(months)+1), amountStyle); err != nil {
			return err
		}
	}
	return nil
}
