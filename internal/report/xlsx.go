// Package report renders processed documents as spreadsheets and plain text.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/rezonia/docintel/internal/model"
)

// Sheet names of the XLSX workbook
const (
	SheetSummary = "Summary"
	SheetItems   = "Line items"
)

// XLSX returns a workbook with a Summary sheet of the extracted fields and a
// Line items sheet with one row per amount.
func XLSX(rec *model.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// the default sheet becomes the summary
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetItems); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}

	fields := rec.Fields
	if fields == nil {
		fields = model.NewExtractionResult()
	}

	rows := [][]any{
		{"Field", "Value"},
		{"Source file", rec.Filename},
		{"Vendor", str(fields.Vendor)},
		{"Invoice number", str(fields.InvoiceNumber)},
		{"Issue date", date(fields.Dates.Issue)},
		{"Due date", date(fields.Dates.Due)},
		{"Delivery date", date(fields.Dates.Delivery)},
		{"Other dates", otherDates(fields.Dates.Other)},
		{"Subtotal", number(fields.Totals.Subtotal)},
		{"Tax", number(fields.Totals.Tax)},
		{"Total due", number(fields.Totals.TotalDue)},
		{"Summary", str(rec.Summary)},
	}
	if err := writeRows(f, SheetSummary, rows); err != nil {
		return nil, err
	}

	items := [][]any{{"Description", "Quantity", "Amount", "Currency", "Label"}}
	for _, it := range fields.Amounts {
		items = append(items, []any{
			str(it.Description),
			str(it.Quantity),
			it.Amount.InexactFloat64(),
			str(it.Currency),
			str(it.Label),
		})
	}
	if err := writeRows(f, SheetItems, items); err != nil {
		return nil, err
	}

	_ = f.SetColWidth(SheetSummary, "A", "A", 18)
	_ = f.SetColWidth(SheetSummary, "B", "B", 60)
	_ = f.SetColWidth(SheetItems, "A", "A", 48)
	_ = f.SetColWidth(SheetItems, "B", "E", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, r+1, err)
		}
	}
	return nil
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(model.DateLayout)
}

func otherDates(ds []*time.Time) string {
	parts := make([]string, 0, len(ds))
	for _, d := range ds {
		if d == nil {
			parts = append(parts, "unresolved")
			continue
		}
		parts = append(parts, d.Format(model.DateLayout))
	}
	return strings.Join(parts, ", ")
}

func number(d *decimal.Decimal) any {
	if d == nil {
		return ""
	}
	return d.InexactFloat64()
}
