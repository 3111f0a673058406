package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/xelth-com/eckreport/internal/models"
)

// SheetName is the only sheet of the history workbook
const SheetName = "Visitas"

// Spreadsheet writes the history table as an xlsx workbook. Every cell is
// stored as a string so dates and times round-trip as typed.
func (c *Compiler) Spreadsheet(table models.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	rows := append([][]string{table.Header}, table.Rows...)
	for r, row := range rows {
		for col, value := range row {
			cell, err := excelize.CoordinatesToCellName(col+1, r+1)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellStr(SheetName, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write %s: %w", cell, err)
			}
		}
	}

	if len(table.Header) > 0 {
		last, _ := excelize.ColumnNumberToName(len(table.Header))
		_ = f.SetColWidth(SheetName, "A", last, 18)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
