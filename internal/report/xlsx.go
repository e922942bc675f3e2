package report

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// WriteWorkbook writes all tables into one workbook, one sheet per table.
// Numeric cells are stored as numbers, empty cells stay empty.
func WriteWorkbook(path string, tables []Table) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, t := range tables {
		index, err := f.NewSheet(t.Sheet)
		if err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", t.Sheet, err)
		}
		if i == 0 {
			f.SetActiveSheet(index)
		}

		if err := writeSheet(f, t, headerStyle); err != nil {
			return err
		}
	}

	if err := f.DeleteSheet(defaultSheet); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, t Table, headerStyle int) error {
	header := make([]interface{}, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	if err := f.SetSheetRow(t.Sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of sheet %s: %w", t.Sheet, err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(t.Header))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(t.Sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header of sheet %s: %w", t.Sheet, err)
	}
	if err := f.SetColWidth(t.Sheet, "A", lastCol, 20); err != nil {
		return fmt.Errorf("failed to size columns of sheet %s: %w", t.Sheet, err)
	}

	for r, row := range t.Rows {
		cells := make([]interface{}, len(row))
		for c, value := range row {
			cells[c] = cellValue(c, value)
		}

		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.Sheet, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row %d of sheet %s: %w", r+1, t.Sheet, err)
		}
	}
	return nil
}

// cellValue keeps the scenario column as text and stores numbers as numbers
func cellValue(col int, value string) interface{} {
	if col == 0 || value == "" {
		return value
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if v, err := strconv.ParseFloat(value, 64); err == nil {
		return v
	}
	return value
}
