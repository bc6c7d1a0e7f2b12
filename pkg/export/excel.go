package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const excelSheet = "Audit Events"

// ExcelRenderer renders datasets into a single-sheet XLSX workbook.
type ExcelRenderer struct {
	maxRows int
}

// NewExcelRenderer builds an Excel renderer with the given row cap.
func NewExcelRenderer(maxRows int) *ExcelRenderer {
	if maxRows <= 0 {
		maxRows = 100000
	}
	return &ExcelRenderer{maxRows: maxRows}
}

// MaxRows returns the hard row cap.
func (e *ExcelRenderer) MaxRows() int {
	return e.maxRows
}

// Render writes headers and rows into a workbook sheet.
func (e *ExcelRenderer) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one header")
	}
	if err := checkLimit(data, e.maxRows); err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	index, err := f.NewSheet(excelSheet)
	if err != nil {
		return nil, fmt.Errorf("create xlsx sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default xlsx sheet: %w", err)
	}

	headerRow := make([]interface{}, len(data.Headers))
	for i, header := range data.Headers {
		headerRow[i] = header
	}
	if err := f.SetSheetRow(excelSheet, "A1", &headerRow); err != nil {
		return nil, fmt.Errorf("write xlsx headers: %w", err)
	}

	for i, row := range data.Rows {
		record := make([]interface{}, len(data.Headers))
		for j, header := range data.Headers {
			record[j] = row[header]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("resolve xlsx cell: %w", err)
		}
		if err := f.SetSheetRow(excelSheet, cell, &record); err != nil {
			return nil, fmt.Errorf("write xlsx row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
