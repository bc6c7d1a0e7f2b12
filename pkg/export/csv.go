package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVRenderer renders Dataset records into CSV bytes.
type CSVRenderer struct {
	maxRows int
}

// NewCSVRenderer builds a CSV renderer with the given row cap.
func NewCSVRenderer(maxRows int) *CSVRenderer {
	if maxRows <= 0 {
		maxRows = 1000000
	}
	return &CSVRenderer{maxRows: maxRows}
}

// MaxRows returns the hard row cap.
func (e *CSVRenderer) MaxRows() int {
	return e.maxRows
}

// Render produces CSV encoded bytes for the dataset.
func (e *CSVRenderer) Render(data Dataset, _ string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	if err := checkLimit(data, e.maxRows); err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(data.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for _, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
