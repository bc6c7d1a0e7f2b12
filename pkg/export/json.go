package export

import (
	"encoding/json"
	"fmt"
)

// JSONRenderer renders Dataset records into an ordered JSON array.
type JSONRenderer struct {
	maxRows int
}

// NewJSONRenderer builds a JSON renderer with the given row cap.
func NewJSONRenderer(maxRows int) *JSONRenderer {
	if maxRows <= 0 {
		maxRows = 1000000
	}
	return &JSONRenderer{maxRows: maxRows}
}

// MaxRows returns the hard row cap.
func (e *JSONRenderer) MaxRows() int {
	return e.maxRows
}

// Render produces an indented JSON document of row objects keyed by header.
func (e *JSONRenderer) Render(data Dataset, _ string) ([]byte, error) {
	if err := checkLimit(data, e.maxRows); err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	rows := data.Rows
	if rows == nil {
		rows = []map[string]string{}
	}
	payload, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal json export: %w", err)
	}
	return payload, nil
}
