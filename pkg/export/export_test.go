package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleDataset(rows int) Dataset {
	data := Dataset{Headers: []string{"Actor", "Action", "Status"}}
	for i := 0; i < rows; i++ {
		data.Rows = append(data.Rows, map[string]string{
			"Actor":  fmt.Sprintf("user-%d", i),
			"Action": "Read",
			"Status": "Success",
		})
	}
	return data
}

func TestCSVRendererRender(t *testing.T) {
	renderer := NewCSVRenderer(100)
	payload, err := renderer.Render(sampleDataset(3), "")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "Actor,Action,Status", lines[0])
	require.Equal(t, "user-0,Read,Success", lines[1])
}

func TestCSVRendererRowLimit(t *testing.T) {
	renderer := NewCSVRenderer(2)
	_, err := renderer.Render(sampleDataset(3), "")
	require.ErrorIs(t, err, ErrRowLimit)
}

func TestJSONRendererRender(t *testing.T) {
	renderer := NewJSONRenderer(100)
	payload, err := renderer.Render(sampleDataset(2), "")
	require.NoError(t, err)

	var rows []map[string]string
	require.NoError(t, json.Unmarshal(payload, &rows))
	require.Len(t, rows, 2)
	require.Equal(t, "user-1", rows[1]["Actor"])
}

func TestJSONRendererEmptyDataset(t *testing.T) {
	renderer := NewJSONRenderer(100)
	payload, err := renderer.Render(Dataset{Headers: []string{"Actor"}}, "")
	require.NoError(t, err)
	require.Equal(t, "[]", string(payload))
}

func TestExcelRendererRender(t *testing.T) {
	renderer := NewExcelRenderer(100)
	payload, err := renderer.Render(sampleDataset(5), "Audit Export")
	require.NoError(t, err)
	require.NotEmpty(t, payload)
	// XLSX files are zip archives.
	require.Equal(t, []byte{'P', 'K'}, payload[:2])
}

func TestExcelRendererRowLimit(t *testing.T) {
	renderer := NewExcelRenderer(4)
	_, err := renderer.Render(sampleDataset(5), "")
	require.ErrorIs(t, err, ErrRowLimit)
}

func TestPDFRendererRender(t *testing.T) {
	renderer := NewPDFRenderer(100)
	payload, err := renderer.Render(sampleDataset(3), "Audit Export")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestPDFRendererRowLimit(t *testing.T) {
	renderer := NewPDFRenderer(1)
	_, err := renderer.Render(sampleDataset(2), "")
	require.ErrorIs(t, err, ErrRowLimit)
}
