package export

import "errors"

// ErrRowLimit signals a dataset larger than the renderer's hard cap.
// Callers must reject the request; truncating silently is never allowed.
var ErrRowLimit = errors.New("row limit exceeded")

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Renderer produces the bytes of one export format.
type Renderer interface {
	Render(data Dataset, title string) ([]byte, error)
	MaxRows() int
}

func checkLimit(data Dataset, maxRows int) error {
	if maxRows > 0 && len(data.Rows) > maxRows {
		return ErrRowLimit
	}
	return nil
}
