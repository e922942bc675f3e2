package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingData is returned when no scenario files are found under the input root
var ErrMissingData = errors.New("no scenario files found")

// IOError wraps a filesystem failure while reading input
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// SchemaError reports input that does not satisfy the record contract:
// missing columns, non-numeric cells, invariant violations or ambiguous rows.
type SchemaError struct {
	Path   string
	Row    int // 1-based data row, 0 when not row specific
	Column string
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("invalid scenario file ")
	b.WriteString(e.Path)
	if e.Row > 0 {
		fmt.Fprintf(&b, " (row %d", e.Row)
		if e.Column != "" {
			fmt.Fprintf(&b, ", column %q", e.Column)
		}
		b.WriteString(")")
	} else if e.Column != "" {
		fmt.Fprintf(&b, " (column %q)", e.Column)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}
