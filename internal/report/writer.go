package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/studiowebux/loadreport/internal/config"
)

// EncodeCSV renders a table as CSV bytes
func EncodeCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(t.Header); err != nil {
		return nil, fmt.Errorf("failed to encode header of %s: %w", t.File, err)
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, fmt.Errorf("failed to encode rows of %s: %w", t.File, err)
	}
	return buf.Bytes(), nil
}

// WriteCSV writes every table into dir, overwriting files with the same name.
// All tables are encoded before the first file is written.
func WriteCSV(dir string, tables []Table) ([]string, error) {
	encoded := make([][]byte, len(tables))
	for i, t := range tables {
		data, err := EncodeCSV(t)
		if err != nil {
			return nil, err
		}
		encoded[i] = data
	}

	if err := os.MkdirAll(dir, config.DirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	paths := make([]string, 0, len(tables))
	for i, t := range tables {
		path := filepath.Join(dir, t.File)
		if err := os.WriteFile(path, encoded[i], config.FilePermissions); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
