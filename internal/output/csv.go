// Package output writes extraction results to disk.
package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// utf8BOM keeps Excel from misreading the Japanese headers.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes a header and records to path, creating parent
// directories as needed.
func WriteCSV(path string, header []string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	w := csv.NewWriter(f)
	if len(header) > 0 {
		if err := w.Write(header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for _, record := range records {
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

// WriteVariableCSV writes rows of differing widths with no header.
func WriteVariableCSV(path string, records [][]string) error {
	return WriteCSV(path, nil, records)
}
