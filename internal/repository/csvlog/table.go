// Package csvlog is the primary append-only record of accepted detections.
package csvlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"smartdate/internal/model"
)

// Header is the first row of every detection table.
var Header = []string{"timestamp", "label", "confidence"}

// Table appends records to a CSV file. Every append opens and closes the file
// so that each row is on disk before Append returns.
type Table struct {
	path string
	mu   sync.Mutex
}

// NewTable creates a Table backed by path. The file is created lazily.
func NewTable(path string) *Table {
	return &Table{path: path}
}

// Path returns the backing file path.
func (t *Table) Path() string {
	return t.path
}

// Append writes rec as one row, preceded by the header when the file is new
// or empty.
func (t *Table) Append(rec model.Record) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if dir := filepath.Dir(t.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create table directory: %w", err)
		}
	}

	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open table: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat table: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		w.Write(Header)
	}
	w.Write([]string{
		formatFloat(rec.Timestamp),
		rec.Label,
		formatFloat(rec.Confidence),
	})
	w.Flush()

	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write row: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close table: %w", err)
	}
	return nil
}

// ReadAll returns every row of the table in file order. A missing file
// yields no records.
func (t *Table) ReadAll() ([]model.Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer f.Close()

	return ReadRecords(f)
}

// ReadRecords parses a detection table. The header row is optional and
// rows with unparseable numbers are rejected.
func ReadRecords(r io.Reader) ([]model.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	var records []model.Record
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}
		if line == 1 && row[0] == Header[0] {
			continue
		}

		ts, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp on row %d: %w", line, err)
		}
		conf, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid confidence on row %d: %w", line, err)
		}

		records = append(records, model.Record{Timestamp: ts, Label: row[1], Confidence: conf})
	}

	return records, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
