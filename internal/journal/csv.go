package journal

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// CSVJournal appends rows to a CSV file, writing the header once.
type CSVJournal struct {
	mu   sync.Mutex
	path string
	file *os.File
	w    *csv.Writer
}

// NewCSVJournal opens (or creates) the journal at path.
func NewCSVJournal(path string) (*CSVJournal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat journal: %w", err)
	}
	j := &CSVJournal{path: path, file: file, w: csv.NewWriter(file)}
	if info.Size() == 0 {
		if err := j.write(Columns); err != nil {
			file.Close()
			return nil, err
		}
	}
	return j, nil
}

// Path returns the journal location.
func (j *CSVJournal) Path() string { return j.path }

// Append writes one row.
func (j *CSVJournal) Append(_ context.Context, e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return ErrClosed
	}
	return j.write(Row(e))
}

func (j *CSVJournal) write(row []string) error {
	if err := j.w.Write(row); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	j.w.Flush()
	if err := j.w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// Close flushes and closes the file handle.
func (j *CSVJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	j.w.Flush()
	err := j.file.Close()
	j.file = nil
	return err
}
