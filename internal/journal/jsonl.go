package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"crossbot-go/internal/signal"
)

// JSONLRecorder appends entries as JSON lines for later analysis.
type JSONLRecorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

type jsonlLine struct {
	CycleID string `json:"cycle_id"`
	signal.Record
}

// NewJSONLRecorder creates/opens the target file and returns a recorder.
func NewJSONLRecorder(path string) (*JSONLRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONLRecorder{
		file: file,
		enc:  json.NewEncoder(file),
	}, nil
}

// Append writes a single entry to the underlying JSONL file.
func (r *JSONLRecorder) Append(_ context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return ErrClosed
	}
	if err := r.enc.Encode(jsonlLine{CycleID: e.CycleID, Record: e.Record}); err != nil {
		return fmt.Errorf("encode jsonl: %w", err)
	}
	return nil
}

// Close closes the file handle.
func (r *JSONLRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// DecodeLine reverses the JSONL encoding.
func DecodeLine(line []byte) (Entry, error) {
	var l jsonlLine
	if err := json.Unmarshal(line, &l); err != nil {
		return Entry{}, err
	}
	return Entry{CycleID: l.CycleID, Record: l.Record}, nil
}
