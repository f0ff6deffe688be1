package util

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

func NewLogger(level string) zerolog.Logger {
	return newLogger(os.Stdout, level)
}

// NewLoggerWithErrorFile logs to stdout and appends error-and-above events to path.
// The returned closer releases the error log file.
func NewLoggerWithErrorFile(level, path string) (zerolog.Logger, io.Closer, error) {
	if path == "" {
		return NewLogger(level), io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("create error log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open error log: %w", err)
	}
	w := zerolog.MultiLevelWriter(os.Stdout, MinLevelWriter{Writer: file, Min: zerolog.ErrorLevel})
	return newLogger(w, level), file, nil
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}

// MinLevelWriter drops events below Min.
type MinLevelWriter struct {
	io.Writer
	Min zerolog.Level
}

func (w MinLevelWriter) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < w.Min {
		return len(p), nil
	}
	return w.Writer.Write(p)
}
