package util

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewLoggerLevel(t *testing.T) {
	logger := NewLogger("debug")
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}

	logger = NewLogger("invalid")
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info fallback, got %s", logger.GetLevel())
	}
}

func TestErrorFileReceivesOnlyErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bot_errors.log")
	logger, closer, err := NewLoggerWithErrorFile("info", path)
	if err != nil {
		t.Fatalf("NewLoggerWithErrorFile error: %v", err)
	}
	logger.Info().Msg("cycle completed")
	logger.Error().Str("symbol", "BTCUSDT").Msg("telegram failed")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read error log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "telegram failed") {
		t.Fatalf("expected error line in file, got %q", out)
	}
	if strings.Contains(out, "cycle completed") {
		t.Fatalf("info line leaked into error log: %q", out)
	}
}

func TestMinLevelWriter(t *testing.T) {
	var buf bytes.Buffer
	w := MinLevelWriter{Writer: &buf, Min: zerolog.WarnLevel}
	if _, err := w.WriteLevel(zerolog.InfoLevel, []byte("skip")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := w.WriteLevel(zerolog.WarnLevel, []byte("keep")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "keep" {
		t.Fatalf("unexpected writer output %q", buf.String())
	}
}
