package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestChildAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger("cli")
	l.SetOutput(&buf)

	l.Child("pairing").Info().Str("step", "start").Msg("hello")

	out := buf.String()
	if !strings.Contains(out, `"component":"pairing"`) {
		t.Errorf("expected component field in %q", out)
	}
	if !strings.Contains(out, `"step":"start"`) {
		t.Errorf("expected step field in %q", out)
	}
}

func TestNewFileLoggerWritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	l, err := NewFileLogger(dir, "test.log")
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	if got, want := l.LogFilePath(), filepath.Join(dir, "test.log"); got != want {
		t.Errorf("LogFilePath() = %q, want %q", got, want)
	}
	l.Info().Msg("written to file")
	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "test.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file missing message, got %q", string(data))
	}
}

func TestNopDiscards(t *testing.T) {
	l := NewNop()
	l.Error().Msg("ignored")
	if err := l.Close(); err != nil {
		t.Errorf("Close() on nop logger = %v", err)
	}
}
