package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitWriterFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	InitWriter(&buf, "warn")
	defer Init("info")

	Info("hidden message")
	Warn("visible message", "tick", 3)

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Errorf("Expected info message to be filtered, got %q", out)
	}
	if !strings.Contains(out, "visible message") || !strings.Contains(out, "tick=3") {
		t.Errorf("Expected warn message with attributes, got %q", out)
	}
}
