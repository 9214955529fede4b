package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nestwire/nestwire-core/internal/apperr"
	"github.com/nestwire/nestwire-core/internal/infrastructure/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewWithWriter_JSONDefaultFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, "1.2.3", &buf)

	logger.Info("endpoint updated", "device_id", "d1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}

	want := map[string]string{
		"msg":       "endpoint updated",
		"service":   "nestwire",
		"version":   "1.2.3",
		"device_id": "d1",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("entry[%q] = %v, want %q", k, entry[k], v)
		}
	}
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Level: "warn", Format: "text"}, "dev", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info entry written at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn entry missing")
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Format: "json"}, "dev", &buf)

	child := logger.With("component", "bridge")
	if child == logger {
		t.Fatal("expected child logger to be different from parent")
	}

	child.Info("started")
	if !strings.Contains(buf.String(), `"component":"bridge"`) {
		t.Errorf("child output missing component attribute: %s", buf.String())
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("expected non-nil default logger")
	}
}

func TestLogger_ComponentAndErr(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(config.LoggingConfig{Format: "json"}, "dev", &buf).Component("engine")

	logger.Warn("schedule failed", Err(fmt.Errorf("publish: %w", apperr.ErrTransient)))

	var entry struct {
		Component string `json:"component"`
		Error     struct {
			Msg  string `json:"msg"`
			Kind string `json:"kind"`
		} `json:"error"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON output: %v", err)
	}
	if entry.Component != "engine" {
		t.Errorf("component = %q, want engine", entry.Component)
	}
	if entry.Error.Kind != apperr.CodeTransient || !strings.HasPrefix(entry.Error.Msg, "publish:") {
		t.Errorf("error group = %+v", entry.Error)
	}

	if attr := Err(nil); !attr.Equal(slog.Attr{}) {
		t.Errorf("Err(nil) = %v, want empty attr", attr)
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nestwire.log")
	logger := New(config.LoggingConfig{Format: "text", Output: path}, "dev")
	logger.Info("written to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file content = %q", data)
	}

	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if logger.out != nil {
		t.Error("file handle kept after Close")
	}
}

func TestClose_StandardStreamsUntouched(t *testing.T) {
	logger := New(config.LoggingConfig{Output: "stderr"}, "dev")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if _, err := os.Stderr.Stat(); err != nil {
		t.Errorf("stderr unusable after Close: %v", err)
	}
	if err := logger.Component("engine").Close(); err != nil {
		t.Errorf("child Close() error = %v", err)
	}
}
