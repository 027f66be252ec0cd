package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// capture swaps Logger for a JSON logger at level and restores it afterwards.
func capture(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Logger
	Logger = slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level}))
	t.Cleanup(func() { Logger = prev })
	return &buf
}

func TestHelpers(t *testing.T) {
	buf := capture(t, slog.LevelDebug)

	Debug("polling", "account", "a")
	Info("switched", "account", "b")
	Warn("quota low", "percent", 5)
	Error("switch failed", "stage", "kill")

	var levels []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("bad record %q: %v", line, err)
		}
		levels = append(levels, rec["level"].(string))
	}
	want := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	if strings.Join(levels, ",") != strings.Join(want, ",") {
		t.Errorf("levels = %v, want %v", levels, want)
	}
	if !strings.Contains(buf.String(), `"percent":5`) {
		t.Errorf("attributes missing from %s", buf.String())
	}
}

func TestHelpers_RespectLevel(t *testing.T) {
	buf := capture(t, slog.LevelWarn)

	Debug("hidden")
	Info("hidden")
	Warn("shown")

	if got := strings.Count(buf.String(), "\n"); got != 1 {
		t.Errorf("wrote %d records, want 1: %s", got, buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{" Debug ", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v, err %v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestSetup(t *testing.T) {
	prev := Logger
	t.Cleanup(func() { Logger = prev })

	path := filepath.Join(t.TempDir(), "logs", "agswitch.log")
	closer, err := Setup("warn", path)
	if err != nil {
		t.Fatalf("Setup() failed: %v", err)
	}
	Info("dropped")
	Warn("kept", "account", "a")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if s := string(data); strings.Contains(s, "dropped") || !strings.Contains(s, "kept") {
		t.Errorf("log file = %q", s)
	}

	if _, err := Setup("loud", ""); err == nil {
		t.Error("Setup() should reject an unknown level")
	}
	closer, err = Setup("info", "")
	if err != nil {
		t.Fatalf("Setup() to stderr failed: %v", err)
	}
	if err := closer.Close(); err != nil {
		t.Errorf("stderr closer returned %v", err)
	}
}
