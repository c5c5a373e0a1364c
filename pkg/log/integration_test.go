package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/YuminosukeSato/churnlab/pkg/errors"
)

func TestTestLoggerLevels(t *testing.T) {
	logger, buffer := NewTestLogger(LevelInfo)

	logger.Debug("debug message")
	logger.Info("info message", OperationKey, OperationFit, RowsKey, 100)
	logger.Warn("warning message")
	logger.Error("error message", fmt.Errorf("boom"), StageKey, "bench")

	if strings.Contains(buffer.String(), "debug message") {
		t.Error("debug record should be filtered at info level")
	}
	for _, msg := range []string{"info message", "warning message", "error message"} {
		if !logger.ContainsMessage(msg) {
			t.Errorf("message %q not captured", msg)
		}
	}
	if !logger.ContainsField(RowsKey, 100.0) {
		t.Error("expected data.rows=100")
	}
	if !logger.ContainsField(ErrorKey, "boom") {
		t.Error("expected error field")
	}
}

func TestTestLoggerWith(t *testing.T) {
	base, _ := NewTestLogger(LevelDebug)
	staged := base.With(StageKey, "clean", RunIDKey, "run-1")
	staged.Info("stage finished")

	entries, err := base.GetLogEntries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0][StageKey] != "clean" || entries[0][RunIDKey] != "run-1" {
		t.Errorf("context fields missing: %v", entries[0])
	}
}

func TestZerologProviderWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProviderWithWriter(&buf, LevelDebug)
	p.With(RunIDKey, "abc")

	logger := p.GetLoggerWithName("pls")
	logger.Info("projection fitted", ComponentsKey, 15, AUCKey, 0.75)

	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if entry["message"] != "projection fitted" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry[ComponentKey] != "pls" {
		t.Errorf("component = %v", entry[ComponentKey])
	}
	if entry[RunIDKey] != "abc" {
		t.Errorf("run id = %v", entry[RunIDKey])
	}
	if entry[ComponentsKey] != 15.0 {
		t.Errorf("components = %v", entry[ComponentsKey])
	}
}

func TestZerologProviderLevel(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProviderWithWriter(&buf, LevelWarn)
	logger := p.GetLogger()

	if logger.Enabled(context.Background(), LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("unexpected output %q", buf.String())
	}

	p.SetLevel(LevelDebug)
	p.GetLogger().Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("debug record missing after SetLevel")
	}
}

func TestZerologErrorStacktrace(t *testing.T) {
	var buf bytes.Buffer
	p := NewZerologProviderWithWriter(&buf, LevelDebug)
	p.GetLogger().Error("fit failed", errors.NewValueError("Fit", "single class"))

	out := buf.String()
	if !strings.Contains(out, "single class") {
		t.Errorf("error text missing: %s", out)
	}
	if !strings.Contains(out, `"level":"error"`) {
		t.Errorf("level missing: %s", out)
	}
}

func TestSetupRoutesWarnings(t *testing.T) {
	var buf bytes.Buffer
	prev := func() LoggerProvider {
		globalMu.RLock()
		defer globalMu.RUnlock()
		return globalProvider
	}()
	defer func() {
		SetProvider(prev)
		errors.SetZerologWarnFunc(nil)
	}()

	if _, err := Setup(Options{Level: "info", Format: "json", Writer: &buf}, RunIDKey, "run-42"); err != nil {
		t.Fatal(err)
	}
	errors.Warn(errors.NewConvergenceWarning("lbfgs", 500, ""))

	out := buf.String()
	if !strings.Contains(out, "ConvergenceWarning") || !strings.Contains(out, "run-42") {
		t.Errorf("warning not routed through zerolog: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
