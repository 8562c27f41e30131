package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewJSONLoggerTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentAlerts, Output: &buf})

	logger.InfoContext(context.Background(), "Coverage alert", FieldMonth, "2025-03")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if rec[FieldComponent] != ComponentAlerts || rec[FieldMonth] != "2025-03" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelWarn, Format: "text", Output: &buf})

	logger.InfoContext(context.Background(), "hidden")
	logger.WarnContext(context.Background(), "shown")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	logger := New(DefaultConfig()).WithComponent(ComponentCLI)
	ctx := WithLogger(context.Background(), logger)

	if got := FromContext(ctx); got.Component() != ComponentCLI {
		t.Errorf("component = %s", got.Component())
	}
	if got := FromContext(context.Background()); got.Component() != ComponentApp {
		t.Errorf("fallback component = %s", got.Component())
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().WithOperation(OpExport).WithError(errors.New("boom")).WithEvent("coverage.applied", "2025-03", "200.00")
	if f[FieldOperation] != OpExport || f[FieldError] != "boom" || f[FieldEventType] != "coverage.applied" {
		t.Errorf("unexpected fields: %v", f)
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Errorf("ToSlice length mismatch")
	}
}
