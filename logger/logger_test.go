package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestWithVenue(t *testing.T) {
	entry := Logger().WithVenue("txbit").WithComponent("normalizer")
	if entry.Entry.Data["venue"] != "txbit" || entry.Entry.Data["component"] != "normalizer" {
		t.Fatalf("fields missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestConfigureInvalidFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	if err := Logger().Configure("info", "xml", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestJSONOutputKeys(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	log := Logger()
	var buf bytes.Buffer
	log.SetOutput(&buf)

	log.WithComponent("test").Info("hello")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not json: %v", err)
	}
	for _, key := range []string{"timestamp", "level", "message", "component"} {
		if _, ok := line[key]; !ok {
			t.Fatalf("missing key %q in %v", key, line)
		}
	}
}

func TestCallerSkipsWrappers(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	log := Logger()
	var buf bytes.Buffer
	log.SetOutput(&buf)

	log.WithComponent("test").WithFields(Fields{"k": 1}).Info("hello")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not json: %v", err)
	}
	file, _ := line["file"].(string)
	if !strings.HasPrefix(file, "logger_test.go:") {
		t.Fatalf("caller not resolved to the test file: %q", file)
	}
}

func TestWarnCountsPerComponent(t *testing.T) {
	log := Logger()
	var buf bytes.Buffer
	log.SetOutput(&buf)

	before := componentStats("counting").warns
	log.WithComponent("counting").Warn("first")
	log.WithComponent("counting").Warn("second")
	if got := componentStats("counting").warns - before; got != 2 {
		t.Fatalf("expected 2 warnings, got %d", got)
	}
}

func TestRecordCount(t *testing.T) {
	RecordCount("test_records", 3, 10)
	RecordCount("test_records", 2, 5)
	if got := Snapshot()["test_records"]; got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
}

func TestMetricFieldsDoesNotMutateInput(t *testing.T) {
	in := Fields{"kind": "ticker"}
	out := metricFields("records", 1, "", in)
	if _, ok := in["metric"]; ok {
		t.Fatalf("input fields mutated: %v", in)
	}
	if out["metric_type"] != "counter" || out["kind"] != "ticker" {
		t.Fatalf("unexpected fields: %v", out)
	}
}
