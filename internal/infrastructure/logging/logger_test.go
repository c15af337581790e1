package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	cblog "github.com/charmbracelet/log"

	"github.com/alexisbeaulieu97/reshelf/internal/ports"
)

func decodeLine(t *testing.T, line string) map[string]interface{} {
	t.Helper()
	payload := make(map[string]interface{})
	if err := json.Unmarshal([]byte(line), &payload); err != nil {
		t.Fatalf("failed to parse log line %q: %v", line, err)
	}
	return payload
}

func TestLoggerIncludesExecutionIDAndLayer(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{
		Writer:     &buf,
		Level:      "debug",
		Format:     "json",
		Layer:      "application",
		Component:  "engine",
		TimeFormat: "2006-01-02T15:04:05Z07:00",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := ports.WithExecutionID(context.Background(), "execution-abc")
	logger.Info(ctx, "phase started", "phase", "scanning")

	payload := decodeLine(t, strings.TrimSpace(buf.String()))
	if payload["layer"] != "application" {
		t.Fatalf("expected layer application, got %v", payload["layer"])
	}
	if payload["component"] != "engine" {
		t.Fatalf("expected component engine, got %v", payload["component"])
	}
	if payload["execution_id"] != "execution-abc" {
		t.Fatalf("expected execution_id, got %v", payload["execution_id"])
	}
	if payload["phase"] != "scanning" || payload["msg"] != "phase started" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestLoggerWithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Writer: &buf, Formatter: cblog.JSONFormatter})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	child := logger.With("component", "sync").(*Logger)
	child.Warn(context.Background(), "inconsistent", "environment", "ec2")

	payload := decodeLine(t, strings.TrimSpace(buf.String()))
	if payload["component"] != "sync" || payload["environment"] != "ec2" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload["layer"] != "infrastructure" {
		t.Fatalf("expected default layer infrastructure, got %v", payload["layer"])
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("JSON"); err != nil || f != cblog.JSONFormatter {
		t.Fatalf("unexpected json formatter: %v %v", f, err)
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Fatal("expected unknown format to fail")
	}
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected New to reject unknown format")
	}
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatal("expected New to reject unknown level")
	}
}

func TestNoOpLogger(t *testing.T) {
	noOp := NewNoOpLogger()
	noOp.Info(context.Background(), "hello world")
	if noOp.With("key", "value") != noOp {
		t.Fatalf("expected With to return same no-op logger instance")
	}
}

func TestBufferedLoggerStoresAndFlushes(t *testing.T) {
	buffer := NewEventBuffer(10)
	bufLogger := NewBufferedLogger(buffer)

	ctx := ports.WithExecutionID(context.Background(), "buffered")
	bufLogger.Info(ctx, "scan finished", "environment", "local")
	bufLogger.With("component", "mover").Error(ctx, "move failed", "files", 1)

	var output bytes.Buffer
	delegate, err := New(Options{Writer: &output, Formatter: cblog.JSONFormatter})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if buffer.Len() != 2 || buffer.Dropped() != 0 {
		t.Fatalf("expected 2 held records, got %d", buffer.Len())
	}
	buffer.Flush(delegate)

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}
	first := decodeLine(t, lines[0])
	if first["msg"] != "scan finished" || first["environment"] != "local" {
		t.Fatalf("unexpected first event payload: %+v", first)
	}
	second := decodeLine(t, lines[1])
	if second["component"] != "mover" || second["execution_id"] != "buffered" {
		t.Fatalf("unexpected second event payload: %+v", second)
	}
}

func TestEventBufferDropsOldest(t *testing.T) {
	buffer := NewEventBuffer(2)
	bufLogger := NewBufferedLogger(buffer)
	for _, msg := range []string{"one", "two", "three"} {
		bufLogger.Info(context.Background(), msg)
	}

	var output bytes.Buffer
	delegate, err := New(Options{Writer: &output, Formatter: cblog.JSONFormatter})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	buffer.Flush(delegate)

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	if len(lines) != 3 || decodeLine(t, lines[0])["msg"] != "two" {
		t.Fatalf("expected oldest entry to be dropped, got %v", lines)
	}
	summary := decodeLine(t, lines[2])
	if summary["level"] != "warn" || summary["dropped"] != float64(1) {
		t.Fatalf("expected dropped summary, got %+v", summary)
	}
	if buffer.Len() != 0 || buffer.Dropped() != 0 {
		t.Fatalf("expected flush to reset the buffer")
	}
}

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewZerolog(ZerologOptions{Writer: &buf, Level: "debug", Layer: "application"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := ports.WithExecutionID(context.Background(), "execution-z")
	logger.With("component", "engine").Error(ctx, "phase failed", "phase", "moving_files", "error", errors.New("disk full"))

	payload := decodeLine(t, strings.TrimSpace(buf.String()))
	if payload["level"] != "error" || payload["message"] != "phase failed" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload["execution_id"] != "execution-z" || payload["component"] != "engine" || payload["layer"] != "application" {
		t.Fatalf("missing context fields %+v", payload)
	}
	if payload["error"] != "disk full" || payload["phase"] != "moving_files" {
		t.Fatalf("missing call fields %+v", payload)
	}

	if _, err := NewZerolog(ZerologOptions{Level: "loud"}); err == nil {
		t.Fatal("expected invalid level to fail")
	}
}
