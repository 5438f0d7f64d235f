package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestStdoutHandlerProductionJSON(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(stdoutHandler(&buf, false))

	log.Debug("hidden")
	log.Info("attempt recorded", "step_id", "s1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1 (debug must be dropped): %q", len(lines), buf.String())
	}

	var entry map[string]any
	err := json.Unmarshal([]byte(lines[0]), &entry)
	if err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if entry["msg"] != "attempt recorded" || entry["step_id"] != "s1" {
		t.Errorf("entry = %v", entry)
	}
}

func TestStdoutHandlerDevelopmentText(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(stdoutHandler(&buf, true))

	log.Debug("queue loaded", "pending", 2)

	if !strings.Contains(buf.String(), "msg=\"queue loaded\" pending=2") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestFanoutWritesToEveryHandler(t *testing.T) {
	var a, b bytes.Buffer
	log := slog.New(fanout([]slog.Handler{
		stdoutHandler(&a, false),
		stdoutHandler(&b, false),
	}))

	log.Error("sync failed")

	if !strings.Contains(a.String(), "sync failed") || !strings.Contains(b.String(), "sync failed") {
		t.Errorf("fanout missed a handler: %q / %q", a.String(), b.String())
	}
}
