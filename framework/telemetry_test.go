package framework

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestJSONFileTelemetryWritesNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.ndjson")
	sink, err := NewJSONFileTelemetry(path)
	if err != nil {
		t.Fatalf("open telemetry: %v", err)
	}
	sink.Emit(Event{Type: EventToolCall, TaskID: "t1", Timestamp: time.Unix(0, 0).UTC()})
	sink.Emit(Event{Type: EventToolResult, TaskID: "t1", Timestamp: time.Unix(0, 0).UTC()})
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var ev Event
	if err := json.Unmarshal([]byte(lines[1]), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Type != EventToolResult {
		t.Fatalf("unexpected event type %s", ev.Type)
	}
}

func TestMultiplexTelemetryFansOut(t *testing.T) {
	var buf bytes.Buffer
	rec := &RecordingTelemetry{}
	mux := MultiplexTelemetry{Sinks: []Telemetry{rec, nil, LoggerTelemetry{Logger: log.New(&buf, "", 0)}}}
	mux.Emit(Event{Type: EventAgentStart, TaskID: "abc", Message: "go"})
	if len(rec.OfType(EventAgentStart)) != 1 {
		t.Fatalf("recording sink missed event")
	}
	if !strings.Contains(buf.String(), "[agent_start] task=abc") {
		t.Fatalf("logger sink output unexpected: %q", buf.String())
	}
}
