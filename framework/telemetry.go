package framework

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

// EventType categorizes telemetry events.
type EventType string

const (
	EventAgentStart  EventType = "agent_start"
	EventAgentFinish EventType = "agent_finish"
	EventTurn        EventType = "turn"
	EventToolCall    EventType = "tool_call"
	EventToolResult  EventType = "tool_result"
	EventLLMPrompt   EventType = "llm_prompt"
	EventLLMResponse EventType = "llm_response"
	EventHTTPRequest EventType = "http_request"
)

// Event captures structured telemetry data.
type Event struct {
	Type      EventType              `json:"type"`
	TaskID    string                 `json:"task_id,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// Telemetry receives execution traces from the agent loop, the model clients
// and the HTTP layer. Tests typically swap in a recording sink.
type Telemetry interface {
	Emit(event Event)
}

// NopTelemetry drops every event.
type NopTelemetry struct{}

// Emit implements Telemetry.
func (NopTelemetry) Emit(Event) {}

// MultiplexTelemetry broadcasts events to multiple sinks.
type MultiplexTelemetry struct {
	Sinks []Telemetry
}

// Emit forwards the event to all registered sinks.
func (m MultiplexTelemetry) Emit(event Event) {
	for _, s := range m.Sinks {
		if s != nil {
			s.Emit(event)
		}
	}
}

// JSONFileTelemetry writes events as newline-delimited JSON to a file so
// external tools can tail the stream.
type JSONFileTelemetry struct {
	path string
	file *os.File
	enc  *json.Encoder
	mu   sync.Mutex
}

// NewJSONFileTelemetry opens (or creates) the log file.
func NewJSONFileTelemetry(path string) (*JSONFileTelemetry, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &JSONFileTelemetry{
		path: path,
		file: f,
		enc:  json.NewEncoder(f),
	}, nil
}

// Emit writes the JSON record.
func (j *JSONFileTelemetry) Emit(event Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.enc != nil {
		_ = j.enc.Encode(event)
	}
}

// Close releases the file handle.
func (j *JSONFileTelemetry) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file != nil {
		err := j.file.Close()
		j.file = nil
		j.enc = nil
		return err
	}
	return nil
}

// LoggerTelemetry emits events via the standard logger, one line per event.
type LoggerTelemetry struct {
	Logger *log.Logger
}

// Emit logs the event.
func (t LoggerTelemetry) Emit(event Event) {
	logger := t.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("[%s] task=%s meta=%v msg=%s\n", event.Type, event.TaskID, event.Metadata, event.Message)
}

// RecordingTelemetry keeps every event in memory for tests.
type RecordingTelemetry struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Telemetry.
func (r *RecordingTelemetry) Emit(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *RecordingTelemetry) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType filters recorded events by type.
func (r *RecordingTelemetry) OfType(kind EventType) []Event {
	var out []Event
	for _, ev := range r.Events() {
		if ev.Type == kind {
			out = append(out, ev)
		}
	}
	return out
}
