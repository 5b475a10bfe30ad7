package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/developmentseed/labs-gpt-stac/framework"
)

// InstrumentedModel wraps a LanguageModel and emits telemetry for prompts and responses.
type InstrumentedModel struct {
	Inner     framework.LanguageModel
	Telemetry framework.Telemetry
	Debug     bool
}

func NewInstrumentedModel(inner framework.LanguageModel, telemetry framework.Telemetry, debug bool) *InstrumentedModel {
	return &InstrumentedModel{Inner: inner, Telemetry: telemetry, Debug: debug}
}

func (m *InstrumentedModel) Chat(ctx context.Context, messages []framework.Message, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	meta := chatMeta(messages, options)
	m.emitPrompt(ctx, meta.base, meta.debug)
	start := time.Now()
	resp, err := m.Inner.Chat(ctx, messages, options)
	m.emitResponse(ctx, resp, err, time.Since(start))
	return resp, err
}

type chatMetaPayload struct {
	base  map[string]interface{}
	debug map[string]interface{}
}

func chatMeta(messages []framework.Message, options *framework.LLMOptions) chatMetaPayload {
	roles := make([]string, 0, len(messages))
	for _, msg := range messages {
		roles = append(roles, string(msg.Role))
	}
	base := map[string]interface{}{
		"model":         modelFromOptions(options),
		"message_count": len(messages),
		"roles":         roles,
	}
	if len(messages) > 0 {
		last := messages[len(messages)-1]
		base["last_preview"] = clip(last.Content, 512)
	}
	debug := map[string]interface{}{}
	if len(messages) > 0 {
		full := make([]map[string]interface{}, 0, len(messages))
		for _, msg := range messages {
			full = append(full, map[string]interface{}{
				"role":    msg.Role,
				"content": clip(msg.Content, 8192),
			})
		}
		debug["messages"] = full
	}
	return chatMetaPayload{base: base, debug: debug}
}

func (m *InstrumentedModel) emitPrompt(ctx context.Context, base map[string]interface{}, debugFields map[string]interface{}) {
	if m == nil || m.Telemetry == nil {
		return
	}
	taskID, taskMeta := taskInfo(ctx)
	metadata := map[string]interface{}{}
	for k, v := range base {
		metadata[k] = v
	}
	for k, v := range taskMeta {
		metadata[k] = v
	}
	if m.Debug {
		for k, v := range debugFields {
			metadata[k] = v
		}
	}
	m.Telemetry.Emit(framework.Event{
		Type:      framework.EventLLMPrompt,
		TaskID:    taskID,
		Timestamp: time.Now().UTC(),
		Message:   "llm chat prompt",
		Metadata:  metadata,
	})
}

func (m *InstrumentedModel) emitResponse(ctx context.Context, resp *framework.LLMResponse, err error, took time.Duration) {
	if m == nil || m.Telemetry == nil {
		return
	}
	taskID, taskMeta := taskInfo(ctx)
	metadata := map[string]interface{}{
		"duration_ms": took.Milliseconds(),
	}
	for k, v := range taskMeta {
		metadata[k] = v
	}
	if resp != nil {
		metadata["finish_reason"] = resp.FinishReason
		metadata["text_preview"] = clip(resp.Text, 1024)
		metadata["usage"] = resp.Usage
		if m.Debug {
			metadata["text"] = clip(resp.Text, 8192)
		}
	}
	if err != nil {
		metadata["error"] = err.Error()
	}
	m.Telemetry.Emit(framework.Event{
		Type:      framework.EventLLMResponse,
		TaskID:    taskID,
		Timestamp: time.Now().UTC(),
		Message:   fmt.Sprintf("llm chat response (%d chars)", textLen(resp)),
		Metadata:  metadata,
	})
}

func textLen(resp *framework.LLMResponse) int {
	if resp == nil {
		return 0
	}
	return len(resp.Text)
}

func modelFromOptions(options *framework.LLMOptions) string {
	if options != nil && options.Model != "" {
		return options.Model
	}
	return ""
}

func taskInfo(ctx context.Context) (string, map[string]interface{}) {
	task, ok := framework.TaskContextFrom(ctx)
	if !ok {
		return "", nil
	}
	meta := map[string]interface{}{}
	if task.Source != "" {
		meta["source"] = task.Source
	}
	if task.Question != "" {
		meta["question_preview"] = clip(task.Question, 1024)
	}
	return task.ID, meta
}

func clip(s string, max int) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
