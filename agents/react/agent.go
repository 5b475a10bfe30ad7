package react

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/developmentseed/labs-gpt-stac/framework"
	"github.com/developmentseed/labs-gpt-stac/tools"
)

// DefaultMaxTurns bounds the loop when Options.MaxTurns is unset.
const DefaultMaxTurns = 5

const tracerName = "github.com/developmentseed/labs-gpt-stac/agents/react"

// Options configures an Agent.
type Options struct {
	Model framework.LanguageModel
	Tools *framework.ToolRegistry
	// MaxTurns caps completions per question. Zero means DefaultMaxTurns.
	MaxTurns int
	// SystemPrompt overrides the prompt rendered by BuildSystemPrompt.
	SystemPrompt string
	LLMOptions   *framework.LLMOptions
	Telemetry    framework.Telemetry
	// Tracer defaults to the global OpenTelemetry provider.
	Tracer trace.Tracer
	// Logger receives per-turn debug lines when Debug is set.
	Logger *log.Logger
	Debug  bool
}

// Agent drives the prompt/act/observe cycle for one question at a time. An
// Agent holds no per-question state, so one value may serve concurrent Run
// calls as long as its model and tools allow it.
type Agent struct {
	model        framework.LanguageModel
	tools        *framework.ToolRegistry
	maxTurns     int
	systemPrompt string
	llmOptions   *framework.LLMOptions
	telemetry    framework.Telemetry
	tracer       trace.Tracer
	logger       *log.Logger
	debug        bool
}

// New validates options and builds an Agent. Every vocabulary action must
// have a registered tool.
func New(opts Options) (*Agent, error) {
	if opts.Model == nil {
		return nil, fmt.Errorf("react agent missing language model")
	}
	if opts.Tools == nil {
		return nil, fmt.Errorf("react agent missing tool registry")
	}
	for _, name := range Vocabulary {
		if _, ok := opts.Tools.Get(string(name)); !ok {
			return nil, fmt.Errorf("react agent missing %s tool", name)
		}
	}
	if opts.MaxTurns < 0 {
		return nil, fmt.Errorf("react agent max turns must be positive, got %d", opts.MaxTurns)
	}
	a := &Agent{
		model:        opts.Model,
		tools:        opts.Tools,
		maxTurns:     opts.MaxTurns,
		systemPrompt: opts.SystemPrompt,
		llmOptions:   opts.LLMOptions,
		telemetry:    opts.Telemetry,
		tracer:       opts.Tracer,
		logger:       opts.Logger,
		debug:        opts.Debug,
	}
	if a.maxTurns == 0 {
		a.maxTurns = DefaultMaxTurns
	}
	if a.systemPrompt == "" {
		a.systemPrompt = BuildSystemPrompt(opts.Tools)
	}
	if a.telemetry == nil {
		a.telemetry = framework.NopTelemetry{}
	}
	if a.tracer == nil {
		a.tracer = otel.Tracer(tracerName)
	}
	if a.logger == nil {
		a.logger = log.Default()
	}
	return a, nil
}

// MaxTurns returns the configured turn budget.
func (a *Agent) MaxTurns() int { return a.maxTurns }

// OutcomeKind distinguishes the two successful terminal states.
type OutcomeKind string

const (
	OutcomeFinalAnswer   OutcomeKind = "final_answer"
	OutcomeCatalogResult OutcomeKind = "catalog_result"
)

// Step records one turn for traceability.
type Step struct {
	Turn        int     `json:"turn"`
	Thought     string  `json:"thought"`
	Action      *Action `json:"action,omitempty"`
	Observation string  `json:"observation,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// Outcome is the terminal result of a successful Run.
type Outcome struct {
	Kind       OutcomeKind          `json:"kind"`
	Answer     string               `json:"answer,omitempty"`
	Catalog    *tools.CatalogResult `json:"catalog,omitempty"`
	Turns      int                  `json:"turns"`
	Steps      []Step               `json:"steps"`
	Transcript []framework.Message  `json:"transcript,omitempty"`
	Duration   time.Duration        `json:"duration"`
}

// Run answers question. It returns an Outcome when the model produces a final
// answer or a catalog query completes, and an error for every other terminal
// state: protocol violations, malformed stac arguments, failed catalog
// searches, completion errors, cancellation and an exhausted turn budget.
func (a *Agent) Run(ctx context.Context, question string) (*Outcome, error) {
	start := time.Now()
	taskID := framework.TaskID(ctx)
	transcript := framework.NewTranscript(a.systemPrompt)
	ctx, span := a.tracer.Start(ctx, "react.run", trace.WithAttributes(
		attribute.String("task_id", taskID),
		attribute.Int("max_turns", a.maxTurns),
	))
	defer span.End()
	a.emit(taskID, framework.EventAgentStart, "agent run started", map[string]interface{}{
		"question":  question,
		"max_turns": a.maxTurns,
	})

	outcome, err := a.loop(ctx, taskID, transcript, question)
	meta := map[string]interface{}{
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		meta["error"] = err.Error()
		meta["kind"] = framework.ErrorKind(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, framework.ErrorKind(err))
		a.emit(taskID, framework.EventAgentFinish, "agent run failed", meta)
		return nil, err
	}
	outcome.Transcript = transcript.Snapshot()
	outcome.Duration = time.Since(start)
	meta["kind"] = string(outcome.Kind)
	meta["turns"] = outcome.Turns
	span.SetAttributes(
		attribute.String("outcome", string(outcome.Kind)),
		attribute.Int("turns", outcome.Turns),
	)
	a.emit(taskID, framework.EventAgentFinish, "agent run finished", meta)
	return outcome, nil
}

func (a *Agent) loop(ctx context.Context, taskID string, transcript *framework.Transcript, question string) (*Outcome, error) {
	var steps []Step
	next := question
	for turn := 1; turn <= a.maxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("turn %d: %w", turn, err)
		}
		if err := transcript.Append(framework.RoleUser, next); err != nil {
			return nil, err
		}
		resp, err := a.model.Chat(ctx, transcript.Snapshot(), a.llmOptions)
		if err != nil {
			return nil, fmt.Errorf("completion turn %d: %w", turn, err)
		}
		if resp == nil {
			return nil, fmt.Errorf("completion turn %d: empty response", turn)
		}
		if err := transcript.Append(framework.RoleAssistant, resp.Text); err != nil {
			return nil, err
		}
		a.debugf("turn %d: %s", turn, resp.Text)

		step := Step{Turn: turn, Thought: resp.Text}
		action, found := ParseAction(resp.Text)
		a.emit(taskID, framework.EventTurn, fmt.Sprintf("turn %d", turn), map[string]interface{}{
			"turn":       turn,
			"has_action": found,
		})
		if !found {
			steps = append(steps, step)
			return &Outcome{Kind: OutcomeFinalAnswer, Answer: resp.Text, Turns: turn, Steps: steps}, nil
		}
		step.Action = &action
		if !action.Name.Valid() {
			return nil, fmt.Errorf("%w: unknown action %q: %s", framework.ErrProtocolViolation, action.Name, action.Argument)
		}
		tool, _ := a.tools.Get(string(action.Name))
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("turn %d: %w", turn, err)
		}

		a.debugf(" -- running %s %s", action.Name, action.Argument)
		a.emit(taskID, framework.EventToolCall, string(action.Name), map[string]interface{}{
			"turn":     turn,
			"argument": action.Argument,
		})
		res, err := a.execute(ctx, tool, turn, action)
		a.emitToolResult(taskID, turn, action, res, err)

		if action.Name.Terminal() {
			if err != nil {
				return nil, err
			}
			var catalog *tools.CatalogResult
			if res != nil {
				catalog, _ = res.Observation.(*tools.CatalogResult)
			}
			if catalog == nil {
				return nil, framework.NewToolError(string(action.Name), fmt.Errorf("catalog search returned no result"))
			}
			step.Observation = catalog.Summary()
			steps = append(steps, step)
			return &Outcome{Kind: OutcomeCatalogResult, Catalog: catalog, Turns: turn, Steps: steps}, nil
		}

		var observation string
		switch {
		case err == nil:
			observation = renderObservation(res)
		case ctx.Err() != nil:
			return nil, fmt.Errorf("turn %d: %w", turn, ctx.Err())
		case errors.Is(err, framework.ErrMalformedQuery):
			return nil, err
		default:
			// Recoverable: the model sees the failure and may try again.
			observation = "Error: " + err.Error()
			step.Error = err.Error()
		}
		a.debugf("Observation: %s", observation)
		step.Observation = observation
		steps = append(steps, step)
		next = "Observation: " + observation
	}
	return nil, fmt.Errorf("%w: no answer after %d turns", framework.ErrTurnBudgetExceeded, a.maxTurns)
}

// execute runs one tool call inside its own span.
func (a *Agent) execute(ctx context.Context, tool framework.Tool, turn int, action Action) (*framework.ToolResult, error) {
	ctx, span := a.tracer.Start(ctx, "tool."+string(action.Name), trace.WithAttributes(
		attribute.String("tool", string(action.Name)),
		attribute.Int("turn", turn),
	))
	defer span.End()
	res, err := tool.Execute(ctx, action.Argument)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, framework.ErrorKind(err))
	}
	return res, err
}

// renderObservation prints text and numbers as-is and everything else as
// JSON.
func renderObservation(res *framework.ToolResult) string {
	if res == nil || res.Observation == nil {
		return ""
	}
	switch v := res.Observation.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case int, int64, float64:
		return fmt.Sprint(v)
	}
	data, err := json.Marshal(res.Observation)
	if err != nil {
		return fmt.Sprint(res.Observation)
	}
	return string(data)
}

func (a *Agent) emitToolResult(taskID string, turn int, action Action, res *framework.ToolResult, err error) {
	meta := map[string]interface{}{
		"turn": turn,
		"tool": string(action.Name),
	}
	if err != nil {
		meta["error"] = err.Error()
		meta["kind"] = framework.ErrorKind(err)
	} else if res != nil {
		for k, v := range res.Metadata {
			meta[k] = v
		}
	}
	a.emit(taskID, framework.EventToolResult, string(action.Name), meta)
}

func (a *Agent) emit(taskID string, typ framework.EventType, msg string, meta map[string]interface{}) {
	a.telemetry.Emit(framework.Event{
		Type:      typ,
		TaskID:    taskID,
		Message:   msg,
		Timestamp: time.Now().UTC(),
		Metadata:  meta,
	})
}

// debugf logs formatted messages whenever agent debug logging is enabled.
func (a *Agent) debugf(format string, args ...interface{}) {
	if !a.debug {
		return
	}
	a.logger.Printf("[react] "+format, args...)
}
