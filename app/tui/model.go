package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/developmentseed/labs-gpt-stac/agents/react"
	"github.com/developmentseed/labs-gpt-stac/framework"
)

// Runner answers one question per call.
type Runner interface {
	Run(ctx context.Context, question string) (*react.Outcome, error)
}

// Options configures the TUI.
type Options struct {
	Runner   Runner
	Model    string
	Provider string
	MaxTurns int
}

// Run starts the interactive question loop.
func Run(ctx context.Context, opts Options) error {
	if opts.Runner == nil {
		return fmt.Errorf("runner is required")
	}
	model := NewModel(ctx, opts)
	program := tea.NewProgram(
		model,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)
	_, err := program.Run()
	return err
}

// Model implements the Bubble Tea Model interface and coordinates the feed,
// prompt bar, and status bar.
type Model struct {
	ctx    context.Context
	runner Runner

	feed    *viewport.Model
	input   textinput.Model
	spinner spinner.Model

	statusBar StatusBar
	messages  []Message

	width  int
	height int
	ready  bool

	running bool
	cancel  context.CancelFunc
}

// MessageRole identifies the role of each entry in the feed.
type MessageRole string

const (
	RoleUser   MessageRole = "user"
	RoleAgent  MessageRole = "agent"
	RoleSystem MessageRole = "system"
)

// Message is one entry in the feed.
type Message struct {
	ID        string
	Timestamp time.Time
	Role      MessageRole
	Text      string
	Outcome   *react.Outcome
	Err       error
	Duration  time.Duration
}

// resultMsg delivers a finished agent run back to Update.
type resultMsg struct {
	id      string
	outcome *react.Outcome
	err     error
	took    time.Duration
}

// NewModel builds the initial model.
func NewModel(ctx context.Context, opts Options) Model {
	if ctx == nil {
		ctx = context.Background()
	}
	input := textinput.New()
	input.Placeholder = "Ask for imagery, e.g. Sentinel-2 over Paris in January 2019"
	input.CharLimit = 1000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = inProgressStyle

	return Model{
		ctx:     ctx,
		runner:  opts.Runner,
		input:   input,
		spinner: sp,
		statusBar: StatusBar{
			model:    opts.Model,
			provider: opts.Provider,
			maxTurns: opts.MaxTurns,
		},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) ask(question string) (Model, tea.Cmd) {
	id := uuid.NewString()
	m.messages = append(m.messages, Message{
		ID:        id,
		Timestamp: time.Now(),
		Role:      RoleUser,
		Text:      question,
	})
	m.running = true
	ctx, cancel := context.WithCancel(framework.WithTaskContext(m.ctx, framework.TaskContext{
		ID:       id,
		Question: question,
		Source:   "tui",
	}))
	m.cancel = cancel
	runner := m.runner
	run := func() tea.Msg {
		defer cancel()
		start := time.Now()
		outcome, err := runner.Run(ctx, question)
		return resultMsg{id: id, outcome: outcome, err: err, took: time.Since(start)}
	}
	return m, tea.Batch(m.spinner.Tick, run)
}
