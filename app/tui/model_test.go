package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/developmentseed/labs-gpt-stac/agents/react"
	"github.com/developmentseed/labs-gpt-stac/framework"
	"github.com/developmentseed/labs-gpt-stac/tools"
)

type fakeRunner struct {
	outcome  *react.Outcome
	err      error
	question string
	taskID   string
}

func (f *fakeRunner) Run(ctx context.Context, question string) (*react.Outcome, error) {
	f.question = question
	f.taskID = framework.TaskID(ctx)
	return f.outcome, f.err
}

func sized(m Model) Model {
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model)
}

func typeText(m Model, text string) Model {
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return updated.(Model)
}

// findResult runs a batched command tree and returns the first resultMsg.
func findResult(cmd tea.Cmd) (resultMsg, bool) {
	if cmd == nil {
		return resultMsg{}, false
	}
	switch msg := cmd().(type) {
	case resultMsg:
		return msg, true
	case tea.BatchMsg:
		for _, c := range msg {
			if res, ok := findResult(c); ok {
				return res, true
			}
		}
	}
	return resultMsg{}, false
}

func TestSubmitQuestionRunsAgent(t *testing.T) {
	runner := &fakeRunner{outcome: &react.Outcome{Kind: react.OutcomeFinalAnswer, Answer: "Answer: Paris", Turns: 2}}
	m := sized(NewModel(context.Background(), Options{Runner: runner, Model: "gpt-3.5-turbo", Provider: "openai", MaxTurns: 5}))
	m = typeText(m, "capital of France?")

	updatedAny, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	updated := updatedAny.(Model)
	if !updated.running {
		t.Fatalf("expected running after enter")
	}
	if updated.input.Value() != "" {
		t.Fatalf("expected input reset, got %q", updated.input.Value())
	}
	if len(updated.messages) != 1 || updated.messages[0].Role != RoleUser {
		t.Fatalf("expected user message, got %+v", updated.messages)
	}

	res, ok := findResult(cmd)
	if !ok {
		t.Fatalf("expected a result message from the command")
	}
	if runner.question != "capital of France?" {
		t.Fatalf("unexpected question %q", runner.question)
	}
	if runner.taskID != updated.messages[0].ID {
		t.Fatalf("task id %q does not match message id %q", runner.taskID, updated.messages[0].ID)
	}

	finalAny, _ := updated.Update(res)
	final := finalAny.(Model)
	if final.running {
		t.Fatalf("expected run to finish")
	}
	if len(final.messages) != 2 || final.messages[1].Role != RoleAgent {
		t.Fatalf("expected agent message, got %+v", final.messages)
	}
	if final.statusBar.lastTurns != 2 || final.statusBar.questions != 1 {
		t.Fatalf("status bar not updated: %+v", final.statusBar)
	}
	if !strings.Contains(final.View(), "Answer: Paris") {
		t.Fatalf("expected answer in view")
	}
}

func TestEnterIgnoredWhileRunningOrEmpty(t *testing.T) {
	m := sized(NewModel(context.Background(), Options{Runner: &fakeRunner{}}))
	updatedAny, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || len(updatedAny.(Model).messages) != 0 {
		t.Fatalf("empty input should not submit")
	}

	m.running = true
	m = typeText(m, "again")
	updatedAny, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || len(updatedAny.(Model).messages) != 0 {
		t.Fatalf("submit while running should be ignored")
	}
}

func TestRenderErrorAndCatalog(t *testing.T) {
	err := fmt.Errorf("%w: unknown action \"google\"", framework.ErrProtocolViolation)
	if got := RenderError(err); !strings.Contains(got, "protocol_violation") {
		t.Fatalf("expected error kind, got %q", got)
	}

	q, perr := tools.ParseSTACQuery("bbox=[1, 2, 3, 4] && datetime=['a', 'b']")
	if perr != nil {
		t.Fatal(perr)
	}
	catalog := &tools.CatalogResult{
		STAC: tools.ItemCollection{Features: []tools.Item{{
			ID:     "S2B_20190101",
			Assets: map[string]tools.Asset{"rendered_preview": {Href: "https://example.test/preview.png"}},
		}}},
		BBox:     q.BBox,
		Datetime: q.Datetime,
	}
	out := RenderOutcome(&react.Outcome{Kind: react.OutcomeCatalogResult, Catalog: catalog})
	for _, want := range []string{"1 items", "S2B_20190101", "https://example.test/preview.png", "a/b"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestErrorResultIsRendered(t *testing.T) {
	m := sized(NewModel(context.Background(), Options{Runner: &fakeRunner{}}))
	updatedAny, _ := m.Update(resultMsg{id: "x", err: errors.New("boom")})
	view := updatedAny.(Model).View()
	if !strings.Contains(view, "boom") {
		t.Fatalf("expected error in view")
	}
}
