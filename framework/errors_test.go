package framework

import (
	"errors"
	"fmt"
	"testing"
)

func TestNewToolErrorWrapsAsToolFailure(t *testing.T) {
	err := NewToolError("wikipedia", errors.New("boom"))
	if !errors.Is(err, ErrToolFailure) {
		t.Fatalf("expected ErrToolFailure, got %v", err)
	}
	var te *ToolError
	if !errors.As(err, &te) || te.Tool != "wikipedia" {
		t.Fatalf("expected ToolError for wikipedia, got %v", err)
	}
}

func TestNewToolErrorKeepsMalformedQuery(t *testing.T) {
	err := NewToolError("stac", fmt.Errorf("%w: missing datetime", ErrMalformedQuery))
	if !errors.Is(err, ErrMalformedQuery) {
		t.Fatalf("expected ErrMalformedQuery, got %v", err)
	}
	if errors.Is(err, ErrToolFailure) {
		t.Fatalf("malformed query must not be reported as a tool failure")
	}
	if NewToolError("stac", nil) != nil {
		t.Fatalf("nil error must stay nil")
	}
}

func TestErrorKind(t *testing.T) {
	cases := map[string]error{
		"":                     nil,
		"protocol_violation":   fmt.Errorf("x: %w", ErrProtocolViolation),
		"malformed_query":      NewToolError("stac", ErrMalformedQuery),
		"turn_budget_exceeded": ErrTurnBudgetExceeded,
		"configuration":        ErrConfiguration,
		"not_found":            NewToolError("wikipedia", ErrNotFound),
		"tool_failure":         NewToolError("wikipedia", errors.New("503")),
		"internal":             errors.New("other"),
	}
	for want, err := range cases {
		if got := ErrorKind(err); got != want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", err, got, want)
		}
	}
}
