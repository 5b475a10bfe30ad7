package framework

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocolViolation means the model asked for an action outside the
	// fixed vocabulary. The request is aborted.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrMalformedQuery means an action argument did not match its grammar.
	ErrMalformedQuery = errors.New("malformed query")
	// ErrToolFailure covers upstream service errors, empty results and timeouts.
	ErrToolFailure = errors.New("tool failure")
	// ErrNotFound is returned when a lookup produced no result.
	ErrNotFound = errors.New("not found")
	// ErrTurnBudgetExceeded means the loop used every turn without terminating.
	ErrTurnBudgetExceeded = errors.New("turn budget exceeded")
	// ErrConfiguration marks missing or invalid startup configuration.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidMessage is returned when a transcript append breaks ordering rules.
	ErrInvalidMessage = errors.New("invalid message")
)

// ToolError ties an adapter failure to the tool that produced it.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// NewToolError wraps err for tool, making sure it matches ErrToolFailure unless
// it is already a malformed query.
func NewToolError(tool string, err error) error {
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrToolFailure) && !errors.Is(err, ErrMalformedQuery) {
		err = fmt.Errorf("%w: %w", ErrToolFailure, err)
	}
	return &ToolError{Tool: tool, Err: err}
}

// ErrorKind returns a short, stable label for err, used by the HTTP layer and
// the CLI.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrProtocolViolation):
		return "protocol_violation"
	case errors.Is(err, ErrMalformedQuery):
		return "malformed_query"
	case errors.Is(err, ErrTurnBudgetExceeded):
		return "turn_budget_exceeded"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrToolFailure):
		return "tool_failure"
	default:
		return "internal"
	}
}
