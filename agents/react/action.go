package react

import (
	"regexp"
	"strings"
)

// ActionName is one entry of the closed action vocabulary.
type ActionName string

const (
	ActionCalculate ActionName = "calculate"
	ActionWikipedia ActionName = "wikipedia"
	ActionSTAC      ActionName = "stac"
)

// Vocabulary lists every action the model may request, in prompt order.
var Vocabulary = []ActionName{ActionCalculate, ActionWikipedia, ActionSTAC}

// Valid reports whether n belongs to the vocabulary.
func (n ActionName) Valid() bool {
	switch n {
	case ActionCalculate, ActionWikipedia, ActionSTAC:
		return true
	default:
		return false
	}
}

// Terminal reports whether dispatching n ends the loop. Only catalog queries
// do; their result goes straight back to the caller.
func (n ActionName) Terminal() bool {
	return n == ActionSTAC
}

// Action is a single tool invocation extracted from model output.
type Action struct {
	Name     ActionName `json:"name"`
	Argument string     `json:"argument"`
	// Line is the zero-based line index the action was found on.
	Line int `json:"line"`
}

var actionPattern = regexp.MustCompile(`^Action: (\w+): (.*)$`)

// ParseAction scans text line by line and returns the first action line.
// Later action lines are ignored. The returned name may fall outside the
// vocabulary; callers decide how to treat that.
func ParseAction(text string) (Action, bool) {
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		m := actionPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		return Action{Name: ActionName(m[1]), Argument: m[2], Line: i}, true
	}
	return Action{}, false
}
