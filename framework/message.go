package framework

import "fmt"

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the three chat roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Message is a single role-tagged entry in a Transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Transcript is the ordered history submitted to the completion service on
// every turn. A Transcript belongs to one agent run and is not safe for
// concurrent use.
type Transcript struct {
	messages []Message
}

// NewTranscript seeds a transcript. A non-empty system prompt becomes the
// first and only system message.
func NewTranscript(system string) *Transcript {
	t := &Transcript{}
	if system != "" {
		t.messages = append(t.messages, Message{Role: RoleSystem, Content: system})
	}
	return t
}

// Append adds a message to the end of the transcript. System messages can only
// be supplied through NewTranscript.
func (t *Transcript) Append(role Role, content string) error {
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidMessage, role)
	}
	if role == RoleSystem {
		return fmt.Errorf("%w: system message must open the transcript", ErrInvalidMessage)
	}
	t.messages = append(t.messages, Message{Role: role, Content: content})
	return nil
}

// Snapshot returns a copy of the full ordered history.
func (t *Transcript) Snapshot() []Message {
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}
