package framework

import "context"

// LLMOptions tunes a single completion request.
type LLMOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Stop        []string
	TopP        float64
}

// LLMResponse is the result of a language model invocation.
type LLMResponse struct {
	Text         string         `json:"text,omitempty"`
	FinishReason string         `json:"finish_reason,omitempty"`
	Usage        map[string]int `json:"usage,omitempty"`
}

// LanguageModel is the completion service contract: ordered role/content
// pairs in, one assistant text out.
type LanguageModel interface {
	Chat(ctx context.Context, messages []Message, options *LLMOptions) (*LLMResponse, error)
}
