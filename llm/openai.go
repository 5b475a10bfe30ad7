package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/developmentseed/labs-gpt-stac/framework"
)

// DefaultOpenAIModel is used when neither the client nor the request names a
// model.
const DefaultOpenAIModel = openai.GPT3Dot5Turbo

// OpenAIClient implements framework.LanguageModel on the chat completions API.
// BaseURL may point at any OpenAI-compatible server.
type OpenAIClient struct {
	Client *openai.Client
	Model  string
	Debug  bool
	Logger *log.Logger
}

// NewOpenAIClient builds a client for apiKey. An empty baseURL keeps the
// library default; httpClient may be nil.
func NewOpenAIClient(apiKey, baseURL, model string, httpClient *http.Client) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClient{Client: openai.NewClientWithConfig(cfg), Model: model}
}

// Chat sends the transcript and returns the first choice.
func (c *OpenAIClient) Chat(ctx context.Context, messages []framework.Message, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.Model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	if options != nil {
		if options.Model != "" {
			req.Model = options.Model
		}
		req.Temperature = float32(options.Temperature)
		req.TopP = float32(options.TopP)
		req.MaxTokens = options.MaxTokens
		req.Stop = options.Stop
	}
	if req.Model == "" {
		req.Model = DefaultOpenAIModel
	}
	c.logf("chat model=%s messages=%d", req.Model, len(req.Messages))

	resp, err := c.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("openai error: status %d: %w", apiErr.HTTPStatusCode, apiErr)
		}
		return nil, fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response from OpenAI")
	}
	choice := resp.Choices[0]
	c.logf("chat finish=%s tokens=%d", choice.FinishReason, resp.Usage.TotalTokens)
	return &framework.LLMResponse{
		Text:         choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: map[string]int{
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
			"total_tokens":      resp.Usage.TotalTokens,
		},
	}, nil
}

func (c *OpenAIClient) logf(format string, args ...interface{}) {
	if !c.Debug {
		return
	}
	logger := c.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("[openai] "+format, args...)
}
