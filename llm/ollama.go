package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/developmentseed/labs-gpt-stac/framework"
)

// DefaultOllamaEndpoint is where a local Ollama server listens.
const DefaultOllamaEndpoint = "http://localhost:11434"

// OllamaClient implements framework.LanguageModel for a local Ollama server.
type OllamaClient struct {
	Endpoint string
	Model    string
	client   *http.Client
	Debug    bool
	Logger   *log.Logger
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaResponse struct {
	Message         *ollamaMessage `json:"message"`
	Response        string         `json:"response"`
	DoneReason      string         `json:"done_reason"`
	EvalCount       int            `json:"eval_count"`
	PromptEvalCount int            `json:"prompt_eval_count"`
}

// NewOllamaClient builds a new Ollama client.
func NewOllamaClient(endpoint, model string) *OllamaClient {
	if endpoint == "" {
		endpoint = DefaultOllamaEndpoint
	}
	return &OllamaClient{
		Endpoint: strings.TrimRight(endpoint, "/"),
		Model:    model,
		client: &http.Client{
			Timeout: 3 * time.Minute,
		},
	}
}

// Chat implements chat style conversation.
func (c *OllamaClient) Chat(ctx context.Context, messages []framework.Message, options *framework.LLMOptions) (*framework.LLMResponse, error) {
	payload := map[string]interface{}{
		"model":    c.model(options),
		"messages": messages,
		"stream":   false,
	}
	if opts := ollamaOptions(options); len(opts) > 0 {
		payload["options"] = opts
	}
	return c.doRequest(ctx, "/api/chat", payload)
}

func (c *OllamaClient) getHTTPClient() *http.Client {
	if c.client != nil {
		return c.client
	}
	c.client = &http.Client{Timeout: 60 * time.Second}
	return c.client
}

func (c *OllamaClient) model(options *framework.LLMOptions) string {
	if options != nil && options.Model != "" {
		return options.Model
	}
	if c.Model != "" {
		return c.Model
	}
	return "llama3"
}

func ollamaOptions(options *framework.LLMOptions) map[string]interface{} {
	if options == nil {
		return nil
	}
	opts := make(map[string]interface{})
	if options.Temperature != 0 {
		opts["temperature"] = options.Temperature
	}
	if options.MaxTokens != 0 {
		opts["num_predict"] = options.MaxTokens
	}
	if options.Stop != nil {
		opts["stop"] = options.Stop
	}
	if options.TopP != 0 {
		opts["top_p"] = options.TopP
	}
	return opts
}

func (c *OllamaClient) doRequest(ctx context.Context, path string, payload interface{}) (*framework.LLMResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	c.logPayload(path, body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := strings.TrimSpace(string(msg))
		if detail != "" {
			return nil, fmt.Errorf("ollama error: %s: %s", resp.Status, detail)
		}
		return nil, fmt.Errorf("ollama error: %s", resp.Status)
	}
	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	c.logResponse(path, responseBody)
	return decodeOllamaResponse(bytes.NewReader(responseBody))
}

func decodeOllamaResponse(body io.Reader) (*framework.LLMResponse, error) {
	var raw ollamaResponse
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("ollama response: %w", err)
	}
	resp := &framework.LLMResponse{
		Text:         raw.Response,
		FinishReason: raw.DoneReason,
		Usage:        normalizeUsage(raw),
	}
	if raw.Message != nil && raw.Message.Content != "" {
		resp.Text = raw.Message.Content
	}
	return resp, nil
}

func normalizeUsage(raw ollamaResponse) map[string]int {
	usage := make(map[string]int)
	if raw.EvalCount > 0 {
		usage["completion_tokens"] = raw.EvalCount
	}
	if raw.PromptEvalCount > 0 {
		usage["prompt_tokens"] = raw.PromptEvalCount
	}
	if len(usage) == 0 {
		return nil
	}
	return usage
}

func (c *OllamaClient) logPayload(path string, payload []byte) {
	c.logf("request %s payload: %s", path, clip(string(payload), 2048))
}

func (c *OllamaClient) logResponse(path string, resp []byte) {
	c.logf("response %s payload: %s", path, clip(string(resp), 2048))
}

func (c *OllamaClient) logf(format string, args ...interface{}) {
	if !c.Debug {
		return
	}
	logger := c.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("[ollama] "+format, args...)
}
