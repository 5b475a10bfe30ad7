package llm

import (
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/developmentseed/labs-gpt-stac/framework"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Config selects and configures a completion provider.
type Config struct {
	Provider string
	Model    string
	APIKey   string
	// BaseURL overrides the OpenAI API root.
	BaseURL        string
	OllamaEndpoint string
	Timeout        time.Duration
	Debug          bool
	Logger         *log.Logger
}

// New builds the LanguageModel for cfg.Provider. An empty provider means
// OpenAI.
func New(cfg Config) (framework.LanguageModel, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: openai api key missing", framework.ErrConfiguration)
		}
		client := NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model, tracedClient(timeout))
		client.Debug = cfg.Debug
		client.Logger = cfg.Logger
		return client, nil
	case ProviderOllama:
		client := NewOllamaClient(cfg.OllamaEndpoint, cfg.Model)
		client.client = tracedClient(timeout)
		client.Debug = cfg.Debug
		client.Logger = cfg.Logger
		return client, nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", framework.ErrConfiguration, cfg.Provider)
	}
}

func tracedClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
}
