package cmd

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/developmentseed/labs-gpt-stac/agents/react"
	"github.com/developmentseed/labs-gpt-stac/framework"
	"github.com/developmentseed/labs-gpt-stac/internal/config"
	"github.com/developmentseed/labs-gpt-stac/llm"
	"github.com/developmentseed/labs-gpt-stac/tools"
)

// Runtime bundles everything one process needs to answer questions.
type Runtime struct {
	Config    config.Config
	Agent     *react.Agent
	Geocoder  *tools.Geocoder
	Telemetry framework.Telemetry
	Logger    *log.Logger

	closers []io.Closer
}

// NewRuntime validates cfg and wires the model, tools, agent and telemetry.
func NewRuntime(cfg config.Config, logger *log.Logger) (*Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	rt := &Runtime{Config: cfg, Logger: logger}

	var sinks []framework.Telemetry
	if cfg.Agent.Debug {
		sinks = append(sinks, framework.LoggerTelemetry{Logger: logger})
	}
	if cfg.Logging.File != "" {
		sink, err := framework.NewJSONFileTelemetry(cfg.Logging.File)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, sink)
		sinks = append(sinks, sink)
	}
	rt.Telemetry = framework.MultiplexTelemetry{Sinks: sinks}
	if cfg.Logging.TraceFile != "" {
		if err := rt.startTracing(cfg.Logging.TraceFile); err != nil {
			rt.Close()
			return nil, err
		}
	}

	base, err := llm.New(llm.Config{
		Provider:       cfg.LLM.Provider,
		Model:          cfg.LLM.Model,
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		OllamaEndpoint: cfg.LLM.OllamaEndpoint,
		Timeout:        cfg.LLM.Timeout,
		Debug:          cfg.Logging.LLMDebug,
		Logger:         logger,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	model := llm.NewInstrumentedModel(base, rt.Telemetry, cfg.Logging.LLMDebug)

	client := tools.NewHTTPClient(cfg.Tools.Timeout)
	registry, err := framework.NewToolRegistry(
		&tools.CalculateTool{},
		&tools.WikipediaTool{Endpoint: cfg.Tools.WikipediaEndpoint, Client: client},
		&tools.STACTool{Endpoint: cfg.Tools.STACEndpoint, MaxItems: cfg.Tools.MaxItems, Client: client},
	)
	if err != nil {
		rt.Close()
		return nil, err
	}
	var llmOpts *framework.LLMOptions
	if cfg.LLM.Temperature != 0 || cfg.LLM.MaxTokens != 0 {
		llmOpts = &framework.LLMOptions{Temperature: cfg.LLM.Temperature, MaxTokens: cfg.LLM.MaxTokens}
	}
	agent, err := react.New(react.Options{
		Model:      model,
		Tools:      registry,
		MaxTurns:   cfg.Agent.MaxTurns,
		LLMOptions: llmOpts,
		Telemetry:  rt.Telemetry,
		Logger:     logger,
		Debug:      cfg.Agent.Debug,
	})
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Agent = agent
	rt.Geocoder = newGeocoder(cfg)
	return rt, nil
}

// startTracing installs a global tracer provider that writes spans to path.
func (rt *Runtime) startTracing(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(f))
	if err != nil {
		f.Close()
		return err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	rt.closers = append(rt.closers, closerFunc(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errors.Join(tp.Shutdown(ctx), f.Close())
	}))
	return nil
}

type closerFunc func() error

func (fn closerFunc) Close() error { return fn() }

func newGeocoder(cfg config.Config) *tools.Geocoder {
	return &tools.Geocoder{
		Endpoint: cfg.Tools.GeocodeEndpoint,
		APIKey:   cfg.Tools.GeocodeAPIKey,
		Client:   tools.NewHTTPClient(cfg.Tools.Timeout),
	}
}

// Close releases telemetry sinks.
func (rt *Runtime) Close() error {
	var errs []error
	for _, c := range rt.closers {
		errs = append(errs, c.Close())
	}
	rt.closers = nil
	return errors.Join(errs...)
}
