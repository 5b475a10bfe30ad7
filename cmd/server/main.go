// Command server runs only the HTTP API, configured from the environment and
// an optional file named by GPTSTAC_CONFIG.
package main

import (
	"context"
	"errors"
	logpkg "log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/developmentseed/labs-gpt-stac/app/cmd"
	"github.com/developmentseed/labs-gpt-stac/internal/config"
	"github.com/developmentseed/labs-gpt-stac/server"
)

func main() {
	logger := logpkg.New(os.Stderr, "[gptstac] ", logpkg.LstdFlags)

	cfg, err := config.Load(os.Getenv("GPTSTAC_CONFIG"))
	if err != nil {
		logger.Fatalf("config: %v", err)
	}
	if envBool("GPTSTAC_DEBUG") {
		cfg.Agent.Debug = true
		cfg.Logging.LLMDebug = true
	}
	rt, err := cmd.NewRuntime(cfg, logger)
	if err != nil {
		logger.Fatalf("startup failed: %v", err)
	}
	defer rt.Close()

	api := &server.APIServer{
		Agent:          rt.Agent,
		Geocoder:       rt.Geocoder,
		TemplatesDir:   cfg.Server.TemplatesDir,
		RequestTimeout: cfg.Server.RequestTimeout,
		Logger:         logger,
		Telemetry:      rt.Telemetry,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Printf("Starting gpt-stac API server on %s (provider=%s model=%s)\n", cfg.Server.Addr, cfg.LLM.Provider, cfg.LLM.Model)
	if err := api.ServeContext(ctx, cfg.Server.Addr); err != nil && !errors.Is(err, context.Canceled) {
		logger.Printf("server stopped: %v", err)
	}
}

func envBool(key string) bool {
	val := os.Getenv(key)
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
