package cmd

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/developmentseed/labs-gpt-stac/server"
)

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (/chatgpt, /status, /geocode, /templates)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := globalCfg
			if addr != "" {
				cfg.Server.Addr = addr
			}
			logger := log.New(os.Stderr, "[gptstac] ", log.LstdFlags)
			rt, err := NewRuntime(cfg, logger)
			if err != nil {
				return err
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
			err = api.ServeContext(cmd.Context(), cfg.Server.Addr)
			if errors.Is(err, context.Canceled) {
				logger.Printf("shutdown complete")
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}
