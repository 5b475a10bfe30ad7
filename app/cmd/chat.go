package cmd

import (
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/developmentseed/labs-gpt-stac/app/tui"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Ask questions interactively in the terminal UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := globalCfg
			// The alt screen owns the terminal; per-turn logging goes to the
			// telemetry file only.
			cfg.Agent.Debug = false
			rt, err := NewRuntime(cfg, log.New(io.Discard, "", 0))
			if err != nil {
				return err
			}
			defer rt.Close()
			return tui.Run(cmd.Context(), tui.Options{
				Runner:   rt.Agent,
				Model:    cfg.LLM.Model,
				Provider: cfg.LLM.Provider,
				MaxTurns: rt.Agent.MaxTurns(),
			})
		},
	}
}
