package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/developmentseed/labs-gpt-stac/framework"
	"github.com/developmentseed/labs-gpt-stac/internal/config"
)

// skipConfigLoad marks commands that edit the file directly and must keep
// working when it is missing or broken.
const skipConfigLoad = "gptstac/skip-config-load"

var (
	cfgFile string
	debug   bool

	globalCfg config.Config
)

// Execute is the entry point for the CLI.
func Execute(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		if kind := framework.ErrorKind(err); kind != "internal" {
			fmt.Fprintf(os.Stderr, "%s: %v\n", kind, err)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// NewRootCmd wires the cobra tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gptstac",
		Short:         "Natural-language search over STAC imagery catalogs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfigLoad] != "" {
				return nil
			}
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if debug {
				cfg.Agent.Debug = true
				cfg.Logging.LLMDebug = true
			}
			globalCfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config file (default ./"+config.DefaultPath+")")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Log every turn, prompt and response")

	root.AddCommand(
		newServeCmd(),
		newAskCmd(),
		newChatCmd(),
		newGeocodeCmd(),
		newConfigCmd(),
	)
	return root
}
