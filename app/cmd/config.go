package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/developmentseed/labs-gpt-stac/internal/config"
)

// newConfigCmd registers subcommands that inspect or mutate the config file.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or modify " + config.DefaultPath,
	}
	cmd.AddCommand(newConfigShowCmd(), newConfigValidateCmd(), newConfigGetCmd(), newConfigSetCmd())
	return cmd
}

// newConfigShowCmd prints the effective configuration with secrets redacted.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (file + environment)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := globalCfg.YAML()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check that credentials and limits are usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := globalCfg.Validate(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration ok")
			return nil
		},
	}
}

// newConfigGetCmd prints the value referenced by a dotted key.
func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "get [key]",
		Annotations: map[string]string{skipConfigLoad: "true"},
		Short:       "Read a config file value by dotted key",
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readConfigDoc(configPath())
			if err != nil {
				return err
			}
			value, ok := doc.lookup(args[0])
			if !ok {
				return fmt.Errorf("key %s not found", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), prettyValue(value))
			return nil
		},
	}
}

// newConfigSetCmd updates a dotted key with the provided value.
func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "set [key] [value]",
		Annotations: map[string]string{skipConfigLoad: "true"},
		Short:       "Update a config file value",
		Args:        cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			doc, err := readConfigDoc(path)
			if err != nil {
				return err
			}
			if err := doc.assign(args[0], parseValue(args[0], args[1])); err != nil {
				return err
			}
			if err := doc.save(path); err != nil {
				return fmt.Errorf("refusing to write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s updated\n", args[0])
			return nil
		},
	}
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultPath
}
