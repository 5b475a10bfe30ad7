package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/developmentseed/labs-gpt-stac/agents/react"
	"github.com/developmentseed/labs-gpt-stac/app/tui"
	"github.com/developmentseed/labs-gpt-stac/framework"
	"github.com/developmentseed/labs-gpt-stac/server"
)

func newAskCmd() *cobra.Command {
	var asJSON bool
	var plain bool
	var showSteps bool
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("question is required")
			}
			rt, err := NewRuntime(globalCfg, log.New(cmd.ErrOrStderr(), "", log.LstdFlags))
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := framework.WithTaskContext(cmd.Context(), framework.TaskContext{
				ID:       uuid.NewString(),
				Question: question,
				Source:   "cli",
			})
			outcome, err := rt.Agent.Run(ctx, question)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case asJSON:
				return writeOutcomeJSON(out, outcome)
			case plain || !isTerminal(out):
				return writeOutcomePlain(out, outcome, showSteps)
			default:
				fmt.Fprintln(out, tui.RenderOutcome(outcome))
				return nil
			}
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the same JSON payload the HTTP API returns")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print unstyled text (default when stdout is not a terminal)")
	cmd.Flags().BoolVar(&showSteps, "steps", false, "With --plain, print every turn")
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func writeOutcomeJSON(w io.Writer, outcome *react.Outcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if outcome.Kind == react.OutcomeCatalogResult {
		return enc.Encode(outcome.Catalog)
	}
	return enc.Encode(server.AnswerResponse{Answer: outcome.Answer})
}

func writeOutcomePlain(w io.Writer, outcome *react.Outcome, steps bool) error {
	if steps {
		for _, step := range outcome.Steps {
			fmt.Fprintf(w, "--- turn %d\n%s\n", step.Turn, step.Thought)
			if step.Observation != "" {
				fmt.Fprintf(w, "Observation: %s\n", step.Observation)
			}
		}
		fmt.Fprintln(w, "---")
	}
	if outcome.Kind == react.OutcomeCatalogResult {
		_, err := fmt.Fprintln(w, outcome.Catalog.Summary())
		return err
	}
	_, err := fmt.Fprintln(w, outcome.Answer)
	return err
}
