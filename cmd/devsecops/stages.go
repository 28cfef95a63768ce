package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jonathan/devsecops-visualizer/internal/catalog"
	"github.com/jonathan/devsecops-visualizer/internal/observability"
)

func newStagesCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stages [stage-id]",
		Short: "List pipeline stages or show one stage",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Default()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				if asJSON {
					return writeJSON(out, cat.Stages())
				}
				observability.NewPrinter(out).PrintStages(cat.Stages())
				return nil
			}

			stage, ok := cat.Stage(args[0])
			if !ok {
				return fmt.Errorf("stage not found: %s", args[0])
			}
			if asJSON {
				return writeJSON(out, stage)
			}
			observability.NewPrinter(out).PrintStage(&stage)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
