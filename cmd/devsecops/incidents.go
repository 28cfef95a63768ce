package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/devsecops-visualizer/internal/catalog"
	"github.com/jonathan/devsecops-visualizer/internal/observability"
	"github.com/jonathan/devsecops-visualizer/internal/sre"
)

type incidentsOptions struct {
	stage  string
	rca    bool
	asJSON bool
}

func newIncidentsCmd(root *rootOptions) *cobra.Command {
	opts := &incidentsOptions{}
	cmd := &cobra.Command{
		Use:   "incidents [incident-id]",
		Short: "List simulated incidents or show one incident",
		Long: `Without an argument, list the incident catalog (optionally for one stage).
With an incident id, show the incident; --rca adds a root cause analysis from
the model, falling back to the recorded analysis when no model is configured.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Default()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printer := observability.NewPrinter(out)

			if len(args) == 0 {
				if opts.rca {
					return errors.New("--rca requires an incident id")
				}
				incidents := cat.Incidents()
				if opts.stage != "" {
					if _, ok := cat.Stage(opts.stage); !ok {
						return fmt.Errorf("stage not found: %s", opts.stage)
					}
					incidents = cat.IncidentsForStage(opts.stage)
				}
				if opts.asJSON {
					return writeJSON(out, incidents)
				}
				printer.PrintIncidents(incidents)
				return nil
			}

			incident, ok := cat.Incident(args[0])
			if !ok {
				return fmt.Errorf("incident not found: %s", args[0])
			}
			if !opts.rca {
				if opts.asJSON {
					return writeJSON(out, incident)
				}
				printer.PrintIncident(&incident)
				return nil
			}

			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			r, err := newRelay(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer r.Close()

			rca := sre.New(r, cat).AutoRCA(cmd.Context(), &incident)
			if opts.asJSON {
				return writeJSON(out, rca)
			}
			printer.PrintIncident(&incident)
			printer.PrintRCA(&rca)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.stage, "stage", "", "Only list incidents affecting this stage")
	cmd.Flags().BoolVar(&opts.rca, "rca", false, "Add a root cause analysis")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print as JSON")
	return cmd
}
