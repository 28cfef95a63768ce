package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/devsecops-visualizer/internal/catalog"
	"github.com/jonathan/devsecops-visualizer/internal/observability"
	"github.com/jonathan/devsecops-visualizer/internal/pipeline"
	"github.com/jonathan/devsecops-visualizer/internal/tui"
)

type runOptions struct {
	tui         bool
	json        bool
	seed        uint64
	probability float64
	delay       time.Duration
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulated pipeline",
		Long: `Walk the pipeline stages in order, drawing a pass/fail outcome for each
stage and stopping at the first failure. Nothing is executed for real.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, root, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.tui, "tui", false, "Show the run in an interactive terminal view")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Print the result as JSON")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "Seed for reproducible outcomes")
	cmd.Flags().Float64Var(&opts.probability, "probability", pipeline.DefaultSuccessProbability, "Chance that a stage passes (0-1)")
	cmd.Flags().DurationVar(&opts.delay, "delay", pipeline.DefaultStepDelay, "Pause before each stage outcome")
	return cmd
}

func runPipeline(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	runCfg := cfg.PipelineConfig()
	if cmd.Flags().Changed("probability") {
		runCfg.SuccessProbability = opts.probability
	}
	if cmd.Flags().Changed("delay") {
		runCfg.StepDelay = opts.delay
	}
	if cmd.Flags().Changed("seed") {
		runCfg.Source = rand.New(rand.NewPCG(opts.seed, opts.seed>>1|1))
	}

	runner, err := pipeline.NewRunner(runCfg)
	if err != nil {
		return err
	}
	cat, err := catalog.Default()
	if err != nil {
		return err
	}
	stages := cat.Stages()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var result *pipeline.Result
	if opts.tui {
		result, err = tui.Run(ctx, runner, stages)
	} else {
		names := make(map[string]string, len(stages))
		for _, stage := range stages {
			names[stage.ID] = stage.Name
		}
		out := cmd.OutOrStdout()
		if !opts.json {
			unsubscribe := runner.Subscribe(func(ev pipeline.Event) {
				if ev.Kind == pipeline.EventSnapshot && ev.StageID != "" {
					status := ev.Statuses[ev.StageID]
					fmt.Fprintf(out, "%s %-24s %s\n", observability.StatusIcon(status), names[ev.StageID], status)
				}
			})
			defer unsubscribe()
		}
		result, err = runner.Run(ctx, stages)
	}
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	if opts.json {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintRunResult(result, stages)
	return nil
}
