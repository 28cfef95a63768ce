package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/devsecops-visualizer/internal/catalog"
	"github.com/jonathan/devsecops-visualizer/internal/observability"
	"github.com/jonathan/devsecops-visualizer/internal/prompts"
	"github.com/jonathan/devsecops-visualizer/internal/relay"
	"github.com/jonathan/devsecops-visualizer/internal/sre"
	"github.com/jonathan/devsecops-visualizer/internal/types"
)

type askOptions struct {
	mode     string
	stage    string
	quick    string
	incident string
}

func newAskCmd(root *rootOptions) *cobra.Command {
	opts := &askOptions{}
	cmd := &cobra.Command{
		Use:   "ask [question...]",
		Short: "Ask the DevSecOps or SRE assistant",
		Long: `Ask the DevSecOps interview assistant a question, optionally about one
stage (--stage). --quick asks a canned question (interview, simple or example).
With --incident the question goes to the SRE assistant, which answers from the
incident record when no model is configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ask(cmd, root, opts, strings.TrimSpace(strings.Join(args, " ")))
		},
	}
	cmd.Flags().StringVar(&opts.mode, "mode", "", "Assistant mode: general, stage or interview")
	cmd.Flags().StringVar(&opts.stage, "stage", "", "Stage id to ask about")
	cmd.Flags().StringVar(&opts.quick, "quick", "", "Canned question: interview, simple or example")
	cmd.Flags().StringVar(&opts.incident, "incident", "", "Incident id for the SRE assistant")
	return cmd
}

func ask(cmd *cobra.Command, root *rootOptions, opts *askOptions, question string) error {
	cat, err := catalog.Default()
	if err != nil {
		return err
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

	printer := observability.NewPrinter(cmd.OutOrStdout())

	if opts.incident != "" {
		incident, ok := cat.Incident(opts.incident)
		if !ok {
			return fmt.Errorf("incident not found: %s", opts.incident)
		}
		if question == "" {
			return errors.New("a question is required")
		}
		reply := sre.New(r, cat).Ask(cmd.Context(), &incident, question)
		printer.PrintAnswer(fmt.Sprintf("SRE %s (%s)", incident.ID, reply.Source), reply.Result)
		return answerError(reply.Result)
	}

	var stageCtx *types.StageContext
	if opts.stage != "" {
		stage, ok := cat.Stage(opts.stage)
		if !ok {
			return fmt.Errorf("stage not found: %s", opts.stage)
		}
		stageCtx = stage.Context()
	}

	req := types.QueryRequest{Mode: opts.mode, Question: question, StageID: opts.stage}
	if opts.quick != "" {
		req.Question, req.Mode = prompts.QuickQuestion(prompts.QuickKind(opts.quick), stageCtx)
	} else if req.Mode == "" && stageCtx != nil {
		req.Mode = types.ModeStage
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid question: %w", err)
	}

	result := r.Query(cmd.Context(), relay.Query{
		Instruction: prompts.Build(req.EffectiveMode(), req.Question, stageCtx),
		Question:    req.Question,
	})
	printer.PrintAnswer(strings.ToUpper(req.EffectiveMode())+" ASSISTANT", result)
	return answerError(result)
}

// answerError turns a failed relay result into a non-zero exit.
func answerError(result relay.Result) error {
	if result.OK {
		return nil
	}
	return fmt.Errorf("assistant query failed (%s): %s", result.Kind, result.Message)
}
