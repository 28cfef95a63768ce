// Package main provides the devsecops command line: the HTTP API server,
// simulated pipeline runs, the stage and incident catalog and the assistants.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jonathan/devsecops-visualizer/internal/config"
	"github.com/jonathan/devsecops-visualizer/internal/relay"
)

// rootOptions are shared by every subcommand.
type rootOptions struct {
	configPath string
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newRelay builds the relay for the configured provider. A missing API key
// yields a relay whose queries fail with missing_credential.
func newRelay(ctx context.Context, cfg *config.Config) (*relay.Relay, error) {
	r, err := relay.New(ctx, cfg.LLMClientConfig(), cfg.APIKey())
	if err != nil {
		return nil, fmt.Errorf("failed to create relay: %w", err)
	}
	return r, nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "devsecops",
		Short: "DevSecOps pipeline visualizer",
		Long: "Explore an illustrative DevSecOps CI/CD pipeline: run simulated pipelines, " +
			"browse stages and incidents, and ask the interview and SRE assistants.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a JSON or TOML config file")

	root.AddCommand(
		newServeCmd(opts),
		newRunCmd(opts),
		newStagesCmd(),
		newIncidentsCmd(opts),
		newAskCmd(opts),
		newHashPasswordCmd(),
		newTokenCmd(),
	)
	return root
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
