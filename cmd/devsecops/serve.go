package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/devsecops-visualizer/internal/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Start an HTTP server exposing the stage and incident catalog, simulated
pipeline runs (with a Server-Sent Events stream), run history and the AI
assistants. Run history is stored in PostgreSQL when DATABASE_URL is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			srv, err := server.NewFromConfig(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}
			return srv.Start(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "Port to listen on (overrides config and PORT)")
	return cmd
}
