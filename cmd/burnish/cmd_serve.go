package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/burnish-dev/burnish/internal/projectconfig"
	"github.com/burnish-dev/burnish/internal/webserver"
)

func newServeCommand() *cobra.Command {
	var port int
	var resultsDir string
	var corsOrigins []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard API over recorded polish sessions",
		Long: `Start the dashboard HTTP server.

The server exposes recorded polish sessions from the results directory:

  GET /api/health                  Health check
  GET /api/summary                 Aggregate metrics across sessions
  GET /api/sessions                Session list (?sort=, ?order=)
  GET /api/sessions/{id}           Session detail with trajectory and events
  GET /api/sessions/{id}/events    Server-sent event stream

The server binds to loopback only.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := projectconfig.Load(".")
			if err != nil {
				return err
			}

			if port == 0 {
				port = cfg.Server.Port
			}
			if resultsDir == "" {
				resultsDir = cfg.Server.ResultsDir
			}
			absDir, err := filepath.Abs(resultsDir)
			if err != nil {
				return fmt.Errorf("resolving results directory: %w", err)
			}

			srv, err := webserver.New(webserver.Config{
				Port:           port,
				ResultsDir:     absDir,
				AllowedOrigins: corsOrigins,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default from config: 3000)")
	cmd.Flags().StringVar(&resultsDir, "results-dir", "", "Directory with session results (default from config)")
	cmd.Flags().StringArrayVar(&corsOrigins, "cors-origin", nil, "Origin allowed to call the API cross-origin (can be repeated)")

	return cmd
}
