package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/profrank/internal/adapters/driving/api"
	"github.com/custodia-labs/profrank/internal/logger"
)

var (
	serveAddr        string
	serveNoScheduler bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP JSON API",
	Long: `Starts the HTTP JSON API and the background freshness check.

The check runs once at startup and then every refresh.check_interval,
re-ingesting whenever the cache is older than refresh.max_age.

Endpoints:
  GET  /api/stats
  GET  /api/rankings
  GET  /api/departments
  GET  /api/departments/{name}
  POST /api/schedule
  GET  /api/instructors/{id}/reviews
  POST /api/refresh
  GET  /api/refresh/status
  GET  /metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr)")
	serveCmd.Flags().BoolVar(&serveNoScheduler, "no-scheduler", false, "disable the background freshness check")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if queryService == nil || refreshService == nil {
		return errors.New("services not configured")
	}

	addr := serveAddr
	if addr == "" {
		addr = serverAddr
	}
	if addr == "" {
		return errors.New("no listen address: set --addr or server.addr")
	}

	server := api.NewServer(addr, api.NewRouter(api.NewHandler(queryService, refreshService)))

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		return server.Run(ctx)
	})

	if scheduler != nil && !serveNoScheduler {
		g.Go(func() error {
			if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			return scheduler.Stop()
		})
	} else {
		logger.Info("serve: background freshness check disabled")
	}

	cmd.Printf("Serving on http://%s\n", addr)
	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve failed: %w", err)
	}
	return nil
}
