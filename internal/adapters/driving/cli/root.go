// Package cli provides the profrank command line.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/profrank/internal/core/ports/driving"
	"github.com/custodia-labs/profrank/internal/logger"
)

// skipBootstrap marks commands that run without services.
const skipBootstrap = "skip-bootstrap"

var version = "dev"

// Services injected by SetServices or the bootstrap hook.
var (
	queryService   driving.QueryService
	refreshService driving.RefreshService
	scheduler      driving.Scheduler
	serverAddr     string
	closeServices  func() error
	bootstrap      Bootstrap
)

// Global flags.
var (
	verbose   bool
	configDir string
	ephemeral bool
	jsonOut   bool
)

// Options carries the global flags to the bootstrap hook.
type Options struct {
	ConfigDir string
	Ephemeral bool
	Verbose   bool
}

// Services is everything the commands need.
type Services struct {
	Query      driving.QueryService
	Refresh    driving.RefreshService
	Scheduler  driving.Scheduler
	ServerAddr string

	// Close releases the cache store. Optional.
	Close func() error
}

// Bootstrap builds the services from the global flags.
type Bootstrap func(ctx context.Context, opts Options) (*Services, error)

var rootCmd = &cobra.Command{
	Use:   "profrank",
	Short: "Rank instructors from cached student reviews",
	Long: `profrank ingests instructor reviews from the ratings source into a local
cache, scores every instructor and serves rankings, department rollups and
schedule matches from that cache.

The cache refreshes itself when it is older than refresh.max_age. Use
"profrank refresh --force" to re-ingest immediately.`,
	SilenceUsage:      true,
	PersistentPreRunE: prepare,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default ~/.profrank)")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "use an in-memory cache for this run")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output as JSON")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetBootstrap installs the hook that builds services on first use.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices injects ready-made services, bypassing the bootstrap hook.
func SetServices(s *Services) {
	queryService = s.Query
	refreshService = s.Refresh
	scheduler = s.Scheduler
	serverAddr = s.ServerAddr
	closeServices = s.Close
}

// Execute runs the root command and releases services afterwards.
func Execute(ctx context.Context) error {
	defer shutdown()
	return rootCmd.ExecuteContext(ctx)
}

// prepare builds services unless the command opts out or they are injected.
func prepare(cmd *cobra.Command, _ []string) error {
	if verbose {
		logger.SetVerbose(true)
	}
	if cmd.Annotations[skipBootstrap] == "true" {
		return nil
	}
	if queryService != nil || bootstrap == nil {
		return nil
	}

	s, err := bootstrap(cmd.Context(), Options{
		ConfigDir: configDir,
		Ephemeral: ephemeral,
		Verbose:   verbose,
	})
	if err != nil {
		return fmt.Errorf("starting profrank: %w", err)
	}
	SetServices(s)
	return nil
}

func shutdown() {
	if closeServices == nil {
		return
	}
	if err := closeServices(); err != nil {
		logger.Warn("closing cache: %v", err)
	}
	closeServices = nil
}
