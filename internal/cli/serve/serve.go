// Package serve implements the `profiled serve` command that runs the daemon.
package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/profiled-project/profiled/internal/config"
	"github.com/profiled-project/profiled/internal/delivery"
	"github.com/profiled-project/profiled/internal/engine"
	"github.com/profiled-project/profiled/internal/logging"
	"github.com/profiled-project/profiled/internal/server"
	"github.com/profiled-project/profiled/internal/session"
	"github.com/profiled-project/profiled/internal/telemetry"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the profiling daemon",
		Long: `Run the profiling daemon.

The daemon exposes the profiling control API over HTTP and executes at most
one sampling session at a time. Artifacts are routed to the configured
telemetry collector or stored locally under the destination directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the daemon config file")
	return cmd
}

func run(parent context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	if err := os.MkdirAll(cfg.Profiles.DestinationDirectory, 0o700); err != nil {
		return fmt.Errorf("create destination directory: %w", err)
	}

	base := session.DefaultConfig()
	base.DestinationDirectory = cfg.Profiles.DestinationDirectory

	var queue telemetry.Queue
	if cfg.Telemetry.Endpoint != "" {
		queue = telemetry.NewHTTPQueue(cfg.Telemetry.Endpoint, time.Duration(cfg.Telemetry.TimeoutSecs)*time.Second, logger)
	} else {
		// No collector configured: default sessions to local storage and
		// keep any explicitly telemetry-routed submissions in memory.
		base.SendToTelemetry = false
		queue = telemetry.NewMemQueue()
		logger.Info().Msg("No telemetry endpoint configured; artifacts default to local storage")
	}

	ctrl := session.NewController(
		engine.NewCPUSampler(logger),
		delivery.NewSink(queue, logger),
		base,
		logger,
	)

	srv := server.New(server.Config{
		Host:       cfg.Listen.Host,
		Port:       cfg.Listen.Port,
		Controller: ctrl,
		Logger:     logger,
	})

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	logger.Info().Str("destination", cfg.Profiles.DestinationDirectory).Msg("Profiling daemon started")
	return g.Wait()
}
