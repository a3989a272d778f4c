package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/warden/internal/demohost"
	"mercator-hq/warden/pkg/cli"
	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/evidence/query"
	"mercator-hq/warden/pkg/evidence/retention"
	"mercator-hq/warden/pkg/server"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	scenario      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Wrap the demo host and serve the HTTP surface",
	Long: `Wrap the demo host's operations with the configured policy table and keep
running until interrupted.

When the server is enabled (server.enabled or --listen), Warden serves health
probes, Prometheus metrics, installed bindings, recorded decisions and the
extension descriptor. With --scenario, the scenario's calls are issued in real
time through the host's own functions, exactly as host code would call them;
without a server, run exits after the replay.

Examples:
  # Start with default config
  warden run

  # Serve on another address
  warden run --listen 0.0.0.0:8787

  # Drive the demo host while serving
  warden run --scenario scenarios/burst.yaml

  # Validate config and wrapping without starting
  warden run --dry-run`,
	RunE: runWarden,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "serve HTTP on this address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&runFlags.scenario, "scenario", "", "scenario to replay against the demo host")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config and wrapping without running")
}

func runWarden(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Server.Enabled = true
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	var scenario *demohost.Scenario
	if runFlags.scenario != "" {
		if scenario, err = demohost.LoadScenario(runFlags.scenario); err != nil {
			return err
		}
	}
	if !cfg.Server.Enabled && scenario == nil && !runFlags.dryRun {
		return cli.NewConfigError("server.enabled", "nothing to run: enable the server or pass --scenario")
	}

	st, err := buildStack(cfg, logger, stackOptions{record: !runFlags.dryRun})
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := st.Close(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	printBanner(st)

	if runFlags.dryRun {
		if st.installErr != nil {
			return cli.NewCommandError("run", st.installErr)
		}
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

	if st.store != nil && cfg.Evidence.Retention.PruneSchedule != "" {
		pruner := retention.NewPruner(st.store, retention.ConfigFrom(cfg.Evidence.Retention),
			retention.WithLogger(logger))
		if err := pruner.Start(ctx); err != nil {
			logger.Warn("failed to start retention scheduler", "error", err)
		} else {
			defer pruner.Stop()
			if next := pruner.NextPruning(); next != nil {
				logger.Debug("evidence retention scheduler started", "next_pruning", next)
			}
		}
	}

	errChan := make(chan error, 1)
	if cfg.Server.Enabled {
		srv := newServer(st)
		go func() {
			errChan <- srv.Start(ctx)
		}()
		fmt.Fprintf(out, "✓ Server listening on %s\n", cfg.Server.ListenAddress)
		fmt.Fprintf(out, "✓ Health endpoint: http://%s/health\n", cfg.Server.ListenAddress)
		if st.metrics != nil {
			fmt.Fprintf(out, "✓ Metrics endpoint: http://%s/metrics\n", cfg.Server.ListenAddress)
		}
	}

	replayDone := make(chan struct{})
	if scenario != nil {
		go func() {
			defer close(replayDone)
			forwarded, failed := replayLive(ctx, st, scenario, logger)
			fmt.Fprintf(out, "✓ Scenario %q replayed: %d calls returned normally, %d failed\n",
				scenario.Name, forwarded, failed)
		}()
	}

	if !cfg.Server.Enabled {
		<-replayDone
		return nil
	}

	fmt.Fprintln(out, "\nPress Ctrl+C to stop")
	if err := <-errChan; err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

func newServer(st *stack) *server.Server {
	deps := server.Deps{
		Engine:     st.engine,
		Limits:     query.LimitsFrom(st.cfg.Evidence.Query),
		Extensions: st.extensions,
		Tracer:     st.tracer.OTel(),
		Logger:     st.logger,
		Version:    Version,
		Commit:     GitCommit,
		BuildTime:  BuildDate,
	}
	if st.store != nil {
		deps.Evidence = st.store
	}
	if st.metrics != nil {
		deps.Metrics = st.metrics.Handler()
	}
	return server.New(&st.cfg.Server, deps)
}

// replayLive issues the scenario in real time through the host's own
// function fields. Denials are visible only through the logs, the metrics
// and the evidence, as they would be for real host code.
func replayLive(ctx context.Context, st *stack, scenario *demohost.Scenario, logger *slog.Logger) (returned, failed int) {
	start := time.Now()
	for _, inv := range scenario.Expand() {
		if wait := time.Until(start.Add(inv.At)); wait > 0 {
			select {
			case <-ctx.Done():
				return returned, failed
			case <-time.After(wait):
			}
		}
		if ctx.Err() != nil {
			return returned, failed
		}

		value, err := st.host.Call(ctx, inv.Owner, inv.Operation, inv.Args...)
		if err != nil {
			failed++
			logger.Warn("scenario call failed",
				"owner", inv.Owner,
				"operation", inv.Operation,
				"error", err,
			)
			continue
		}
		returned++
		logger.Debug("scenario call returned",
			"owner", inv.Owner,
			"operation", inv.Operation,
			"value", value,
		)
	}
	return returned, failed
}

func printBanner(st *stack) {
	fmt.Fprintf(out, "Warden v%s\n", Version)
	fmt.Fprintf(out, "Loading configuration from: %s\n", cfgFile)
	fmt.Fprintln(out, "✓ Configuration loaded")

	bindings := st.engine.Bindings()
	fmt.Fprintf(out, "✓ Operations wrapped (%d of %d)\n", len(bindings), len(st.set.Descriptors))
	if st.installErr != nil {
		var joined interface{ Unwrap() []error }
		if errors.As(st.installErr, &joined) {
			for _, err := range joined.Unwrap() {
				fmt.Fprintf(out, "  ✗ %v\n", err)
			}
		} else {
			fmt.Fprintf(out, "  ✗ %v\n", st.installErr)
		}
	}
	if st.store != nil {
		fmt.Fprintf(out, "✓ Evidence store initialized (%s)\n", st.cfg.Evidence.Backend)
	}
	if st.tracer.Enabled() {
		fmt.Fprintf(out, "✓ Tracing enabled (%s)\n", st.cfg.Telemetry.Tracing.Endpoint)
	}
	if auth := st.cfg.Server.Auth; st.cfg.Server.Enabled && auth.Enabled {
		fmt.Fprintf(out, "✓ API token auth enabled (%d tokens)\n", len(auth.Tokens))
	}
	if st.cfg.Notify.Mode != config.DefaultNotifyMode {
		fmt.Fprintf(out, "✓ Confirmations via %s\n", st.cfg.Notify.Mode)
	}
}
