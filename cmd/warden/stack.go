package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"mercator-hq/warden/internal/demohost"
	"mercator-hq/warden/pkg/cli"
	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/evidence"
	"mercator-hq/warden/pkg/evidence/recorder"
	"mercator-hq/warden/pkg/evidence/storage"
	"mercator-hq/warden/pkg/extension"
	"mercator-hq/warden/pkg/intercept"
	"mercator-hq/warden/pkg/notify"
	"mercator-hq/warden/pkg/policy/loader"
	"mercator-hq/warden/pkg/telemetry/logging"
	"mercator-hq/warden/pkg/telemetry/metrics"
	"mercator-hq/warden/pkg/telemetry/tracing"
)

// loadConfig reads the file named by --config with WARDEN_* overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	return cfg, nil
}

// newLogger builds the process logger. --verbose forces debug level.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	logCfg := logging.FromConfig(&cfg.Telemetry.Logging, os.Stderr)
	if verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return logger.Slog(), nil
}

// newSink returns the sink selected by notify.mode, bounded by the
// configured confirmation timeout.
func newSink(cfg *config.Config, logger *slog.Logger) notify.Sink {
	var sink notify.Sink
	switch cfg.Notify.Mode {
	case "terminal":
		sink = notify.NewTerminal(os.Stdin, os.Stderr)
	case "static":
		sink = notify.NewStatic(cfg.Notify.DefaultAnswer)
	default:
		sink = notify.NewLogSink(logger, cfg.Notify.DefaultAnswer)
	}
	return notify.WithTimeout(sink, cfg.Engine.ConfirmTimeout)
}

type stackOptions struct {
	// sink replaces the configured sink.
	sink notify.Sink

	// clock drives the engine, the limiter and the recorder.
	clock func() time.Time

	// record opens the evidence store when evidence is enabled.
	record bool
}

// stack is every component wired around the demo host.
type stack struct {
	cfg        *config.Config
	logger     *slog.Logger
	tracer     *tracing.Tracer
	metrics    *metrics.Collector
	store      evidence.Storage
	recorder   *recorder.Recorder
	set        *loader.Set
	host       *demohost.Host
	engine     *intercept.Engine
	extensions *extension.Registry

	// installErr joins the operations that could not be wrapped.
	installErr error
}

func buildStack(cfg *config.Config, logger *slog.Logger, opts stackOptions) (*stack, error) {
	if opts.clock == nil {
		opts.clock = time.Now
	}
	s := &stack{cfg: cfg, logger: logger, host: demohost.New()}

	set, err := loader.Build(cfg, loader.WithClock(opts.clock))
	if err != nil {
		return nil, cli.NewConfigError("operations", err.Error())
	}
	s.set = set

	s.extensions = extension.NewRegistry()
	if err := s.extensions.Register(extension.FromConfig(cfg.Extension)); err != nil {
		return nil, cli.NewConfigError("extension", err.Error())
	}

	tracer, err := tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	s.tracer = tracer

	duplicates, err := intercept.ParseDuplicatePolicy(cfg.Engine.OnDuplicate)
	if err != nil {
		s.Close(context.Background())
		return nil, cli.NewConfigError("engine.on_duplicate", err.Error())
	}

	sink := opts.sink
	if sink == nil {
		sink = newSink(cfg, logger)
	}

	engineOpts := []intercept.Option{
		intercept.WithSink(sink),
		intercept.WithLogger(logger),
		intercept.WithTracer(tracer.OTel()),
		intercept.WithClock(opts.clock),
		intercept.WithDuplicatePolicy(duplicates),
	}
	if cfg.Engine.DenialErrors {
		engineOpts = append(engineOpts, intercept.WithDenialErrors())
	}

	if cfg.Telemetry.Metrics.Enabled {
		s.metrics = metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
		engineOpts = append(engineOpts, intercept.WithObserver(s.metrics))
	}

	if opts.record && cfg.Evidence.Enabled {
		store, err := storage.New(cfg.Evidence)
		if err != nil {
			s.Close(context.Background())
			return nil, fmt.Errorf("failed to open evidence storage: %w", err)
		}
		s.store = store
		s.recorder = recorder.New(store, recorder.ConfigFrom(cfg.Evidence.Recorder),
			recorder.WithLogger(logger),
			recorder.WithClock(opts.clock),
		)
		engineOpts = append(engineOpts, intercept.WithObserver(s.recorder))
	}

	s.engine = intercept.New(engineOpts...)

	hosts, err := s.host.Hosts()
	if err != nil {
		s.Close(context.Background())
		return nil, err
	}
	s.installErr = s.engine.InstallAll(hosts, set.Descriptors)

	return s, nil
}

// Close uninstalls every wrapper, drains the recorder and releases the
// store and the tracer.
func (s *stack) Close(ctx context.Context) error {
	var errs []error
	if s.engine != nil {
		errs = append(errs, s.engine.UninstallAll())
	}
	if s.recorder != nil {
		errs = append(errs, s.recorder.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.tracer != nil {
		errs = append(errs, s.tracer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
