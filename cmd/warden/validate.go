package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/warden/pkg/cli"
	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/notify"
)

var validateFlags struct {
	watch bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration and policy table",
	Long: `Load the configuration file, build every policy chain and wrap the demo
host with it, reporting each problem found.

With --watch, the file is validated again every time it changes until the
command is interrupted.

Examples:
  # Validate once
  warden validate --config warden.yaml

  # Keep validating while editing
  warden validate --watch`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVarP(&validateFlags.watch, "watch", "w", false, "re-validate whenever the file changes")
}

// checkReport summarises one validation pass.
type checkReport struct {
	Operations int
	Policies   int
	Wrapped    int
	Problems   []string
}

func (r *checkReport) ok() bool {
	return len(r.Problems) == 0
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, loadErr := config.LoadConfigWithEnvOverrides(cfgFile)
	report := check(cfg, loadErr)
	printReport(out, report)

	if !validateFlags.watch {
		if !report.ok() {
			return cli.NewConfigError("", fmt.Sprintf("%d problem(s) in %s", len(report.Problems), cfgFile))
		}
		return nil
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if verbose {
		logger = slog.Default()
	}
	watcher, err := config.NewWatcher(cfgFile, config.WithEnvOverrides(), config.WithWatcherLogger(logger))
	if err != nil {
		return cli.NewCommandError("validate", err)
	}
	defer watcher.Stop()

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

	fmt.Fprintf(out, "\nWatching %s for changes (Ctrl+C to stop)\n", cfgFile)
	return watcher.Watch(ctx, func(cfg *config.Config, err error) {
		fmt.Fprintf(out, "\n%s changed\n", cfgFile)
		printReport(out, check(cfg, err))
	})
}

// check builds and wraps cfg against the demo host without recording or
// prompting.
func check(cfg *config.Config, loadErr error) *checkReport {
	report := &checkReport{}
	if loadErr != nil {
		report.Problems = problems(loadErr)
		return report
	}

	report.Operations = len(cfg.Operations)
	for _, op := range cfg.Operations {
		report.Policies += len(op.Policies)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := buildStack(cfg, logger, stackOptions{sink: notify.NewStatic(false)})
	if err != nil {
		report.Problems = problems(err)
		return report
	}
	defer st.Close(context.Background())

	report.Wrapped = len(st.engine.Bindings())
	if st.installErr != nil {
		report.Problems = problems(st.installErr)
	}
	return report
}

// problems flattens validation and joined errors into one line each.
func problems(err error) []string {
	var verr config.ValidationError
	if errors.As(err, &verr) && len(verr.Errors) > 0 {
		lines := make([]string, len(verr.Errors))
		for i, fe := range verr.Errors {
			lines[i] = fe.Error()
		}
		return lines
	}

	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var lines []string
		for _, e := range joined.Unwrap() {
			lines = append(lines, e.Error())
		}
		return lines
	}
	return []string{err.Error()}
}

func printReport(w io.Writer, r *checkReport) {
	if r.ok() {
		fmt.Fprintf(w, "✓ Configuration valid (%d operations, %d policies, %d wrapped)\n",
			r.Operations, r.Policies, r.Wrapped)
		return
	}
	fmt.Fprintf(w, "✗ Configuration invalid (%d problems)\n", len(r.Problems))
	for _, p := range r.Problems {
		fmt.Fprintf(w, "  - %s\n", p)
	}
}
