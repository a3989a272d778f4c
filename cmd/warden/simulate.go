package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/warden/internal/demohost"
	"mercator-hq/warden/pkg/cli"
	"mercator-hq/warden/pkg/intercept"
	"mercator-hq/warden/pkg/notify"
)

var simulateFlags struct {
	format      string
	interactive bool
	record      bool
	failOnDeny  bool
	progress    bool
	start       string
}

var simulateCmd = &cobra.Command{
	Use:   "simulate <scenario.yaml>",
	Short: "Replay a scenario against the demo host",
	Long: `Replay a scripted sequence of host calls through the configured policy
table and print the decision for each call.

Time is simulated: call offsets in the scenario advance a virtual clock, so
rate limit windows behave the same on every run. Confirmation prompts are
answered from the scenario's answers list unless --interactive is set.

Examples:
  # Replay a scenario
  warden simulate scenarios/burst.yaml

  # Fail (exit code 3) if any call is denied, for CI
  warden simulate scenarios/leaderboard.yaml --fail-on-deny

  # Answer trust prompts yourself
  warden simulate scenarios/extensions.yaml --interactive

  # Record decisions to the configured evidence store
  warden simulate scenarios/burst.yaml --record`,
	Args: cobra.ExactArgs(1),
	RunE: simulateScenario,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVar(&simulateFlags.format, "format", "text", "output format: text, json, csv")
	simulateCmd.Flags().BoolVarP(&simulateFlags.interactive, "interactive", "i", false, "prompt on the terminal for confirmations")
	simulateCmd.Flags().BoolVar(&simulateFlags.record, "record", false, "record decisions when evidence is enabled")
	simulateCmd.Flags().BoolVar(&simulateFlags.failOnDeny, "fail-on-deny", false, "exit with code 3 if any call is denied")
	simulateCmd.Flags().BoolVar(&simulateFlags.progress, "progress", false, "show replay progress on stderr")
	simulateCmd.Flags().StringVar(&simulateFlags.start, "start", "2025-01-01T00:00:00Z", "virtual start time (RFC3339)")
}

// simulation is the machine-readable result of a replay.
type simulation struct {
	Scenario  string          `json:"scenario"`
	Calls     []simulatedCall `json:"calls"`
	Forwarded int             `json:"forwarded"`
	Denied    int             `json:"denied"`
	Failed    int             `json:"failed"`
	State     demohost.State  `json:"state"`
}

type simulatedCall struct {
	Index     int           `json:"index"`
	At        time.Duration `json:"at_ns"`
	Owner     string        `json:"owner"`
	Operation string        `json:"operation"`
	Args      []any         `json:"args"`
	State     string        `json:"state"`
	Policy    string        `json:"policy,omitempty"`
	Reason    string        `json:"reason,omitempty"`
	Value     any           `json:"value"`
	Error     string        `json:"error,omitempty"`
}

func simulateScenario(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(simulateFlags.format)
	if err != nil {
		return err
	}
	formatter, err := cli.NewFormatter(format)
	if err != nil {
		return err
	}

	start, err := time.Parse(time.RFC3339, simulateFlags.start)
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}

	scenario, err := demohost.LoadScenario(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	var sink notify.Sink = notify.NewScripted(scenario.DefaultAnswer, scenario.Answers...)
	if simulateFlags.interactive {
		sink = notify.NewTerminal(os.Stdin, os.Stderr)
	}

	clock := demohost.NewClock(start)
	st, err := buildStack(cfg, logger, stackOptions{
		sink:   sink,
		clock:  clock.Now,
		record: simulateFlags.record,
	})
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	if st.installErr != nil {
		logger.Warn("some operations could not be wrapped", "error", st.installErr)
	}

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

	result := replay(ctx, st, scenario, clock, start)

	table := &cli.Table{
		Header: []string{"#", "AT", "CALL", "ARGS", "STATE", "POLICY", "REASON", "VALUE"},
		Value:  result,
	}
	for _, c := range result.Calls {
		value := formatValue(c.Value)
		if c.Error != "" {
			value = "error: " + c.Error
		}
		table.Append(
			strconv.Itoa(c.Index),
			c.At.String(),
			c.Owner+"."+c.Operation,
			formatArgs(c.Args),
			c.State,
			c.Policy,
			c.Reason,
			value,
		)
	}
	if err := formatter.FormatTo(out, table); err != nil {
		return err
	}
	if format == cli.FormatText {
		fmt.Fprintf(out, "\n%d calls: %d forwarded, %d denied, %d failed\n",
			len(result.Calls), result.Forwarded, result.Denied, result.Failed)
	}

	if simulateFlags.failOnDeny && result.Denied > 0 {
		return &cli.DeniedError{Denied: result.Denied, Total: len(result.Calls)}
	}
	return nil
}

// replay issues every invocation of the scenario through the engine,
// moving the virtual clock to each call's offset first.
func replay(ctx context.Context, st *stack, scenario *demohost.Scenario, clock *demohost.Clock, start time.Time) simulation {
	invocations := scenario.Expand()
	result := simulation{Scenario: scenario.Name}

	var progress cli.ProgressReporter
	if simulateFlags.progress {
		progress = cli.NewProgressReporter(os.Stderr, "Replaying")
		progress.Start(int64(len(invocations)))
	}

	for i, inv := range invocations {
		if ctx.Err() != nil {
			break
		}
		clock.Set(start.Add(inv.At))

		o := st.engine.Invoke(ctx, inv.Owner, inv.Operation, inv.Args...)
		call := simulatedCall{
			Index:     i + 1,
			At:        inv.At,
			Owner:     inv.Owner,
			Operation: inv.Operation,
			Args:      inv.Args,
			State:     o.State.String(),
			Value:     o.Value,
		}
		call.Policy, call.Reason = o.DeniedBy()
		if o.Err != nil {
			call.Error = o.Err.Error()
		}

		switch {
		case o.Denied():
			result.Denied++
		case o.Err != nil || o.State != intercept.Forwarded:
			result.Failed++
		default:
			result.Forwarded++
		}
		result.Calls = append(result.Calls, call)

		if progress != nil {
			progress.Update(int64(i + 1))
		}
	}
	if progress != nil {
		progress.Finish()
	}

	result.State = st.host.Snapshot()
	return result
}

func formatArgs(args []any) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatValue(a)
	}
	return strings.Join(parts, ", ")
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "-"
	case string:
		return strconv.Quote(v)
	default:
		return fmt.Sprint(v)
	}
}
