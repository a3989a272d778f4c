/*
Package cli provides command-line helpers for the warden command.

Output Formatting:

Command results are rendered as an aligned text table, JSON or CSV:

	formatter, err := cli.NewFormatter(cli.FormatJSON)
	if err != nil {
		return err
	}
	table := &cli.Table{Header: []string{"OPERATION", "STATE"}}
	table.Append("cloud.setVariable", "denied")
	if err := formatter.FormatTo(os.Stdout, table); err != nil {
		return err
	}

Progress Reporting:

Scenario replays report how many calls have been issued:

	progress := cli.NewProgressReporter(os.Stderr, "Replaying")
	progress.Start(int64(len(calls)))
	for i := range calls {
		// Issue call
		progress.Update(int64(i + 1))
	}
	progress.Finish()

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

Exit Codes:

ExitCode maps command errors to process exit codes: 2 for configuration
errors, 3 when a command reports denied calls, 1 for everything else.
*/
package cli
