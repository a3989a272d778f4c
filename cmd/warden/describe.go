package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/warden/pkg/cli"
	"mercator-hq/warden/pkg/extension"
	"mercator-hq/warden/pkg/intercept"
	"mercator-hq/warden/pkg/notify"
)

var describeFlags struct {
	format string
}

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Show the wrapped operations and the extension descriptor",
	Long: `Wrap the demo host with the configured policy table and list every binding:
its policy chain, the value returned for suppressed calls and whether calls
may block on a confirmation prompt.

Examples:
  # Table of bindings
  warden describe

  # Bindings and extension descriptor as JSON
  warden describe --format json`,
	RunE: describeBindings,
}

func init() {
	rootCmd.AddCommand(describeCmd)

	describeCmd.Flags().StringVar(&describeFlags.format, "format", "text", "output format: text, json, csv")
}

type description struct {
	Extension extension.Descriptor    `json:"extension"`
	Bindings  []intercept.BindingInfo `json:"bindings"`
	Problems  []string                `json:"problems,omitempty"`
}

func describeBindings(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(describeFlags.format)
	if err != nil {
		return err
	}
	formatter, err := cli.NewFormatter(format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := buildStack(cfg, logger, stackOptions{sink: notify.NewStatic(false)})
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	ext, _ := st.extensions.Get(cfg.Extension.ID)
	desc := description{
		Extension: ext,
		Bindings:  st.engine.Bindings(),
	}
	if st.installErr != nil {
		desc.Problems = problems(st.installErr)
	}

	table := &cli.Table{
		Header: []string{"OPERATION", "POLICIES", "RESULT", "SUSPENDS"},
		Value:  desc,
	}
	for _, b := range desc.Bindings {
		table.Append(
			b.Owner+"."+b.Operation,
			strings.Join(b.Policies, " → "),
			b.Result,
			fmt.Sprint(b.Suspends),
		)
	}
	if err := formatter.FormatTo(out, table); err != nil {
		return err
	}

	if format == cli.FormatText {
		fmt.Fprintf(out, "\nExtension %s (%s), %d capabilities\n", ext.ID, ext.Name, len(ext.Capabilities))
		for _, p := range desc.Problems {
			fmt.Fprintf(out, "✗ %s\n", p)
		}
	}
	return nil
}
