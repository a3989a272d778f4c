package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/warden/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

// out receives command results. Diagnostics go to stderr.
var out io.Writer = os.Stdout

var rootCmd = &cobra.Command{
	Use:   "warden",
	Short: "Warden - policy enforcement for untrusted host operations",
	Long: `Warden intercepts sensitive operations of an untrusted host application
and applies per-operation policy checks before letting them run.

Policies:
  - rate_limit: at most N calls per window on a shared channel
  - validate:   argument constraints (numeric range, type, enum, pattern)
  - trust_gate: resource origin allow-list with user confirmation

Suppressed calls return a neutral value to the host, notify the user and are
recorded as decision evidence.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code for its error.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.ExitCode(err))
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "warden.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
