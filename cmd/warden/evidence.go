package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/warden/pkg/cli"
	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/evidence"
	"mercator-hq/warden/pkg/evidence/export"
	"mercator-hq/warden/pkg/evidence/query"
	"mercator-hq/warden/pkg/evidence/recorder"
	"mercator-hq/warden/pkg/evidence/retention"
	"mercator-hq/warden/pkg/evidence/storage"
)

var evidenceFlags struct {
	backend      string
	timeRange    string
	invocationID string
	owner        string
	operation    string
	state        string
	policy       string
	cause        string
	limit        int
	offset       int
	sortBy       string
	sortOrder    string
	format       string
	output       string
	pretty       bool

	days       int
	maxRecords int64
	archive    string
}

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Query and maintain recorded decisions",
	Long: `Query, export, verify and prune the decision records written by the
recorder while operations are wrapped.

Subcommands:
  query   - Query decision records with filters
  export  - Stream matching records as JSON or CSV
  verify  - Check record digests for tampering
  prune   - Apply the retention policy now

Examples:
  # Denials of the last day
  warden evidence query --state denied --time-range "2025-11-19T00:00:00Z/2025-11-20T00:00:00Z"

  # Everything the trust gate declined, as CSV
  warden evidence export --policy trust_gate --format csv --output declined.csv`,
}

var evidenceQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query decision records",
	Long: `Query decision records with filters.

Time Range Format:
  RFC3339 interval format: "start/end"
  Example: "2025-11-19T00:00:00Z/2025-11-20T00:00:00Z"

Examples:
  # Denied cloud variable writes
  warden evidence query --owner cloud --state denied

  # Calls the user declined
  warden evidence query --cause user_cancelled --format json`,
	RunE: queryEvidence,
}

var evidenceExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export decision records",
	Long: `Stream every matching decision record as JSON or CSV.

Examples:
  # Export everything as JSON
  warden evidence export --output decisions.json

  # Export denials as CSV
  warden evidence export --state denied --format csv`,
	RunE: exportEvidence,
}

var evidenceVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify decision record digests",
	Long: `Recompute the digest of every matching record and report records whose
content no longer matches what was recorded.`,
	RunE: verifyEvidence,
}

var evidencePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy now",
	Long: `Delete records older than the retention period and the oldest records
beyond the configured maximum, archiving them first when an archive path is
set.

Examples:
  # Use the configured retention
  warden evidence prune

  # Keep one week, archive what is removed
  warden evidence prune --days 7 --archive ./archive`,
	RunE: pruneEvidence,
}

func init() {
	rootCmd.AddCommand(evidenceCmd)
	evidenceCmd.AddCommand(evidenceQueryCmd, evidenceExportCmd, evidenceVerifyCmd, evidencePruneCmd)

	evidenceCmd.PersistentFlags().StringVar(&evidenceFlags.backend, "backend", "", "backend: memory, sqlite (uses config if not specified)")

	for _, cmd := range []*cobra.Command{evidenceQueryCmd, evidenceExportCmd, evidenceVerifyCmd} {
		cmd.Flags().StringVar(&evidenceFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
		cmd.Flags().StringVar(&evidenceFlags.invocationID, "invocation-id", "", "filter by invocation ID")
		cmd.Flags().StringVar(&evidenceFlags.owner, "owner", "", "filter by owner")
		cmd.Flags().StringVar(&evidenceFlags.operation, "operation", "", "filter by operation")
		cmd.Flags().StringVar(&evidenceFlags.state, "state", "", "filter by state (forwarded, denied, pending)")
		cmd.Flags().StringVar(&evidenceFlags.policy, "policy", "", "filter by denying policy (rate_limit, validate, trust_gate)")
		cmd.Flags().StringVar(&evidenceFlags.cause, "cause", "", "filter by cause (policy, user_cancelled, error)")
		cmd.Flags().IntVar(&evidenceFlags.limit, "limit", 0, "max results (default from config)")
		cmd.Flags().IntVar(&evidenceFlags.offset, "offset", 0, "pagination offset")
	}

	evidenceQueryCmd.Flags().StringVar(&evidenceFlags.sortBy, "sort-by", "", "sort field: started_at, recorded_at, duration")
	evidenceQueryCmd.Flags().StringVar(&evidenceFlags.sortOrder, "sort-order", "", "sort order: asc, desc")
	evidenceQueryCmd.Flags().StringVar(&evidenceFlags.format, "format", "text", "output format: text, json, csv")
	evidenceQueryCmd.Flags().StringVarP(&evidenceFlags.output, "output", "o", "", "output file (default: stdout)")

	evidenceExportCmd.Flags().StringVar(&evidenceFlags.format, "format", "json", "export format: json, csv")
	evidenceExportCmd.Flags().StringVarP(&evidenceFlags.output, "output", "o", "", "output file (default: stdout)")
	evidenceExportCmd.Flags().BoolVar(&evidenceFlags.pretty, "pretty", false, "indent JSON output")

	evidencePruneCmd.Flags().IntVar(&evidenceFlags.days, "days", -1, "retention in days (default from config, 0 disables)")
	evidencePruneCmd.Flags().Int64Var(&evidenceFlags.maxRecords, "max-records", -1, "maximum records to keep (default from config, 0 disables)")
	evidencePruneCmd.Flags().StringVar(&evidenceFlags.archive, "archive", "", "directory receiving pruned records as JSON")
}

// openEvidence opens the store named by --backend or the configuration.
func openEvidence() (*config.Config, evidence.Storage, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if evidenceFlags.backend != "" {
		cfg.Evidence.Backend = evidenceFlags.backend
	}
	if cfg.Evidence.Backend == "memory" {
		fmt.Fprintln(os.Stderr, "warning: the memory backend starts empty; configure evidence.backend: sqlite to query recorded decisions")
	}

	store, err := storage.New(cfg.Evidence)
	if err != nil {
		return nil, nil, cli.NewCommandError("evidence", err)
	}
	return cfg, store, nil
}

// buildQuery turns the filter flags into a validated query.
func buildQuery(limits query.Limits) (*evidence.Query, error) {
	q := &evidence.Query{
		InvocationID: evidenceFlags.invocationID,
		Owner:        evidenceFlags.owner,
		Operation:    evidenceFlags.operation,
		State:        evidenceFlags.state,
		Policy:       evidenceFlags.policy,
		CauseKind:    evidenceFlags.cause,
		Limit:        evidenceFlags.limit,
		Offset:       evidenceFlags.offset,
		SortBy:       evidenceFlags.sortBy,
		SortOrder:    evidenceFlags.sortOrder,
	}

	if evidenceFlags.timeRange != "" {
		start, end, err := parseTimeRange(evidenceFlags.timeRange)
		if err != nil {
			return nil, err
		}
		q.StartTime, q.EndTime = &start, &end
	}

	if err := limits.Validate(q); err != nil {
		return nil, err
	}
	limits.ApplyDefaults(q)
	return q, nil
}

func parseTimeRange(s string) (start, end time.Time, err error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 {
		return start, end, fmt.Errorf("invalid time range format (expected: start/end)")
	}
	if start, err = time.Parse(time.RFC3339, parts[0]); err != nil {
		return start, end, fmt.Errorf("invalid start time: %w", err)
	}
	if end, err = time.Parse(time.RFC3339, parts[1]); err != nil {
		return start, end, fmt.Errorf("invalid end time: %w", err)
	}
	return start, end, nil
}

// openOutput returns stdout or the --output file.
func openOutput() (io.Writer, func() error, error) {
	if evidenceFlags.output == "" {
		return out, func() error { return nil }, nil
	}
	f, err := os.Create(evidenceFlags.output)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, f.Close, nil
}

func queryEvidence(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(evidenceFlags.format)
	if err != nil {
		return err
	}

	cfg, store, err := openEvidence()
	if err != nil {
		return err
	}
	defer store.Close()

	q, err := buildQuery(query.LimitsFrom(cfg.Evidence.Query))
	if err != nil {
		return err
	}

	ctx := context.Background()
	records, err := store.Query(ctx, q)
	if err != nil {
		return cli.NewCommandError("evidence", fmt.Errorf("query failed: %w", err))
	}

	w, closeOutput, err := openOutput()
	if err != nil {
		return err
	}
	defer closeOutput()

	switch format {
	case cli.FormatJSON:
		return export.NewJSONExporter(true).Export(ctx, records, w)
	case cli.FormatCSV:
		return export.NewCSVExporter(true).Export(ctx, records, w)
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "No decision records found.")
		return nil
	}

	table := &cli.Table{Header: []string{"STARTED", "CALL", "STATE", "POLICY", "REASON", "ANSWER", "DURATION"}}
	for _, r := range records {
		table.Append(
			r.StartedAt.Format(time.RFC3339),
			r.Owner+"."+r.Operation,
			r.State,
			r.Policy,
			r.Reason,
			r.Answer,
			r.Duration.String(),
		)
	}
	formatter, _ := cli.NewFormatter(cli.FormatText)
	if err := formatter.FormatTo(w, table); err != nil {
		return err
	}

	total, err := store.Count(ctx, &evidence.Query{
		StartTime:    q.StartTime,
		EndTime:      q.EndTime,
		InvocationID: q.InvocationID,
		Owner:        q.Owner,
		Operation:    q.Operation,
		State:        q.State,
		Policy:       q.Policy,
		CauseKind:    q.CauseKind,
	})
	if err == nil {
		fmt.Fprintf(w, "\nShowing %d of %d records (offset %d)\n", len(records), total, q.Offset)
	}
	return nil
}

func exportEvidence(cmd *cobra.Command, args []string) error {
	var exporter evidence.Exporter
	switch evidenceFlags.format {
	case "json", "":
		exporter = export.NewJSONExporter(evidenceFlags.pretty)
	case "csv":
		exporter = export.NewCSVExporter(true)
	default:
		return fmt.Errorf("unsupported export format %q (must be json or csv)", evidenceFlags.format)
	}

	cfg, store, err := openEvidence()
	if err != nil {
		return err
	}
	defer store.Close()

	limits := query.LimitsFrom(cfg.Evidence.Query)
	if evidenceFlags.limit == 0 {
		evidenceFlags.limit = limits.Max
	}
	q, err := buildQuery(limits)
	if err != nil {
		return err
	}

	w, closeOutput, err := openOutput()
	if err != nil {
		return err
	}
	defer closeOutput()

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

	recordsCh, errCh, err := store.QueryStream(ctx, q)
	if err != nil {
		return cli.NewCommandError("evidence", fmt.Errorf("query failed: %w", err))
	}
	if err := exporter.ExportStream(ctx, recordsCh, w); err != nil {
		return cli.NewCommandError("evidence", err)
	}
	if err := <-errCh; err != nil {
		return cli.NewCommandError("evidence", err)
	}
	return nil
}

func verifyEvidence(cmd *cobra.Command, args []string) error {
	cfg, store, err := openEvidence()
	if err != nil {
		return err
	}
	defer store.Close()

	limits := query.LimitsFrom(cfg.Evidence.Query)
	if evidenceFlags.limit == 0 {
		evidenceFlags.limit = limits.Max
	}
	q, err := buildQuery(limits)
	if err != nil {
		return err
	}

	records, err := store.Query(context.Background(), q)
	if err != nil {
		return cli.NewCommandError("evidence", fmt.Errorf("query failed: %w", err))
	}

	var invalid []string
	for _, r := range records {
		if !recorder.Verify(r) {
			invalid = append(invalid, r.ID)
		}
	}

	fmt.Fprintf(out, "Verified %d records\n", len(records))
	if len(invalid) == 0 {
		fmt.Fprintf(out, "✓ Digest integrity: %d/%d valid\n", len(records), len(records))
		return nil
	}
	fmt.Fprintf(out, "✗ Digest integrity: %d/%d valid\n", len(records)-len(invalid), len(records))
	for _, id := range invalid {
		fmt.Fprintf(out, "  - %s\n", id)
	}
	return cli.NewCommandError("evidence verify", fmt.Errorf("%d records failed verification", len(invalid)))
}

func pruneEvidence(cmd *cobra.Command, args []string) error {
	cfg, store, err := openEvidence()
	if err != nil {
		return err
	}
	defer store.Close()

	rc := retention.ConfigFrom(cfg.Evidence.Retention)
	if evidenceFlags.days >= 0 {
		rc.RetentionDays = evidenceFlags.days
	}
	if evidenceFlags.maxRecords >= 0 {
		rc.MaxRecords = evidenceFlags.maxRecords
	}
	if evidenceFlags.archive != "" {
		rc.ArchivePath = evidenceFlags.archive
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	pruner := retention.NewPruner(store, rc, retention.WithLogger(logger))

	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		return cli.NewCommandError("evidence prune", err)
	}
	fmt.Fprintf(out, "✓ Pruned %s records (retention %d days, max %d records)\n",
		strconv.FormatInt(deleted, 10), rc.RetentionDays, rc.MaxRecords)
	return nil
}
