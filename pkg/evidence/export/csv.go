package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"mercator-hq/warden/pkg/evidence"
)

// CSVExporter writes decision records as CSV, one row per record.
type CSVExporter struct {
	// IncludeHeader writes a header row first.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Header is the CSV column list.
var Header = []string{
	"id", "invocation_id",
	"owner", "operation",
	"state", "policy", "reason", "cause_kind", "steps",
	"resource", "asked", "answer",
	"error",
	"started_at", "duration_ms", "recorded_at",
	"digest",
}

// Export writes records as CSV.
func (e *CSVExporter) Export(ctx context.Context, records []*evidence.DecisionRecord, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(Header); err != nil {
			return evidence.NewExportError("csv", 0, err)
		}
	}
	for i, record := range records {
		if err := writer.Write(row(record)); err != nil {
			return evidence.NewExportError("csv", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return evidence.NewExportError("csv", len(records), err)
	}
	return nil
}

// ExportStream writes records from a channel as CSV, flushing every 100
// rows.
func (e *CSVExporter) ExportStream(ctx context.Context, recordsCh <-chan *evidence.DecisionRecord, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(Header); err != nil {
			return evidence.NewExportError("csv", 0, err)
		}
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return evidence.NewExportError("csv", count, err)
				}
				return nil
			}

			if err := writer.Write(row(record)); err != nil {
				return evidence.NewExportError("csv", count, err)
			}
			count++

			if count%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return evidence.NewExportError("csv", count, err)
				}
			}
		}
	}
}

func row(r *evidence.DecisionRecord) []string {
	return []string{
		r.ID,
		r.InvocationID,
		r.Owner,
		r.Operation,
		r.State,
		r.Policy,
		r.Reason,
		r.CauseKind,
		strings.Join(r.Steps, ";"),
		r.Resource,
		strconv.FormatBool(r.Asked),
		r.Answer,
		r.Error,
		formatTime(r.StartedAt),
		strconv.FormatFloat(float64(r.Duration)/float64(time.Millisecond), 'f', 3, 64),
		formatTime(r.RecordedAt),
		r.Digest,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
