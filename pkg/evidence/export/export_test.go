package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"mercator-hq/warden/pkg/evidence"
)

func sampleRecords() []*evidence.DecisionRecord {
	at := time.Date(2025, 11, 20, 10, 30, 0, 0, time.UTC)
	return []*evidence.DecisionRecord{
		{
			ID: "rec-1", InvocationID: "inv-1", Owner: "cloud", Operation: "setVariable",
			State: evidence.StateForwarded, Steps: []string{"rate_limit"},
			StartedAt: at, Duration: 1500 * time.Microsecond, RecordedAt: at, Digest: "aa",
		},
		{
			ID: "rec-2", InvocationID: "inv-2", Owner: "runtime", Operation: "loadExtension",
			State: evidence.StateDenied, Policy: "trust_gate", Reason: "user declined, \"evil\"",
			CauseKind: "user_cancelled", Steps: []string{"validate", "trust_gate"},
			Resource: "https://evil.example/ext.js", Asked: true, Answer: evidence.AnswerDeclined,
			StartedAt: at, Duration: time.Second, RecordedAt: at, Digest: "bb",
		},
	}
}

func stream(records []*evidence.DecisionRecord) <-chan *evidence.DecisionRecord {
	ch := make(chan *evidence.DecisionRecord, len(records))
	for _, r := range records {
		ch <- r
	}
	close(ch)
	return ch
}

// ==================================================================
// JSON
// ==================================================================

func TestJSONExporter(t *testing.T) {
	for _, pretty := range []bool{false, true} {
		for _, streaming := range []bool{false, true} {
			name := map[bool]string{false: "compact", true: "pretty"}[pretty] +
				map[bool]string{false: "", true: "/stream"}[streaming]

			t.Run(name, func(t *testing.T) {
				var buf bytes.Buffer
				e := NewJSONExporter(pretty)

				var err error
				if streaming {
					err = e.ExportStream(context.Background(), stream(sampleRecords()), &buf)
				} else {
					err = e.Export(context.Background(), sampleRecords(), &buf)
				}
				if err != nil {
					t.Fatalf("export: %v", err)
				}

				var got []evidence.DecisionRecord
				if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
					t.Fatalf("output is not a JSON array: %v\n%s", err, buf.String())
				}
				if len(got) != 2 || got[1].Answer != evidence.AnswerDeclined || got[1].Steps[1] != "trust_gate" {
					t.Errorf("decoded = %+v", got)
				}
			})
		}
	}
}

func TestJSONExporter_Empty(t *testing.T) {
	for _, pretty := range []bool{false, true} {
		var buf bytes.Buffer
		if err := NewJSONExporter(pretty).Export(context.Background(), nil, &buf); err != nil {
			t.Fatal(err)
		}
		if buf.String() != "[]" {
			t.Errorf("Export(nil) = %q, want []", buf.String())
		}

		buf.Reset()
		if err := NewJSONExporter(pretty).ExportStream(context.Background(), stream(nil), &buf); err != nil {
			t.Fatal(err)
		}
		if buf.String() != "[]" {
			t.Errorf("ExportStream(empty) = %q, want []", buf.String())
		}
	}
}

// ==================================================================
// CSV
// ==================================================================

func TestCSVExporter(t *testing.T) {
	for _, streaming := range []bool{false, true} {
		var buf bytes.Buffer
		e := NewCSVExporter(true)

		var err error
		if streaming {
			err = e.ExportStream(context.Background(), stream(sampleRecords()), &buf)
		} else {
			err = e.Export(context.Background(), sampleRecords(), &buf)
		}
		if err != nil {
			t.Fatalf("export: %v", err)
		}

		rows, err := csv.NewReader(&buf).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}
		if len(rows) != 3 {
			t.Fatalf("rows = %d, want 3", len(rows))
		}
		if strings.Join(rows[0], ",") != strings.Join(Header, ",") {
			t.Errorf("header = %v", rows[0])
		}
		denied := rows[2]
		if denied[6] != "user declined, \"evil\"" || denied[8] != "validate;trust_gate" || denied[10] != "true" {
			t.Errorf("row = %v", denied)
		}
		if rows[1][14] != "1.500" || rows[1][13] != "2025-11-20T10:30:00Z" {
			t.Errorf("timing columns = %q %q", rows[1][13], rows[1][14])
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestExporters_WriteError(t *testing.T) {
	exporters := map[string]evidence.Exporter{
		"json": NewJSONExporter(false),
		"csv":  NewCSVExporter(true),
	}
	for name, e := range exporters {
		t.Run(name, func(t *testing.T) {
			err := e.Export(context.Background(), sampleRecords(), failingWriter{})
			var ee *evidence.ExportError
			if !errors.As(err, &ee) || ee.Format != name {
				t.Errorf("Export() = %v, want ExportError(%s)", err, name)
			}
		})
	}
}

func TestExportStream_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	never := make(chan *evidence.DecisionRecord)
	if err := NewJSONExporter(false).ExportStream(ctx, never, &bytes.Buffer{}); !errors.Is(err, context.Canceled) {
		t.Errorf("ExportStream() = %v, want context.Canceled", err)
	}
}
