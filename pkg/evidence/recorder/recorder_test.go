package recorder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"mercator-hq/warden/pkg/evidence"
	"mercator-hq/warden/pkg/evidence/storage"
	"mercator-hq/warden/pkg/intercept"
	"mercator-hq/warden/pkg/notify"
	"mercator-hq/warden/pkg/policy"
	"mercator-hq/warden/pkg/policy/trust"
)

var (
	started  = time.Date(2025, 11, 20, 10, 30, 0, 0, time.UTC)
	recorded = started.Add(time.Second)
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func fixedClock() Option {
	return WithClock(func() time.Time { return recorded })
}

// ==================================================================
// Build
// ==================================================================

func TestBuild(t *testing.T) {
	tests := []struct {
		name string
		out  intercept.Outcome
		want evidence.DecisionRecord
	}{
		{
			name: "forwarded",
			out: intercept.Outcome{
				ID: "inv-1", Owner: "cloud", Operation: "setVariable",
				State: intercept.Forwarded,
				Steps: []intercept.StepTrace{{Kind: "rate_limit", Verdict: policy.Allow}},
			},
			want: evidence.DecisionRecord{
				InvocationID: "inv-1", Owner: "cloud", Operation: "setVariable",
				State: evidence.StateForwarded, Steps: []string{"rate_limit"},
			},
		},
		{
			name: "policy denial",
			out: intercept.Outcome{
				ID: "inv-2", Owner: "leaderboard", Operation: "submitScore",
				State: intercept.Denied,
				Cause: &intercept.PolicyDenial{Policy: "validate", Reason: "argument 0 out of range"},
				Steps: []intercept.StepTrace{{Kind: "validate", Verdict: policy.Deny}},
			},
			want: evidence.DecisionRecord{
				InvocationID: "inv-2", Owner: "leaderboard", Operation: "submitScore",
				State: evidence.StateDenied, Policy: "validate", Reason: "argument 0 out of range",
				CauseKind: "policy", Steps: []string{"validate"},
			},
		},
		{
			name: "user declined",
			out: intercept.Outcome{
				ID: "inv-3", Owner: "runtime", Operation: "loadExtension",
				State: intercept.Denied,
				Cause: &intercept.UserCancelledError{Resource: "https://evil.example/ext.js"},
				Confirmations: []intercept.Confirmation{{
					Policy: "trust_gate", Resource: "https://u:p@evil.example/ext.js?k=1",
				}},
			},
			want: evidence.DecisionRecord{
				InvocationID: "inv-3", Owner: "runtime", Operation: "loadExtension",
				State: evidence.StateDenied, Policy: "trust_gate",
				Reason: "user declined https://evil.example/ext.js", CauseKind: "user_cancelled",
				Resource: "https://evil.example/ext.js", Asked: true, Answer: evidence.AnswerDeclined,
			},
		},
		{
			name: "confirmation failed",
			out: intercept.Outcome{
				ID: "inv-4", Owner: "runtime", Operation: "loadExtension",
				State: intercept.Denied,
				Cause: &intercept.PolicyDenial{Policy: "trust_gate", Reason: "confirmation failed: context canceled"},
				Confirmations: []intercept.Confirmation{{
					Policy: "trust_gate", Resource: "https://x.example/a.js", Err: context.Canceled,
				}},
			},
			want: evidence.DecisionRecord{
				InvocationID: "inv-4", Owner: "runtime", Operation: "loadExtension",
				State: evidence.StateDenied, Policy: "trust_gate",
				Reason: "confirmation failed: context canceled", CauseKind: "policy",
				Resource: "https://x.example/a.js", Asked: true, Answer: evidence.AnswerFailed,
			},
		},
		{
			name: "not installed",
			out: intercept.Outcome{
				ID: "inv-5", Owner: "cloud", Operation: "missing",
				State: intercept.Pending,
				Err:   intercept.ErrNotInstalled,
			},
			want: evidence.DecisionRecord{
				InvocationID: "inv-5", Owner: "cloud", Operation: "missing",
				State: evidence.StatePending, CauseKind: "error", Error: "operation not installed",
			},
		},
	}

	r := New(storage.NewMemoryStorage(), &Config{AsyncBuffer: 0}, quiet(), fixedClock())
	defer r.Close()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.out.Started = started
			tt.out.Duration = 3 * time.Millisecond

			got := r.Build(tt.out)

			if got.ID == "" || got.ID == tt.out.ID {
				t.Errorf("ID = %q, want a fresh UUID", got.ID)
			}
			if got.InvocationID != tt.want.InvocationID || got.Owner != tt.want.Owner ||
				got.Operation != tt.want.Operation || got.State != tt.want.State ||
				got.Policy != tt.want.Policy || got.Reason != tt.want.Reason ||
				got.CauseKind != tt.want.CauseKind || got.Resource != tt.want.Resource ||
				got.Asked != tt.want.Asked || got.Answer != tt.want.Answer || got.Error != tt.want.Error {
				t.Errorf("record = %+v\nwant     %+v", *got, tt.want)
			}
			if strings.Join(got.Steps, ",") != strings.Join(tt.want.Steps, ",") {
				t.Errorf("Steps = %v, want %v", got.Steps, tt.want.Steps)
			}
			if !got.StartedAt.Equal(started) || !got.RecordedAt.Equal(recorded) || got.Duration != 3*time.Millisecond {
				t.Errorf("timing = %v %v %v", got.StartedAt, got.RecordedAt, got.Duration)
			}
			if !Verify(got) {
				t.Error("Verify() = false for a freshly built record")
			}
		})
	}
}

func TestBuild_TruncatesReason(t *testing.T) {
	r := New(storage.NewMemoryStorage(), &Config{MaxFieldLength: 20}, quiet())
	defer r.Close()

	got := r.Build(intercept.Outcome{
		State: intercept.Denied,
		Cause: &intercept.PolicyDenial{Policy: "validate", Reason: strings.Repeat("x", 100)},
	})
	if len(got.Reason) != 20 || !strings.HasSuffix(got.Reason, "...") {
		t.Errorf("Reason = %q", got.Reason)
	}
}

// ==================================================================
// Writing
// ==================================================================

func TestRecorder_AsyncDrainOnClose(t *testing.T) {
	store := storage.NewMemoryStorage()
	r := New(store, &Config{AsyncBuffer: 100}, quiet())

	for i := 0; i < 50; i++ {
		r.Observe(context.Background(), intercept.Outcome{Owner: "cloud", Operation: "setVariable", State: intercept.Forwarded})
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if store.Size() != 50 {
		t.Errorf("stored %d records, want 50", store.Size())
	}
	written, dropped, failed := r.Stats()
	if written != 50 || dropped != 0 || failed != 0 {
		t.Errorf("Stats() = %d/%d/%d, want 50/0/0", written, dropped, failed)
	}

	// After Close records are dropped, not written.
	r.Observe(context.Background(), intercept.Outcome{State: intercept.Forwarded})
	if _, dropped, _ := r.Stats(); dropped != 1 {
		t.Errorf("dropped after Close = %d, want 1", dropped)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

// blockingStorage holds every Store until release is closed.
type blockingStorage struct {
	*storage.MemoryStorage
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingStorage) Store(ctx context.Context, r *evidence.DecisionRecord) error {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return b.MemoryStorage.Store(ctx, r)
}

func TestRecorder_QueueFullDrops(t *testing.T) {
	store := &blockingStorage{
		MemoryStorage: storage.NewMemoryStorage(),
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	r := New(store, &Config{AsyncBuffer: 2, WriteTimeout: time.Minute}, quiet())

	// First record occupies the worker, the next two fill the queue.
	r.Observe(context.Background(), intercept.Outcome{State: intercept.Forwarded})
	<-store.entered
	r.Observe(context.Background(), intercept.Outcome{State: intercept.Forwarded})
	r.Observe(context.Background(), intercept.Outcome{State: intercept.Forwarded})

	done := make(chan struct{})
	go func() {
		r.Observe(context.Background(), intercept.Outcome{State: intercept.Forwarded})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Observe blocked on a full queue")
	}

	close(store.release)
	r.Close()

	written, dropped, _ := r.Stats()
	if written != 3 || dropped != 1 {
		t.Errorf("Stats() written=%d dropped=%d, want 3 and 1", written, dropped)
	}
}

type failingStorage struct{ *storage.MemoryStorage }

func (failingStorage) Store(context.Context, *evidence.DecisionRecord) error {
	return errors.New("disk full")
}

func TestRecorder_SyncFailure(t *testing.T) {
	r := New(failingStorage{storage.NewMemoryStorage()}, &Config{AsyncBuffer: 0}, quiet())
	defer r.Close()

	r.Observe(context.Background(), intercept.Outcome{State: intercept.Denied})
	if _, _, failed := r.Stats(); failed != 1 {
		t.Errorf("failed = %d, want 1", failed)
	}
}

// ==================================================================
// Through the engine
// ==================================================================

func TestRecorder_WithEngine(t *testing.T) {
	store := storage.NewMemoryStorage()
	r := New(store, &Config{AsyncBuffer: 10}, quiet())

	gate := trust.NewGate([]string{"https://gandi-main.ccw.site/"})
	engine := intercept.New(
		intercept.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		intercept.WithSink(notify.NewStatic(false)),
		intercept.WithObserver(r),
	)

	host := intercept.NewTable().Define("loadExtension", func(ctx context.Context, args ...any) (any, error) {
		return true, nil
	})
	err := engine.Install(host, policy.Descriptor{
		Owner:     "runtime",
		Operation: "loadExtension",
		Steps:     []policy.Step{trust.NewStep(gate, 0, "", "")},
		Result:    policy.ResultFalse,
	})
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	engine.Invoke(context.Background(), "runtime", "loadExtension", "https://gandi-main.ccw.site/ext.js")
	engine.Invoke(context.Background(), "runtime", "loadExtension", "https://evil.example/ext.js")
	r.Close()

	ctx := context.Background()
	forwarded, _ := store.Count(ctx, &evidence.Query{State: evidence.StateForwarded})
	declined, _ := store.Query(ctx, &evidence.Query{CauseKind: "user_cancelled"})
	if forwarded != 1 {
		t.Errorf("forwarded records = %d, want 1", forwarded)
	}
	if len(declined) != 1 {
		t.Fatalf("declined records = %d, want 1", len(declined))
	}
	if d := declined[0]; !d.Asked || d.Answer != evidence.AnswerDeclined || d.Resource != "https://evil.example/ext.js" {
		t.Errorf("declined record = %+v", d)
	}
}

// ==================================================================
// Helpers
// ==================================================================

func TestRedactResource(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://user:pw@host.example/ext.js?token=x#frag", "https://host.example/ext.js"},
		{"https://gandi-main.ccw.site/ext.js", "https://gandi-main.ccw.site/ext.js"},
		{"data:text/javascript,alert(1)", "data:text/javascript,alert(1)"},
		{"not a url", "not a url"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := RedactResource(tt.in); got != tt.want {
			t.Errorf("RedactResource(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
		{"abcdef", 0, "abcdef"},
	}
	for _, tt := range tests {
		if got := TruncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestDigest_DetectsTampering(t *testing.T) {
	r := &evidence.DecisionRecord{
		InvocationID: "inv", Owner: "cloud", Operation: "setVariable",
		State: evidence.StateDenied, Reason: "rate limit", StartedAt: started,
	}
	r.Digest = Digest(r)
	if !Verify(r) {
		t.Fatal("Verify() = false before tampering")
	}

	r.State = evidence.StateForwarded
	if Verify(r) {
		t.Error("Verify() = true after changing State")
	}

	a := &evidence.DecisionRecord{Owner: "ab", Operation: "c"}
	b := &evidence.DecisionRecord{Owner: "a", Operation: "bc"}
	if Digest(a) == Digest(b) {
		t.Error("digests collide across field boundaries")
	}
}
