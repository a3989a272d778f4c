package recorder

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mercator-hq/warden/pkg/config"
	"mercator-hq/warden/pkg/evidence"
	"mercator-hq/warden/pkg/intercept"
)

// DefaultMaxFieldLength bounds free-text fields in a record.
const DefaultMaxFieldLength = 500

// Config contains configuration for the recorder.
type Config struct {
	// AsyncBuffer is the queue length. Zero writes synchronously on the
	// calling goroutine.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout bounds a single storage write.
	// Default: 5 seconds
	WriteTimeout time.Duration

	// MaxFieldLength bounds Reason and Error.
	// Default: 500
	MaxFieldLength int
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		AsyncBuffer:    config.DefaultEvidenceRecorderAsyncBuffer,
		WriteTimeout:   config.DefaultEvidenceRecorderWriteTimeout,
		MaxFieldLength: DefaultMaxFieldLength,
	}
}

// ConfigFrom converts the YAML section into a Config.
func ConfigFrom(cfg config.RecorderConfig) *Config {
	c := DefaultConfig()
	c.AsyncBuffer = cfg.AsyncBuffer
	if cfg.WriteTimeout > 0 {
		c.WriteTimeout = cfg.WriteTimeout
	}
	return c
}

// Recorder turns every finished invocation into a DecisionRecord and writes
// it to storage. It implements intercept.Observer.
//
// Observe never blocks on storage: when the queue is full the record is
// dropped and counted.
type Recorder struct {
	storage evidence.Storage
	config  *Config
	logger  *slog.Logger
	now     func() time.Time

	mu         sync.RWMutex
	closed     bool
	recordChan chan *evidence.DecisionRecord
	wg         sync.WaitGroup

	written atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger.With("component", "evidence.recorder")
	}
}

// WithClock sets the source of RecordedAt.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// New creates a recorder and, in asynchronous mode, starts its writer.
func New(storage evidence.Storage, cfg *Config, opts ...Option) *Recorder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = config.DefaultEvidenceRecorderWriteTimeout
	}
	if cfg.MaxFieldLength == 0 {
		cfg.MaxFieldLength = DefaultMaxFieldLength
	}

	r := &Recorder{
		storage: storage,
		config:  cfg,
		logger:  slog.Default().With("component", "evidence.recorder"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	if cfg.AsyncBuffer > 0 {
		r.recordChan = make(chan *evidence.DecisionRecord, cfg.AsyncBuffer)
		r.wg.Add(1)
		go r.worker()
	}

	r.logger.Info("decision recorder initialized",
		"async_buffer", cfg.AsyncBuffer,
		"write_timeout", cfg.WriteTimeout,
	)
	return r
}

// Observe records one outcome.
func (r *Recorder) Observe(ctx context.Context, out intercept.Outcome) {
	record := r.Build(out)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.dropped.Add(1)
		r.logger.Warn("recorder closed, dropping decision record",
			"record_id", record.ID,
			"invocation_id", record.InvocationID,
		)
		return
	}

	if r.recordChan == nil {
		r.write(record)
		return
	}

	select {
	case r.recordChan <- record:
	default:
		r.dropped.Add(1)
		r.logger.Error("decision record queue full, dropping record",
			"record_id", record.ID,
			"invocation_id", record.InvocationID,
			"queue_capacity", r.config.AsyncBuffer,
		)
	}
}

// Build converts an outcome into a record without storing it.
func (r *Recorder) Build(out intercept.Outcome) *evidence.DecisionRecord {
	record := &evidence.DecisionRecord{
		ID:           uuid.NewString(),
		InvocationID: out.ID,
		Owner:        out.Owner,
		Operation:    out.Operation,
		State:        state(out.State),
		CauseKind:    intercept.CauseKind(out.Cause),
		StartedAt:    out.Started,
		Duration:     out.Duration,
		RecordedAt:   r.now(),
	}

	policy, reason := out.DeniedBy()
	record.Policy = policy
	record.Reason = TruncateString(reason, r.config.MaxFieldLength)

	if out.Err != nil {
		record.Error = TruncateString(out.Err.Error(), r.config.MaxFieldLength)
		if record.CauseKind == "" {
			record.CauseKind = "error"
		}
	}

	for _, s := range out.Steps {
		record.Steps = append(record.Steps, s.Kind)
	}

	if n := len(out.Confirmations); n > 0 {
		last := out.Confirmations[n-1]
		record.Asked = true
		record.Resource = RedactResource(last.Resource)
		switch {
		case last.Err != nil:
			record.Answer = evidence.AnswerFailed
		case last.Approved:
			record.Answer = evidence.AnswerApproved
		default:
			record.Answer = evidence.AnswerDeclined
		}
	}

	record.Digest = Digest(record)
	return record
}

// Close stops accepting records, drains the queue and waits for the last
// write.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	if r.recordChan != nil {
		close(r.recordChan)
	}
	r.mu.Unlock()

	r.wg.Wait()

	r.logger.Info("decision recorder shut down",
		"written", r.written.Load(),
		"dropped", r.dropped.Load(),
		"failed", r.failed.Load(),
	)
	return nil
}

// Stats reports records written, dropped because the queue was full or
// the recorder closed, and failed in storage.
func (r *Recorder) Stats() (written, dropped, failed int64) {
	return r.written.Load(), r.dropped.Load(), r.failed.Load()
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for record := range r.recordChan {
		r.write(record)
	}
}

func (r *Recorder) write(record *evidence.DecisionRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	if err := r.storage.Store(ctx, record); err != nil {
		r.failed.Add(1)
		r.logger.Error("failed to store decision record",
			"record_id", record.ID,
			"invocation_id", record.InvocationID,
			"error", err,
		)
		return
	}
	r.written.Add(1)

	duration := time.Since(start)
	r.logger.Debug("decision recorded",
		"record_id", record.ID,
		"invocation_id", record.InvocationID,
		"state", record.State,
		"duration_ms", duration.Milliseconds(),
	)
	if duration > r.config.WriteTimeout/2 {
		r.logger.Warn("slow decision write",
			"record_id", record.ID,
			"duration_ms", duration.Milliseconds(),
			"threshold_ms", (r.config.WriteTimeout / 2).Milliseconds(),
		)
	}
}

func state(s intercept.State) string {
	switch s {
	case intercept.Forwarded:
		return evidence.StateForwarded
	case intercept.Denied:
		return evidence.StateDenied
	default:
		return evidence.StatePending
	}
}
