package retention

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrSchedulerStarted is returned by Start on a scheduler that already runs.
var ErrSchedulerStarted = errors.New("retention scheduler already started")

// Status describes the most recent scheduled prune.
type Status struct {
	Runs        int
	LastRun     time.Time
	LastDeleted int64
	LastErr     error
}

// Scheduler runs a Pruner on a cron schedule. A prune that is still running
// when the next one is due causes that one to be skipped.
type Scheduler struct {
	pruner *Pruner
	logger *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	running bool
	started bool
	status  Status
}

// NewScheduler creates a scheduler for pruner.
func NewScheduler(pruner *Pruner) *Scheduler {
	s := &Scheduler{pruner: pruner, logger: pruner.logger}
	clog := cronLogger{s.logger}
	s.cron = cron.New(
		cron.WithLogger(clog),
		cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)),
	)
	return s
}

// Start schedules Config.PruneSchedule, a standard five-field cron
// expression or a descriptor such as "@daily" or "@every 6h". An empty
// schedule leaves the scheduler idle. Cancelling ctx stops it.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrSchedulerStarted
	}
	spec := s.pruner.config.PruneSchedule
	if spec == "" {
		s.logger.Info("no prune schedule, decision records are kept until pruned by hand")
		return nil
	}

	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", spec, err)
	}
	s.entry = s.cron.Schedule(sched, cron.FuncJob(func() { s.prune(ctx) }))
	s.cron.Start()
	s.running = true
	s.started = true

	s.logger.Info("decision record pruning scheduled",
		"schedule", spec,
		"next", sched.Next(time.Now()),
		"retention_days", s.pruner.config.RetentionDays,
		"max_records", s.pruner.config.MaxRecords,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) prune(ctx context.Context) {
	started := time.Now()
	deleted, err := s.pruner.Prune(ctx)

	s.mu.Lock()
	s.status.Runs++
	s.status.LastRun = started
	s.status.LastDeleted = deleted
	s.status.LastErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled prune failed", "error", err, "deleted", deleted)
		return
	}
	s.logger.Debug("scheduled prune finished", "deleted", deleted, "duration", time.Since(started))
}

// Stop removes the schedule and waits for an in-flight prune.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cron.Remove(s.entry)
	s.mu.Unlock()

	// prune takes s.mu to record its status, so wait unlocked.
	<-s.cron.Stop().Done()
	s.logger.Info("decision record pruning stopped")
}

// IsRunning reports whether a schedule is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Status returns the outcome of the most recent scheduled prune.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// NextRun returns when the next prune is due, or nil when idle.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	next := s.cron.Entry(s.entry).Next
	if next.IsZero() {
		return nil
	}
	return &next
}

// cronLogger routes the cron runtime's own messages (skipped runs,
// recovered panics) to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
