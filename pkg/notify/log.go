package notify

import (
	"context"
	"log/slog"
)

// LogSink writes notifications to a logger and answers every confirmation
// with a fixed value.
type LogSink struct {
	logger *slog.Logger
	answer bool
}

var _ Sink = (*LogSink)(nil)

// NewLogSink creates a LogSink. A nil logger uses slog.Default.
func NewLogSink(logger *slog.Logger, answer bool) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{
		logger: logger.With("component", "notify"),
		answer: answer,
	}
}

// Notify logs msg at warn level.
func (s *LogSink) Notify(ctx context.Context, msg string) {
	s.logger.WarnContext(ctx, "notification", "message", msg)
}

// Confirm logs the question and returns the configured answer.
func (s *LogSink) Confirm(ctx context.Context, msg string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.logger.InfoContext(ctx, "confirmation requested",
		"question", msg,
		"answer", s.answer,
	)
	return s.answer, nil
}
