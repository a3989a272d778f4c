package notify

import (
	"context"
	"sync"
)

// Static answers confirmations from a script of queued answers, then with
// Answer once the script runs out. It records all messages.
type Static struct {
	Answer bool

	mu        sync.Mutex
	script    []bool
	notified  []string
	questions []string
}

var _ Sink = (*Static)(nil)

// NewStatic creates a Static sink.
func NewStatic(answer bool) *Static {
	return &Static{Answer: answer}
}

// NewScripted creates a Static sink that gives answers in order and then
// falls back to fallback.
func NewScripted(fallback bool, answers ...bool) *Static {
	return &Static{Answer: fallback, script: append([]bool(nil), answers...)}
}

// Notify records msg.
func (s *Static) Notify(_ context.Context, msg string) {
	s.mu.Lock()
	s.notified = append(s.notified, msg)
	s.mu.Unlock()
}

// Confirm records msg and returns the next scripted answer, or Answer.
func (s *Static) Confirm(ctx context.Context, msg string) (bool, error) {
	s.mu.Lock()
	s.questions = append(s.questions, msg)
	answer := s.Answer
	if len(s.script) > 0 {
		answer, s.script = s.script[0], s.script[1:]
	}
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}
	return answer, nil
}

// Notifications returns the recorded notifications.
func (s *Static) Notifications() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.notified...)
}

// Questions returns the recorded confirmation questions.
func (s *Static) Questions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.questions...)
}
