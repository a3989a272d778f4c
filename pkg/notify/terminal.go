package notify

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Terminal prompts on out and reads answers from in, one line per answer.
// "y" and "yes" (any case) approve; everything else declines. Prompts are
// serialized so concurrent confirmations never interleave. Notify only
// waits for the current write, never for a pending answer.
type Terminal struct {
	in  io.Reader
	out io.Writer

	prompt sync.Mutex // held while a question is open
	write  sync.Mutex // guards out
	once   sync.Once
	lines chan string
}

var _ Sink = (*Terminal)(nil)

// NewTerminal creates a Terminal sink.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out}
}

// Notify prints msg on its own line.
func (t *Terminal) Notify(_ context.Context, msg string) {
	t.printf("warden: %s\n", msg)
}

// Confirm prints msg followed by "[y/N]" and waits for a line.
func (t *Terminal) Confirm(ctx context.Context, msg string) (bool, error) {
	t.once.Do(t.startReader)

	t.prompt.Lock()
	defer t.prompt.Unlock()

	if err := ctx.Err(); err != nil {
		return false, err
	}
	t.printf("%s [y/N]: ", msg)

	select {
	case line, ok := <-t.lines:
		if !ok {
			t.printf("\n")
			return false, ErrNoAnswer
		}
		return parseAnswer(line), nil
	case <-ctx.Done():
		t.printf("\n")
		return false, ctx.Err()
	}
}

func (t *Terminal) printf(format string, args ...any) {
	t.write.Lock()
	defer t.write.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

// startReader reads lines in the background so Confirm can honour ctx.
func (t *Terminal) startReader() {
	t.lines = make(chan string)
	go func() {
		defer close(t.lines)
		sc := bufio.NewScanner(t.in)
		for sc.Scan() {
			t.lines <- sc.Text()
		}
	}()
}

func parseAnswer(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
