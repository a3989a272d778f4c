package ratelimit

import "time"

const (
	// DefaultThreshold is the number of calls allowed per window.
	DefaultThreshold = 10

	// DefaultWindow is the window duration.
	DefaultWindow = time.Second
)

// Config configures one channel.
type Config struct {
	// Threshold is the maximum number of allowed calls per window.
	// Zero means DefaultThreshold.
	Threshold int

	// Window is the window duration. Zero means DefaultWindow.
	Window time.Duration
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	return c
}

// CheckResult contains the result of a rate limit check.
type CheckResult struct {
	// Allowed indicates if the call is permitted.
	Allowed bool

	// Channel is the channel that was checked.
	Channel string

	// Limit is the configured threshold.
	Limit int

	// Window is the configured window length.
	Window time.Duration

	// Remaining is how many calls remain in the current window.
	Remaining int

	// Reset is when the current window ends.
	Reset time.Time

	// RetryAfter is how long until a new window opens. Zero when allowed.
	RetryAfter time.Duration
}

// Snapshot is a read-only view of a channel's window.
type Snapshot struct {
	Channel string
	Start   time.Time
	Count   int
	Config  Config
}
