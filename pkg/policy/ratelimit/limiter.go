package ratelimit

import (
	"sort"
	"sync"
	"time"
)

// window is the per-channel state.
type window struct {
	start time.Time
	count int
}

// Limiter counts calls per channel in fixed windows.
type Limiter struct {
	mu      sync.Mutex
	def     Config
	configs map[string]Config
	windows map[string]*window
	now     func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock sets the time source used by AllowNow.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithChannel configures a single channel.
func WithChannel(channel string, cfg Config) Option {
	return func(l *Limiter) {
		l.configs[channel] = cfg.withDefaults()
	}
}

// New creates a limiter whose unconfigured channels use def.
//
// Example:
//
//	limiter := ratelimit.New(ratelimit.Config{},
//	    ratelimit.WithChannel("leaderboard", ratelimit.Config{Threshold: 2, Window: time.Minute}),
//	)
func New(def Config, opts ...Option) *Limiter {
	l := &Limiter{
		def:     def.withDefaults(),
		configs: make(map[string]Config),
		windows: make(map[string]*window),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Configure sets the configuration for a channel. An existing window keeps
// its count; the new threshold and duration apply from the next call.
func (l *Limiter) Configure(channel string, cfg Config) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.configs[channel] = cfg.withDefaults()
}

// ConfigFor returns the effective configuration of a channel.
func (l *Limiter) ConfigFor(channel string) Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.configLocked(channel)
}

// Allow records one call on channel at now and reports whether it is
// within the threshold.
func (l *Limiter) Allow(channel string, now time.Time) bool {
	return l.Check(channel, now).Allowed
}

// AllowNow is Allow at the limiter's clock.
func (l *Limiter) AllowNow(channel string) bool {
	return l.Allow(channel, l.now())
}

// Check records one call on channel at now and returns the full decision.
func (l *Limiter) Check(channel string, now time.Time) CheckResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	cfg := l.configLocked(channel)
	w, ok := l.windows[channel]
	if !ok || now.Sub(w.start) > cfg.Window {
		w = &window{start: now}
		l.windows[channel] = w
	}
	w.count++

	reset := w.start.Add(cfg.Window)
	res := CheckResult{
		Allowed: w.count <= cfg.Threshold,
		Channel: channel,
		Limit:   cfg.Threshold,
		Window:  cfg.Window,
		Reset:   reset,
	}
	if res.Allowed {
		res.Remaining = cfg.Threshold - w.count
	} else {
		// The next window opens strictly after start+window.
		res.RetryAfter = reset.Sub(now) + time.Nanosecond
	}
	return res
}

// Snapshot returns the current state of a channel without recording a call.
// The second result is false when the channel has never been used.
func (l *Limiter) Snapshot(channel string) (Snapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[channel]
	if !ok {
		return Snapshot{}, false
	}
	return Snapshot{
		Channel: channel,
		Start:   w.start,
		Count:   w.count,
		Config:  l.configLocked(channel),
	}, true
}

// Reset discards the window of a channel.
func (l *Limiter) Reset(channel string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, channel)
}

// Channels returns the names of all channels with a window, sorted.
func (l *Limiter) Channels() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, 0, len(l.windows))
	for name := range l.windows {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *Limiter) configLocked(channel string) Config {
	if cfg, ok := l.configs[channel]; ok {
		return cfg
	}
	return l.def
}
