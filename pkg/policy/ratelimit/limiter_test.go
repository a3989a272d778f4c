package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// ============================================================================
// Window Tests
// ============================================================================

func TestAllow_FirstThresholdCallsAllowed(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		window    time.Duration
		calls     int
		spacing   time.Duration
		allowed   int
	}{
		{"eleven calls in 500ms", 10, time.Second, 11, 50 * time.Millisecond, 10},
		{"exactly threshold", 10, time.Second, 10, 0, 10},
		{"threshold one", 1, time.Second, 5, time.Millisecond, 1},
		{"burst of thirty", 10, time.Second, 30, 0, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(Config{Threshold: tt.threshold, Window: tt.window})
			allowed := 0
			for i := 0; i < tt.calls; i++ {
				now := epoch.Add(time.Duration(i) * tt.spacing)
				ok := l.Allow("cloud", now)
				if ok {
					allowed++
				}
				if ok != (i < tt.threshold) {
					t.Errorf("call %d: allowed=%v, want %v", i+1, ok, i < tt.threshold)
				}
			}
			if allowed != tt.allowed {
				t.Errorf("allowed %d calls, want %d", allowed, tt.allowed)
			}
		})
	}
}

func TestAllow_WindowBoundary(t *testing.T) {
	l := New(Config{Threshold: 1, Window: time.Second})

	if !l.Allow("ch", epoch) {
		t.Fatal("first call should be allowed")
	}

	// A call at exactly start+window still belongs to the first window.
	if l.Allow("ch", epoch.Add(time.Second)) {
		t.Error("call at start+window should count against the current window")
	}

	// Strictly after start+window a new window opens.
	if !l.Allow("ch", epoch.Add(time.Second+time.Nanosecond)) {
		t.Error("call after start+window should open a new window")
	}
}

func TestAllow_NewWindowResetsCount(t *testing.T) {
	l := New(Config{Threshold: 2, Window: 100 * time.Millisecond})

	for i := 0; i < 5; i++ {
		l.Allow("ch", epoch)
	}

	later := epoch.Add(150 * time.Millisecond)
	if !l.Allow("ch", later) || !l.Allow("ch", later) {
		t.Error("new window should allow threshold calls again")
	}
	if l.Allow("ch", later) {
		t.Error("third call in new window should be denied")
	}

	snap, ok := l.Snapshot("ch")
	if !ok {
		t.Fatal("expected snapshot")
	}
	if !snap.Start.Equal(later) {
		t.Errorf("window start = %v, want %v", snap.Start, later)
	}
	if snap.Count != 3 {
		t.Errorf("count = %d, want 3", snap.Count)
	}
}

func TestAllow_DeniedCallsStillCount(t *testing.T) {
	l := New(Config{Threshold: 1, Window: time.Second})
	l.Allow("ch", epoch)
	l.Allow("ch", epoch.Add(10*time.Millisecond))
	l.Allow("ch", epoch.Add(20*time.Millisecond))

	snap, _ := l.Snapshot("ch")
	if snap.Count != 3 {
		t.Errorf("count = %d, want 3", snap.Count)
	}
}

// ============================================================================
// Channel Tests
// ============================================================================

func TestChannels_Independent(t *testing.T) {
	l := New(Config{Threshold: 1, Window: time.Second})

	if !l.Allow("a", epoch) {
		t.Error("channel a first call should be allowed")
	}
	if !l.Allow("b", epoch) {
		t.Error("channel b should not be affected by channel a")
	}
	if l.Allow("a", epoch) {
		t.Error("channel a second call should be denied")
	}

	got := l.Channels()
	if fmt.Sprint(got) != "[a b]" {
		t.Errorf("Channels() = %v, want [a b]", got)
	}
}

func TestDefaults(t *testing.T) {
	l := New(Config{})
	cfg := l.ConfigFor("anything")
	if cfg.Threshold != DefaultThreshold {
		t.Errorf("Threshold = %d, want %d", cfg.Threshold, DefaultThreshold)
	}
	if cfg.Window != DefaultWindow {
		t.Errorf("Window = %v, want %v", cfg.Window, DefaultWindow)
	}
}

func TestWithChannel_OverridesDefault(t *testing.T) {
	l := New(Config{Threshold: 10}, WithChannel("strict", Config{Threshold: 2, Window: time.Minute}))

	if got := l.ConfigFor("strict"); got.Threshold != 2 || got.Window != time.Minute {
		t.Errorf("strict config = %+v", got)
	}
	if got := l.ConfigFor("other"); got.Threshold != 10 || got.Window != DefaultWindow {
		t.Errorf("default config = %+v", got)
	}

	l.Configure("other", Config{Threshold: 3})
	if got := l.ConfigFor("other"); got.Threshold != 3 {
		t.Errorf("configured threshold = %d, want 3", got.Threshold)
	}
}

func TestReset(t *testing.T) {
	l := New(Config{Threshold: 1})
	l.Allow("ch", epoch)
	if l.Allow("ch", epoch) {
		t.Fatal("second call should be denied")
	}

	l.Reset("ch")
	if _, ok := l.Snapshot("ch"); ok {
		t.Error("snapshot should be gone after reset")
	}
	if !l.Allow("ch", epoch) {
		t.Error("call after reset should be allowed")
	}
}

// ============================================================================
// CheckResult Tests
// ============================================================================

func TestCheck_Result(t *testing.T) {
	l := New(Config{Threshold: 2, Window: time.Second})

	res := l.Check("ch", epoch)
	if !res.Allowed || res.Remaining != 1 || res.Limit != 2 {
		t.Errorf("first check = %+v", res)
	}
	if !res.Reset.Equal(epoch.Add(time.Second)) {
		t.Errorf("Reset = %v, want %v", res.Reset, epoch.Add(time.Second))
	}

	l.Check("ch", epoch)
	res = l.Check("ch", epoch.Add(400*time.Millisecond))
	if res.Allowed {
		t.Error("third check should be denied")
	}
	if res.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", res.Remaining)
	}
	if res.RetryAfter <= 600*time.Millisecond-time.Millisecond || res.RetryAfter > 601*time.Millisecond {
		t.Errorf("RetryAfter = %v, want about 600ms", res.RetryAfter)
	}
}

func TestAllowNow_UsesClock(t *testing.T) {
	now := epoch
	l := New(Config{Threshold: 1, Window: time.Second}, WithClock(func() time.Time { return now }))

	if !l.AllowNow("ch") {
		t.Fatal("first call should be allowed")
	}
	if l.AllowNow("ch") {
		t.Fatal("second call should be denied")
	}
	now = now.Add(2 * time.Second)
	if !l.AllowNow("ch") {
		t.Error("call in next window should be allowed")
	}
}

// ============================================================================
// Concurrency Tests
// ============================================================================

func TestAllow_Concurrent(t *testing.T) {
	l := New(Config{Threshold: 50, Window: time.Hour})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared", epoch) {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed %d concurrent calls, want 50", allowed)
	}
}
