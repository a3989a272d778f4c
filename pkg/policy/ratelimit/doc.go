// Package ratelimit counts calls per named channel in fixed time windows.
//
// # Algorithm
//
// Each channel owns a window {start, count}. On every call:
//
//  1. If the channel has no window, or now - start exceeds the window
//     duration, a new window starts at now with count 0.
//  2. count is incremented.
//  3. The call is allowed iff count <= threshold.
//
// A call at exactly start + window still belongs to the current window.
// Denied calls are terminal; the limiter never queues or retries.
//
// # Usage
//
//	limiter := ratelimit.New(ratelimit.Config{Threshold: 10, Window: time.Second})
//	if !limiter.Allow("cloud", time.Now()) {
//	    // suppress the call
//	}
//
// Channels without an explicit configuration use the limiter's default,
// which itself defaults to 10 calls per second.
//
// # Thread Safety
//
// Limiter is safe for concurrent use. All window state is guarded by one
// mutex, and no state survives the process.
package ratelimit
