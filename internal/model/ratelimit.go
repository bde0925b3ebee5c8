package model

import "time"

// RateLimitWindow is one fixed-window counter for a (key, endpoint) pair.
// WindowStart is milliseconds since the Unix epoch; an elapsed window is
// treated as absent and overwritten lazily on next access, never swept.
type RateLimitWindow struct {
	Count         int   `json:"count"`
	WindowStartMS int64 `json:"window_start_ms"`
	WindowSeconds int   `json:"window_seconds"`
}

// Expired reports whether the window has elapsed at the given instant.
func (w RateLimitWindow) Expired(now time.Time) bool {
	return now.UnixMilli() >= w.ResetAtMS()
}

// ResetAtMS returns the instant (epoch milliseconds) at which the window resets.
func (w RateLimitWindow) ResetAtMS() int64 {
	return w.WindowStartMS + int64(w.WindowSeconds)*1000
}

// RateLimitPolicy is the static per-endpoint limit configuration,
// loaded once at process start.
type RateLimitPolicy struct {
	MaxRequests   int `json:"max_requests" toml:"max_requests"`
	WindowSeconds int `json:"window_seconds" toml:"window_seconds"`
}

// Decision is the outcome of a rate-limit check.
type Decision struct {
	Allowed    bool  `json:"allowed"`
	Limit      int   `json:"limit"`
	Remaining  int   `json:"remaining"`
	ResetAtMS  int64 `json:"reset_at_ms"`
	RetryAfter int   `json:"retry_after_seconds"`
}
