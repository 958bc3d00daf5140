// Package ratelimit implements remote rate limit budget tracking and request
// gating. It reads the budget advertised by the API in response headers
// (X-RateLimit-Remaining / X-RateLimit-Reset by default), shares it across
// processes through Redis, and refuses attempts while the budget is critical.
package ratelimit

import (
	"time"
)

// Redis key suffixes for rate limit state storage.
const (
	keyRemaining  = "remaining"
	keyResetAt    = "reset_timestamp"
	keyLastUpdate = "last_update"
)

// Thresholds for rate limit decisions.
const (
	// ThresholdCritical blocks all requests when the remaining budget falls below this value.
	ThresholdCritical = 5

	// ThresholdWarning applies throttling when the remaining budget falls below this value.
	ThresholdWarning = 20

	// ThresholdHealthy indicates normal operation.
	// When the remaining budget is at or above this value, no restrictions apply.
	ThresholdHealthy = 50
)

// RateLimitState represents the current remote rate limit budget.
// This state is shared across all tracker instances via Redis.
type RateLimitState struct {
	// Remaining is the number of requests left in the current window.
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was last updated.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining >= ThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked.
// A window that has already reset no longer blocks.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	return s.Remaining < ThresholdCritical && s.TimeUntilReset() > 0
}

// NeedsThrottling returns true if requests should be throttled due to warning threshold.
func (s *RateLimitState) NeedsThrottling() bool {
	return s.Remaining < ThresholdWarning && !s.NeedsCriticalBlock() && s.TimeUntilReset() > 0
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on current Remaining.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = s.Remaining >= ThresholdHealthy
}
