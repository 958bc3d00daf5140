package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ratelimit_remaining",
		Help: "Requests remaining in the current remote rate limit window",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ratelimit_blocks_total",
		Help: "Total number of requests blocked due to critical rate limit budget",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ratelimit_throttles_total",
		Help: "Total number of requests throttled due to warning rate limit budget",
	})
)

// Config holds tracker configuration.
type Config struct {
	// KeyPrefix namespaces the Redis keys, e.g. per upstream API.
	KeyPrefix string

	// RemainingHeader carries the remaining request budget.
	RemainingHeader string

	// ResetHeader carries the seconds until the budget resets.
	ResetHeader string

	// ThrottleDelay is the pause applied in the warning band.
	ThrottleDelay time.Duration
}

// DefaultConfig returns the default tracker configuration.
func DefaultConfig() Config {
	return Config{
		KeyPrefix:       "aggregator:rate_limit",
		RemainingHeader: "X-RateLimit-Remaining",
		ResetHeader:     "X-RateLimit-Reset",
		ThrottleDelay:   1 * time.Second,
	}
}

// Tracker monitors the remote rate limit budget and gates requests.
type Tracker struct {
	redis  *redis.Client
	config Config
	logger zerolog.Logger
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient *redis.Client, cfg Config, logger zerolog.Logger) *Tracker {
	def := DefaultConfig()
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = def.KeyPrefix
	}
	if cfg.RemainingHeader == "" {
		cfg.RemainingHeader = def.RemainingHeader
	}
	if cfg.ResetHeader == "" {
		cfg.ResetHeader = def.ResetHeader
	}
	if cfg.ThrottleDelay < 0 {
		cfg.ThrottleDelay = 0
	}

	return &Tracker{
		redis:  redisClient,
		config: cfg,
		logger: logger,
	}
}

func (t *Tracker) key(suffix string) string {
	return strings.TrimRight(t.config.KeyPrefix, ":") + ":" + suffix
}

// ParseHeaders extracts the rate limit state from response headers.
// ok is false when the response carries no budget header.
func ParseHeaders(headers http.Header, cfg Config, now time.Time) (state *RateLimitState, ok bool, err error) {
	remainStr := headers.Get(cfg.RemainingHeader)
	if remainStr == "" {
		return nil, false, nil
	}

	remain, err := strconv.Atoi(strings.TrimSpace(remainStr))
	if err != nil {
		return nil, false, fmt.Errorf("parse %s header: %w", cfg.RemainingHeader, err)
	}

	resetStr := headers.Get(cfg.ResetHeader)
	if resetStr == "" {
		return nil, false, fmt.Errorf("%s header missing", cfg.ResetHeader)
	}

	resetSeconds, err := strconv.Atoi(strings.TrimSpace(resetStr))
	if err != nil {
		return nil, false, fmt.Errorf("parse %s header: %w", cfg.ResetHeader, err)
	}

	state = &RateLimitState{
		Remaining:  remain,
		ResetAt:    now.Add(time.Duration(resetSeconds) * time.Second),
		LastUpdate: now,
	}
	state.UpdateHealth()

	return state, true, nil
}

// GetState retrieves the current rate limit state from Redis.
// Returns a default healthy state if no data exists in Redis.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	remaining, err := t.redis.Get(ctx, t.key(keyRemaining)).Int()
	if errors.Is(err, redis.Nil) {
		t.logger.Debug().Msg("No rate limit state in Redis, returning default healthy state")
		return &RateLimitState{
			Remaining:  100, // Assume healthy until we get real data
			ResetAt:    time.Now().Add(60 * time.Second),
			LastUpdate: time.Now(),
			IsHealthy:  true,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get remaining: %w", err)
	}

	resetTimestamp, err := t.redis.Get(ctx, t.key(keyResetAt)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get reset timestamp: %w", err)
	}

	lastUpdateStr, err := t.redis.Get(ctx, t.key(keyLastUpdate)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	var lastUpdate time.Time
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	state := &RateLimitState{
		Remaining:  remaining,
		ResetAt:    time.Unix(resetTimestamp, 0),
		LastUpdate: lastUpdate,
	}
	state.UpdateHealth()

	return state, nil
}

// UpdateFromHeaders parses rate limit headers and updates Redis state.
// Responses without budget headers are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	state, ok, err := ParseHeaders(headers, t.config, time.Now())
	if err != nil || !ok {
		return err
	}

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	// Keys expire with the window so a stale critical state cannot block forever.
	ttl := state.TimeUntilReset() + time.Minute

	pipe := t.redis.TxPipeline()
	pipe.Set(ctx, t.key(keyRemaining), state.Remaining, ttl)
	pipe.Set(ctx, t.key(keyResetAt), state.ResetAt.Unix(), ttl)
	pipe.Set(ctx, t.key(keyLastUpdate), lastUpdateJSON, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	rateLimitRemaining.Set(float64(state.Remaining))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("remaining", state.Remaining).
			Time("reset_at", state.ResetAt).
			Msg("Rate limit CRITICAL - requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Time("reset_at", state.ResetAt).
			Msg("Rate limit WARNING - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", state.Remaining).
			Time("reset_at", state.ResetAt).
			Bool("is_healthy", state.IsHealthy).
			Msg("Rate limit state updated")
	}

	return nil
}

// ShouldAllowRequest checks if a request should be allowed based on current rate limit state.
// Returns false if the request should be blocked due to a critical budget.
// In the warning band it pauses for ThrottleDelay (or until ctx is done) and allows.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Rate limit critical - blocking request")

		rateLimitBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() && t.config.ThrottleDelay > 0 {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Dur("delay", t.config.ThrottleDelay).
			Msg("Rate limit warning - throttling request")

		rateLimitThrottlesTotal.Inc()

		timer := time.NewTimer(t.config.ThrottleDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	return true, nil
}
