// Package client provides the retrying JSON fetcher: one logical fetch of an
// endpoint is a bounded series of HTTP GET attempts with exponential backoff,
// ending in a decoded JSON document or a terminal ExhaustedError.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/json-aggregator/pkg/logging"
	"github.com/Sternrassler/json-aggregator/pkg/rawjson"
	"github.com/rs/zerolog"
)

// Limiter gates attempts against a remote rate limit budget.
// *ratelimit.Tracker implements it.
type Limiter interface {
	ShouldAllowRequest(ctx context.Context) (bool, error)
	UpdateFromHeaders(ctx context.Context, headers http.Header) error
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the scheme and host (plus optional path prefix) of the API.
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// RequestTimeout bounds each individual attempt.
	RequestTimeout time.Duration

	// Retry
	MaxRetries     int // Total attempts per fetch, >= 1
	InitialBackoff time.Duration

	// Transport performs single GETs. Defaults to an HTTPTransport.
	Transport Transport

	// Limiter is consulted before every attempt. Optional.
	Limiter Limiter

	// Logger defaults to a "fetch-client" component logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:        baseURL,
		UserAgent:      userAgent,
		RequestTimeout: 10 * time.Second,
		MaxRetries:     3,
		InitialBackoff: 500 * time.Millisecond,
	}
}

// Client fetches JSON documents with retries.
type Client struct {
	config    Config
	retry     RetryConfig
	transport Transport
	limiter   Limiter
	logger    zerolog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}

	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("max_retries must be >= 1 (got %d)", cfg.MaxRetries)
	}

	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request_timeout must be > 0 (got %s)", cfg.RequestTimeout)
	}

	if cfg.InitialBackoff < 0 {
		return nil, fmt.Errorf("initial_backoff must be >= 0 (got %s)", cfg.InitialBackoff)
	}

	logger := logging.NewLogger("fetch-client")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	transport := cfg.Transport
	if transport == nil {
		transport = NewHTTPTransport(cfg.UserAgent)
	}

	retry := DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxRetries
	retry.InitialBackoff = cfg.InitialBackoff

	return &Client{
		config:    cfg,
		retry:     retry,
		transport: transport,
		limiter:   cfg.Limiter,
		logger:    logger,
		sleep:     sleepContext,
	}, nil
}

// RetryConfig returns the effective retry policy.
func (c *Client) RetryConfig() RetryConfig {
	return c.retry
}

// Fetch GETs baseURL/endpoint?params and returns the decoded JSON body.
// Failed attempts are retried with exponential backoff; after the last one
// the result is an *ExhaustedError. A cancelled ctx yields ErrCancelled.
func (c *Client) Fetch(ctx context.Context, endpoint string, params map[string]string) (rawjson.Value, error) {
	fullURL := BuildURL(c.config.BaseURL, endpoint, params)

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("url", fullURL).
		Msg("Executing fetch")

	var result rawjson.Value
	err := c.retryWithBackoff(ctx, endpoint, func(attempt int) error {
		v, err := c.attempt(ctx, endpoint, fullURL, attempt)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	if err != nil {
		return rawjson.Value{}, err
	}

	return result, nil
}

// attempt performs a single GET and classifies its outcome.
func (c *Client) attempt(ctx context.Context, endpoint, fullURL string, attempt int) (rawjson.Value, error) {
	if c.limiter != nil {
		allowed, err := c.limiter.ShouldAllowRequest(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return rawjson.Value{}, cancelled(ctx.Err())
		case err != nil:
			// An unreachable gate must not stop fetching.
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Rate limit check failed")
		case !allowed:
			fetchErrorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
			fetchRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("attempt", attempt).
				Int("max_attempts", c.retry.MaxAttempts).
				Str("error_class", string(ErrorClassRateLimit)).
				Msg("Fetch attempt blocked by rate limiter")
			return rawjson.Value{}, fmt.Errorf("%s: %w", endpoint, ErrRateLimited)
		}
	}

	startTime := time.Now()
	resp, err := c.transport.Get(ctx, fullURL, c.config.RequestTimeout)
	fetchRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return rawjson.Value{}, cancelled(ctxErr)
		}

		fetchErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		fetchRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
		c.logger.Warn().
			Err(err).
			Str("endpoint", endpoint).
			Int("attempt", attempt).
			Int("max_attempts", c.retry.MaxAttempts).
			Str("error_class", string(ErrorClassNetwork)).
			Msg("Fetch attempt failed: transport error")

		return rawjson.Value{}, &TransportError{
			Endpoint:   endpoint,
			ErrorClass: ErrorClassNetwork,
			Err:        err,
		}
	}

	if c.limiter != nil {
		if err := c.limiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}
	}

	fetchRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errClass := classifyStatus(resp.StatusCode)
		fetchErrorsTotal.WithLabelValues(string(errClass)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("attempt", attempt).
			Int("max_attempts", c.retry.MaxAttempts).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Fetch attempt failed: HTTP status")

		return rawjson.Value{}, &TransportError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Err:        fmt.Errorf("unexpected status %q", http.StatusText(resp.StatusCode)),
		}
	}

	v, err := rawjson.Decode(resp.Body)
	if err != nil {
		fetchErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		c.logger.Warn().
			Err(err).
			Str("endpoint", endpoint).
			Int("attempt", attempt).
			Int("max_attempts", c.retry.MaxAttempts).
			Int("status_code", resp.StatusCode).
			Int("body_bytes", len(resp.Body)).
			Str("error_class", string(ErrorClassDecode)).
			Msg("Fetch attempt failed: invalid JSON body")

		return rawjson.Value{}, &DecodeError{Endpoint: endpoint, Err: err}
	}

	c.logger.Info().
		Str("endpoint", endpoint).
		Int("attempt", attempt).
		Int("status_code", resp.StatusCode).
		Dur("duration", time.Since(startTime)).
		Msg("Fetch attempt succeeded")

	return v, nil
}
