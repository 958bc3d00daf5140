// Package config loads the aggregator configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/json-aggregator/pkg/batch"
	"github.com/Sternrassler/json-aggregator/pkg/logging"
)

// Defaults.
const (
	DefaultBaseURL        = "https://jsonplaceholder.typicode.com"
	DefaultRequestTimeout = 10 * time.Second
	DefaultMaxRetries     = 3
	DefaultBackoffBase    = 500 * time.Millisecond
	DefaultUserAgent      = "json-aggregator/0.1.0"
	DefaultEndpoints      = "users,posts,comments"
)

// ErrInvalidConfig is returned for any unusable setting.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full runtime configuration.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	MaxRetries     int
	BackoffBase    time.Duration
	MaxConcurrency int
	UserAgent      string
	Batch          []batch.Request

	// RedisURL enables the shared rate limit gate when set.
	RedisURL string

	LogLevel        logging.LogLevel
	LogPretty       bool
	MetricsTextfile string
}

// Load reads the configuration from environment variables and validates it.
func Load() (*Config, error) {
	var errs []error

	cfg := &Config{
		BaseURL:         getEnv("BASE_URL", DefaultBaseURL),
		UserAgent:       getEnv("USER_AGENT", DefaultUserAgent),
		RedisURL:        getEnv("REDIS_URL", ""),
		LogLevel:        logging.LogLevel(getEnv("LOG_LEVEL", string(logging.LevelInfo))),
		MetricsTextfile: getEnv("METRICS_TEXTFILE", ""),
	}

	var err error
	if cfg.RequestTimeout, err = ParseSeconds(getEnv("REQUEST_TIMEOUT", DefaultRequestTimeout.String())); err != nil {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT: %w", err))
	}
	if cfg.BackoffBase, err = ParseSeconds(getEnv("BACKOFF_BASE", DefaultBackoffBase.String())); err != nil {
		errs = append(errs, fmt.Errorf("BACKOFF_BASE: %w", err))
	}
	if cfg.MaxRetries, err = strconv.Atoi(getEnv("MAX_RETRIES", strconv.Itoa(DefaultMaxRetries))); err != nil {
		errs = append(errs, fmt.Errorf("MAX_RETRIES: %w", err))
	}
	if cfg.MaxConcurrency, err = strconv.Atoi(getEnv("MAX_CONCURRENCY", "0")); err != nil {
		errs = append(errs, fmt.Errorf("MAX_CONCURRENCY: %w", err))
	}
	if cfg.LogPretty, err = strconv.ParseBool(getEnv("LOG_PRETTY", "false")); err != nil {
		errs = append(errs, fmt.Errorf("LOG_PRETTY: %w", err))
	}
	if cfg.Batch, err = ParseBatch(getEnv("ENDPOINTS", DefaultEndpoints)); err != nil {
		errs = append(errs, fmt.Errorf("ENDPOINTS: %w", err))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("BASE_URL must be an absolute URL (got %q)", c.BaseURL))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT must be > 0 (got %s)", c.RequestTimeout))
	}
	if c.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("MAX_RETRIES must be >= 1 (got %d)", c.MaxRetries))
	}
	if c.BackoffBase < 0 {
		errs = append(errs, fmt.Errorf("BACKOFF_BASE must be >= 0 (got %s)", c.BackoffBase))
	}
	if c.MaxConcurrency < 0 {
		errs = append(errs, fmt.Errorf("MAX_CONCURRENCY must be >= 0 (got %d)", c.MaxConcurrency))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// ParseSeconds accepts a Go duration ("1.5s", "500ms") or a plain number of
// seconds ("0.5").
func ParseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a duration or number of seconds: %q", s)
	}
	return time.Duration(f * float64(time.Second)), nil
}

// ParseBatch parses a comma-separated batch definition. Each entry is
// key[=endpoint][?query]; the endpoint defaults to the key and query holds
// URL-encoded params, e.g. "users,post-1-comments=comments?postId=1".
func ParseBatch(s string) ([]batch.Request, error) {
	var requests []batch.Request
	seen := make(map[string]bool)

	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		def, rawQuery, _ := strings.Cut(entry, "?")
		key, endpoint, hasEndpoint := strings.Cut(def, "=")
		key = strings.TrimSpace(key)
		endpoint = strings.Trim(strings.TrimSpace(endpoint), "/")
		if !hasEndpoint {
			endpoint = key
		}

		if key == "" {
			return nil, fmt.Errorf("entry %q: empty key", entry)
		}
		if endpoint == "" {
			return nil, fmt.Errorf("entry %q: empty endpoint", entry)
		}
		if seen[key] {
			return nil, fmt.Errorf("entry %q: %w: %q", entry, batch.ErrDuplicateKey, key)
		}
		seen[key] = true

		req := batch.Request{Key: key, Endpoint: endpoint}
		if rawQuery != "" {
			values, err := url.ParseQuery(rawQuery)
			if err != nil {
				return nil, fmt.Errorf("entry %q: query: %w", entry, err)
			}
			req.Params = make(map[string]string, len(values))
			for name := range values {
				req.Params[name] = values.Get(name)
			}
		}

		requests = append(requests, req)
	}

	if len(requests) == 0 {
		return nil, fmt.Errorf("no endpoints defined")
	}
	return requests, nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
