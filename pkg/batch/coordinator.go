package batch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/Sternrassler/json-aggregator/pkg/client"
	"github.com/Sternrassler/json-aggregator/pkg/rawjson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	batchOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_outcomes_total",
		Help: "Total fetch outcomes by result (success, failure, cancelled)",
	}, []string{"result"})

	batchInflightRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "batch_inflight_requests",
		Help: "Number of batch requests currently being fetched",
	})
)

// ErrDuplicateKey is returned when two requests of one batch share a key.
var ErrDuplicateKey = errors.New("duplicate request key")

// Fetcher retrieves one endpoint as decoded JSON. *client.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string, params map[string]string) (rawjson.Value, error)
}

// Request is one named fetch of a batch.
type Request struct {
	Key      string
	Endpoint string
	Params   map[string]string
}

// Outcome is the terminal result of a Request: a payload on success,
// Err on failure. Exactly one of the two is meaningful.
type Outcome struct {
	Key      string
	Payload  []rawjson.Value
	Err      error
	Duration time.Duration
}

// OK reports whether the request succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Cancelled reports whether the request was stopped by cancellation.
func (o Outcome) Cancelled() bool {
	return errors.Is(o.Err, client.ErrCancelled)
}

// Config holds coordinator configuration.
type Config struct {
	// MaxConcurrency caps in-flight requests; 0 runs every request at once.
	MaxConcurrency int
}

// DefaultConfig returns the default coordinator configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 0,
	}
}

// Coordinator fans a batch of requests out to concurrent workers.
type Coordinator struct {
	fetcher Fetcher
	config  Config
	logger  zerolog.Logger
}

// NewCoordinator creates a new coordinator.
func NewCoordinator(fetcher Fetcher, config Config) *Coordinator {
	if config.MaxConcurrency < 0 {
		config.MaxConcurrency = 0
	}

	return &Coordinator{
		fetcher: fetcher,
		config:  config,
		logger:  log.With().Str("component", "batch").Logger(),
	}
}

// WithLogger returns a copy of the coordinator logging to logger.
func (c *Coordinator) WithLogger(logger zerolog.Logger) *Coordinator {
	cp := *c
	cp.logger = logger
	return &cp
}

// FetchAll fetches every request concurrently and returns one Outcome per key.
// It returns only after all requests are terminal. The only error is
// ErrDuplicateKey, reported before anything is fetched.
func (c *Coordinator) FetchAll(ctx context.Context, requests []Request) (map[string]Outcome, error) {
	seen := make(map[string]struct{}, len(requests))
	for _, req := range requests {
		if _, dup := seen[req.Key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, req.Key)
		}
		seen[req.Key] = struct{}{}
	}

	start := time.Now()
	c.logger.Info().
		Int("requests", len(requests)).
		Int("max_concurrency", c.config.MaxConcurrency).
		Msg("Starting parallel fetch")

	var sem chan struct{}
	if c.config.MaxConcurrency > 0 {
		sem = make(chan struct{}, c.config.MaxConcurrency)
	}

	// Each worker owns results[i].
	results := make([]Outcome, len(requests))

	var wg sync.WaitGroup
	for i := range requests {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.worker(ctx, requests[i], sem)
		}(i)
	}
	wg.Wait()

	outcomes := make(map[string]Outcome, len(results))
	failed := 0
	for _, o := range results {
		outcomes[o.Key] = o
		if !o.OK() {
			failed++
		}
	}

	c.logger.Info().
		Int("requests", len(requests)).
		Int("succeeded", len(requests)-failed).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Parallel fetch complete")

	return outcomes, nil
}

// worker fetches one request, waiting for a semaphore slot when bounded.
func (c *Coordinator) worker(ctx context.Context, req Request, sem chan struct{}) Outcome {
	start := time.Now()
	outcome := Outcome{Key: req.Key}

	if sem != nil {
		select {
		case sem <- struct{}{}:
			defer func() { <-sem }()
		case <-ctx.Done():
			outcome.Err = fmt.Errorf("%s: %w: %w", req.Key, client.ErrCancelled, ctx.Err())
			return c.finish(outcome, start)
		}
	}

	batchInflightRequests.Inc()
	defer batchInflightRequests.Dec()

	// Each worker gets its own copy of Params.
	v, err := c.fetcher.Fetch(ctx, req.Endpoint, maps.Clone(req.Params))
	if err != nil {
		outcome.Err = err
	} else {
		outcome.Payload = v.Items()
	}

	return c.finish(outcome, start)
}

func (c *Coordinator) finish(o Outcome, start time.Time) Outcome {
	o.Duration = time.Since(start)

	switch {
	case o.OK():
		batchOutcomesTotal.WithLabelValues("success").Inc()
		c.logger.Debug().
			Str("key", o.Key).
			Int("items", len(o.Payload)).
			Dur("duration", o.Duration).
			Msg("Request complete")
	case o.Cancelled():
		batchOutcomesTotal.WithLabelValues("cancelled").Inc()
		c.logger.Warn().
			Str("key", o.Key).
			Dur("duration", o.Duration).
			Msg("Request cancelled")
	default:
		batchOutcomesTotal.WithLabelValues("failure").Inc()
		c.logger.Warn().
			Err(o.Err).
			Str("key", o.Key).
			Dur("duration", o.Duration).
			Msg("Request failed")
	}

	return o
}
