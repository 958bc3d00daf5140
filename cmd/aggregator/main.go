package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/json-aggregator/internal/config"
	"github.com/Sternrassler/json-aggregator/pkg/batch"
	"github.com/Sternrassler/json-aggregator/pkg/client"
	"github.com/Sternrassler/json-aggregator/pkg/logging"
	"github.com/Sternrassler/json-aggregator/pkg/metrics"
	"github.com/Sternrassler/json-aggregator/pkg/pipeline"
	"github.com/Sternrassler/json-aggregator/pkg/processor"
	"github.com/Sternrassler/json-aggregator/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := run(ctx, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		log.Error().Err(err).Msg("Aggregator failed")
		os.Exit(1)
	}
}

// run executes one aggregation and prints the analysis result as JSON.
func run(ctx context.Context, stdout, stderr io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Output: stderr,
	})
	logger := logging.NewLogger("aggregator")

	clientCfg := client.DefaultConfig(cfg.BaseURL, cfg.UserAgent)
	clientCfg.RequestTimeout = cfg.RequestTimeout
	clientCfg.MaxRetries = cfg.MaxRetries
	clientCfg.InitialBackoff = cfg.BackoffBase

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
		}
		logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis, rate limit gate enabled")

		clientCfg.Limiter = ratelimit.NewTracker(redisClient, ratelimit.DefaultConfig(), logging.NewLogger("ratelimit"))
	}

	fetchClient, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	coordinator := batch.NewCoordinator(fetchClient, batch.Config{MaxConcurrency: cfg.MaxConcurrency})
	p := pipeline.New(coordinator, processor.New())

	logger.Info().
		Str("base_url", cfg.BaseURL).
		Int("endpoints", len(cfg.Batch)).
		Int("max_retries", cfg.MaxRetries).
		Dur("backoff_base", cfg.BackoffBase).
		Msg("Starting aggregation")

	report, runErr := p.Run(ctx, cfg.Batch)

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Warn().Err(err).Str("path", cfg.MetricsTextfile).Msg("Failed to write metrics textfile")
		}
	}

	if runErr != nil {
		return runErr
	}

	out, err := json.MarshalIndent(report.Result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if _, err := fmt.Fprintf(stdout, "%s\n", out); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	logger.Info().
		Str("run_id", report.RunID).
		Dur("elapsed", report.Elapsed).
		Msgf("Total execution time: %.2fs", report.Elapsed.Seconds())

	return nil
}
