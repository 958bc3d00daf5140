// Package metrics documents the Prometheus metrics of the aggregator and
// exports them for one-shot runs.
// All metrics are defined in their respective packages (client, batch,
// processor, pipeline, ratelimit) to maintain modularity and avoid circular
// dependencies.
//
// A batch run exits before any scraper could collect it, so WriteTextfile
// dumps the gathered metrics in the text exposition format for the
// node_exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Gatherer is the source WriteTextfile exports. The packages register their
// metrics with promauto, so the default gatherer sees all of them.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// WriteTextfile writes all metrics of Gatherer to path. The file is written
// through a temporary file and renamed, so a collector never reads a partial
// file. The parent directory must exist.
func WriteTextfile(path string) error {
	if path == "" {
		return fmt.Errorf("metrics textfile path is empty")
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		return fmt.Errorf("metrics textfile directory: %w", err)
	}

	if err := prometheus.WriteToTextfile(path, Gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Fetch Metrics (pkg/client):
//   - fetch_requests_total{endpoint, status} (Counter): HTTP attempts by endpoint and status
//     (status is the HTTP code, "network_error" or "rate_limited")
//   - fetch_request_duration_seconds{endpoint} (Histogram): Attempt duration by endpoint
//   - fetch_errors_total{class} (Counter): Failed attempts by class
//     (client, server, status, network, decode, rate_limit)
//
// Retry Metrics (pkg/client):
//   - fetch_retries_total{error_class} (Counter): Retry attempts by error class
//   - fetch_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - fetch_retry_exhausted_total{endpoint} (Counter): Fetches that exhausted max retries
//
// Batch Metrics (pkg/batch):
//   - batch_outcomes_total{result} (Counter): Outcomes by result (success, failure, cancelled)
//   - batch_inflight_requests (Gauge): Requests currently being fetched
//
// Processing Metrics (pkg/processor):
//   - processor_records_total{key, result} (Counter): Items by endpoint key and result
//     (accepted, dropped, passthrough)
//
// Pipeline Metrics (pkg/pipeline):
//   - pipeline_runs_total{result} (Counter): Runs by result
//     (success, partial, failed, cancelled, invalid)
//   - pipeline_duration_seconds (Histogram): Wall-clock run duration
//
// Rate Limit Metrics (pkg/ratelimit):
//   - ratelimit_remaining (Gauge): Requests remaining in the remote window
//   - ratelimit_blocks_total (Counter): Attempts blocked due to critical budget
//   - ratelimit_throttles_total (Counter): Attempts throttled due to warning budget
//
// Example Prometheus Queries:
//
//   # Item Drop Rate per Endpoint
//   sum by (key) (processor_records_total{result="dropped"}) /
//   sum by (key) (processor_records_total{result=~"accepted|dropped"})
//
//   # Runs with Missing Endpoints
//   pipeline_runs_total{result="partial"}
//
//   # Exhausted Fetches
//   sum by (endpoint) (fetch_retry_exhausted_total)
//
//   # P95 Attempt Latency
//   histogram_quantile(0.95, rate(fetch_request_duration_seconds_bucket[5m]))
