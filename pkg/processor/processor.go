// Package processor turns fetch outcomes into a dataset of validated records.
//
// Each endpoint key is dispatched to the Validator registered for it; keys
// without a validator pass their items through as record.Raw. A failing item
// is logged and dropped without affecting the rest of its payload, and a
// failed fetch only removes its own key from the dataset.
package processor

import (
	"sort"

	"github.com/Sternrassler/json-aggregator/pkg/batch"
	"github.com/Sternrassler/json-aggregator/pkg/logging"
	"github.com/Sternrassler/json-aggregator/pkg/rawjson"
	"github.com/Sternrassler/json-aggregator/pkg/record"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var processorRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "processor_records_total",
	Help: "Total processed items by endpoint key and result (accepted, dropped, passthrough)",
}, []string{"key", "result"})

// Endpoint keys with a default validator.
const (
	KeyUsers = "users"
	KeyPosts = "posts"
)

// Validator converts one raw item into a record.
type Validator func(raw rawjson.Value) (record.Record, error)

// UserValidator adapts record.ToUser to a Validator.
func UserValidator(raw rawjson.Value) (record.Record, error) {
	u, err := record.ToUser(raw)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// PostValidator adapts record.ToPost to a Validator.
func PostValidator(raw rawjson.Value) (record.Record, error) {
	p, err := record.ToPost(raw)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Processor maps fetch outcomes to a Dataset.
type Processor struct {
	validators map[string]Validator
	logger     zerolog.Logger
}

// New creates a processor with validators for users and posts.
func New() *Processor {
	p := &Processor{
		validators: make(map[string]Validator),
		logger:     logging.NewLogger("processor"),
	}
	p.Register(KeyUsers, UserValidator)
	p.Register(KeyPosts, PostValidator)
	return p
}

// WithLogger sets the logger and returns p.
func (p *Processor) WithLogger(logger zerolog.Logger) *Processor {
	p.logger = logger
	return p
}

// Register sets the validator for an endpoint key. A nil validator makes the
// key pass through untyped. Not safe for use concurrently with Process.
func (p *Processor) Register(key string, v Validator) {
	if v == nil {
		delete(p.validators, key)
		return
	}
	p.validators[key] = v
}

// Process builds the dataset for one run. It never fails: problems with a
// key or an item are logged and reflected in the returned Dataset.
func (p *Processor) Process(outcomes map[string]batch.Outcome) *Dataset {
	ds := newDataset()

	keys := make([]string, 0, len(outcomes))
	for key := range outcomes {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		outcome := outcomes[key]

		if !outcome.OK() {
			ds.Failed[key] = outcome.Err
			logging.Critical(p.logger).
				Err(outcome.Err).
				Str("key", key).
				Bool("cancelled", outcome.Cancelled()).
				Msg("Fetch failed, endpoint omitted from dataset")
			continue
		}

		if len(outcome.Payload) == 0 {
			ds.Skipped = append(ds.Skipped, key)
			p.logger.Warn().
				Str("key", key).
				Msg("Empty payload, endpoint skipped")
			continue
		}

		ds.Records[key] = p.processItems(key, outcome.Payload)
	}

	return ds
}

func (p *Processor) processItems(key string, items []rawjson.Value) []record.Record {
	validate, typed := p.validators[key]
	if !typed {
		out := make([]record.Record, len(items))
		for i, item := range items {
			out[i] = record.Raw{Value: item}
		}
		processorRecordsTotal.WithLabelValues(key, "passthrough").Add(float64(len(items)))
		p.logger.Debug().
			Str("key", key).
			Int("items", len(items)).
			Msg("No validator registered, items passed through")
		return out
	}

	out := make([]record.Record, 0, len(items))
	dropped := 0
	for i, item := range items {
		rec, err := validate(item)
		if err != nil {
			dropped++
			p.logger.Error().
				Err(err).
				Str("key", key).
				Int("index", i).
				Msg("Item failed validation, dropped")
			continue
		}
		out = append(out, rec)
	}

	processorRecordsTotal.WithLabelValues(key, "accepted").Add(float64(len(out)))
	processorRecordsTotal.WithLabelValues(key, "dropped").Add(float64(dropped))

	p.logger.Info().
		Str("key", key).
		Int("items", len(out)).
		Int("dropped", dropped).
		Msg("Endpoint processed")

	return out
}
