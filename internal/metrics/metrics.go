// Package metrics counts lookups, credential operations and built commands.
//
// opscreds is a short-lived CLI, so nothing is scraped. When a textfile path
// is configured the counters are written after each command for the
// node_exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultEmpty   = "empty"
)

// Recorder holds the opscreds metrics on a private registry. A nil Recorder
// records nothing.
type Recorder struct {
	registry *prometheus.Registry

	lookupsTotal          *prometheus.CounterVec
	lookupDuration        *prometheus.HistogramVec
	credentialsOperations *prometheus.CounterVec
	commandsBuilt         *prometheus.CounterVec
}

// NewRecorder registers every metric on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		lookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opscreds_lookups_total",
				Help: "Total number of inventory lookups",
			},
			[]string{"result"},
		),

		lookupDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "opscreds_lookup_duration_seconds",
				Help:    "Duration of inventory lookups in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"provider"},
		),

		credentialsOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opscreds_credentials_operations_total",
				Help: "Total number of local credential store operations",
			},
			[]string{"kind", "op", "result"},
		),

		commandsBuilt: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "opscreds_commands_built_total",
				Help: "Total number of shell commands built, by binary",
			},
			[]string{"binary"},
		),
	}
}

// Registry returns the registry backing r.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordLookup records an inventory lookup. A lookup without error and without
// matches counts as empty.
func (r *Recorder) RecordLookup(provider string, matches int, err error, elapsed time.Duration) {
	if r == nil {
		return
	}

	result := ResultSuccess
	switch {
	case err != nil:
		result = ResultFailure
	case matches == 0:
		result = ResultEmpty
	}

	r.lookupsTotal.WithLabelValues(result).Inc()
	r.lookupDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// RecordCredentials records a set, get or clear on the credential store.
func (r *Recorder) RecordCredentials(kind, op string, err error) {
	if r == nil {
		return
	}
	r.credentialsOperations.WithLabelValues(kind, op, resultOf(err)).Inc()
}

// RecordCommand records a command built for binary.
func (r *Recorder) RecordCommand(binary string) {
	if r == nil {
		return
	}
	r.commandsBuilt.WithLabelValues(binary).Inc()
}

// WriteTextfile writes every metric to path in the text exposition format.
// An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

func resultOf(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
