package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/formkit/pkg/transport"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "formkit").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for submission duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics middleware.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "formkit",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Submission outcomes used as the "outcome" label.
const (
	OutcomeSuccess    = "success"
	OutcomeValidation = "validation"
	OutcomeRejected   = "rejected"
	OutcomeTransport  = "transport"
	OutcomeError      = "error"
)

// metrics holds the Prometheus collectors for one registry.
type metrics struct {
	submissionsTotal *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	validationErrors *prometheus.CounterVec
}

// metricsKey identifies one set of collectors. Building the middleware twice
// with the same key reuses the collectors instead of registering duplicates.
// ConstLabels and Buckets are fixed by the first build for a key.
type metricsKey struct {
	registry  prometheus.Registerer
	namespace string
	subsystem string
}

var (
	registered   = make(map[metricsKey]*metrics)
	registeredMu sync.Mutex
)

func metricsFor(config MetricsConfig) *metrics {
	registeredMu.Lock()
	defer registeredMu.Unlock()

	key := metricsKey{registry: config.Registry, namespace: config.Namespace, subsystem: config.Subsystem}
	if m, ok := registered[key]; ok {
		return m
	}

	factory := promauto.With(config.Registry)
	m := &metrics{
		submissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "submissions_total",
			Help:        "Total number of form submissions by method and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"method", "outcome"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "submission_duration_seconds",
			Help:        "Form submission round-trip duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"method"}),

		validationErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "validation_errors_total",
			Help:        "Total number of fields rejected by the server",
			ConstLabels: config.ConstLabels,
		}, []string{"field"}),
	}
	registered[key] = m
	return m
}

// Prometheus creates middleware that records submission metrics.
//
// Example:
//
//	client := transport.Chain(base,
//	    middleware.Prometheus(
//	        middleware.WithNamespace("myapp"),
//	    ),
//	)
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
func Prometheus(opts ...MetricsOption) transport.Middleware {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	m := metricsFor(config)

	return func(next transport.Client) transport.Client {
		return transport.ClientFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			start := time.Now()
			resp, err := next.Do(ctx, req)
			m.duration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())

			outcome := Outcome(err)
			m.submissionsTotal.WithLabelValues(req.Method, outcome).Inc()
			if outcome == OutcomeValidation {
				var rerr *transport.ResponseError
				errors.As(err, &rerr)
				for field := range rerr.Body.Fields {
					m.validationErrors.WithLabelValues(field).Inc()
				}
			}
			return resp, err
		})
	}
}

// Outcome classifies the result of a submission.
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	var rerr *transport.ResponseError
	if errors.As(err, &rerr) {
		if rerr.Body.Structured() {
			return OutcomeValidation
		}
		return OutcomeRejected
	}
	var terr *transport.TransportError
	if errors.As(err, &terr) {
		return OutcomeTransport
	}
	return OutcomeError
}
