// Package middleware provides transport middleware for form submissions.
//
// This package includes:
//   - Prometheus metrics for submissions and validation failures
//   - OpenTelemetry client spans around each request
//   - Structured request logging with log/slog
//
// Each constructor returns a transport.Middleware, so they compose with
// transport.Chain:
//
//	client := transport.Chain(
//	    transport.NewHTTPClient(transport.WithBaseURL(api)),
//	    middleware.OpenTelemetry(middleware.WithTracerName("signup")),
//	    middleware.Prometheus(middleware.WithNamespace("myapp")),
//	    middleware.Logging(logger),
//	)
//
//	f := form.New(fields, form.WithClient(client))
//
// # Prometheus Metrics
//
//   - formkit_submissions_total: Counter of submissions by method and outcome
//   - formkit_submission_duration_seconds: Histogram of round-trip duration
//   - formkit_validation_errors_total: Counter of rejected fields by name
//
// Outcomes are success, validation (rejected with field messages), rejected
// (non-2xx without field messages), transport (no response) and error.
//
// Expose them with promhttp:
//
//	http.Handle("/metrics", promhttp.Handler())
package middleware
