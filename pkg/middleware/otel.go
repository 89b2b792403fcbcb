package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/vango-dev/formkit/pkg/transport"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for form submissions.
const defaultTracerName = "formkit"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "formkit").
	TracerName string

	// TracerProvider supplies the tracer. If nil, the global provider is used.
	TracerProvider trace.TracerProvider

	// Filter determines which requests to trace.
	// If nil, all requests are traced.
	Filter func(req *transport.Request) bool
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.TracerProvider = tp
	}
}

// WithRequestFilter sets a filter function for requests.
func WithRequestFilter(filter func(req *transport.Request) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// OpenTelemetry creates middleware that wraps every submission in a client
// span. Rejections and transport failures are recorded on the span.
//
// The tracer uses the global OpenTelemetry tracer provider unless
// WithTracerProvider is given. Configure it in main() before submitting:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) transport.Middleware {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}

	var tracer trace.Tracer
	if config.TracerProvider != nil {
		tracer = config.TracerProvider.Tracer(config.TracerName)
	} else {
		tracer = otel.Tracer(config.TracerName)
	}

	return func(next transport.Client) transport.Client {
		return transport.ClientFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
			if config.Filter != nil && !config.Filter(req) {
				return next.Do(ctx, req)
			}

			ctx, span := tracer.Start(ctx, fmt.Sprintf("formkit.%s", req.Method),
				trace.WithSpanKind(trace.SpanKindClient),
				trace.WithAttributes(
					attribute.String("http.request.method", req.Method),
					attribute.String("url.full", req.URL),
					attribute.String("formkit.request_id", req.ID),
					attribute.Int("formkit.field_count", len(req.Body)),
				),
			)
			defer span.End()

			resp, err := next.Do(ctx, req)

			span.SetAttributes(attribute.String("formkit.outcome", Outcome(err)))
			if resp != nil {
				span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
			}
			if err != nil {
				var rerr *transport.ResponseError
				if errors.As(err, &rerr) {
					span.SetAttributes(
						attribute.Int("http.response.status_code", rerr.StatusCode()),
						attribute.StringSlice("formkit.invalid_fields", fieldNames(rerr.Body.Fields)),
					)
				}
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			return resp, err
		})
	}
}
