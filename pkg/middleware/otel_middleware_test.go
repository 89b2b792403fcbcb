package middleware

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/vango-dev/formkit/pkg/transport"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newRecordedTracer() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	return rec, tp
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestOpenTelemetry_Success(t *testing.T) {
	rec, tp := newRecordedTracer()
	defer tp.Shutdown(context.Background())

	var sawSpan bool
	base := transport.ClientFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		sawSpan = trace.SpanFromContext(ctx).SpanContext().IsValid()
		return &transport.Response{RequestID: req.ID, StatusCode: http.StatusCreated}, nil
	})
	client := transport.Chain(base, OpenTelemetry(WithTracerProvider(tp)))

	if _, err := transport.Post(context.Background(), client, "/users", map[string]any{"name": "Ada"}); err != nil {
		t.Fatalf("Post error: %v", err)
	}
	if !sawSpan {
		t.Error("expected span in downstream context")
	}

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "formkit.POST" {
		t.Errorf("span name = %q, want %q", span.Name(), "formkit.POST")
	}
	if span.SpanKind() != trace.SpanKindClient {
		t.Errorf("span kind = %v, want client", span.SpanKind())
	}
	if span.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", span.Status().Code)
	}
	if v, ok := spanAttr(span, "http.response.status_code"); !ok || v.AsInt64() != http.StatusCreated {
		t.Errorf("status_code attr = %v (present %v), want 201", v.AsInt64(), ok)
	}
	if v, _ := spanAttr(span, "formkit.field_count"); v.AsInt64() != 1 {
		t.Errorf("field_count = %d, want 1", v.AsInt64())
	}
	if v, _ := spanAttr(span, "formkit.outcome"); v.AsString() != OutcomeSuccess {
		t.Errorf("outcome = %q, want %q", v.AsString(), OutcomeSuccess)
	}
}

func TestOpenTelemetry_ValidationFailure(t *testing.T) {
	rec, tp := newRecordedTracer()
	defer tp.Shutdown(context.Background())

	verr := validationError(map[string][]string{"name": {"required"}, "email": {"invalid"}})
	client := transport.Chain(stubClient(nil, verr), OpenTelemetry(WithTracerProvider(tp)))

	if _, err := transport.Put(context.Background(), client, "/users/1", nil); !errors.Is(err, verr) {
		t.Fatalf("expected validation error, got %v", err)
	}

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", span.Status().Code)
	}
	if v, _ := spanAttr(span, "http.response.status_code"); v.AsInt64() != http.StatusUnprocessableEntity {
		t.Errorf("status_code = %d, want 422", v.AsInt64())
	}
	v, _ := spanAttr(span, "formkit.invalid_fields")
	got := v.AsStringSlice()
	if len(got) != 2 || got[0] != "email" || got[1] != "name" {
		t.Errorf("invalid_fields = %v, want [email name]", got)
	}
	var sawException bool
	for _, ev := range span.Events() {
		if ev.Name == "exception" {
			sawException = true
		}
	}
	if !sawException {
		t.Error("expected RecordError to add an exception event")
	}
}

func TestOpenTelemetry_Filter(t *testing.T) {
	rec, tp := newRecordedTracer()
	defer tp.Shutdown(context.Background())

	ok := stubClient(&transport.Response{StatusCode: http.StatusOK}, nil)
	client := transport.Chain(ok, OpenTelemetry(
		WithTracerProvider(tp),
		WithTracerName("test"),
		WithRequestFilter(func(req *transport.Request) bool {
			return req.Method != http.MethodDelete
		}),
	))

	transport.Delete(context.Background(), client, "/users/1", nil)
	if got := len(rec.Ended()); got != 0 {
		t.Fatalf("filtered request produced %d spans, want 0", got)
	}

	transport.Patch(context.Background(), client, "/users/1", nil)
	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	if got := spans[0].InstrumentationScope().Name; got != "test" {
		t.Errorf("tracer name = %q, want %q", got, "test")
	}
}
