package devserver

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/vango-dev/formkit/internal/config"
	"github.com/vango-dev/formkit/internal/validate"
	"github.com/vango-dev/formkit/pkg/form"
	"github.com/vango-dev/formkit/pkg/transport"
)

func testConfig() config.ServerConfig {
	return config.ServerConfig{
		Addr: "127.0.0.1:0",
		Forms: map[string]validate.Rules{
			"users": {
				"name":  "required,min=2",
				"email": "required,email",
			},
		},
	}
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *httptest.Server, *transport.HTTPClient) {
	t.Helper()
	s := New(testConfig(), opts...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts, transport.NewHTTPClient(transport.WithBaseURL(ts.URL))
}

type recordReply struct {
	ID   int64          `json:"id"`
	Data map[string]any `json:"data"`
}

func TestCreateAndGet(t *testing.T) {
	_, _, client := newTestServer(t)
	ctx := context.Background()

	resp, err := transport.Post(ctx, client, "/forms/users", map[string]any{"name": "Ada", "email": "ada@example.com"})
	if err != nil {
		t.Fatalf("Post error: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("StatusCode = %d, want 201", resp.StatusCode)
	}
	var created recordReply
	if err := resp.Decode(&created); err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if created.ID != 1 {
		t.Errorf("ID = %d, want 1", created.ID)
	}

	req, _ := transport.NewRequest(http.MethodGet, "/forms/users/1", nil)
	resp, err = client.Do(ctx, req)
	if err != nil {
		t.Fatalf("GET error: %v", err)
	}
	var got recordReply
	resp.Decode(&got)
	want := map[string]any{"name": "Ada", "email": "ada@example.com"}
	if diff := cmp.Diff(want, got.Data); diff != "" {
		t.Errorf("GET data mismatch (-want +got):\n%s", diff)
	}
}

func TestCreate_ValidationFailure(t *testing.T) {
	_, _, client := newTestServer(t)

	_, err := transport.Post(context.Background(), client, "/forms/users", map[string]any{"name": "A", "email": "nope"})
	var rerr *transport.ResponseError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *ResponseError, got %v", err)
	}
	if rerr.StatusCode() != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode() = %d, want 422", rerr.StatusCode())
	}
	if rerr.Body.Message != InvalidDataMessage {
		t.Errorf("Message = %q, want %q", rerr.Body.Message, InvalidDataMessage)
	}
	want := map[string][]string{
		"email": {"Invalid email address"},
		"name":  {"Must be at least 2 characters"},
	}
	if diff := cmp.Diff(want, rerr.Body.Fields); diff != "" {
		t.Errorf("Fields mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	_, _, client := newTestServer(t)
	ctx := context.Background()

	if _, err := transport.Post(ctx, client, "/forms/users", map[string]any{"name": "Ada", "email": "ada@example.com"}); err != nil {
		t.Fatalf("Post error: %v", err)
	}

	resp, err := transport.Patch(ctx, client, "/forms/users/1", map[string]any{"name": "Grace"})
	if err != nil {
		t.Fatalf("Patch error: %v", err)
	}
	var patched recordReply
	resp.Decode(&patched)
	if patched.Data["name"] != "Grace" || patched.Data["email"] != "ada@example.com" {
		t.Errorf("PATCH data = %v, want merged record", patched.Data)
	}

	// PUT replaces the record, so the missing email fails validation.
	_, err = transport.Put(ctx, client, "/forms/users/1", map[string]any{"name": "Grace"})
	if !form.IsValidationError(err) {
		t.Errorf("PUT without email error = %v, want validation error", err)
	}

	resp, err = transport.Delete(ctx, client, "/forms/users/1", nil)
	if err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Delete StatusCode = %d, want 200", resp.StatusCode)
	}

	_, err = transport.Delete(ctx, client, "/forms/users/1", nil)
	var rerr *transport.ResponseError
	if !errors.As(err, &rerr) || rerr.StatusCode() != http.StatusNotFound {
		t.Errorf("second Delete error = %v, want 404", err)
	}
}

func TestErrors(t *testing.T) {
	_, ts, client := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		method string
		url    string
		status int
	}{
		{"unknown form", http.MethodPost, "/forms/orders", http.StatusNotFound},
		{"unknown record", http.MethodPut, "/forms/users/99", http.StatusNotFound},
		{"bad id", http.MethodGet, "/forms/users/abc", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := transport.NewRequest(tt.method, tt.url, map[string]any{"name": "Ada", "email": "a@b.co"})
			_, err := client.Do(ctx, req)
			var rerr *transport.ResponseError
			if !errors.As(err, &rerr) {
				t.Fatalf("expected *ResponseError, got %v", err)
			}
			if rerr.StatusCode() != tt.status {
				t.Errorf("StatusCode() = %d, want %d", rerr.StatusCode(), tt.status)
			}
			if rerr.Body.Structured() {
				t.Errorf("expected no field errors, got %v", rerr.Body.Fields)
			}
		})
	}

	t.Run("bad json", func(t *testing.T) {
		res, err := http.Post(ts.URL+"/forms/users", "application/json", strings.NewReader("{"))
		if err != nil {
			t.Fatal(err)
		}
		defer res.Body.Close()
		if res.StatusCode != http.StatusBadRequest {
			t.Errorf("StatusCode = %d, want 400", res.StatusCode)
		}
	})
}

func TestOpenModeAcceptsAnyForm(t *testing.T) {
	s := New(config.ServerConfig{})
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	client := transport.NewHTTPClient(transport.WithBaseURL(ts.URL))
	if _, err := transport.Post(context.Background(), client, "/forms/anything", map[string]any{"x": 1}); err != nil {
		t.Errorf("Post without configured forms error: %v", err)
	}
}

func TestFormAgainstServer(t *testing.T) {
	_, _, client := newTestServer(t)

	f := form.New(form.Fields{"name": "", "email": ""}, form.WithClient(client))
	f.Set("name", "A")
	f.Set("email", "bad")

	if _, err := f.Post(context.Background(), "/forms/users"); err == nil {
		t.Fatal("expected validation failure")
	}
	if msg, _ := f.Errors().First("email"); msg != "Invalid email address" {
		t.Errorf("First(email) = %q", msg)
	}

	f.Set("name", "Ada")
	f.Set("email", "ada@example.com")
	if _, err := f.Post(context.Background(), "/forms/users"); err != nil {
		t.Fatalf("Post error: %v", err)
	}
	if !f.Succeeded() || f.Errors().Any() {
		t.Errorf("Succeeded = %v, errors = %v", f.Succeeded(), f.Errors().All())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, ts, client := newTestServer(t, WithRegistry(reg))

	res, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("healthz StatusCode = %d, want 200", res.StatusCode)
	}

	transport.Post(context.Background(), client, "/forms/users", map[string]any{})
	var m dto.Metric
	if err := s.requests.WithLabelValues("users", "422").Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if got := m.GetCounter().GetValue(); got != 1 {
		t.Errorf("requests_total(users,422) = %v, want 1", got)
	}

	res, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if !strings.Contains(string(body), "formkit_devserver_requests_total") {
		t.Errorf("/metrics missing formkit_devserver_requests_total:\n%s", body)
	}
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	s := New(testConfig())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/healthz"
	var res *http.Response
	for i := 0; i < 50; i++ {
		if res, err = http.Get(url); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never answered: %v", err)
	}
	res.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
