package form

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/vango-dev/formkit/pkg/transport"
)

// Result is the outcome of an asynchronous submit.
type Result struct {
	Response *transport.Response
	Err      error
}

// submission is one in-flight submit.
type submission struct {
	gen    uint64
	req    *transport.Request
	client transport.Client
}

// Submit sends the form data to url with method and updates the form state
// from the outcome. The transport error, if any, is returned unchanged after
// the error bag and status flags have been updated.
func (f *Form) Submit(ctx context.Context, method, url string) (*transport.Response, error) {
	s, err := f.start(method, url)
	if err != nil {
		return nil, err
	}
	return f.run(ctx, s)
}

// SubmitAsync starts a submit and delivers its Result on the returned
// channel. The form enters Submitting before SubmitAsync returns.
func (f *Form) SubmitAsync(ctx context.Context, method, url string) <-chan Result {
	ch := make(chan Result, 1)
	s, err := f.start(method, url)
	if err != nil {
		ch <- Result{Err: err}
		close(ch)
		return ch
	}
	go func() {
		defer close(ch)
		resp, err := f.run(ctx, s)
		ch <- Result{Response: resp, Err: err}
	}()
	return ch
}

// Post submits the form with POST.
func (f *Form) Post(ctx context.Context, url string) (*transport.Response, error) {
	return f.Submit(ctx, http.MethodPost, url)
}

// Put submits the form with PUT.
func (f *Form) Put(ctx context.Context, url string) (*transport.Response, error) {
	return f.Submit(ctx, http.MethodPut, url)
}

// Patch submits the form with PATCH.
func (f *Form) Patch(ctx context.Context, url string) (*transport.Response, error) {
	return f.Submit(ctx, http.MethodPatch, url)
}

// Delete submits the form with DELETE.
func (f *Form) Delete(ctx context.Context, url string) (*transport.Response, error) {
	return f.Submit(ctx, http.MethodDelete, url)
}

// start moves the form into Submitting and builds the request.
func (f *Form) start(method, url string) (*submission, error) {
	req, err := transport.NewRequest(method, url, nil)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.generation++
	f.errors.Forget()
	f.submitting = true
	f.succeeded = false
	f.state = Submitting

	req.Body = map[string]any(f.dataLocked())
	for k, vs := range f.header {
		req.Header[k] = slices.Clone(vs)
	}

	return &submission{gen: f.generation, req: req, client: f.client}, nil
}

func (f *Form) run(ctx context.Context, s *submission) (*transport.Response, error) {
	f.logger.Debug("form submit",
		"method", s.req.Method,
		"url", s.req.URL,
		"request_id", s.req.ID,
	)

	if s.client == nil {
		f.onFail(s, ErrNoClient)
		return nil, ErrNoClient
	}

	resp, err := s.client.Do(ctx, s.req)
	if err != nil {
		f.onFail(s, err)
		return nil, err
	}
	f.onSuccess(s)
	return resp, nil
}

func (f *Form) onSuccess(s *submission) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s.gen != f.generation {
		f.logger.Debug("form submit superseded", "request_id", s.req.ID)
		return
	}

	f.submitting = false
	f.submitted = false
	f.succeeded = true
	f.state = Succeeded
	if f.clearOnSubmit {
		f.resetLocked()
	}
}

func (f *Form) onFail(s *submission, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s.gen != f.generation {
		f.logger.Debug("form submit superseded", "request_id", s.req.ID, "error", err)
		return
	}

	if fields, ok := ValidationErrors(err); ok {
		f.errors.Record(fields)
	}
	f.submitting = false
	f.submitted = false
	f.succeeded = false
	f.state = Failed

	f.logger.Warn("form submit failed",
		"method", s.req.Method,
		"url", s.req.URL,
		"request_id", s.req.ID,
		"fields", f.errors.Fields(),
		"error", err,
	)
}

// ValidationErrors returns the field messages carried by err, if any.
func ValidationErrors(err error) (map[string][]string, bool) {
	var rerr *transport.ResponseError
	if errors.As(err, &rerr) && rerr.Body.Structured() {
		return rerr.Body.Fields, true
	}
	return nil, false
}

// IsValidationError reports whether err carries field messages.
func IsValidationError(err error) bool {
	_, ok := ValidationErrors(err)
	return ok
}
