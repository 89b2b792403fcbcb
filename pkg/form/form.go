package form

import (
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/vango-dev/formkit/pkg/errorbag"
	"github.com/vango-dev/formkit/pkg/transport"
)

var (
	// ErrNoClient is returned by Submit when the form has no transport client.
	ErrNoClient = errors.New("form: no transport client configured")

	// ErrInvalidMethod is returned by Submit for unsupported HTTP verbs.
	ErrInvalidMethod = transport.ErrInvalidMethod
)

// Fields maps field names to values.
type Fields map[string]any

// State is the submission state of a form.
type State int

const (
	Idle       State = iota // Nothing in flight
	Submitting              // Request in flight
	Succeeded               // Last submit succeeded
	Failed                  // Last submit failed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Form holds field values, submission status and validation errors for a
// single form.
type Form struct {
	names  []string
	values Fields
	errors *errorbag.Bag

	submitting bool
	submitted  bool
	succeeded  bool
	state      State

	clearOnSubmit bool
	generation    uint64

	client transport.Client
	header http.Header
	logger *slog.Logger

	mu sync.Mutex
}

// Option configures a Form.
type Option func(*Form)

// WithClient sets the transport used by Submit.
func WithClient(c transport.Client) Option {
	return func(f *Form) {
		f.client = c
	}
}

// WithLogger sets the logger. If nil, slog.Default() is used.
func WithLogger(l *slog.Logger) Option {
	return func(f *Form) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithClearOnSubmit enables reset after a successful submit.
func WithClearOnSubmit() Option {
	return func(f *Form) {
		f.clearOnSubmit = true
	}
}

// WithHeader adds a header sent with every submit of this form.
func WithHeader(key, value string) Option {
	return func(f *Form) {
		f.header.Add(key, value)
	}
}

// New creates a Form with the given fields and their initial values.
func New(fields Fields, opts ...Option) *Form {
	f := &Form{
		names:  make([]string, 0, len(fields)),
		values: make(Fields, len(fields)),
		errors: errorbag.New(),
		header: make(http.Header),
		logger: slog.Default(),
	}
	for name, value := range fields {
		f.names = append(f.names, name)
		f.values[name] = value
	}
	slices.Sort(f.names)

	for _, opt := range opts {
		opt(f)
	}
	f.ResetStatus()
	return f
}

// Get returns the value of a declared field.
func (f *Form) Get(field string) (any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[field]
	return v, ok
}

// Set updates a declared field. Unknown fields are ignored.
func (f *Form) Set(field string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[field]; ok {
		f.values[field] = value
	}
}

// Has reports whether field is declared on the form.
func (f *Form) Has(field string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.values[field]
	return ok
}

// Fields returns the sorted names of the declared fields.
func (f *Form) Fields() []string {
	return slices.Clone(f.names)
}

// Data returns a snapshot of the current field values.
func (f *Form) Data() Fields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dataLocked()
}

func (f *Form) dataLocked() Fields {
	data := make(Fields, len(f.names))
	for _, name := range f.names {
		data[name] = f.values[name]
	}
	return data
}

// Reset sets every field to the empty string, clears the errors and returns
// the form to Idle.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetLocked()
}

func (f *Form) resetLocked() {
	for _, name := range f.names {
		f.values[name] = ""
	}
	f.errors.Forget()
	f.state = Idle
}

// ResetStatus clears the errors and the status flags. Field values are kept.
func (f *Form) ResetStatus() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors.Forget()
	f.submitting = false
	f.submitted = false
	f.succeeded = false
	f.state = Idle
}

// EnableClearOnSubmit makes a successful submit reset the form.
func (f *Form) EnableClearOnSubmit() {
	f.mu.Lock()
	f.clearOnSubmit = true
	f.mu.Unlock()
}

// ClearOnSubmit reports whether a successful submit resets the form.
func (f *Form) ClearOnSubmit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clearOnSubmit
}

// SetErrors replaces the error bag contents and clears the submitting flag.
// The succeeded and submitted flags are left alone.
func (f *Form) SetErrors(errs map[string][]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitting = false
	if f.state == Submitting {
		f.state = Failed
	}
	f.errors.Record(errs)
}

// Errors returns the form's error bag.
func (f *Form) Errors() *errorbag.Bag {
	return f.errors
}

// Submitting reports whether a submit is in flight.
func (f *Form) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Submitted reports the submitted flag.
func (f *Form) Submitted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted
}

// Succeeded reports whether the last submit succeeded.
func (f *Form) Succeeded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.succeeded
}

// State returns the current submission state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}
