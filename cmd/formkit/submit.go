package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"

	"github.com/vango-dev/formkit/internal/config"
	"github.com/vango-dev/formkit/internal/errors"
	"github.com/vango-dev/formkit/pkg/form"
	"github.com/vango-dev/formkit/pkg/middleware"
	"github.com/vango-dev/formkit/pkg/transport"
)

type submitOptions struct {
	method        string
	url           string
	fields        []string
	headers       []string
	asJSON        bool
	clearOnSubmit bool
	transport     string
	metrics       bool
}

func submitCmd(configPath *string) *cobra.Command {
	var opts submitOptions

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a form and print the result",
		Long: `Submit field values to a URL and print the response, or the
per-field errors when the server rejects the data.

Field values that parse as JSON (numbers, booleans, null, arrays,
objects) are sent as such; anything else is sent as a string.

Examples:
  formkit submit --url /forms/users --field name=Al --field age=0
  formkit submit --method put --url /forms/users/1 --field name=Ada --json
  formkit submit --transport ws --url /forms/users --field email=a@b.co`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			return runSubmit(cmd.Context(), cfg, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&opts.method, "method", "m", "post", "HTTP method: post, put, patch, delete or get")
	cmd.Flags().StringVarP(&opts.url, "url", "u", "", "Target URL, relative to client.baseURL")
	cmd.Flags().StringArrayVarP(&opts.fields, "field", "f", nil, "Field as name=value (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.headers, "header", "H", nil, "Extra header as Name: value (repeatable)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVar(&opts.clearOnSubmit, "clear-on-submit", false, "Reset the fields after a successful submit")
	cmd.Flags().StringVarP(&opts.transport, "transport", "t", "", "Transport: http or ws (default from config)")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "Print submission metrics after the result")
	cmd.MarkFlagRequired("url")

	return cmd
}

// submitResult is the --json output.
type submitResult struct {
	State   string              `json:"state"`
	Status  int                 `json:"status,omitempty"`
	Data    json.RawMessage     `json:"data,omitempty"`
	Message string              `json:"message,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
	Error   string              `json:"error,omitempty"`
	Fields  form.Fields         `json:"fields"`
}

func runSubmit(ctx context.Context, cfg *config.Config, opts submitOptions, stdout, stderr io.Writer) error {
	if opts.transport != "" {
		cfg.Client.Transport = opts.transport
	}
	fields, err := parseFields(opts.fields)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}

	base, closeFn, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	reg := prometheus.NewRegistry()
	client := transport.Chain(base,
		middleware.OpenTelemetry(),
		middleware.Prometheus(middleware.WithRegistry(reg)),
		middleware.Logging(logger),
	)

	formOpts := []form.Option{form.WithClient(client), form.WithLogger(logger)}
	if opts.clearOnSubmit {
		formOpts = append(formOpts, form.WithClearOnSubmit())
	}
	for _, h := range opts.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return errors.New("F120").WithDetail(fmt.Sprintf("header %q must be Name: value", h))
		}
		formOpts = append(formOpts, form.WithHeader(strings.TrimSpace(name), strings.TrimSpace(value)))
	}
	f := form.New(fields, formOpts...)

	resp, submitErr := f.Submit(ctx, opts.method, opts.url)
	if submitErr != nil && f.State() == form.Idle {
		// Rejected before anything was sent.
		return submitErr
	}

	state := f.State()
	if submitErr == nil && f.Succeeded() {
		// Clear on submit leaves the form Idle.
		state = form.Succeeded
	}
	res := submitResult{State: state.String(), Fields: f.Data()}
	if resp != nil {
		res.Status = resp.StatusCode
		res.Data = resp.Data
	}
	if submitErr != nil {
		res.Error = submitErr.Error()
		var rerr *transport.ResponseError
		if stderrors.As(submitErr, &rerr) {
			res.Status = rerr.StatusCode()
			res.Message = rerr.Body.Message
		}
		res.Errors = f.Errors().All()
	}

	if opts.asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printResult(stdout, res)
	}
	if opts.metrics {
		if err := printMetrics(stdout, reg); err != nil {
			return err
		}
	}
	return submitErr
}

// newClient builds the transport named by client.transport.
func newClient(ctx context.Context, cfg *config.Config) (transport.Client, func(), error) {
	headers := make([]string, 0, len(cfg.Client.Headers))
	for name := range cfg.Client.Headers {
		headers = append(headers, name)
	}
	sort.Strings(headers)

	switch cfg.Client.Transport {
	case "http":
		opts := []transport.HTTPOption{
			transport.WithBaseURL(cfg.Client.BaseURL),
			transport.WithTimeout(cfg.TimeoutDuration()),
		}
		if cfg.Client.RateLimit > 0 {
			opts = append(opts, transport.WithRateLimit(cfg.Client.RateLimit, cfg.Client.Burst))
		}
		for _, name := range headers {
			opts = append(opts, transport.WithHeader(name, cfg.Client.Headers[name]))
		}
		return transport.NewHTTPClient(opts...), func() {}, nil

	case "ws":
		wsURL, err := websocketURL(cfg.Client.BaseURL)
		if err != nil {
			return nil, nil, err
		}
		opts := []transport.WSOption{transport.WithHandshakeTimeout(cfg.TimeoutDuration())}
		for _, name := range headers {
			opts = append(opts, transport.WithWSHeader(name, cfg.Client.Headers[name]))
		}
		ws, err := transport.DialWS(ctx, wsURL, opts...)
		if err != nil {
			return nil, nil, err
		}
		return ws, func() { ws.Close() }, nil

	default:
		return nil, nil, errors.New("F121").WithDetail(fmt.Sprintf("transport %q must be http or ws", cfg.Client.Transport))
	}
}

// websocketURL maps an http(s) base URL to the /ws endpoint.
func websocketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", errors.New("F102").Wrap(err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.New("F102").WithDetail(fmt.Sprintf("client.baseURL %q needs an http or ws scheme", base))
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}

// parseFields turns name=value arguments into form fields.
func parseFields(args []string) (form.Fields, error) {
	fields := form.Fields{}
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.New("F120").WithDetail(fmt.Sprintf("%q is not name=value", arg))
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			value = raw
		}
		fields[name] = value
	}
	return fields, nil
}

func printResult(w io.Writer, res submitResult) {
	if res.Error == "" {
		success(w, "%s (%d)", res.State, res.Status)
		if len(res.Data) > 0 {
			fmt.Fprintf(w, "  %s\n", res.Data)
		}
		return
	}

	failure(w, "%s: %s", res.State, res.Error)
	names := make([]string, 0, len(res.Errors))
	for name := range res.Errors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, msg := range res.Errors[name] {
			fmt.Fprintf(w, "  %s: %s\n", name, msg)
		}
	}
}

// printMetrics writes every counter and histogram sample in reg.
func printMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fmt.Fprintf(w, "%s{%s} %s\n", mf.GetName(), labelString(m.GetLabel()), sampleString(mf.GetType(), m))
		}
	}
	return nil
}

func labelString(labels []*dto.LabelPair) string {
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
	}
	return strings.Join(parts, ",")
}

func sampleString(t dto.MetricType, m *dto.Metric) string {
	switch t {
	case dto.MetricType_COUNTER:
		return fmt.Sprint(m.GetCounter().GetValue())
	case dto.MetricType_HISTOGRAM:
		h := m.GetHistogram()
		return fmt.Sprintf("count=%d sum=%g", h.GetSampleCount(), h.GetSampleSum())
	default:
		return m.String()
	}
}
