package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"maps"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/formkit/internal/config"
	"github.com/vango-dev/formkit/internal/validate"
)

// InvalidDataMessage is the top-level message of a 422 reply.
const InvalidDataMessage = "The given data was invalid."

// maxBodyBytes bounds a submitted payload.
const maxBodyBytes = 1 << 20

// Server is the development form backend.
type Server struct {
	cfg      config.ServerConfig
	router   chi.Router
	store    *store
	logger   *slog.Logger
	registry *prometheus.Registry
	upgrader websocket.Upgrader

	requests *prometheus.CounterVec

	shutdownTimeout time.Duration
	httpServer      *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRegistry sets the registry that /metrics exposes. The server's own
// collectors are registered there too.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.shutdownTimeout = d
	}
}

// New creates a Server for cfg.
func New(cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		cfg:             cfg,
		store:           newStore(),
		logger:          slog.Default(),
		shutdownTimeout: 10 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	s.logger = s.logger.With("component", "devserver")

	s.requests = promauto.With(s.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "formkit",
		Subsystem: "devserver",
		Name:      "requests_total",
		Help:      "Form requests handled by the dev server, by form and status",
	}, []string{"form", "status"})

	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Get("/ws", s.handleWebSocket)

	r.Route("/forms/{name}", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Get("/{id}", s.handleGet)
		r.Put("/{id}", s.handleUpdate)
		r.Patch("/{id}", s.handleUpdate)
		r.Delete("/{id}", s.handleDelete)
	})
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
		s.logger.Info("server shutdown complete")
		return nil
	}
}

// ListenAndServe listens on the configured address and serves until ctx is
// done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// rules returns the rules for form. With no forms configured every form
// name is accepted without rules.
func (s *Server) rules(form string) (validate.Rules, bool) {
	if len(s.cfg.Forms) == 0 {
		return nil, true
	}
	rules, ok := s.cfg.Forms[form]
	return rules, ok
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	form := chi.URLParam(r, "name")
	rules, ok := s.rules(form)
	if !ok {
		s.reply(w, form, http.StatusNotFound, message("Unknown form " + strconv.Quote(form)))
		return
	}
	data, err := decodeBody(r)
	if err != nil {
		s.reply(w, form, http.StatusBadRequest, message(err.Error()))
		return
	}
	if s.invalid(w, form, rules, data) {
		return
	}
	s.reply(w, form, http.StatusCreated, s.store.create(form, data))
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	form, id, ok := s.target(w, r)
	if !ok {
		return
	}
	rec, found := s.store.get(form, id)
	if !found {
		s.reply(w, form, http.StatusNotFound, message("Record not found"))
		return
	}
	s.reply(w, form, http.StatusOK, rec)
}

// handleUpdate replaces the record on PUT and merges into it on PATCH. The
// resulting record is validated as a whole.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	form, id, ok := s.target(w, r)
	if !ok {
		return
	}
	rules, _ := s.rules(form)
	data, err := decodeBody(r)
	if err != nil {
		s.reply(w, form, http.StatusBadRequest, message(err.Error()))
		return
	}
	existing, found := s.store.get(form, id)
	if !found {
		s.reply(w, form, http.StatusNotFound, message("Record not found"))
		return
	}
	if r.Method == http.MethodPatch {
		merged := existing.Data
		maps.Copy(merged, data)
		data = merged
	}
	if s.invalid(w, form, rules, data) {
		return
	}
	rec, found := s.store.put(form, id, data)
	if !found {
		s.reply(w, form, http.StatusNotFound, message("Record not found"))
		return
	}
	s.reply(w, form, http.StatusOK, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	form, id, ok := s.target(w, r)
	if !ok {
		return
	}
	rec, found := s.store.delete(form, id)
	if !found {
		s.reply(w, form, http.StatusNotFound, message("Record not found"))
		return
	}
	s.reply(w, form, http.StatusOK, rec)
}

// target resolves the form and record id of r, replying on failure.
func (s *Server) target(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	form := chi.URLParam(r, "name")
	if _, ok := s.rules(form); !ok {
		s.reply(w, form, http.StatusNotFound, message("Unknown form "+strconv.Quote(form)))
		return "", 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.reply(w, form, http.StatusNotFound, message("Record not found"))
		return "", 0, false
	}
	return form, id, true
}

// invalid checks data against rules and writes a 422 when it fails.
func (s *Server) invalid(w http.ResponseWriter, form string, rules validate.Rules, data map[string]any) bool {
	bag := rules.Check(data)
	if !bag.Any() {
		return false
	}
	s.reply(w, form, http.StatusUnprocessableEntity, map[string]any{
		"message": InvalidDataMessage,
		"errors":  bag,
	})
	return true
}

func (s *Server) reply(w http.ResponseWriter, form string, status int, v any) {
	s.requests.WithLabelValues(form, strconv.Itoa(status)).Inc()
	writeJSON(w, status, v)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
			"duration", time.Since(start),
		)
	})
}

func message(msg string) map[string]string {
	return map[string]string{"message": msg}
}

// decodeBody reads a JSON object. An empty body is an empty payload.
func decodeBody(r *http.Request) (map[string]any, error) {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.UseNumber()

	data := map[string]any{}
	if err := dec.Decode(&data); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, errors.New("invalid JSON body: " + err.Error())
	}
	if data == nil {
		data = map[string]any{}
	}
	return data, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
