// Package inspect serves committed runtime snapshots over HTTP.
//
// Routes:
//
//	GET /healthz                  liveness
//	GET /snapshot                 the whole snapshot as JSON
//	GET /roots/{id}               one root, nodes included
//	GET /roots/{id}/nodes/{node}  one node of a root by instance id (index.gen)
//	GET /metrics                  Prometheus exposition
//
// Handlers only read the snapshot published after each tick, so the
// server may run on any goroutine alongside the frame loop.
package inspect

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	fiber "github.com/pmndrs/react-three-fiber-sub004"
)

// Source publishes snapshots. *fiber.Runtime implements it.
type Source interface {
	Snapshot() *fiber.Snapshot
}

// Server is the inspector HTTP handler.
type Server struct {
	src      Source
	router   chi.Router
	registry *prometheus.Registry
	metrics  *Metrics
	logger   *log.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRegistry registers the metrics on reg instead of a private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// New creates an inspector over src.
func New(src Source, opts ...Option) *Server {
	s := &Server{src: src}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	if s.logger == nil {
		s.logger = log.Default().WithPrefix("inspect")
	}
	s.metrics = NewMetrics(s.registry)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get("/snapshot", s.handleSnapshot)
	r.Route("/roots/{id}", func(r chi.Router) {
		r.Get("/", s.handleRoot)
		r.Get("/nodes/{node}", s.handleNode)
	})
	r.Get("/metrics", s.handleMetrics)
	s.router = r
	return s
}

// Attach refreshes the metrics after every tick of rt.
func (s *Server) Attach(rt *fiber.Runtime) {
	rt.Scheduler.AfterFrame(func() { s.metrics.Observe(rt.Snapshot()) })
}

// Metrics returns the collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status())
	})
}

func (s *Server) snapshot(w http.ResponseWriter) (*fiber.Snapshot, bool) {
	snap := s.src.Snapshot()
	if snap == nil {
		http.Error(w, "no snapshot yet", http.StatusServiceUnavailable)
		return nil, false
	}
	return snap, true
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap, ok := s.snapshot(w)
	if !ok {
		return
	}
	s.writeJSON(w, snap)
}

func (s *Server) findRoot(w http.ResponseWriter, r *http.Request) (*fiber.RootSnapshot, bool) {
	snap, ok := s.snapshot(w)
	if !ok {
		return nil, false
	}
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		http.Error(w, "bad root id", http.StatusBadRequest)
		return nil, false
	}
	for i := range snap.Roots {
		if uint64(snap.Roots[i].ID) == id {
			return &snap.Roots[i], true
		}
	}
	http.Error(w, "root not found", http.StatusNotFound)
	return nil, false
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	root, ok := s.findRoot(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, root)
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	root, ok := s.findRoot(w, r)
	if !ok {
		return
	}
	// Node ids print as "#index.gen"; the hash is optional in the URL.
	want := strings.TrimPrefix(chi.URLParam(r, "node"), "#")
	for _, n := range root.Nodes {
		if strings.TrimPrefix(n.ID, "#") == want {
			s.writeJSON(w, n)
			return
		}
	}
	http.Error(w, "node not found", http.StatusNotFound)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.metrics.Observe(s.src.Snapshot())
	promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.logger.Warn("encode response", "err", err)
	}
}
