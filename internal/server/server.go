// Package server exposes the running simulation over HTTP: snapshot
// and tap queries, a control endpoint for operator intents, and a
// websocket stream of per-tick snapshots.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/signalsfoundry/groundstation-simulator/core"
	"github.com/signalsfoundry/groundstation-simulator/internal/logging"
	"github.com/signalsfoundry/groundstation-simulator/internal/observability"
	"github.com/signalsfoundry/groundstation-simulator/timectrl"
)

// Options wires the server to its collaborators. Mu serializes engine
// access with the tick loop: every handler that reads or mutates the
// engine takes it, and the daemon holds it across each engine tick.
type Options struct {
	Engine   *core.SimulationEngine
	Mu       *sync.Mutex
	Clock    timectrl.SimClock
	Signals  func() []core.RfSignal
	Hub      *Hub
	Metrics  *observability.StationCollector
	Log      logging.Logger
	Scenario string
	Bind     string
}

// Server is the daemon's HTTP surface.
type Server struct {
	opts      Options
	mux       *http.ServeMux
	startedAt time.Time
}

// New assembles the routing table. Run (or Handler, in tests) serves it.
func New(opts Options) *Server {
	if opts.Log == nil {
		opts.Log = logging.Noop()
	}
	if opts.Mu == nil {
		opts.Mu = &sync.Mutex{}
	}

	s := &Server{
		opts:      opts,
		mux:       http.NewServeMux(),
		startedAt: time.Now(),
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/api/v1/status", s.instrument("/api/v1/status", s.handleStatus))
	s.mux.HandleFunc("/api/v1/snapshot", s.instrument("/api/v1/snapshot", s.handleSnapshot))
	s.mux.HandleFunc("/api/v1/taps", s.instrument("/api/v1/taps", s.handleTaps))
	s.mux.HandleFunc("/api/v1/control", s.instrument("/api/v1/control", s.handleControl))
	if opts.Hub != nil {
		s.mux.Handle("/ws", opts.Hub.Handler())
	}
	if opts.Metrics != nil {
		s.mux.Handle("/metrics", opts.Metrics.Handler())
	}
	return s
}

// Handler exposes the mux, primarily for httptest.
func (s *Server) Handler() http.Handler { return s.mux }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Bind,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.opts.Log.Info(ctx, "http server listening", logging.String("bind", s.opts.Bind))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// statusRecorder captures the response code for request metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next(rec, r)
		if s.opts.Metrics != nil {
			s.opts.Metrics.ObserveHTTP(route, rec.code)
		}
	}
}
