// Package server serves the animation views over HTTP: JSON snapshots,
// playback control, a websocket frame stream and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/signalsfoundry/ospf-animator/internal/logging"
	"github.com/signalsfoundry/ospf-animator/internal/observability"
	sim "github.com/signalsfoundry/ospf-animator/internal/sim/state"
)

// Server is the animator's HTTP front end.
type Server struct {
	httpServer *http.Server
	state      *sim.PlaybackState
	hub        *Hub
	log        logging.Logger
	metrics    http.Handler
	control    *observability.ControlCollector
	mux        *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(log logging.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithControlMetrics records API requests in c.
func WithControlMetrics(c *observability.ControlCollector) Option {
	return func(s *Server) {
		s.control = c
	}
}

// New creates a server for state and subscribes its websocket hub to
// state's frames.
func New(addr string, state *sim.PlaybackState, opts ...Option) *Server {
	s := &Server{
		state: state,
		log:   logging.Noop(),
		mux:   http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(s.log)
	state.OnFrame(s.hub.Broadcast)

	s.routes()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           RequestLogging(s.mux, s.log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Hub returns the websocket hub that receives every frame.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /api/views", s.control.InstrumentHTTP("ListViews", http.HandlerFunc(s.handleListViews)))
	s.mux.Handle("GET /api/views/{view}", s.control.InstrumentHTTP("GetState", http.HandlerFunc(s.handleGetView)))
	s.mux.Handle("POST /api/views/{view}/{action}", s.control.InstrumentHTTP("Action", http.HandlerFunc(s.handleAction)))
	s.mux.HandleFunc("GET /ws", s.hub.HandleWebSocket)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "ospf-animator",
		"status":  "running",
		"views":   s.state.Views(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListViews returns every view's snapshot in registration order.
func (s *Server) handleListViews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Snapshots())
}

func (s *Server) handleGetView(w http.ResponseWriter, r *http.Request) {
	snap, err := s.state.Snapshot(r.PathValue("view"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleAction applies a playback action.
// Path: /api/views/{view}/{play|pause|reset|step|speed}; speed takes
// ?percent=N.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	view := r.PathValue("view")
	name := r.PathValue("action")

	if name == "speed" {
		raw := r.URL.Query().Get("percent")
		percent, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "percent must be an integer"})
			return
		}
		snap, err := s.state.SetSpeed(ctx, view, percent)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
		return
	}

	action, err := sim.ParseAction(name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.state.Apply(ctx, view, action)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, sim.ErrUnknownView):
		status = http.StatusNotFound
	case errors.Is(err, sim.ErrUnknownAction), errors.Is(err, sim.ErrInvalidSpeed):
		status = http.StatusBadRequest
	default:
		s.log.Error(r.Context(), "request failed",
			logging.String("path", r.URL.Path),
			logging.Err(err),
		)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Start begins listening. It blocks until the server is shut down.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.StartOnListener(ln)
}

// StartOnListener begins serving on the provided listener.
func (s *Server) StartOnListener(ln net.Listener) error {
	s.log.Info(context.Background(), "http server listening",
		logging.String("addr", ln.Addr().String()),
	)
	return s.httpServer.Serve(ln)
}

// Shutdown closes websocket clients and gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}
