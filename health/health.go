// Package health serves the tracker's liveness probe: a single JSON
// status document backed by a TTL cache the worker touches on every
// heartbeat.
package health

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jellydator/ttlcache/v3"

	"github.com/rotblauer/trackd/common"
)

// statsHistorySize bounds how many past tick-stats snapshots the status
// report keeps, so long-running processes don't grow the response forever.
const statsHistorySize = 10

// heartbeatTTL is the window after which a missing heartbeat is
// considered stale (§6: "healthy is true iff ... the last heartbeat is
// less than 30 seconds old").
const heartbeatTTL = 30 * time.Second

const heartbeatKey = "heartbeat"

// ServiceName and Version identify this build in the status report.
const ServiceName = "trackd"

var Version = "dev"

// Server serves the health probe endpoint on any path.
type Server struct {
	cache     *ttlcache.Cache[string, time.Time]
	startedAt time.Time
	logger    *slog.Logger
	addr      string

	workerRunning func() bool
	trackStats    func() map[string]any
	statsHistory  *common.RingBuffer[map[string]any]
}

// OnStats registers a callback whose result is embedded as
// details.trackManager on every status response. Wired by the cmd layer
// to trackmgr.Manager.Stats(), kept generic here so health has no
// compile-time dependency on the trackmgr package.
func (s *Server) OnStats(fn func() map[string]any) {
	s.trackStats = fn
}

// New creates a Server listening on port. workerRunning reports whether
// the worker's goroutine is still alive; it is consulted alongside the
// heartbeat TTL to compute "healthy".
func New(port int, workerRunning func() bool) *Server {
	cache := ttlcache.New[string, time.Time](
		ttlcache.WithTTL[string, time.Time](heartbeatTTL),
	)
	go cache.Start()

	return &Server{
		cache:         cache,
		startedAt:     time.Now(),
		logger:        slog.With("component", "health"),
		addr:          fmt.Sprintf(":%d", port),
		workerRunning: workerRunning,
		statsHistory:  common.NewRingBuffer[map[string]any](statsHistorySize),
	}
}

// RecordStats appends one tick-stats snapshot to the rolling history shown
// in the status report's details.recentStats. Call alongside Touch from
// the worker's heartbeat callback.
func (s *Server) RecordStats(snapshot map[string]any) {
	s.statsHistory.Add(snapshot)
}

// Touch records a heartbeat at t. The worker calls this once per tick via
// worker.Worker.OnHeartbeat.
func (s *Server) Touch(t time.Time) {
	s.cache.Set(heartbeatKey, t, ttlcache.DefaultTTL)
}

// secondsSinceHeartbeat returns seconds since the last recorded
// heartbeat, or -1 if none has been recorded or it has expired.
func (s *Server) secondsSinceHeartbeat() float64 {
	item := s.cache.Get(heartbeatKey)
	if item == nil {
		return -1
	}
	return time.Since(item.Value()).Seconds()
}

type statusDetails struct {
	WorkerRunning    bool             `json:"workerRunning"`
	SecondsSinceBeat float64          `json:"secondsSinceHeartbeat"`
	TrackManager     map[string]any   `json:"trackManager,omitempty"`
	RecentStats      []map[string]any `json:"recentStats,omitempty"`
}

type statusReport struct {
	ServiceName string        `json:"serviceName"`
	Version     string        `json:"version"`
	Timestamp   time.Time     `json:"timestamp"`
	Healthy     bool          `json:"healthy"`
	Details     statusDetails `json:"details"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	secondsSince := s.secondsSinceHeartbeat()
	running := s.workerRunning == nil || s.workerRunning()
	healthy := running && secondsSince >= 0 && secondsSince < heartbeatTTL.Seconds()

	details := statusDetails{
		WorkerRunning:    running,
		SecondsSinceBeat: secondsSince,
	}
	if s.trackStats != nil {
		details.TrackManager = s.trackStats()
	}
	details.RecentStats = s.statsHistory.Get()

	report := statusReport{
		ServiceName: ServiceName,
		Version:     Version,
		Timestamp:   time.Now().UTC(),
		Healthy:     healthy,
		Details:     details,
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Connection", "close")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		s.logger.Error("failed to write health response", "error", err)
	}
}

// Addr returns the listen address this Server was configured with.
func (s *Server) Addr() string { return s.addr }

// Router builds a mux.Router serving the status report on any path. Use
// NewRouterWithRoutes instead when other handlers (e.g. a websocket
// upgrade endpoint) need to be registered ahead of the status catch-all.
func (s *Server) Router() *mux.Router {
	return s.NewRouterWithRoutes(nil)
}

// NewRouterWithRoutes builds a mux.Router with register invoked before
// the status catch-all is attached, so callers can mount more specific
// routes without them being shadowed.
func (s *Server) NewRouterWithRoutes(register func(*mux.Router)) *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware)
	if register != nil {
		register(router)
	}
	router.PathPrefix("/").HandlerFunc(s.handleStatus)
	return router
}

// ListenAndServe starts the HTTP server and blocks until it exits.
func (s *Server) ListenAndServe() error {
	s.logger.Info("starting health probe", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.Router())
}

// Close stops the underlying TTL cache's eviction loop.
func (s *Server) Close() {
	s.cache.Stop()
}

func loggingMiddleware(next http.Handler) http.Handler {
	return ghandlers.CombinedLoggingHandler(logWriter{}, next)
}

// logWriter adapts slog to the io.Writer gorilla/handlers expects for its
// access-log formatters.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	slog.Info("http access", "line", string(p))
	return len(p), nil
}
