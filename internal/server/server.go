package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"sim-bridge-go/internal/config"
	"sim-bridge-go/internal/pilot"
	"sim-bridge-go/internal/policy"
	"sim-bridge-go/internal/types"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingEvery    = (pongWait * 9) / 10
	maxFrameSize = 8 << 20
)

// Recorder receives every raw telemetry payload before decoding.
type Recorder interface {
	Record(sid string, payload []byte) error
}

type metrics struct {
	connections     atomic.Uint64
	telemetryEvents atomic.Uint64
	framesDecoded   atomic.Uint64
	decodeFailures  atomic.Uint64
	predictFailures atomic.Uint64
	steerEvents     atomic.Uint64
	manualEvents    atomic.Uint64
	recordFailures  atomic.Uint64
}

func (m *metrics) snapshot() map[string]any {
	return map[string]any{
		"connections_total":      m.connections.Load(),
		"telemetry_events_total": m.telemetryEvents.Load(),
		"frames_decoded_total":   m.framesDecoded.Load(),
		"decode_failures_total":  m.decodeFailures.Load(),
		"predict_failures_total": m.predictFailures.Load(),
		"steer_events_total":     m.steerEvents.Load(),
		"manual_events_total":    m.manualEvents.Load(),
		"record_failures_total":  m.recordFailures.Load(),
	}
}

// Server bridges simulator telemetry to control commands: it owns every
// live session, the event dispatch table, and the decode, preprocess,
// predict, govern, emit pipeline.
type Server struct {
	upgrader websocket.Upgrader
	cfg      config.BridgeConfig
	pilot    pilot.Pilot
	policy   policy.Policy
	recorder Recorder
	statusFn func() map[string]any
	handlers map[string]func(*session, json.RawMessage)

	mu       sync.Mutex
	sessions map[*session]struct{}

	metrics     metrics
	dropCounter atomic.Uint64
}

func New(cfg config.BridgeConfig, p pilot.Pilot, pol policy.Policy, recorder Recorder, statusFn func() map[string]any) *Server {
	s := &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		cfg:      cfg,
		pilot:    p,
		policy:   pol,
		recorder: recorder,
		statusFn: statusFn,
		sessions: make(map[*session]struct{}),
	}
	s.handlers = map[string]func(*session, json.RawMessage){
		types.EventTelemetry: s.onTelemetry,
	}
	return s
}

// Run serves the bridge until ctx is cancelled. A bind failure surfaces as
// the returned error; a context-driven shutdown returns nil.
func Run(ctx context.Context, cfg config.BridgeConfig, p pilot.Pilot, pol policy.Policy, recorder Recorder, statusFn func() map[string]any) error {
	srv := New(cfg, p, pol, recorder, statusFn)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	payload := map[string]any{}
	if s.statusFn != nil {
		payload = s.statusFn()
	}
	payload["metrics"] = s.metrics.snapshot()
	payload["sessions"] = s.sessionCount()
	_ = json.NewEncoder(w).Encode(payload)
}

// MetricsSnapshot exposes the counters for the periodic stats log line.
func (s *Server) MetricsSnapshot() map[string]any {
	return s.metrics.snapshot()
}

func (s *Server) sessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Server) addSession(sess *session) {
	s.mu.Lock()
	s.sessions[sess] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) removeSession(sess *session) {
	s.mu.Lock()
	_, live := s.sessions[sess]
	delete(s.sessions, sess)
	s.mu.Unlock()
	sess.close()
	if live {
		logf("disconnect %s", sess.id)
	}
}

// othersOf snapshots every live session except the given one, so broadcast
// writes happen without holding the session lock.
func (s *Server) othersOf(sender *session) []*session {
	s.mu.Lock()
	defer s.mu.Unlock()
	others := make([]*session, 0, len(s.sessions))
	for sess := range s.sessions {
		if sess != sender {
			others = append(others, sess)
		}
	}
	return others
}
