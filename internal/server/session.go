package server

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"sim-bridge-go/internal/fps"
	"sim-bridge-go/internal/telemetry"
	"sim-bridge-go/internal/types"
)

var logf = log.Printf

// session is the per-connection state. It is owned by its read loop
// goroutine; only the write mutex is shared, for broadcasts arriving from
// other sessions.
type session struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
	tracker *fps.Tracker
}

func (sess *session) writeEvent(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	message, err := json.Marshal(types.Envelope{Event: event, Data: raw})
	if err != nil {
		return err
	}
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return sess.conn.WriteMessage(websocket.TextMessage, message)
}

func (sess *session) writeControl(message int, payload []byte) error {
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return sess.conn.WriteMessage(message, payload)
}

func (sess *session) close() {
	_ = sess.conn.Close()
}

// handleWS is the connect event: upgrade, register the session, and send
// the neutral control command before any telemetry is read.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	sess := &session{
		id:      uuid.NewString(),
		conn:    conn,
		tracker: fps.New(),
	}
	s.addSession(sess)
	s.metrics.connections.Add(1)
	logf("connect %s from %s", sess.id, r.RemoteAddr)

	sess.tracker.Reset()
	if err := s.sendControl(sess, 0, 0); err != nil {
		s.removeSession(sess)
		return
	}

	go s.readLoop(sess)
}

// readLoop processes one connection. Frames are handled inline, so a new
// telemetry event is not read until the previous frame's control command
// went out: in-order processing with at most one frame in flight, and a
// slow backend throttles only its own simulator.
func (s *Server) readLoop(sess *session) {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingEvery)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := sess.writeControl(websocket.PingMessage, nil); err != nil {
					sess.close()
					return
				}
			}
		}
	}()
	defer close(done)
	defer s.removeSession(sess)

	for {
		messageType, payload, err := sess.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		var envelope types.Envelope
		if err := json.Unmarshal(payload, &envelope); err != nil {
			continue
		}
		handler, ok := s.handlers[envelope.Event]
		if !ok {
			continue
		}
		handler(sess, envelope.Data)
	}
}

// onTelemetry runs one frame through the pipeline. Decode and prediction
// failures drop the frame and nothing else; the session stays connected.
func (s *Server) onTelemetry(sess *session, data json.RawMessage) {
	s.metrics.telemetryEvents.Add(1)

	if s.recorder != nil {
		if err := s.recorder.Record(sess.id, data); err != nil {
			s.metrics.recordFailures.Add(1)
			logf("telemetry record failed: %v", err)
		}
	}

	if emptyPayload(data) {
		// Manual mode: relay to the observers, never back to the sender,
		// and keep the pipeline out of it.
		s.broadcastManual(sess)
		sess.tracker.OnFrame()
		return
	}

	frame, err := telemetry.Decode(data)
	if err != nil {
		s.metrics.decodeFailures.Add(1)
		s.logDropped("frame dropped: %v", err)
		return
	}
	s.metrics.framesDecoded.Add(1)

	img := s.pilot.Preprocess(frame.Image)
	steering, proposed, err := s.pilot.Predict(img)
	if err != nil {
		s.metrics.predictFailures.Add(1)
		s.logDropped("frame dropped: %v", err)
		return
	}

	throttle := s.policy.GovernThrottle(frame.SteeringAngle, frame.Throttle, frame.Speed, proposed)
	steering *= s.cfg.SteeringScale

	if err := s.sendControl(sess, steering, throttle); err != nil {
		return
	}
	sess.tracker.OnFrame()
}

func (s *Server) sendControl(sess *session, steering, throttle float64) error {
	err := sess.writeEvent(types.EventSteer, map[string]string{
		"steering_angle": floatString(steering),
		"throttle":       floatString(throttle),
	})
	if err != nil {
		return err
	}
	s.metrics.steerEvents.Add(1)
	return nil
}

func (s *Server) broadcastManual(sender *session) {
	s.metrics.manualEvents.Add(1)
	var stale []*session
	for _, other := range s.othersOf(sender) {
		if err := other.writeEvent(types.EventManual, map[string]any{}); err != nil {
			stale = append(stale, other)
		}
	}
	for _, other := range stale {
		s.removeSession(other)
	}
}

// logDropped rate-limits per-frame drop noise: a misbehaving simulator can
// produce hundreds of bad frames per second.
func (s *Server) logDropped(format string, args ...any) {
	every := s.cfg.DecodeLogEvery
	if every < 1 {
		every = 1
	}
	if s.dropCounter.Add(1)%uint64(every) == 1 || every == 1 {
		logf(format, args...)
	}
}

// emptyPayload reports whether the simulator sent a null or empty
// telemetry payload, its signal for manual driving mode.
func emptyPayload(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	if trimmed[0] == '{' {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err == nil && len(fields) == 0 {
			return true
		}
	}
	return false
}

// floatString renders control values the way the simulator parses them:
// shortest exact decimal form, "0" for zero.
func floatString(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
