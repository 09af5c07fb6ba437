package types

import "encoding/json"

// Envelope is the transport framing for one event. The simulator protocol
// is event-named JSON messages over a single websocket connection.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

const (
	// EventTelemetry carries a frame from the simulator, or a null/empty
	// payload when the driver has taken manual control.
	EventTelemetry = "telemetry"
	// EventSteer carries a control command back to one simulator.
	EventSteer = "steer"
	// EventManual notifies every other connection that a session went manual.
	EventManual = "manual"
)
