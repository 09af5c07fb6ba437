package types

// PixelBuffer is a decoded camera image in row-major RGB byte layout.
type PixelBuffer struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// TelemetryFrame is one simulator snapshot: the camera image plus the
// vehicle state at the moment it was captured.
type TelemetryFrame struct {
	SteeringAngle float64
	Throttle      float64
	Speed         float64
	Image         PixelBuffer
}

// ControlCommand is the steering/throttle pair sent back to the simulator.
type ControlCommand struct {
	SteeringAngle float64
	Throttle      float64
}
