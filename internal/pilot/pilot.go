package pilot

import (
	"fmt"

	"sim-bridge-go/internal/types"
)

// Pilot is the boundary to the opaque prediction capability. Both calls
// are synchronous; the calling session suspends until they return. A
// Pilot is shared by every session and must tolerate concurrent calls.
type Pilot interface {
	Preprocess(img types.PixelBuffer) types.PixelBuffer
	Predict(img types.PixelBuffer) (steering, throttle float64, err error)
}

// Filter is an optional image transform applied before prediction.
type Filter interface {
	Run(img types.PixelBuffer) types.PixelBuffer
}

// PredictionError marks an inference failure, fatal to one frame only.
type PredictionError struct {
	Err error
}

func (e *PredictionError) Error() string { return fmt.Sprintf("predict: %v", e.Err) }

func (e *PredictionError) Unwrap() error { return e.Err }

// Static is a pilot with fixed outputs. It stands in for a model backend
// in debug mode and in tests.
type Static struct {
	Steering float64
	Throttle float64
	Filter   Filter
}

func (s Static) Preprocess(img types.PixelBuffer) types.PixelBuffer {
	if s.Filter == nil {
		return img
	}
	return s.Filter.Run(img)
}

func (s Static) Predict(types.PixelBuffer) (float64, float64, error) {
	return s.Steering, s.Throttle, nil
}
