package simulator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sim-bridge-go/internal/telemetry"
)

func TestBuildPayloadDecodes(t *testing.T) {
	payload, err := BuildPayload(42, -0.3, 0.25, 1.8)
	require.NoError(t, err)

	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	frame, err := telemetry.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, -0.3, frame.SteeringAngle)
	assert.Equal(t, 0.25, frame.Throttle)
	assert.Equal(t, 1.8, frame.Speed)
	assert.Equal(t, imageWidth, frame.Image.Width)
	assert.Equal(t, imageHeight, frame.Image.Height)
}

func TestCarStateTick(t *testing.T) {
	car := &carState{}
	car.apply(0.1, 1.0)

	_, _, speed := car.tick()
	assert.Greater(t, speed, 0.0)

	car.apply(0.1, 0.0)
	for i := 0; i < 200; i++ {
		car.tick()
	}
	_, _, speed = car.tick()
	assert.Less(t, speed, 0.05)
	assert.GreaterOrEqual(t, speed, 0.0)
}
