package pilot

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sim-bridge-go/internal/types"
)

func TestRequestEncoding(t *testing.T) {
	img := types.PixelBuffer{
		Width:    2,
		Height:   2,
		Channels: 3,
		Pix:      []uint8{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
	}

	raw, err := encodeRequest(img)
	require.NoError(t, err)

	var request predictRequest
	require.NoError(t, cbor.Unmarshal(raw, &request))
	assert.Equal(t, 2, request.Width)
	assert.Equal(t, 2, request.Height)
	assert.Equal(t, 3, request.Channels)
	assert.Equal(t, img.Pix, []uint8(request.Pix))
}

func TestRequestEncodingRejectsBadShape(t *testing.T) {
	img := types.PixelBuffer{Width: 4, Height: 4, Channels: 3, Pix: []uint8{1, 2, 3}}
	_, err := encodeRequest(img)
	require.Error(t, err)
}

func TestReplyDecoding(t *testing.T) {
	raw, err := cbor.Marshal(predictReply{Steering: -0.4, Throttle: 0.85})
	require.NoError(t, err)

	steering, throttle, err := decodeReply(raw)
	require.NoError(t, err)
	assert.Equal(t, -0.4, steering)
	assert.Equal(t, 0.85, throttle)
}

func TestReplyDecodingBackendError(t *testing.T) {
	raw, err := cbor.Marshal(predictReply{Error: "input shape mismatch"})
	require.NoError(t, err)

	_, _, err = decodeReply(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input shape mismatch")
}

func TestReplyDecodingGarbage(t *testing.T) {
	_, _, err := decodeReply([]byte{0xff, 0x00, 0x13})
	require.Error(t, err)
}

func TestStaticPilot(t *testing.T) {
	p := Static{Steering: 0.1, Throttle: 0.5}
	img := types.PixelBuffer{Width: 1, Height: 1, Channels: 3, Pix: []uint8{0, 0, 0}}

	assert.Equal(t, img, p.Preprocess(img))
	steering, throttle, err := p.Predict(img)
	require.NoError(t, err)
	assert.Equal(t, 0.1, steering)
	assert.Equal(t, 0.5, throttle)
}

type cropFilter struct{}

func (cropFilter) Run(img types.PixelBuffer) types.PixelBuffer {
	half := img.Height / 2
	return types.PixelBuffer{
		Width:    img.Width,
		Height:   half,
		Channels: img.Channels,
		Pix:      img.Pix[:img.Width*half*img.Channels],
	}
}

func TestStaticPilotFilter(t *testing.T) {
	p := Static{Filter: cropFilter{}}
	img := types.PixelBuffer{Width: 2, Height: 2, Channels: 1, Pix: []uint8{9, 9, 1, 1}}

	out := p.Preprocess(img)
	assert.Equal(t, 1, out.Height)
	assert.Equal(t, []uint8{9, 9}, out.Pix)
}
