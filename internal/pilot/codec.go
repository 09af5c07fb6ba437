package pilot

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"sim-bridge-go/internal/types"
)

// Wire format between the bridge and the model server: one CBOR map per
// request, one per reply, strictly alternating on a REQ/REP socket.

type predictRequest struct {
	Width    int    `cbor:"width"`
	Height   int    `cbor:"height"`
	Channels int    `cbor:"channels"`
	Pix      []byte `cbor:"pix"`
}

type predictReply struct {
	Steering float64 `cbor:"steering"`
	Throttle float64 `cbor:"throttle"`
	Error    string  `cbor:"error,omitempty"`
}

func encodeRequest(img types.PixelBuffer) ([]byte, error) {
	if len(img.Pix) != img.Width*img.Height*img.Channels {
		return nil, fmt.Errorf("pixel buffer shape %dx%dx%d does not match %d bytes",
			img.Width, img.Height, img.Channels, len(img.Pix))
	}
	return cbor.Marshal(predictRequest{
		Width:    img.Width,
		Height:   img.Height,
		Channels: img.Channels,
		Pix:      img.Pix,
	})
}

func decodeReply(raw []byte) (float64, float64, error) {
	var reply predictReply
	if err := cbor.Unmarshal(raw, &reply); err != nil {
		return 0, 0, err
	}
	if reply.Error != "" {
		return 0, 0, errors.New(reply.Error)
	}
	return reply.Steering, reply.Throttle, nil
}
