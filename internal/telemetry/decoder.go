package telemetry

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"strconv"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"sim-bridge-go/internal/types"
)

// DecodeError marks a malformed telemetry payload. The frame it belongs to
// is dropped; the session carries on.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("telemetry decode: %v", e.Err)
	}
	return fmt.Sprintf("telemetry decode: field %q: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// The simulator sends scalars either as JSON numbers or as decimal strings,
// depending on its build. The schema admits both.
const payloadSchema = `{
	"type": "object",
	"required": ["steering_angle", "throttle", "speed", "image"],
	"properties": {
		"steering_angle": {"$ref": "#/$defs/scalar"},
		"throttle": {"$ref": "#/$defs/scalar"},
		"speed": {"$ref": "#/$defs/scalar"},
		"image": {"type": "string"}
	},
	"$defs": {
		"scalar": {
			"anyOf": [
				{"type": "number"},
				{"type": "string", "pattern": "^-?[0-9]*\\.?[0-9]+([eE][-+]?[0-9]+)?$"}
			]
		}
	}
}`

var schema = jsonschema.MustCompileString("telemetry.json", payloadSchema)

// Decode turns a raw telemetry event payload into a TelemetryFrame. The
// image field is a base64-encoded raster image (JPEG from the Unity
// simulator, PNG/GIF accepted too); it is expanded into an RGB pixel
// buffer. Any structural or decode failure returns a *DecodeError.
func Decode(raw []byte) (types.TelemetryFrame, error) {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return types.TelemetryFrame{}, &DecodeError{Err: err}
	}
	if err := schema.Validate(payload); err != nil {
		return types.TelemetryFrame{}, &DecodeError{Err: err}
	}

	fields := payload.(map[string]any)

	var frame types.TelemetryFrame
	var err error
	if frame.SteeringAngle, err = toFloat(fields["steering_angle"]); err != nil {
		return types.TelemetryFrame{}, &DecodeError{Field: "steering_angle", Err: err}
	}
	if frame.Throttle, err = toFloat(fields["throttle"]); err != nil {
		return types.TelemetryFrame{}, &DecodeError{Field: "throttle", Err: err}
	}
	if frame.Speed, err = toFloat(fields["speed"]); err != nil {
		return types.TelemetryFrame{}, &DecodeError{Field: "speed", Err: err}
	}

	encoded, _ := fields["image"].(string)
	imageBytes, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return types.TelemetryFrame{}, &DecodeError{Field: "image", Err: err}
	}
	frame.Image, err = decodeImage(imageBytes)
	if err != nil {
		return types.TelemetryFrame{}, &DecodeError{Field: "image", Err: err}
	}
	return frame, nil
}

func decodeImage(data []byte) (types.PixelBuffer, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return types.PixelBuffer{}, err
	}

	bounds := img.Bounds()
	buf := types.PixelBuffer{
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Channels: 3,
	}
	buf.Pix = make([]uint8, 0, buf.Width*buf.Height*buf.Channels)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			buf.Pix = append(buf.Pix, uint8(r>>8), uint8(g>>8), uint8(b>>8))
		}
	}
	return buf, nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case string:
		return strconv.ParseFloat(n, 64)
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("unsupported scalar type %T", v)
	}
}
