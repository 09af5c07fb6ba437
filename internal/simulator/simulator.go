package simulator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"log"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sim-bridge-go/internal/types"
)

// Debug-mode stand-in for the Unity simulator: dials the bridge, streams
// synthetic telemetry frames, and steers by whatever control commands come
// back. Lets the full control loop run without the real simulator.

const (
	imageWidth  = 160
	imageHeight = 120
	maxSpeed    = 8.0
)

type carState struct {
	mu       sync.Mutex
	steering float64
	throttle float64
	speed    float64
}

func (c *carState) apply(steering, throttle float64) {
	c.mu.Lock()
	c.steering = steering
	c.throttle = throttle
	c.mu.Unlock()
}

// tick advances the toy physics one frame and returns the new state.
func (c *carState) tick() (steering, throttle, speed float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speed += (c.throttle*maxSpeed - c.speed) * 0.1
	if c.speed < 0 {
		c.speed = 0
	}
	return c.steering, c.throttle, c.speed
}

// Run drives a synthetic car against the bridge at the given frame rate
// until ctx is cancelled.
func Run(ctx context.Context, url string, rate float64) error {
	if rate <= 0 {
		rate = 20.0
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	car := &carState{}

	go func() {
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var envelope types.Envelope
			if err := json.Unmarshal(payload, &envelope); err != nil {
				continue
			}
			if envelope.Event != types.EventSteer {
				continue
			}
			var control map[string]string
			if err := json.Unmarshal(envelope.Data, &control); err != nil {
				continue
			}
			steering, err := strconv.ParseFloat(control["steering_angle"], 64)
			if err != nil {
				continue
			}
			throttle, err := strconv.ParseFloat(control["throttle"], 64)
			if err != nil {
				continue
			}
			car.apply(steering, throttle)
		}
	}()

	ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer ticker.Stop()

	frameID := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			steering, throttle, speed := car.tick()
			payload, err := BuildPayload(frameID, steering, throttle, speed)
			if err != nil {
				log.Printf("simulator frame %d: %v", frameID, err)
				continue
			}
			data, err := json.Marshal(payload)
			if err != nil {
				continue
			}
			message, err := json.Marshal(types.Envelope{Event: types.EventTelemetry, Data: data})
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return err
			}
			frameID++
		}
	}
}

// BuildPayload renders one synthetic telemetry payload: a JPEG road scene
// whose lane position follows the steering angle, plus the scalar state in
// the decimal-string form the Unity simulator uses.
func BuildPayload(frameID int, steering, throttle, speed float64) (map[string]string, error) {
	img := image.NewRGBA(image.Rect(0, 0, imageWidth, imageHeight))
	horizon := imageHeight / 3
	laneCenter := float64(imageWidth)/2 + steering*float64(imageWidth)/4 +
		10*math.Sin(float64(frameID)/30)

	for y := 0; y < imageHeight; y++ {
		for x := 0; x < imageWidth; x++ {
			var pixel color.RGBA
			switch {
			case y < horizon:
				pixel = color.RGBA{R: 120, G: 160, B: 220, A: 255}
			case math.Abs(float64(x)-laneCenter) < 12:
				pixel = color.RGBA{R: 210, G: 200, B: 70, A: 255}
			default:
				pixel = color.RGBA{R: 70, G: 70, B: 70, A: 255}
			}
			img.SetRGBA(x, y, pixel)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return nil, err
	}

	return map[string]string{
		"steering_angle": strconv.FormatFloat(steering, 'f', -1, 64),
		"throttle":       strconv.FormatFloat(throttle, 'f', -1, 64),
		"speed":          strconv.FormatFloat(speed, 'f', -1, 64),
		"image":          base64.StdEncoding.EncodeToString(buf.Bytes()),
	}, nil
}
