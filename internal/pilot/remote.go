package pilot

import (
	"sync"
	"time"

	"github.com/pebbe/zmq4"

	"sim-bridge-go/internal/types"
)

// Remote calls a model server over a ZMQ REQ socket. REQ enforces one
// request in flight; the mutex serializes sessions onto it. Sessions
// therefore queue on the backend instead of overlapping it, which is the
// backpressure the bridge wants anyway.
type Remote struct {
	mu     sync.Mutex
	socket *zmq4.Socket
	filter Filter
}

func NewRemote(endpoint string, timeout time.Duration, filter Filter) (*Remote, error) {
	socket, err := zmq4.NewSocket(zmq4.REQ)
	if err != nil {
		return nil, err
	}
	if err := socket.SetSndtimeo(timeout); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.SetRcvtimeo(timeout); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.SetLinger(0); err != nil {
		_ = socket.Close()
		return nil, err
	}
	// A timed-out REQ is stuck mid send/recv cycle; relaxed+correlate lets
	// the next request reopen the conversation instead of erroring forever.
	if err := socket.SetReqRelaxed(1); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.SetReqCorrelate(1); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.Connect(endpoint); err != nil {
		_ = socket.Close()
		return nil, err
	}
	return &Remote{socket: socket, filter: filter}, nil
}

func (r *Remote) Preprocess(img types.PixelBuffer) types.PixelBuffer {
	if r.filter == nil {
		return img
	}
	return r.filter.Run(img)
}

func (r *Remote) Predict(img types.PixelBuffer) (float64, float64, error) {
	request, err := encodeRequest(img)
	if err != nil {
		return 0, 0, &PredictionError{Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.socket.SendBytes(request, 0); err != nil {
		return 0, 0, &PredictionError{Err: err}
	}
	reply, err := r.socket.RecvBytes(0)
	if err != nil {
		return 0, 0, &PredictionError{Err: err}
	}
	steering, throttle, err := decodeReply(reply)
	if err != nil {
		return 0, 0, &PredictionError{Err: err}
	}
	return steering, throttle, nil
}

func (r *Remote) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.socket.Close()
}
