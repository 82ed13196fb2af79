package session

import (
	"sync"

	"github.com/reflecta/backend/internal/errors"
)

// pipeTube is an in-memory Tube half, used to wire two sessions together
// without a network. Frames written to one half arrive on the other in
// FIFO order, mirroring the websocket tube's delivery guarantee.
type pipeTube struct {
	mu     sync.Mutex
	closed bool
	out    chan<- []byte
	in     <-chan []byte
}

// Pipe returns two connected in-memory tubes.
func Pipe() (Tube, Tube) {
	ab := make(chan []byte, 256)
	ba := make(chan []byte, 256)
	a := &pipeTube{out: ab, in: ba}
	b := &pipeTube{out: ba, in: ab}
	return a, b
}

func (t *pipeTube) Broadcast(frame []byte) error {
	data := make([]byte, len(frame))
	copy(data, frame)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return errors.New(errors.ErrSessionClosed, "tube closed")
	}
	// A full buffer drops the frame, matching the network tube's
	// at-most-effort delivery.
	select {
	case t.out <- data:
	default:
	}
	return nil
}

func (t *pipeTube) Inbound() <-chan []byte { return t.in }

func (t *pipeTube) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.out)
	}
	return nil
}
