package session

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reflecta/backend/internal/errors"
	"github.com/reflecta/backend/internal/logging"
)

// ClientTube is a joiner's side of the tube: a single websocket connection
// to the initiator's hub. Implements Tube.
type ClientTube struct {
	conn      *websocket.Conn
	send      chan []byte
	inbound   chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to an initiator's hub at url (ws://host:port/ws).
func Dial(url string) (*ClientTube, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrTubeFailed, "cannot reach the shared channel", err)
	}

	t := &ClientTube{
		conn:    conn,
		send:    make(chan []byte, 256),
		inbound: make(chan []byte, 256),
		done:    make(chan struct{}),
	}
	go t.readPump()
	go t.writePump()
	return t, nil
}

// Broadcast sends a frame toward the hub, which relays it to every other
// participant.
func (t *ClientTube) Broadcast(frame []byte) error {
	select {
	case t.send <- frame:
		return nil
	case <-t.done:
		return errors.New(errors.ErrSessionClosed, "tube closed")
	}
}

// Inbound yields frames from the other participants.
func (t *ClientTube) Inbound() <-chan []byte { return t.inbound }

// Close tears the connection down.
func (t *ClientTube) Close() error {
	t.closeOnce.Do(func() { close(t.done) })
	return t.conn.Close()
}

func (t *ClientTube) readPump() {
	defer func() {
		t.Close()
		close(t.inbound)
	}()

	t.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	t.conn.SetPongHandler(func(string) error {
		t.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, frame, err := t.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn("tube read error",
					map[string]interface{}{"error": err.Error()})
			}
			return
		}
		data := make([]byte, len(frame))
		copy(data, frame)
		select {
		case t.inbound <- data:
		case <-t.done:
			return
		}
	}
}

func (t *ClientTube) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		t.conn.Close()
	}()

	for {
		select {
		case frame := <-t.send:
			t.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := t.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			t.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-t.done:
			t.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
