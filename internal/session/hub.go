package session

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reflecta/backend/internal/logging"
	"github.com/reflecta/backend/internal/objid"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// shared over the local network among classroom peers
		return true
	},
}

// peer is one joiner connection held by the hub.
type peer struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// relayFrame is a frame received from a joiner, tagged with its origin so
// the hub does not echo it back.
type relayFrame struct {
	from string
	data []byte
}

// Hub is the initiator's side of the tube: it accepts joiner connections,
// relays every inbound frame to all other joiners, and surfaces those
// frames locally. Implements Tube.
type Hub struct {
	peers      map[string]*peer
	broadcast  chan []byte
	relay      chan relayFrame
	register   chan *peer
	unregister chan *peer
	inbound    chan []byte
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub creates a hub and starts its relay loop.
func NewHub() *Hub {
	hub := &Hub{
		peers:      make(map[string]*peer),
		broadcast:  make(chan []byte, 256),
		relay:      make(chan relayFrame, 256),
		register:   make(chan *peer),
		unregister: make(chan *peer),
		inbound:    make(chan []byte, 256),
		done:       make(chan struct{}),
	}
	go hub.run()
	return hub
}

// run manages joiner connections and frame relay. Peer map access is
// confined to this goroutine.
func (h *Hub) run() {
	for {
		select {
		case p := <-h.register:
			h.peers[p.id] = p
			logging.Info("joiner connected",
				map[string]interface{}{"peer": p.id, "total": len(h.peers)})

		case p := <-h.unregister:
			if _, ok := h.peers[p.id]; ok {
				delete(h.peers, p.id)
				close(p.send)
			}
			logging.Info("joiner disconnected",
				map[string]interface{}{"peer": p.id, "total": len(h.peers)})

		case frame := <-h.broadcast:
			h.fanOut("", frame)

		case rf := <-h.relay:
			h.fanOut(rf.from, rf.data)
			select {
			case h.inbound <- rf.data:
			case <-h.done:
			}

		case <-h.done:
			for id, p := range h.peers {
				close(p.send)
				delete(h.peers, id)
			}
			close(h.inbound)
			return
		}
	}
}

// fanOut delivers a frame to every joiner except the one it came from.
func (h *Hub) fanOut(from string, frame []byte) {
	for id, p := range h.peers {
		if id == from {
			continue
		}
		select {
		case p.send <- frame:
		default:
			// send buffer full, drop the connection
			close(p.send)
			delete(h.peers, id)
		}
	}
}

// Broadcast sends a locally produced frame to every joiner.
func (h *Hub) Broadcast(frame []byte) error {
	select {
	case h.broadcast <- frame:
	case <-h.done:
	}
	return nil
}

// Inbound yields frames produced by joiners.
func (h *Hub) Inbound() <-chan []byte { return h.inbound }

// Close shuts the hub down.
func (h *Hub) Close() error {
	h.closeOnce.Do(func() { close(h.done) })
	return nil
}

// readPump pumps frames from a joiner connection into the hub.
func (p *peer) readPump() {
	defer func() {
		p.hub.unregister <- p
		p.conn.Close()
	}()

	p.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	p.conn.SetPongHandler(func(string) error {
		p.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, frame, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn("tube read error",
					map[string]interface{}{"peer": p.id, "error": err.Error()})
			}
			break
		}
		data := make([]byte, len(frame))
		copy(data, frame)
		select {
		case p.hub.relay <- relayFrame{from: p.id, data: data}:
		case <-p.hub.done:
			return
		}
	}
}

// writePump pumps frames to a joiner connection, pinging it periodically.
func (p *peer) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Handler returns an http.HandlerFunc that upgrades joiner connections
// onto the hub.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logging.Error("websocket upgrade failed", err)
			return
		}

		p := &peer{
			id:   objid.NewSessionID(),
			conn: conn,
			send: make(chan []byte, 256),
			hub:  h,
		}

		h.register <- p

		go p.writePump()
		go p.readPump()
	}
}
