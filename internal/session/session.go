// Package session establishes the one shared channel ("tube") used by all
// participants of a sharing session and serializes everything that touches
// the reflection store onto a single loop goroutine.
package session

import (
	"github.com/reflecta/backend/internal/errors"
	"github.com/reflecta/backend/internal/logging"
	"github.com/reflecta/backend/internal/objid"
)

// Role classifies the local participant. Exactly one participant per
// session is the initiator; the role is fixed for the session's lifetime.
type Role string

const (
	RoleInitiator Role = "initiator"
	RoleJoiner    Role = "joiner"
)

// State is the session's channel state. Connected is terminal: there is no
// reconnect, and losing the channel is fatal to sharing (local mode stays
// usable).
type State string

const (
	StateIdle            State = "idle"
	StateAnnouncing      State = "announcing"
	StateAwaitingChannel State = "awaiting_channel"
	StateConnected       State = "connected"
)

// Tube is the shared logical channel. Frames are delivered in FIFO order
// per connection; no cross-participant total order is guaranteed.
type Tube interface {
	// Broadcast sends a frame to every other participant.
	Broadcast(frame []byte) error
	// Inbound yields frames sent by other participants.
	Inbound() <-chan []byte
	// Close tears the channel down.
	Close() error
}

// Session owns the tube and the event loop. All inbound frames and all
// local operations scheduled with Do run on the same goroutine, so store
// mutations never race.
type Session struct {
	id    string
	role  Role
	state State
	tube  Tube

	ops    chan func()
	closed chan struct{}
}

// New creates an idle session.
func New() *Session {
	return &Session{
		id:     objid.NewSessionID(),
		state:  StateIdle,
		ops:    make(chan func(), 64),
		closed: make(chan struct{}),
	}
}

// ID returns the local participant id.
func (s *Session) ID() string { return s.id }

// Role returns the local participant's role. Meaningful once connected.
func (s *Session) Role() Role { return s.role }

// State returns the current channel state.
func (s *Session) State() State { return s.state }

// Connected reports whether the tube is attached.
func (s *Session) Connected() bool { return s.state == StateConnected }

// Announce attaches a tube this participant offers to others, making it
// the initiator.
func (s *Session) Announce(tube Tube) error {
	if s.state != StateIdle {
		return errors.New(errors.ErrSessionState, "session already started")
	}
	s.role = RoleInitiator
	s.state = StateAnnouncing
	return s.attach(tube)
}

// Await attaches a tube discovered from another participant, making this
// participant a joiner.
func (s *Session) Await(tube Tube) error {
	if s.state != StateIdle {
		return errors.New(errors.ErrSessionState, "session already started")
	}
	s.role = RoleJoiner
	s.state = StateAwaitingChannel
	return s.attach(tube)
}

func (s *Session) attach(tube Tube) error {
	if tube == nil {
		return errors.New(errors.ErrTubeFailed, "no channel")
	}
	s.tube = tube
	s.state = StateConnected
	logging.Info("session connected",
		map[string]interface{}{"role": string(s.role), "session": s.id})
	return nil
}

// Start runs the event loop. Every inbound frame is handed to handler on
// the loop goroutine; handler must not block on the session itself.
func (s *Session) Start(handler func(frame []byte)) error {
	if s.state != StateConnected {
		return errors.New(errors.ErrSessionState, "session not connected")
	}
	go s.run(handler)
	return nil
}

func (s *Session) run(handler func(frame []byte)) {
	inbound := s.tube.Inbound()
	for {
		select {
		case frame, ok := <-inbound:
			if !ok {
				// channel loss is fatal to sharing for this session
				logging.Warn("tube closed, sharing ended",
					map[string]interface{}{"session": s.id})
				s.shutdown()
				return
			}
			handler(frame)
		case op := <-s.ops:
			op()
		case <-s.closed:
			return
		}
	}
}

// Do schedules fn onto the session loop. Local mutations (UI edits,
// deferred journal import) go through here so they interleave with inbound
// events instead of racing them.
func (s *Session) Do(fn func()) {
	select {
	case s.ops <- fn:
	case <-s.closed:
	}
}

// Broadcast sends a frame to every other participant. Failures are logged
// and dropped; there is no retry and no acknowledgement.
func (s *Session) Broadcast(frame []byte) {
	if s.tube == nil {
		return
	}
	if err := s.tube.Broadcast(frame); err != nil {
		logging.Error("broadcast failed", err,
			map[string]interface{}{"session": s.id})
	}
}

// Closed is closed when the session has shut down.
func (s *Session) Closed() <-chan struct{} { return s.closed }

// Close tears the session down. The only abort path: in-flight bootstrap
// or event application is never cancelled individually.
func (s *Session) Close() {
	s.shutdown()
}

func (s *Session) shutdown() {
	select {
	case <-s.closed:
		return
	default:
	}
	close(s.closed)
	if s.tube != nil {
		_ = s.tube.Close()
	}
}
