// Package session tests for the state machine, the loop, and the pipe tube.
package session

import (
	"fmt"
	"testing"
	"time"

	apperrors "github.com/reflecta/backend/internal/errors"
)

// =====================================================
// State Machine Tests
// =====================================================

// TestNew verifies a fresh session is idle with no role.
func TestNew(t *testing.T) {
	s := New()
	if s.State() != StateIdle {
		t.Errorf("state = %s, want %s", s.State(), StateIdle)
	}
	if s.ID() == "" {
		t.Error("session id empty")
	}
	if s.Connected() {
		t.Error("idle session reports connected")
	}
}

// TestAnnounce verifies the initiator path.
func TestAnnounce(t *testing.T) {
	s := New()
	a, _ := Pipe()

	if err := s.Announce(a); err != nil {
		t.Fatalf("Announce failed: %v", err)
	}
	if s.Role() != RoleInitiator {
		t.Errorf("role = %s, want %s", s.Role(), RoleInitiator)
	}
	if !s.Connected() {
		t.Error("announced session not connected")
	}
}

// TestAwait verifies the joiner path.
func TestAwait(t *testing.T) {
	s := New()
	_, b := Pipe()

	if err := s.Await(b); err != nil {
		t.Fatalf("Await failed: %v", err)
	}
	if s.Role() != RoleJoiner {
		t.Errorf("role = %s, want %s", s.Role(), RoleJoiner)
	}
	if !s.Connected() {
		t.Error("awaited session not connected")
	}
}

// TestAttach_rejectsRestart verifies the role is fixed: a started session
// refuses a second tube.
func TestAttach_rejectsRestart(t *testing.T) {
	s := New()
	a, b := Pipe()
	if err := s.Announce(a); err != nil {
		t.Fatal(err)
	}
	if err := s.Announce(b); !apperrors.Is(err, apperrors.ErrSessionState) {
		t.Errorf("second Announce error = %v, want %s", err, apperrors.ErrSessionState)
	}
	if err := s.Await(b); !apperrors.Is(err, apperrors.ErrSessionState) {
		t.Errorf("Await after Announce error = %v, want %s", err, apperrors.ErrSessionState)
	}
}

// TestAttach_nilTube verifies attaching nothing fails.
func TestAttach_nilTube(t *testing.T) {
	s := New()
	if err := s.Announce(nil); !apperrors.Is(err, apperrors.ErrTubeFailed) {
		t.Errorf("nil tube error = %v, want %s", err, apperrors.ErrTubeFailed)
	}
}

// TestStart_requiresConnection verifies the loop will not run detached.
func TestStart_requiresConnection(t *testing.T) {
	s := New()
	if err := s.Start(func([]byte) {}); !apperrors.Is(err, apperrors.ErrSessionState) {
		t.Errorf("Start on idle session error = %v, want %s", err, apperrors.ErrSessionState)
	}
}

// =====================================================
// Loop Tests
// =====================================================

// TestLoop_deliversInbound verifies frames sent by the peer reach the
// handler in order.
func TestLoop_deliversInbound(t *testing.T) {
	s := New()
	a, b := Pipe()
	if err := s.Await(b); err != nil {
		t.Fatal(err)
	}

	got := make(chan string, 3)
	if err := s.Start(func(frame []byte) { got <- string(frame) }); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := a.Broadcast([]byte(fmt.Sprintf("frame-%d", i))); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 3; i++ {
		select {
		case f := <-got:
			if want := fmt.Sprintf("frame-%d", i); f != want {
				t.Errorf("frame %d = %q, want %q", i, f, want)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("handler never saw the frame")
		}
	}
	s.Close()
}

// TestDo_runsOnLoop verifies scheduled operations interleave with inbound
// frames on one goroutine.
func TestDo_runsOnLoop(t *testing.T) {
	s := New()
	_, b := Pipe()
	if err := s.Await(b); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(func([]byte) {}); err != nil {
		t.Fatal(err)
	}

	ran := make(chan struct{})
	s.Do(func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled op never ran")
	}
	s.Close()
}

// TestLoop_tubeLossShutsDown verifies losing the channel ends the session.
func TestLoop_tubeLossShutsDown(t *testing.T) {
	s := New()
	a, b := Pipe()
	if err := s.Await(b); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(func([]byte) {}); err != nil {
		t.Fatal(err)
	}

	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	select {
	case <-s.Closed():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not shut down after tube loss")
	}
}

// TestClose_idempotent verifies repeated Close is safe and Do after Close
// does not block.
func TestClose_idempotent(t *testing.T) {
	s := New()
	_, b := Pipe()
	if err := s.Await(b); err != nil {
		t.Fatal(err)
	}

	s.Close()
	s.Close()

	done := make(chan struct{})
	go func() {
		s.Do(func() {})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Do blocked after Close")
	}
}

// =====================================================
// Pipe Tests
// =====================================================

// TestPipe_fifo verifies each direction delivers in FIFO order and the
// halves are independent.
func TestPipe_fifo(t *testing.T) {
	a, b := Pipe()

	if err := a.Broadcast([]byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := a.Broadcast([]byte("two")); err != nil {
		t.Fatal(err)
	}
	if err := b.Broadcast([]byte("reply")); err != nil {
		t.Fatal(err)
	}

	if f := <-b.Inbound(); string(f) != "one" {
		t.Errorf("first frame = %q", f)
	}
	if f := <-b.Inbound(); string(f) != "two" {
		t.Errorf("second frame = %q", f)
	}
	if f := <-a.Inbound(); string(f) != "reply" {
		t.Errorf("reply frame = %q", f)
	}
}

// TestPipe_copiesFrames verifies the sender's buffer can be reused.
func TestPipe_copiesFrames(t *testing.T) {
	a, b := Pipe()

	buf := []byte("original")
	if err := a.Broadcast(buf); err != nil {
		t.Fatal(err)
	}
	copy(buf, "mutated!")

	if f := <-b.Inbound(); string(f) != "original" {
		t.Errorf("frame = %q, want original", f)
	}
}

// TestPipe_closeEndsInbound verifies closing one half ends the other's
// inbound stream.
func TestPipe_closeEndsInbound(t *testing.T) {
	a, b := Pipe()
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-b.Inbound(); ok {
		t.Error("inbound still open after peer close")
	}
}

// TestPipe_broadcastAfterClose verifies a closed half refuses to send
// instead of panicking, even when the close lands mid-flight.
func TestPipe_broadcastAfterClose(t *testing.T) {
	a, _ := Pipe()
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}
	if err := a.Broadcast([]byte("late")); !apperrors.Is(err, apperrors.ErrSessionClosed) {
		t.Errorf("Broadcast after Close error = %v, want %s", err, apperrors.ErrSessionClosed)
	}

	a, _ = Pipe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			a.Broadcast([]byte("frame"))
		}
	}()
	a.Close()
	<-done
}
