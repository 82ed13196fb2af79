// Package objid tests for identifier generation and classification.
package objid

import (
	"testing"

	"github.com/google/uuid"
)

// TestNew verifies generated ids are local-shaped and collision-free in
// practice.
func TestNew(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := New()
		if !IsLocal(id) {
			t.Fatalf("generated id %q is not local-shaped", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q after %d generations", id, i)
		}
		seen[id] = true
	}
}

// TestNewSessionID verifies participant ids are valid UUIDs.
func TestNewSessionID(t *testing.T) {
	id := NewSessionID()
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("session id %q is not a UUID: %v", id, err)
	}
	if NewSessionID() == id {
		t.Error("two session ids collided")
	}
}

// TestIsLocal verifies journal ids are never mistaken for local ones.
func TestIsLocal(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"obj-12345", true},
		{"obj-0", true},
		{"obj-", false},
		{"obj-12x", false},
		{"12345", false},
		{"4f5a9c31-obj", false},
		{"", false},
		{"OBJ-123", false},
	}
	for _, tt := range tests {
		if got := IsLocal(tt.id); got != tt.want {
			t.Errorf("IsLocal(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

// TestValidate verifies only emptiness is rejected.
func TestValidate(t *testing.T) {
	if err := Validate(""); err == nil {
		t.Error("empty id accepted")
	}
	if err := Validate("any-journal-id"); err != nil {
		t.Errorf("opaque journal id rejected: %v", err)
	}
}
