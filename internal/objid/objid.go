// Package objid provides object identifier generation and validation.
//
// Records imported from the journal keep the journal's own object id.
// Records created inside the activity get a locally generated id of the
// form "obj-<integer>"; participant/session ids are UUID v4.
package objid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

var localIDRegex = regexp.MustCompile(`^obj-\d+$`)

// New generates a fresh local object id.
func New() string {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// math-free fallback: uuid's randomness pool
		return "obj-" + fmt.Sprint(uuid.New().ID())
	}
	n := binary.BigEndian.Uint64(b[:]) >> 1 // keep it positive
	return fmt.Sprintf("obj-%d", n)
}

// NewSessionID generates a UUID v4 for a session participant.
func NewSessionID() string {
	return uuid.New().String()
}

// IsLocal reports whether id was generated locally (as opposed to sourced
// from the journal).
func IsLocal(id string) bool {
	return localIDRegex.MatchString(id)
}

// Validate returns an error if id is empty. Journal-sourced ids are opaque,
// so presence is the only structural requirement.
func Validate(id string) error {
	if id == "" {
		return fmt.Errorf("empty object id")
	}
	return nil
}
