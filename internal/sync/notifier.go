// Package sync applies the sharing protocol: it encodes local mutations
// into wire events, interprets inbound events against the reflection
// store, and runs the bootstrap exchange that brings a joiner to parity
// with the initiator.
package sync

import "github.com/reflecta/backend/internal/models"

// Notifier is the presentation boundary. The core never touches widgets;
// it reports which record changed and lets the presentation layer decide
// what to redraw. All callbacks arrive on the session loop.
type Notifier interface {
	// RecordAdded reports a record newly inserted at the top of the store.
	RecordAdded(r *models.Reflection)

	// RecordChanged reports a single-record mutation.
	RecordChanged(r *models.Reflection)

	// StoreReplaced reports a wholesale store replacement (bootstrap).
	StoreReplaced()

	// Waiting reports whether the joiner is still blocked on the
	// bootstrap snapshot.
	Waiting(waiting bool)
}

// NopNotifier is a Notifier that ignores everything. Embed it to implement
// only the callbacks a presentation layer cares about.
type NopNotifier struct{}

func (NopNotifier) RecordAdded(*models.Reflection)   {}
func (NopNotifier) RecordChanged(*models.Reflection) {}
func (NopNotifier) StoreReplaced()                   {}
func (NopNotifier) Waiting(bool)                     {}
