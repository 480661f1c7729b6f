// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package tracker records the plugin calls currently in flight so that
// callbacks arriving at the gateway can be resolved to the identity that
// issued them.
package tracker

import (
	"sync"

	"github.com/holomush/plugincall/internal/identity"
)

// Entry is the identity context a plugin call was issued under.
type Entry struct {
	// Actor is the session that originated the call.
	Actor identity.Actor
	// Caller is the player the call runs on behalf of.
	Caller identity.Principal
	// Extension owns the call definition and is the delegated identity for
	// commands run "as extension".
	Extension identity.Principal
}

// Tracker maps correlation ids to entries.
// It is safe for concurrent use.
type Tracker struct {
	entries map[string]Entry
	mu      sync.RWMutex
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{entries: make(map[string]Entry)}
}

// Track registers an entry under id, replacing any previous entry.
func (t *Tracker) Track(id string, entry Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries[id] = entry
	inFlight.Set(float64(len(t.entries)))
}

// Lookup returns the entry tracked under id.
func (t *Tracker) Lookup(id string) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entry, ok := t.entries[id]
	return entry, ok
}

// Untrack removes id. Removing an id that is not tracked is a no-op.
func (t *Tracker) Untrack(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.entries, id)
	inFlight.Set(float64(len(t.entries)))
}

// Len returns the number of tracked calls.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.entries)
}
