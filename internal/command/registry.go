// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/samber/oops"
)

// Registry manages command registration and lookup.
// It is thread-safe for concurrent access.
type Registry struct {
	commands map[string]Entry
	mu       sync.RWMutex
}

// NewRegistry creates a new command registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Entry),
	}
}

// Register adds a command to the registry. Names are matched case
// insensitively. If a command with the same name exists, it is overwritten
// and a warning is logged: last loaded wins.
func (r *Registry) Register(entry Entry) error {
	if entry.Name == "" {
		return oops.Code(CodeInvalidArgs).Errorf("command name must not be empty")
	}
	if entry.Handler == nil {
		return oops.Code(CodeInvalidArgs).With("command", entry.Name).Errorf("command handler must not be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToUpper(entry.Name)
	if existing, ok := r.commands[key]; ok {
		slog.Warn("command conflict: overwriting existing command",
			"command", entry.Name,
			"previous_source", existing.Source,
			"new_source", entry.Source)
	}

	r.commands[key] = entry
	return nil
}

// Get retrieves a command by name.
func (r *Registry) Get(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.commands[strings.ToUpper(name)]
	return entry, ok
}

// All returns all registered commands sorted by name.
// The returned slice is a copy and safe to modify.
func (r *Registry) All() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.commands))
	for _, e := range r.commands {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}
