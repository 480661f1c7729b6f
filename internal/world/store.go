// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package world

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/samber/oops"

	"github.com/holomush/plugincall/internal/attr"
)

// ErrAttrNotFound is wrapped by AttrStore implementations when an attribute
// does not exist.
var ErrAttrNotFound = errors.New("attribute not found")

// Error codes for attribute storage.
const (
	CodeAttrNotFound = "ATTR_NOT_FOUND"
	CodeStoreFailed  = "ATTR_STORE_FAILED"
)

// AttrStore persists attributes keyed by thing ID and attribute name.
type AttrStore interface {
	// Get returns the named attribute, or an error wrapping ErrAttrNotFound.
	Get(ctx context.Context, thingID, name string) (attr.Attr, error)
	// Set creates or replaces an attribute.
	Set(ctx context.Context, thingID string, a attr.Attr) error
	// Remove deletes an attribute, or returns an error wrapping ErrAttrNotFound.
	Remove(ctx context.Context, thingID, name string) error
	// List returns every attribute of a thing sorted by name.
	List(ctx context.Context, thingID string) ([]attr.Attr, error)
}

// ErrNotFound returns the error AttrStore implementations use for a missing attribute.
func ErrNotFound(thingID, name string) error {
	return oops.Code(CodeAttrNotFound).
		With("thing_id", thingID).
		With("name", name).
		Wrap(ErrAttrNotFound)
}

// MemoryAttrStore is an AttrStore held in memory.
type MemoryAttrStore struct {
	mu    sync.RWMutex
	attrs map[string]map[string]attr.Attr
}

// NewMemoryAttrStore creates an empty in-memory store.
func NewMemoryAttrStore() *MemoryAttrStore {
	return &MemoryAttrStore{attrs: make(map[string]map[string]attr.Attr)}
}

// Get implements AttrStore.
func (s *MemoryAttrStore) Get(_ context.Context, thingID, name string) (attr.Attr, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.attrs[thingID][name]
	if !ok {
		return attr.Attr{}, ErrNotFound(thingID, name)
	}
	return a, nil
}

// Set implements AttrStore.
func (s *MemoryAttrStore) Set(_ context.Context, thingID string, a attr.Attr) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byName, ok := s.attrs[thingID]
	if !ok {
		byName = make(map[string]attr.Attr)
		s.attrs[thingID] = byName
	}
	byName[a.Name] = a
	return nil
}

// Remove implements AttrStore.
func (s *MemoryAttrStore) Remove(_ context.Context, thingID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attrs[thingID][name]; !ok {
		return ErrNotFound(thingID, name)
	}
	delete(s.attrs[thingID], name)
	return nil
}

// List implements AttrStore.
func (s *MemoryAttrStore) List(_ context.Context, thingID string) ([]attr.Attr, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]attr.Attr, 0, len(s.attrs[thingID]))
	for _, a := range s.attrs[thingID] {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
