// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package command

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noopHandler is a test helper that does nothing.
func noopHandler(_ context.Context, _ *Invocation) (string, error) {
	return "", nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()

	err := reg.Register(Entry{
		Name:    "GET_ATTR",
		Handler: noopHandler,
		Help:    "Get an attribute",
		Usage:   "GET_ATTR <thing> <name>",
		Source:  "core",
	})
	require.NoError(t, err)

	got, ok := reg.Get("GET_ATTR")
	assert.True(t, ok)
	assert.Equal(t, "GET_ATTR", got.Name)
	assert.Equal(t, "Get an attribute", got.Help)
	assert.Equal(t, "GET_ATTR <thing> <name>", got.Usage)
	assert.Equal(t, "core", got.Source)

	_, ok = reg.Get("get_attr")
	assert.True(t, ok, "lookup is case insensitive")
}

func TestRegistry_GetNotFound(t *testing.T) {
	reg := NewRegistry()
	_, ok := reg.Get("nonexistent")
	assert.False(t, ok)
}

func TestRegistry_RegisterRejectsInvalid(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.Register(Entry{Handler: noopHandler}))
	assert.Error(t, reg.Register(Entry{Name: "X"}))
}

func TestRegistry_All(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.Register(Entry{Name: "SET_ATTR", Handler: noopHandler, Source: "core"}))
	require.NoError(t, reg.Register(Entry{Name: "GET_ATTR", Handler: noopHandler, Source: "core"}))

	all := reg.All()
	require.Len(t, all, 2)
	assert.Equal(t, "GET_ATTR", all[0].Name)
	assert.Equal(t, "SET_ATTR", all[1].Name)
}

func TestRegistry_ConflictLogsWarningAndOverwrites(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	reg := NewRegistry()
	require.NoError(t, reg.Register(Entry{Name: "ROLE", Handler: noopHandler, Source: "core"}))
	require.NoError(t, reg.Register(Entry{Name: "role", Handler: noopHandler, Source: "dice"}))

	got, ok := reg.Get("ROLE")
	require.True(t, ok)
	assert.Equal(t, "dice", got.Source)
	assert.Contains(t, buf.String(), "command conflict")
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = reg.Register(Entry{Name: string(rune('A' + n)), Handler: noopHandler})
		}(i)
		go func() {
			defer wg.Done()
			_ = reg.All()
		}()
	}
	wg.Wait()

	assert.Len(t, reg.All(), 20)
}
