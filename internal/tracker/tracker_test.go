// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package tracker_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/plugincall/internal/identity"
	"github.com/holomush/plugincall/internal/tracker"
)

func testEntry() tracker.Entry {
	return tracker.Entry{
		Actor:     identity.Actor{ID: "actor-1", Username: "alice"},
		Caller:    identity.NewPlayer("p1", "Alice"),
		Extension: identity.NewExtension("e1", "dice"),
	}
}

func TestTrackLookupUntrack(t *testing.T) {
	tr := tracker.New()
	entry := testEntry()

	_, ok := tr.Lookup("pcid1")
	assert.False(t, ok)

	tr.Track("pcid1", entry)
	got, ok := tr.Lookup("pcid1")
	require.True(t, ok)
	assert.Equal(t, entry, got)
	assert.Equal(t, 1, tr.Len())

	tr.Untrack("pcid1")
	_, ok = tr.Lookup("pcid1")
	assert.False(t, ok)
	assert.Equal(t, 0, tr.Len())
}

func TestUntrack_IsIdempotent(t *testing.T) {
	tr := tracker.New()
	tr.Track("pcid1", testEntry())
	tr.Track("pcid2", testEntry())

	tr.Untrack("pcid1")
	tr.Untrack("pcid1")
	tr.Untrack("never-tracked")

	_, ok := tr.Lookup("pcid1")
	assert.False(t, ok)
	_, ok = tr.Lookup("pcid2")
	assert.True(t, ok)
}

func TestTracker_ConcurrentAccess(t *testing.T) {
	tr := tracker.New()
	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("pcid-%d", n)
			tr.Track(id, testEntry())
			for range 20 {
				_, ok := tr.Lookup(id)
				assert.True(t, ok)
				_, _ = tr.Lookup("other")
			}
			tr.Untrack(id)
			_, ok := tr.Lookup(id)
			assert.False(t, ok)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, tr.Len())
}
