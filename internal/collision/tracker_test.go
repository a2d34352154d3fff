package collision

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTracker(t *testing.T) {
	tracker := NewTracker()

	require.NotNil(t, tracker)
	require.Equal(t, 0, tracker.Count())
	require.False(t, tracker.HasCollision())
	require.Empty(t, tracker.Names())
}

func TestTracker_Track_Unique(t *testing.T) {
	tracker := NewTracker()

	orig, dup := tracker.Track("a.cper", 0x1234567890abcdef, []byte("record a"))
	require.False(t, dup)
	require.Empty(t, orig)

	orig, dup = tracker.Track("b.cper", 0xfedcba0987654321, []byte("record b"))
	require.False(t, dup)
	require.Empty(t, orig)

	require.Equal(t, 2, tracker.Count())
	require.False(t, tracker.HasCollision())
	require.Equal(t, []string{"a.cper", "b.cper"}, tracker.Names())
}

func TestTracker_Track_Duplicate(t *testing.T) {
	tracker := NewTracker()

	tracker.Track("a.cper", 0x1234567890abcdef, []byte("record a"))
	orig, dup := tracker.Track("copy.cper", 0x1234567890abcdef, []byte("record a"))

	require.True(t, dup)
	require.Equal(t, "a.cper", orig)
	require.Equal(t, 1, tracker.Count())
	require.False(t, tracker.HasCollision())
}

func TestTracker_Track_Collision(t *testing.T) {
	tracker := NewTracker()

	tracker.Track("a.cper", 0x1234567890abcdef, []byte("record a"))

	// Same fingerprint, different bytes: both records are kept.
	orig, dup := tracker.Track("b.cper", 0x1234567890abcdef, []byte("record b"))
	require.False(t, dup)
	require.Empty(t, orig)
	require.True(t, tracker.HasCollision())
	require.Equal(t, 2, tracker.Count())
	require.Equal(t, 1, tracker.Collisions())

	// A copy of the second record is still found behind the collision.
	orig, dup = tracker.Track("b2.cper", 0x1234567890abcdef, []byte("record b"))
	require.True(t, dup)
	require.Equal(t, "b.cper", orig)
	require.Equal(t, 1, tracker.Collisions(), "duplicates are not collisions")

	tracker.Track("c.cper", 0x1234567890abcdef, []byte("record c"))
	require.Equal(t, 2, tracker.Collisions())
	require.Equal(t, 3, tracker.Count())
}

func TestTracker_Reset(t *testing.T) {
	tracker := NewTracker()
	tracker.Track("a.cper", 1, []byte("a"))
	tracker.Track("b.cper", 1, []byte("b"))
	require.True(t, tracker.HasCollision())

	tracker.Reset()

	require.Equal(t, 0, tracker.Count())
	require.False(t, tracker.HasCollision())
	require.Empty(t, tracker.Names())

	_, dup := tracker.Track("a.cper", 1, []byte("a"))
	require.False(t, dup)
}

func TestTracker_Concurrent(t *testing.T) {
	tracker := NewTracker()

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 100 {
				data := []byte(fmt.Sprintf("record %d", i))
				tracker.Track(fmt.Sprintf("w%d-%d", w, i), uint64(i), data)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 100, tracker.Count())
	require.False(t, tracker.HasCollision())
}

func BenchmarkTracker_Track(b *testing.B) {
	tracker := NewTracker()
	data := []byte("record")
	var i uint64
	for b.Loop() {
		tracker.Track("r", i%1024, data)
		i++
	}
}
