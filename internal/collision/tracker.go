package collision

import (
	"bytes"
	"sync"
)

// Tracker detects duplicate records in a batch by fingerprint.
//
// Records with equal fingerprints are compared byte for byte, so a
// fingerprint collision between different records is counted and both
// records are kept. Tracker is safe for concurrent use.
type Tracker struct {
	mu         sync.Mutex
	seen       map[uint64][]entry // fingerprint → records seen with it
	names      []string           // unique records in tracking order
	collisions int
}

type entry struct {
	name string
	data []byte
}

// NewTracker creates a new duplicate tracker.
func NewTracker() *Tracker {
	return &Tracker{
		seen:  make(map[uint64][]entry),
		names: make([]string, 0),
	}
}

// Track records data under name.
//
// Parameters:
//   - name: identifies the record, usually its input path
//   - fingerprint: hash of data
//   - data: normalised record bytes; the tracker keeps a reference
//
// Returns:
//   - string: name of the earlier identical record, if any
//   - bool: true if data duplicates a record tracked before
func (t *Tracker) Track(name string, fingerprint uint64, data []byte) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries := t.seen[fingerprint]
	for _, e := range entries {
		if bytes.Equal(e.data, data) {
			return e.name, true
		}
	}
	if len(entries) > 0 {
		t.collisions++
	}

	t.seen[fingerprint] = append(entries, entry{name: name, data: data})
	t.names = append(t.names, name)

	return "", false
}

// HasCollision returns true if two different records shared a fingerprint.
func (t *Tracker) HasCollision() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.collisions > 0
}

// Collisions returns how many distinct records were tracked under a
// fingerprint already in use.
func (t *Tracker) Collisions() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.collisions
}

// Names returns the unique records in the order they were tracked.
func (t *Tracker) Names() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, len(t.names))
	copy(out, t.names)

	return out
}

// Count returns the number of unique records.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.names)
}

// Reset clears all tracked records and collision state.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	clear(t.seen)
	t.names = t.names[:0]
	t.collisions = 0
}
