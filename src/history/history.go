// Package history keeps a bounded in-memory ring of recent snapshots for
// trend analysis.
package history

import (
	"sync"
	"time"

	"github.com/pgpulse/pgpulse/src/models"
)

// DefaultCapacity is the retained-snapshot bound used when no capacity is
// configured.
const DefaultCapacity = 100

// MetricsHistory is a capacity-bounded FIFO of snapshots. The engine's
// collection loop is the sole writer; the internal mutex guards Window and
// Latest readers running concurrently with an Append in flight.
type MetricsHistory struct {
	mu        sync.RWMutex
	capacity  int
	snapshots []models.Snapshot
}

// New creates an empty history with the given capacity. Non-positive
// capacities fall back to DefaultCapacity.
func New(capacity int) *MetricsHistory {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MetricsHistory{
		capacity:  capacity,
		snapshots: make([]models.Snapshot, 0, capacity),
	}
}

// Append pushes a snapshot to the tail, evicting the oldest entry first when
// the buffer is full so the length never exceeds capacity, even transiently.
func (h *MetricsHistory) Append(snapshot models.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.snapshots) == h.capacity {
		copy(h.snapshots, h.snapshots[1:])
		h.snapshots = h.snapshots[:len(h.snapshots)-1]
	}
	h.snapshots = append(h.snapshots, snapshot)
}

// Window returns all snapshots with a timestamp at or after now minus d, in
// chronological order. An empty history yields an empty slice, never an
// error. The returned slice is a copy; snapshots themselves are immutable.
func (h *MetricsHistory) Window(d time.Duration) []models.Snapshot {
	cutoff := time.Now().Add(-d)

	h.mu.RLock()
	defer h.mu.RUnlock()

	window := make([]models.Snapshot, 0)
	for _, s := range h.snapshots {
		if !s.Timestamp.Before(cutoff) {
			window = append(window, s)
		}
	}
	return window
}

// Latest returns the most recently appended snapshot, if any.
func (h *MetricsHistory) Latest() (models.Snapshot, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.snapshots) == 0 {
		return models.Snapshot{}, false
	}
	return h.snapshots[len(h.snapshots)-1], true
}

// Len returns the number of retained snapshots.
func (h *MetricsHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.snapshots)
}
