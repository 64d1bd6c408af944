package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgpulse/pgpulse/src/models"
)

func snapshotAt(ts time.Time, connections uint) models.Snapshot {
	return models.Snapshot{
		Timestamp:         ts,
		ActiveConnections: connections,
	}
}

func TestAppendAndLatest(t *testing.T) {
	h := New(10)

	_, ok := h.Latest()
	assert.False(t, ok)

	now := time.Now()
	h.Append(snapshotAt(now, 5))
	h.Append(snapshotAt(now.Add(time.Minute), 7))

	latest, ok := h.Latest()
	require.True(t, ok)
	assert.Equal(t, uint(7), latest.ActiveConnections)
	assert.Equal(t, 2, h.Len())
}

func TestAppendNeverExceedsCapacity(t *testing.T) {
	const capacity = 5
	h := New(capacity)

	now := time.Now()
	for i := 0; i < 20; i++ {
		h.Append(snapshotAt(now.Add(time.Duration(i)*time.Second), uint(i)))
		assert.LessOrEqual(t, h.Len(), capacity, "length after append %d", i)
	}

	assert.Equal(t, capacity, h.Len())
}

func TestAppendEvictsOldestFirst(t *testing.T) {
	h := New(3)

	now := time.Now()
	for i := 0; i < 5; i++ {
		h.Append(snapshotAt(now.Add(time.Duration(i)*time.Second), uint(i)))
	}

	window := h.Window(time.Hour)
	require.Len(t, window, 3)
	// FIFO: snapshots 0 and 1 were evicted, 2..4 remain in order.
	assert.Equal(t, uint(2), window[0].ActiveConnections)
	assert.Equal(t, uint(3), window[1].ActiveConnections)
	assert.Equal(t, uint(4), window[2].ActiveConnections)
}

func TestWindowFiltersByTime(t *testing.T) {
	h := New(10)

	now := time.Now()
	h.Append(snapshotAt(now.Add(-2*time.Hour), 1))
	h.Append(snapshotAt(now.Add(-30*time.Minute), 2))
	h.Append(snapshotAt(now.Add(-time.Minute), 3))

	window := h.Window(time.Hour)
	require.Len(t, window, 2)
	assert.Equal(t, uint(2), window[0].ActiveConnections)
	assert.Equal(t, uint(3), window[1].ActiveConnections)
}

func TestWindowOnEmptyHistory(t *testing.T) {
	h := New(10)

	window := h.Window(time.Hour)

	assert.NotNil(t, window)
	assert.Empty(t, window)
}

func TestNewFallsBackToDefaultCapacity(t *testing.T) {
	h := New(0)

	now := time.Now()
	for i := 0; i < DefaultCapacity+10; i++ {
		h.Append(snapshotAt(now.Add(time.Duration(i)*time.Second), uint(i)))
	}

	assert.Equal(t, DefaultCapacity, h.Len())
}

func TestConcurrentReadersDuringAppend(t *testing.T) {
	h := New(50)
	done := make(chan struct{})

	go func() {
		defer close(done)
		now := time.Now()
		for i := 0; i < 500; i++ {
			h.Append(snapshotAt(now, uint(i)))
		}
	}()

	for i := 0; i < 500; i++ {
		h.Window(time.Hour)
		h.Latest()
	}
	<-done

	assert.Equal(t, 50, h.Len())
}

func ExampleMetricsHistory_Latest() {
	h := New(3)
	h.Append(models.Snapshot{Timestamp: time.Now(), ActiveConnections: 12})

	latest, ok := h.Latest()
	fmt.Println(ok, latest.ActiveConnections)
	// Output: true 12
}
