package transaction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RafaelMicro/gospinel/spinel/property"
)

func item(propID property.ID, v any) ResponseItem {
	return ResponseItem{PropertyID: propID, Value: v}
}

// TestQueueOrderingSkipAndReinsert is spec.md §8's enqueue/dequeue ordering
// property: a wait that skips non-matching items re-inserts them in
// original relative order, so a later wait on the same queue still
// observes receive order.
func TestQueueOrderingSkipAndReinsert(t *testing.T) {
	q := newTIDQueue()
	q.push(item(propB, 1))
	q.push(item(propA, 2))
	q.push(item(propC, 3))

	got, ok := q.wait(time.Second, func(it ResponseItem) bool { return it.PropertyID == propA })
	require.True(t, ok)
	assert.Equal(t, 2, got.Value)

	// propB, seen and skipped, must be observable first on the next wait
	// — receive order is preserved.
	got, ok = q.wait(time.Second, func(it ResponseItem) bool { return it.PropertyID == propB })
	require.True(t, ok)
	assert.Equal(t, 1, got.Value)

	got, ok = q.wait(time.Second, func(it ResponseItem) bool { return it.PropertyID == propC })
	require.True(t, ok)
	assert.Equal(t, 3, got.Value)
}

// TestQueueTimeoutThenLaterItemObservable is spec.md §8 scenario #6: a
// wait that times out with nothing queued returns false, and an item that
// arrives afterward on the same TID is still observable on the next call.
func TestQueueTimeoutThenLaterItemObservable(t *testing.T) {
	q := newTIDQueue()
	_, ok := q.wait(30*time.Millisecond, func(ResponseItem) bool { return true })
	assert.False(t, ok)

	q.push(item(propA, 42))
	got, ok := q.wait(time.Second, func(it ResponseItem) bool { return it.PropertyID == propA })
	require.True(t, ok)
	assert.Equal(t, 42, got.Value)
}

// TestQueueTimeoutKeepsUnmatchedItemsForNextWait: items seen but not
// matching before a timeout are still held in the queue afterward, not
// discarded.
func TestQueueTimeoutKeepsUnmatchedItemsForNextWait(t *testing.T) {
	q := newTIDQueue()
	q.push(item(propB, 7))

	_, ok := q.wait(30*time.Millisecond, func(it ResponseItem) bool { return it.PropertyID == propA })
	assert.False(t, ok)

	got, ok := q.wait(time.Second, func(it ResponseItem) bool { return it.PropertyID == propB })
	require.True(t, ok)
	assert.Equal(t, 7, got.Value)
}

func TestQueueClearDiscardsPendingItems(t *testing.T) {
	q := newTIDQueue()
	q.push(item(propA, 1))
	q.clear()
	_, ok := q.wait(30*time.Millisecond, func(ResponseItem) bool { return true })
	assert.False(t, ok)
}

const (
	propA property.ID = 100
	propB property.ID = 101
	propC property.ID = 102
)
