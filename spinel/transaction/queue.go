package transaction

import (
	"sync"
	"sync/atomic"
	"time"
)

// tidQueue is the per-TID FIFO of ResponseItem described in spec.md §3: one
// producer (the reader goroutine), one consumer (the waiter currently
// blocked on this TID) at any moment. It is not a channel because
// wait needs to skip non-matching items and re-insert them, in
// original order, ahead of whatever arrives next — a channel can't be
// peeked and partially drained like that.
type tidQueue struct {
	mu    sync.Mutex
	cond  *sync.Cond
	items []ResponseItem
}

func newTIDQueue() *tidQueue {
	q := &tidQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push enqueues item at the tail. Never blocks: the reader goroutine must
// never stall on a slow or absent consumer (spec.md §5).
func (q *tidQueue) push(item ResponseItem) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.cond.Broadcast()
}

// clear discards everything currently queued. Used by queue_wait_prepare
// ahead of issuing a new request on this TID.
func (q *tidQueue) clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}

// wait blocks until an item satisfying match is available, or timeout
// elapses. Items seen but not matching are held in memory and, whichever
// way this call ends, re-inserted at the front of the queue in their
// original relative order — so the next call (or a concurrent consumer of
// the same TID, though spec.md §5 says that isn't a supported
// configuration) still observes them in receive order.
func (q *tidQueue) wait(timeout time.Duration, match func(ResponseItem) bool) (ResponseItem, bool) {
	var timedOut atomic.Bool
	timer := time.AfterFunc(timeout, func() {
		timedOut.Store(true)
		q.mu.Lock()
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer timer.Stop()

	var held []ResponseItem
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if len(q.items) > 0 {
			it := q.items[0]
			q.items = q.items[1:]
			if match(it) {
				if len(held) > 0 {
					q.items = append(held, q.items...)
				}
				return it, true
			}
			held = append(held, it)
			continue
		}
		if timedOut.Load() {
			if len(held) > 0 {
				q.items = append(held, q.items...)
			}
			return ResponseItem{}, false
		}
		q.cond.Wait()
	}
}
