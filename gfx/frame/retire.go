package frame

import (
	"fmt"

	"github.com/devblok/tilesweep/gfx"
)

// RetireQueue defers releasing resources until enough frames have
// passed that no in-flight frame can still reference them. It is a
// ring of buckets, one per generation; every Tick moves to the next
// bucket and releases whatever landed there.
type RetireQueue struct {
	buckets [][]gfx.Releasable
	cursor  int
	count   int
}

// NewRetireQueue creates a queue that can hold resources for up to
// depth ticks.
func NewRetireQueue(depth int) *RetireQueue {
	if depth < 1 {
		panic(fmt.Sprintf("frame: retire queue depth %d", depth))
	}
	return &RetireQueue{
		buckets: make([][]gfx.Releasable, depth),
	}
}

// Depth is the longest wait the queue supports.
func (q *RetireQueue) Depth() int {
	return len(q.buckets)
}

// Len is the number of resources waiting to be released.
func (q *RetireQueue) Len() int {
	return q.count
}

// Retire takes ownership of r and releases it on the waitFrames-th
// Tick from now.
func (q *RetireQueue) Retire(r gfx.Releasable, waitFrames int) {
	if waitFrames < 1 || waitFrames > len(q.buckets) {
		panic(fmt.Sprintf("frame: retire wait %d outside [1, %d]", waitFrames, len(q.buckets)))
	}
	idx := (q.cursor + waitFrames) % len(q.buckets)
	q.buckets[idx] = append(q.buckets[idx], r)
	q.count++
}

// Tick advances one generation and releases the resources that
// expired, oldest first. Returns how many were released.
func (q *RetireQueue) Tick() int {
	q.cursor = (q.cursor + 1) % len(q.buckets)
	return q.release(q.cursor)
}

// Drain releases everything in expiry order. Only safe once the
// device is idle.
func (q *RetireQueue) Drain() {
	for step := 1; step <= len(q.buckets); step++ {
		q.release((q.cursor + step) % len(q.buckets))
	}
}

func (q *RetireQueue) release(idx int) int {
	bucket := q.buckets[idx]
	for i, r := range bucket {
		r.Release()
		bucket[i] = nil
	}
	q.buckets[idx] = bucket[:0]
	q.count -= len(bucket)
	return len(bucket)
}
