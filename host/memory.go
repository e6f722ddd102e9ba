package host

import "sync/atomic"

// MemoryTracker is the host's memory-tracking singleton, published into
// the Data Registry under the well-known name "memory" so extensions can
// report their own allocations into one process-wide counter.
type MemoryTracker struct {
	allocated int64
	peak      int64
}

// NewMemoryTracker creates an empty tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{}
}

// Add records a signed delta (negative on free) against the running
// total, updating Peak if the new total is a new high.
func (m *MemoryTracker) Add(delta int64) {
	n := atomic.AddInt64(&m.allocated, delta)
	for {
		peak := atomic.LoadInt64(&m.peak)
		if n <= peak || atomic.CompareAndSwapInt64(&m.peak, peak, n) {
			return
		}
	}
}

// Allocated returns the current running total.
func (m *MemoryTracker) Allocated() int64 { return atomic.LoadInt64(&m.allocated) }

// Peak returns the highest total ever observed.
func (m *MemoryTracker) Peak() int64 { return atomic.LoadInt64(&m.peak) }
