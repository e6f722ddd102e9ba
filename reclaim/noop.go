package reclaim

import "sync"

// Noop never retires anything it is handed. It exists for leak-detection
// test harnesses: configure a data registry with Noop and assert that
// displaced snapshots are never recycled, to isolate whether a suspected
// leak is in the registry or in the reclaimer.
type Noop struct {
	mu      sync.Mutex
	pending int
}

// NewNoop creates a Noop reclaimer.
func NewNoop() *Noop { return &Noop{} }

// Enqueue implements Policy: records the object but never retires it.
func (n *Noop) Enqueue(obj Reclaimable) {
	n.mu.Lock()
	n.pending++
	n.mu.Unlock()
}

// Reclaim implements Policy: always a no-op, returns 0.
func (n *Noop) Reclaim() int { return 0 }

// Stats implements Policy.
func (n *Noop) Stats() Stats {
	n.mu.Lock()
	defer n.mu.Unlock()
	return Stats{Pending: n.pending}
}

// Close implements Policy. Noop holds no resources.
func (n *Noop) Close() error { return nil }

var _ Policy = (*Noop)(nil)
