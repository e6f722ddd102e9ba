package reclaim

// Buffered defers sweeping until the pending queue crosses a depth or byte
// threshold, then sweeps everything eligible in one pass. Mirrors the
// teacher's buffered ingestion policy: accumulate, then flush in bulk
// rather than on every single enqueue.
type Buffered struct {
	state         *baseState
	maxQueueDepth int
	maxBytes      int64
}

// NewBuffered creates a Buffered reclaimer. A zero maxQueueDepth or
// maxBytes disables that particular threshold (the other still applies).
// If both are zero, Buffered only sweeps when Reclaim is called explicitly.
func NewBuffered(maxQueueDepth int, maxBytes int64, onRetire RetireFunc) *Buffered {
	return &Buffered{
		state:         newBaseState(onRetire),
		maxQueueDepth: maxQueueDepth,
		maxBytes:      maxBytes,
	}
}

// Enqueue implements Policy.
func (b *Buffered) Enqueue(obj Reclaimable) {
	b.state.enqueue(obj)

	b.state.mu.Lock()
	depth := len(b.state.pending)
	size := b.state.currentByteSizeLocked()
	crossed := (b.maxQueueDepth > 0 && depth >= b.maxQueueDepth) ||
		(b.maxBytes > 0 && size >= b.maxBytes)
	if crossed {
		b.state.sweepLocked()
	}
	b.state.mu.Unlock()
}

// Reclaim implements Policy: forces a sweep regardless of thresholds.
func (b *Buffered) Reclaim() int {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()
	return b.state.sweepLocked()
}

// Stats implements Policy.
func (b *Buffered) Stats() Stats { return b.state.stats() }

// Close implements Policy. Buffered holds no background resources.
func (b *Buffered) Close() error { return nil }

var _ Policy = (*Buffered)(nil)
