// Package reclaim provides pluggable deferred-reclamation strategies for
// the data registry's deletion queue. A snapshot displaced by a commit is
// handed to a Policy; the policy decides when (and in what batch size) to
// actually retire it back to the registry's snapshot freelist.
//
// Exactly one Policy is configured per data registry instance. All
// implementations are safe for concurrent use.
package reclaim

import "sync"

// Reclaimable is anything a Policy can consider for retirement: a
// displaced snapshot that is only safe to recycle once nothing still
// holds a reference to it.
type Reclaimable interface {
	// Retirable reports whether the object currently has zero readers.
	// Policies must re-check this at sweep time, not just at enqueue
	// time, since a reader may still be outstanding when the snapshot
	// is first displaced.
	Retirable() bool
	// ByteSize estimates the object's footprint, used by byte-threshold
	// policies. Implementations that don't track size may return 0.
	ByteSize() int64
}

// RetireFunc is invoked exactly once for each object a Policy retires.
// The registry supplies this at construction time to recycle the
// object's backing storage onto its snapshot freelist.
type RetireFunc func(obj Reclaimable)

// Stats reports observability counters for a Policy, independent of which
// strategy is configured.
type Stats struct {
	Pending  int   // objects currently enqueued and not yet retirable or not yet swept
	Retired  int64 // cumulative objects retired over the policy's lifetime
	Sweeps   int64 // cumulative number of sweep passes performed
	PeakSize int64 // highest total ByteSize() of the pending set seen at any Enqueue
}

// Policy governs when enqueued objects are actually retired.
type Policy interface {
	// Enqueue adds obj to the pending set. Depending on the strategy,
	// this may trigger an immediate sweep.
	Enqueue(obj Reclaimable)

	// Reclaim performs a sweep now, retiring every currently-retirable
	// pending object, and returns how many were retired. Safe to call
	// regardless of strategy; Noop makes it a no-op that always
	// returns 0.
	Reclaim() int

	// Stats returns a point-in-time snapshot of policy counters.
	Stats() Stats

	// Close releases any background resources (e.g. a ticking
	// goroutine). Safe to call multiple times.
	Close() error
}

// baseState holds the bookkeeping shared by every Policy implementation.
type baseState struct {
	mu      sync.Mutex
	pending []Reclaimable
	retired int64
	sweeps  int64
	peak    int64
	onRetire RetireFunc
}

func newBaseState(onRetire RetireFunc) *baseState {
	if onRetire == nil {
		onRetire = func(Reclaimable) {}
	}
	return &baseState{onRetire: onRetire}
}

func (b *baseState) enqueue(obj Reclaimable) {
	b.mu.Lock()
	b.pending = append(b.pending, obj)
	total := b.currentByteSizeLocked()
	if total > b.peak {
		b.peak = total
	}
	b.mu.Unlock()
}

func (b *baseState) currentByteSizeLocked() int64 {
	var total int64
	for _, p := range b.pending {
		total += p.ByteSize()
	}
	return total
}

// sweepLocked must be called with b.mu held. It removes every currently
// retirable object from pending, invokes onRetire for each, and returns
// the count retired.
func (b *baseState) sweepLocked() int {
	if len(b.pending) == 0 {
		b.sweeps++
		return 0
	}
	kept := b.pending[:0]
	retired := 0
	for _, obj := range b.pending {
		if obj.Retirable() {
			b.onRetire(obj)
			retired++
		} else {
			kept = append(kept, obj)
		}
	}
	b.pending = kept
	b.retired += int64(retired)
	b.sweeps++
	return retired
}

func (b *baseState) stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Pending:  len(b.pending),
		Retired:  b.retired,
		Sweeps:   b.sweeps,
		PeakSize: b.peak,
	}
}
