package reclaim

// Strict retires an object the moment it becomes retirable: Enqueue
// attempts an immediate sweep, and Reclaim sweeps anything left over
// (which, under a single-writer commit discipline, is only objects with
// an outstanding reader at enqueue time). This is the default policy and
// matches the core spec's description of garbage_collect as a synchronous
// scan of the deletion queue.
type Strict struct {
	state *baseState
}

// NewStrict creates a Strict reclaimer. onRetire is called once per
// retired object.
func NewStrict(onRetire RetireFunc) *Strict {
	return &Strict{state: newBaseState(onRetire)}
}

// Enqueue implements Policy.
func (s *Strict) Enqueue(obj Reclaimable) {
	s.state.enqueue(obj)
	s.state.mu.Lock()
	s.state.sweepLocked()
	s.state.mu.Unlock()
}

// Reclaim implements Policy.
func (s *Strict) Reclaim() int {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return s.state.sweepLocked()
}

// Stats implements Policy.
func (s *Strict) Stats() Stats { return s.state.stats() }

// Close implements Policy. Strict holds no background resources.
func (s *Strict) Close() error { return nil }

var _ Policy = (*Strict)(nil)
