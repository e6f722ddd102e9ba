package reclaim

import (
	"sync"
	"time"
)

// Streaming runs its own background sweep on a fixed interval, in addition
// to supporting explicit Reclaim calls. Mirrors the teacher's streaming
// ingestion policy, which flushes continuously rather than waiting for a
// buffer threshold or an explicit caller-driven flush.
type Streaming struct {
	state    *baseState
	ticker   *time.Ticker
	done     chan struct{}
	closeOnce sync.Once
}

// NewStreaming creates a Streaming reclaimer that sweeps every interval
// until Close is called.
func NewStreaming(interval time.Duration, onRetire RetireFunc) *Streaming {
	s := &Streaming{
		state: newBaseState(onRetire),
		done:  make(chan struct{}),
	}
	s.ticker = time.NewTicker(interval)
	go s.loop()
	return s
}

func (s *Streaming) loop() {
	for {
		select {
		case <-s.ticker.C:
			s.Reclaim()
		case <-s.done:
			return
		}
	}
}

// Enqueue implements Policy.
func (s *Streaming) Enqueue(obj Reclaimable) {
	s.state.enqueue(obj)
}

// Reclaim implements Policy. Safe to call concurrently with the
// background sweep loop.
func (s *Streaming) Reclaim() int {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return s.state.sweepLocked()
}

// Stats implements Policy.
func (s *Streaming) Stats() Stats { return s.state.stats() }

// Close stops the background sweep goroutine. Safe to call multiple
// times.
func (s *Streaming) Close() error {
	s.closeOnce.Do(func() {
		s.ticker.Stop()
		close(s.done)
	})
	return nil
}

var _ Policy = (*Streaming)(nil)
