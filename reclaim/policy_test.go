package reclaim

import (
	"sync/atomic"
	"testing"
	"time"
)

type fakeSnapshot struct {
	refcount int32
	size     int64
}

func (f *fakeSnapshot) Retirable() bool { return atomic.LoadInt32(&f.refcount) == 0 }
func (f *fakeSnapshot) ByteSize() int64 { return f.size }

func TestStrictRetiresImmediatelyWhenFree(t *testing.T) {
	var retired []Reclaimable
	p := NewStrict(func(obj Reclaimable) { retired = append(retired, obj) })

	free := &fakeSnapshot{refcount: 0}
	p.Enqueue(free)

	if len(retired) != 1 {
		t.Fatalf("retired = %d objects, want 1", len(retired))
	}
	if got := p.Stats().Pending; got != 0 {
		t.Fatalf("Pending = %d, want 0", got)
	}
}

func TestStrictDefersWhileReaderOutstanding(t *testing.T) {
	var retired []Reclaimable
	p := NewStrict(func(obj Reclaimable) { retired = append(retired, obj) })

	held := &fakeSnapshot{refcount: 1}
	p.Enqueue(held)
	if len(retired) != 0 {
		t.Fatalf("retired = %d objects while reader outstanding, want 0", len(retired))
	}

	atomic.StoreInt32(&held.refcount, 0)
	n := p.Reclaim()
	if n != 1 {
		t.Fatalf("Reclaim() = %d, want 1", n)
	}
	if len(retired) != 1 {
		t.Fatalf("retired = %d objects, want 1", len(retired))
	}
}

func TestBufferedSweepsOnDepthThreshold(t *testing.T) {
	var retiredCount int64
	p := NewBuffered(3, 0, func(Reclaimable) { atomic.AddInt64(&retiredCount, 1) })

	for i := 0; i < 2; i++ {
		p.Enqueue(&fakeSnapshot{refcount: 0})
	}
	if atomic.LoadInt64(&retiredCount) != 0 {
		t.Fatalf("retired before threshold = %d, want 0", retiredCount)
	}

	p.Enqueue(&fakeSnapshot{refcount: 0}) // crosses depth 3
	if atomic.LoadInt64(&retiredCount) != 3 {
		t.Fatalf("retired after threshold = %d, want 3", retiredCount)
	}
}

func TestBufferedReclaimForcesSweep(t *testing.T) {
	var retiredCount int64
	p := NewBuffered(100, 0, func(Reclaimable) { atomic.AddInt64(&retiredCount, 1) })

	p.Enqueue(&fakeSnapshot{refcount: 0})
	p.Enqueue(&fakeSnapshot{refcount: 0})

	n := p.Reclaim()
	if n != 2 {
		t.Fatalf("Reclaim() = %d, want 2", n)
	}
}

func TestStreamingSweepsOnTicker(t *testing.T) {
	done := make(chan struct{}, 1)
	p := NewStreaming(10*time.Millisecond, func(Reclaimable) {
		select {
		case done <- struct{}{}:
		default:
		}
	})
	defer p.Close()

	p.Enqueue(&fakeSnapshot{refcount: 0})

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("streaming reclaimer never swept within timeout")
	}
}

func TestNoopNeverRetires(t *testing.T) {
	p := NewNoop()
	p.Enqueue(&fakeSnapshot{refcount: 0})
	if n := p.Reclaim(); n != 0 {
		t.Fatalf("Reclaim() = %d, want 0", n)
	}
	if got := p.Stats().Pending; got != 1 {
		t.Fatalf("Pending = %d, want 1", got)
	}
}

func TestPeakSizeTracksCumulativeByteSize(t *testing.T) {
	p := NewBuffered(0, 0, func(Reclaimable) {})
	p.Enqueue(&fakeSnapshot{refcount: 1, size: 100})
	p.Enqueue(&fakeSnapshot{refcount: 1, size: 50})
	if got := p.Stats().PeakSize; got != 150 {
		t.Fatalf("PeakSize = %d, want 150", got)
	}
}
