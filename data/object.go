package data

import "sync/atomic"

// PropertyName and PropertyBuffer are the two properties the core
// contract specifies: 0 is the object's name (string), 1 is an opaque
// byte pointer. Additional property indices are allowed and stored
// generically.
const (
	PropertyName   = 0
	PropertyBuffer = 1
	// PropertySingleton holds an opaque Go value verbatim (no copy, no
	// type constraint) rather than a string or byte buffer. The host
	// uses it to publish its io/memory/log/profile singletons.
	PropertySingleton = 2
)

// snapshot is one immutable copy of a data object's properties. Readers
// hold a reference-counted pointer to a snapshot; writers copy-on-write
// into a fresh snapshot and commit replaces the published pointer.
type snapshot struct {
	refcount int32 // atomic; readers hold while non-zero

	name   string
	buffer []byte
	extra  map[int]any // properties >= 2, rarely used
}

func newSnapshot() *snapshot {
	return &snapshot{}
}

// reset clears a snapshot for reuse as a brand-new object (create_object),
// as opposed to copyFrom, which seeds it from an existing current snapshot
// (write).
func (s *snapshot) reset() {
	s.refcount = 0
	s.name = ""
	s.buffer = nil
	s.extra = nil
}

// copyFrom performs the copy-on-write clone: shallow-copy every property
// from src. Property values (strings, byte slices) are replaced wholesale
// by Set* calls, never mutated in place, so aliasing the same backing
// array/string header across snapshots is safe.
func (s *snapshot) copyFrom(src *snapshot) {
	s.refcount = 0
	s.name = src.name
	s.buffer = src.buffer
	if src.extra != nil {
		s.extra = make(map[int]any, len(src.extra))
		for k, v := range src.extra {
			s.extra[k] = v
		}
	} else {
		s.extra = nil
	}
}

func (s *snapshot) setString(property int, value string) {
	if property == PropertyName {
		s.name = value
		return
	}
	s.setExtra(property, value)
}

func (s *snapshot) setBuffer(property int, value []byte) {
	if property == PropertyBuffer {
		s.buffer = value
		return
	}
	s.setExtra(property, value)
}

func (s *snapshot) setExtra(property int, value any) {
	if s.extra == nil {
		s.extra = make(map[int]any)
	}
	s.extra[property] = value
}

func (s *snapshot) property(i int) any {
	switch i {
	case PropertyName:
		return s.name
	case PropertyBuffer:
		return s.buffer
	default:
		if s.extra == nil {
			return nil
		}
		return s.extra[i]
	}
}

// Retirable implements reclaim.Reclaimable.
func (s *snapshot) Retirable() bool {
	return atomic.LoadInt32(&s.refcount) == 0
}

// ByteSize implements reclaim.Reclaimable.
func (s *snapshot) ByteSize() int64 {
	return int64(len(s.name) + len(s.buffer))
}

// Writer is a single-owner handle to an in-progress copy-on-write update.
// Concurrent writers to the same DataID are a contract violation: the
// caller must serialize writes per id (see Registry.Write doc comment).
type Writer struct {
	id        DataID
	snap      *snapshot
	committed bool
}

// SetString sets a string-valued property. Property 0 is the object's
// name.
func (w *Writer) SetString(property int, value string) {
	w.snap.setString(property, value)
}

// SetBuffer sets a buffer-valued property. Property 1 is the object's
// opaque byte pointer.
func (w *Writer) SetBuffer(property int, value []byte) {
	w.snap.setBuffer(property, value)
}

// Name returns the writer's currently staged name (property 0).
func (w *Writer) Name() string { return w.snap.name }

// SetProperty sets an arbitrary property by index, verbatim. Properties 0
// and 1 behave like SetString/SetBuffer (a non-matching value type is
// silently discarded, matching the core contract's loosely-typed
// property slots); every other index stores value exactly as given,
// which is how host singletons (io state, memory tracker, logger,
// profiler) are published into the registry under well-known names.
func (w *Writer) SetProperty(property int, value any) {
	switch property {
	case PropertyName:
		if s, ok := value.(string); ok {
			w.snap.setString(property, s)
		}
	case PropertyBuffer:
		if b, ok := value.([]byte); ok {
			w.snap.setBuffer(property, b)
		}
	default:
		w.snap.setExtra(property, value)
	}
}

// Reader is a reference-counted handle to a published snapshot. Callers
// must call Registry.EndRead exactly once per Reader returned by
// Registry.Read.
type Reader struct {
	snap *snapshot
}

// Name returns property 0.
func (r *Reader) Name() string { return r.snap.name }

// Buffer returns property 1.
func (r *Reader) Buffer() []byte { return r.snap.buffer }

// Property returns an arbitrary property index, or nil if unset.
func (r *Reader) Property(i int) any { return r.snap.property(i) }
