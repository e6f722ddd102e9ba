// Package data implements the multi-reader/single-writer object store: the
// Data Registry. Objects are addressed by DataID and, optionally, by name.
// Writes are copy-on-write; reads are reference-counted snapshots that
// remain valid until their reader ends, even across a concurrent commit.
// Retirement of displaced snapshots is delegated to a pluggable
// reclaim.Policy (package forge/reclaim).
package data

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/forge-engine/forge/reclaim"
)

// Errors returned by Registry operations. Per §7 of the engine's error
// model these are "contract violation" class: asserted in debug builds,
// returned as sentinels here since Go has no separate debug/release
// build mode for this purpose.
var (
	// ErrPoolExhausted is returned by CreateObject when every id slot in
	// the registry's fixed-capacity pool is in use.
	ErrPoolExhausted = errors.New("data: id pool exhausted")
	// ErrUnknownID is returned when an operation is given a DataID whose
	// index was never allocated, or whose generation no longer matches
	// the slot's current generation (stale/use-after-free).
	ErrUnknownID = errors.New("data: unknown or stale DataID")
	// ErrNameNotFound is returned by GetObjectByName for an unregistered
	// name.
	ErrNameNotFound = errors.New("data: name not found")
)

// DefaultCapacity is the default size of the free-id pool, matching the
// core spec's N=1024 default.
const DefaultCapacity = 1024

// Registry is the process-wide Data Registry. Construct with NewRegistry.
type Registry struct {
	capacity int

	// current holds the published snapshot pointer per index. Reads
	// load it without taking mu; only structural bookkeeping below
	// needs mu.
	current []atomic.Pointer[snapshot]

	mu          sync.Mutex
	freeIDs     []uint32
	generations []uint32
	nameIndex   map[string]DataID
	shellPool   []*snapshot // recycled snapshot shells, avoids an allocation per write

	policy        reclaim.Policy
	policyFactory registryPolicyFactory
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithCapacity overrides DefaultCapacity.
func WithCapacity(n int) Option {
	return func(r *Registry) { r.capacity = n }
}

// WithPolicyFactory overrides the default reclaim.Policy (reclaim.Strict).
// factory receives the registry's own RetireFunc, which recycles a
// retired snapshot's storage back onto the registry's shell pool; pass it
// straight through to whichever reclaim.New* constructor you use.
func WithPolicyFactory(factory func(reclaim.RetireFunc) reclaim.Policy) Option {
	return func(r *Registry) { r.policyFactory = factory }
}

// NewRegistry creates a Data Registry with the given options. The default
// capacity is DefaultCapacity and the default reclaim policy is
// reclaim.Strict.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		capacity:  DefaultCapacity,
		nameIndex: make(map[string]DataID),
	}
	for _, o := range opts {
		o(r)
	}
	r.current = make([]atomic.Pointer[snapshot], r.capacity)
	r.generations = make([]uint32, r.capacity)
	r.freeIDs = make([]uint32, r.capacity)
	for i := range r.freeIDs {
		r.freeIDs[i] = uint32(r.capacity - 1 - i)
	}
	if r.policyFactory == nil {
		r.policyFactory = func(onRetire reclaim.RetireFunc) reclaim.Policy {
			return reclaim.NewStrict(onRetire)
		}
	}
	r.policy = r.policyFactory(r.retire)
	return r
}

// policyFactory is stored as a field so NewRegistry can pass the
// registry's own retire callback to it; declared here (not in the
// Registry struct literal above) to keep the public surface minimal.
type registryPolicyFactory = func(reclaim.RetireFunc) reclaim.Policy

// retire returns a retired snapshot shell to the pool for reuse.
func (r *Registry) retire(obj reclaim.Reclaimable) {
	snap, ok := obj.(*snapshot)
	if !ok {
		return
	}
	r.mu.Lock()
	r.shellPool = append(r.shellPool, snap)
	r.mu.Unlock()
}

// acquireShellLocked must be called with r.mu held.
func (r *Registry) acquireShellLocked() *snapshot {
	if n := len(r.shellPool); n > 0 {
		s := r.shellPool[n-1]
		r.shellPool = r.shellPool[:n-1]
		return s
	}
	return newSnapshot()
}

// CreateObject allocates a DataID from the free pool and publishes an
// empty current snapshot for it (both properties unset). Returns
// ErrPoolExhausted if the pool is empty.
func (r *Registry) CreateObject() (DataID, error) {
	r.mu.Lock()
	if len(r.freeIDs) == 0 {
		r.mu.Unlock()
		return Invalid, ErrPoolExhausted
	}
	idx := r.freeIDs[len(r.freeIDs)-1]
	r.freeIDs = r.freeIDs[:len(r.freeIDs)-1]
	gen := r.generations[idx]
	snap := r.acquireShellLocked()
	r.mu.Unlock()

	snap.reset()
	r.current[idx].Store(snap)

	return DataID{Index: idx, Generation: gen}, nil
}

// DeleteObject releases id back to the free pool. The slot's generation
// is bumped so any DataID still referencing the old generation is
// rejected as stale by subsequent operations — the core spec flags this
// generation bump as a required, easy-to-miss invariant. The object's
// current snapshot (if any) is handed to the reclaim policy rather than
// freed immediately, since readers may still hold it.
func (r *Registry) DeleteObject(id DataID) error {
	if err := r.validate(id); err != nil {
		return err
	}

	old := r.current[id.Index].Swap(nil)

	r.mu.Lock()
	if old != nil && old.name != "" {
		if existing, ok := r.nameIndex[old.name]; ok && existing == id {
			delete(r.nameIndex, old.name)
		}
	}
	r.generations[id.Index]++
	r.freeIDs = append(r.freeIDs, id.Index)
	r.mu.Unlock()

	if old != nil {
		r.policy.Enqueue(old)
	}
	return nil
}

// GetObjectByName returns the DataID registered under name, or
// ErrNameNotFound.
func (r *Registry) GetObjectByName(name string) (DataID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.nameIndex[name]
	if !ok {
		return Invalid, ErrNameNotFound
	}
	return id, nil
}

// validate checks that id refers to a currently-allocated slot under the
// generation it was issued with.
func (r *Registry) validate(id DataID) error {
	if int(id.Index) >= r.capacity {
		return ErrUnknownID
	}
	r.mu.Lock()
	gen := r.generations[id.Index]
	r.mu.Unlock()
	if gen != id.Generation {
		return ErrUnknownID
	}
	return nil
}

// Write begins a copy-on-write update for id: a fresh snapshot is cloned
// from the current published snapshot. The caller must eventually call
// Commit (or simply discard the Writer to abandon the update).
//
// Concurrent writers to the same id are a contract violation: the core
// spec leaves this undefined behavior and specifies it only as a failure
// mode for the test suite. This implementation does not detect it — it is
// the caller's duty to serialize writes per id (e.g. one writer goroutine
// per object, or an external lock keyed by id).
func (r *Registry) Write(id DataID) (*Writer, error) {
	if err := r.validate(id); err != nil {
		return nil, err
	}
	cur := r.current[id.Index].Load()
	if cur == nil {
		return nil, ErrUnknownID
	}

	r.mu.Lock()
	clone := r.acquireShellLocked()
	r.mu.Unlock()

	clone.copyFrom(cur)
	return &Writer{id: id, snap: clone}, nil
}

// Commit publishes w's staged snapshot as the new current snapshot for
// its id, atomically, and enqueues the displaced snapshot for deferred
// reclamation. If the written name (property 0) differs from the
// displaced snapshot's name, the name index is updated: the old mapping
// is removed and the new one installed.
func (r *Registry) Commit(w *Writer) error {
	if w.committed {
		return errors.New("data: writer already committed")
	}
	if err := r.validate(w.id); err != nil {
		return err
	}

	old := r.current[w.id.Index].Swap(w.snap)
	w.committed = true

	oldName := ""
	if old != nil {
		oldName = old.name
	}
	newName := w.snap.name

	if oldName != newName {
		r.mu.Lock()
		if oldName != "" {
			if existing, ok := r.nameIndex[oldName]; ok && existing == w.id {
				delete(r.nameIndex, oldName)
			}
		}
		if newName != "" {
			r.nameIndex[newName] = w.id
		}
		r.mu.Unlock()
	}

	if old != nil {
		r.policy.Enqueue(old)
	}
	return nil
}

// Read atomically fetches the current snapshot for id, increments its
// refcount, and returns a Reader. A reader of a snapshot later displaced
// by Commit still observes consistent data until EndRead.
func (r *Registry) Read(id DataID) (*Reader, error) {
	if err := r.validate(id); err != nil {
		return nil, err
	}
	snap := r.current[id.Index].Load()
	if snap == nil {
		return nil, ErrUnknownID
	}
	atomic.AddInt32(&snap.refcount, 1)
	return &Reader{snap: snap}, nil
}

// EndRead decrements the refcount a prior Read incremented. Must be
// called exactly once per Reader.
func (r *Registry) EndRead(reader *Reader) {
	atomic.AddInt32(&reader.snap.refcount, -1)
}

// GarbageCollect asks the configured reclaim policy to sweep its pending
// queue now, retiring any snapshot whose refcount has reached zero.
// Returns the number of snapshots retired by this call. Policies that
// reclaim on their own schedule (e.g. Streaming) may legitimately return
// 0 here even with eligible work pending.
func (r *Registry) GarbageCollect() int {
	return r.policy.Reclaim()
}

// Close releases the configured reclaim policy's resources (e.g. a
// background sweep goroutine).
func (r *Registry) Close() error {
	return r.policy.Close()
}

// SetData is a convenience shim equivalent to create-if-absent followed
// by write/set_buffer/commit under name.
func (r *Registry) SetData(name string, value []byte) (DataID, error) {
	id, err := r.GetObjectByName(name)
	if err != nil {
		id, err = r.CreateObject()
		if err != nil {
			return Invalid, err
		}
	}
	w, err := r.Write(id)
	if err != nil {
		return Invalid, err
	}
	w.SetString(PropertyName, name)
	w.SetBuffer(PropertyBuffer, value)
	if err := r.Commit(w); err != nil {
		return Invalid, err
	}
	return id, nil
}

// PublishSingleton is a convenience shim equivalent to create-if-absent
// followed by write/set_property(PropertySingleton)/commit under name.
// Used by the host to publish its io/memory/log/profile singletons,
// and by extensions to publish any other opaque value by well-known
// name, without going through the byte-buffer property.
func (r *Registry) PublishSingleton(name string, value any) (DataID, error) {
	id, err := r.GetObjectByName(name)
	if err != nil {
		id, err = r.CreateObject()
		if err != nil {
			return Invalid, err
		}
	}
	w, err := r.Write(id)
	if err != nil {
		return Invalid, err
	}
	w.SetString(PropertyName, name)
	w.SetProperty(PropertySingleton, value)
	if err := r.Commit(w); err != nil {
		return Invalid, err
	}
	return id, nil
}

// GetSingleton is a convenience shim equivalent to get_object_by_name
// followed by a read/end_read pair that copies out the PropertySingleton
// property.
func (r *Registry) GetSingleton(name string) (any, error) {
	id, err := r.GetObjectByName(name)
	if err != nil {
		return nil, err
	}
	reader, err := r.Read(id)
	if err != nil {
		return nil, err
	}
	defer r.EndRead(reader)
	return reader.Property(PropertySingleton), nil
}

// GetData is a convenience shim equivalent to get_object_by_name followed
// by a read/end_read pair that copies out property 1.
func (r *Registry) GetData(name string) ([]byte, error) {
	id, err := r.GetObjectByName(name)
	if err != nil {
		return nil, err
	}
	reader, err := r.Read(id)
	if err != nil {
		return nil, err
	}
	defer r.EndRead(reader)
	return reader.Buffer(), nil
}
