// Package api implements the process-wide interface table registry.
//
// Producers publish a named table of function pointers (here, a type-erased
// Go value — typically a pointer to a struct of methods or closures) and
// consumers look it up by name. Replacement during hot reload is atomic
// with respect to concurrent lookups, and subscribers are notified exactly
// once per replace.
package api

import (
	"sync"
)

// Interface is a type-erased handle to a producer's published table.
// Producers typically publish a pointer to their own struct; the registry
// never dereferences it.
type Interface = any

// Callback is invoked when the registry replaces an interface pointer.
// newIface and oldIface are the new and old pointers passed to Replace;
// cookie is passed exactly as given to Subscribe.
type Callback func(newIface, oldIface Interface, cookie any)

type subscriber struct {
	callback Callback
	cookie   any
}

type entry struct {
	name        string
	iface       Interface
	subscribers []subscriber
}

// Registry is the process-wide API table. The zero value is not usable;
// construct with New.
type Registry struct {
	mu      sync.RWMutex
	entries []*entry
	notify  Notifier
}

// Notifier receives lifecycle events for every registry mutation. It is an
// optional, external, best-effort observer distinct from the in-process
// Subscribe/replace mechanism specified by the core contract.
type Notifier interface {
	APIAdded(name string)
	APIReplaced(name string)
	APIRemoved(name string)
}

// NoopNotifier discards every event.
type NoopNotifier struct{}

// APIAdded implements Notifier.
func (NoopNotifier) APIAdded(string) {}

// APIReplaced implements Notifier.
func (NoopNotifier) APIReplaced(string) {}

// APIRemoved implements Notifier.
func (NoopNotifier) APIRemoved(string) {}

// New creates an empty registry. A nil notifier is replaced with
// NoopNotifier.
func New(notify Notifier) *Registry {
	if notify == nil {
		notify = NoopNotifier{}
	}
	return &Registry{notify: notify}
}

// Add appends a new entry under name and returns iface unchanged, so
// callers can chain initialization:
//
//	gfx := api.Add(reg, "FORGE_API_GRAPHICS", &GraphicsAPI{...})
func Add[T Interface](r *Registry, name string, iface T) T {
	r.mu.Lock()
	r.entries = append(r.entries, &entry{name: name, iface: iface})
	r.mu.Unlock()
	r.notify.APIAdded(name)
	return iface
}

// Remove erases the entry matching iface by pointer identity (via ==
// comparison on the stored Interface value). It is a no-op if no entry
// matches. Returns true if an entry was removed.
func (r *Registry) Remove(iface Interface) bool {
	r.mu.Lock()
	idx := -1
	var name string
	for i, e := range r.entries {
		if e.iface == iface {
			idx = i
			name = e.name
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return false
	}
	r.entries = append(r.entries[:idx], r.entries[idx+1:]...)
	r.mu.Unlock()
	r.notify.APIRemoved(name)
	return true
}

// First returns the earliest-registered entry with the given name, or nil
// if none exists. Safe to call concurrently with Add/Replace/Remove: it
// returns either the pre- or post-mutation state, never a torn value.
func (r *Registry) First(name string) Interface {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.name == name {
			return e.iface
		}
	}
	return nil
}

// Next returns the entry registered after prev that shares prev's name, or
// nil if prev is the last such entry or is not found. Used to enumerate
// every table registered under a name:
//
//	for iface := reg.First(name); iface != nil; iface = reg.Next(iface) { ... }
func (r *Registry) Next(prev Interface) Interface {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prevIdx := -1
	for i, e := range r.entries {
		if e.iface == prev {
			prevIdx = i
			break
		}
	}
	if prevIdx < 0 {
		return nil
	}
	name := r.entries[prevIdx].name
	for i := prevIdx + 1; i < len(r.entries); i++ {
		if r.entries[i].name == name {
			return r.entries[i].iface
		}
	}
	return nil
}

// Replace swaps old for new in place, preserving the entry's position and
// name, then invokes every subscriber registered before the call exactly
// once with (new, old, cookie), and finally clears the subscriber list.
// Returns false if old was not found (new is not installed in that case).
func (r *Registry) Replace(old, new Interface) bool {
	r.mu.Lock()
	var target *entry
	for _, e := range r.entries {
		if e.iface == old {
			target = e
			break
		}
	}
	if target == nil {
		r.mu.Unlock()
		return false
	}

	target.iface = new
	subs := target.subscribers
	target.subscribers = nil
	name := target.name
	r.mu.Unlock()

	for _, s := range subs {
		s.callback(new, old, s.cookie)
	}
	r.notify.APIReplaced(name)
	return true
}

// Subscribe registers callback to be invoked exactly once, the next time
// the entry currently holding iface is replaced. Re-subscribing is the
// caller's responsibility after each notification (see §4.B of the
// engine's design notes: one rebind event per subscription, full stop).
// Returns false if iface is not currently registered.
func (r *Registry) Subscribe(iface Interface, callback Callback, cookie any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.iface == iface {
			e.subscribers = append(e.subscribers, subscriber{callback: callback, cookie: cookie})
			return true
		}
	}
	return false
}

// Len returns the number of registered entries, for diagnostics.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Names returns the distinct set of registered names in first-seen order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool, len(r.entries))
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		if !seen[e.name] {
			seen[e.name] = true
			names = append(names, e.name)
		}
	}
	return names
}
