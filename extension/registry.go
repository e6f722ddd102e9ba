// Package extension implements the Extension Registry and Hot-Reload
// Loader: loading a shared library as a named extension, resolving its
// load/unload entry points, and sweeping hot-watched extensions once per
// frame for on-disk changes.
//
// An extension exports exactly two symbols:
//
//	func LoadExt(reg *api.Registry, reloading bool)
//	func UnloadExt(reg *api.Registry)
//
// LoadExt is called once on first Load with reloading=false, telling the
// extension to Add its tables into reg, and again after every successful
// Reload with reloading=true, telling it to Replace the tables it
// previously added instead of adding a second copy. UnloadExt is called
// exactly once, on Unload, and must Remove everything the extension ever
// added.
package extension

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/forge-engine/forge/api"
	"github.com/forge-engine/forge/audit"
	"github.com/forge-engine/forge/dylib"
	"github.com/forge-engine/forge/notify"
	"github.com/forge-engine/forge/telemetry"
)

// LoadFunc is an extension's load entry point.
type LoadFunc func(reg *api.Registry, reloading bool)

// UnloadFunc is an extension's unload entry point.
type UnloadFunc func(reg *api.Registry)

// Record is one loaded extension's bookkeeping: its library location,
// resolved ABI entry points, and whether it participates in the
// per-frame reload sweep.
type Record struct {
	Name         string
	LibraryPath  string
	LoadSymbol   string
	UnloadSymbol string
	Reloadable   bool

	handle   *dylib.Handle
	loadFn   LoadFunc
	unloadFn UnloadFunc
}

// Handle exposes the record's underlying dylib.Handle, for diagnostics.
func (r *Record) Handle() *dylib.Handle { return r.handle }

// DefaultLoadSymbol and DefaultUnloadSymbol name the ABI entry points
// Load uses when the caller does not override them.
const (
	DefaultLoadSymbol   = "LoadExt"
	DefaultUnloadSymbol = "UnloadExt"
)

// Registry tracks every loaded extension and drives hot reload.
type Registry struct {
	mu      sync.Mutex
	records map[string]*Record
	hot     []string // names participating in ReloadSweep, load order

	api      *api.Registry
	loader   *dylib.Loader
	libDir   string
	tmpDir   string
	lockPath string
	variants *VariantSelector

	notifySink notify.Sink
	trail      audit.Trail
	telemetry  *telemetry.Collector
	watcher    *dylib.Watcher

	runEpoch int64
}

// Option configures a Registry at construction.
type Option func(*Registry)

// WithNotifySink sets the sink extension lifecycle events are published
// to after each successful transition. Defaults to notify.Noop{}.
func WithNotifySink(sink notify.Sink) Option {
	return func(r *Registry) { r.notifySink = sink }
}

// WithAuditTrail sets the audit trail every load/unload/reload is
// recorded to. Defaults to audit.Noop{}.
func WithAuditTrail(trail audit.Trail) Option {
	return func(r *Registry) { r.trail = trail }
}

// WithTelemetry sets the collector extension counters are reported to.
// A nil collector is safe to use (every method is a no-op on nil).
func WithTelemetry(c *telemetry.Collector) Option {
	return func(r *Registry) { r.telemetry = c }
}

// WithRunEpoch stamps every audit.Record with epoch, distinguishing
// records from separate host process runs sharing one audit trail.
func WithRunEpoch(epoch int64) Option {
	return func(r *Registry) { r.runEpoch = epoch }
}

// WithWatcher enables push-based reload: every hot-watched extension's
// library path is registered with w, and StartWatching reloads it as
// soon as fsnotify reports a write, instead of waiting for the next
// ReloadSweep. The per-frame mtime poll still runs regardless, so a
// missed or coalesced fsnotify event is never fatal, only slower.
func WithWatcher(w *dylib.Watcher) Option {
	return func(r *Registry) { r.watcher = w }
}

// NewRegistry creates an Extension Registry backed by apiRegistry and
// loader. libDir is where on-disk extension candidates are discovered;
// tmpDir is the loader's transient-copy directory; lockPath is the
// rendezvous lock file a concurrent build holds while rebuilding any
// extension under libDir.
func NewRegistry(apiRegistry *api.Registry, loader *dylib.Loader, libDir, tmpDir, lockPath string, opts ...Option) *Registry {
	r := &Registry{
		records:    make(map[string]*Record),
		api:        apiRegistry,
		loader:     loader,
		libDir:     libDir,
		tmpDir:     tmpDir,
		lockPath:   lockPath,
		variants:   NewVariantSelector(),
		notifySink: notify.Noop{},
		trail:      audit.Noop{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Load discovers the on-disk candidate(s) for name, opens the most
// recently built one (sticky across reloads, see VariantSelector),
// resolves loadSymbol/unloadSymbol, and calls LoadExt(reg, false). A
// second Load for an already-loaded name is a no-op.
func (r *Registry) Load(ctx context.Context, name, loadSymbol, unloadSymbol string, reloadable bool) error {
	if loadSymbol == "" {
		loadSymbol = DefaultLoadSymbol
	}
	if unloadSymbol == "" {
		unloadSymbol = DefaultUnloadSymbol
	}

	r.mu.Lock()
	if _, exists := r.records[name]; exists {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	originalPath, err := r.resolveCandidate(name)
	if err != nil {
		return err
	}

	handle, err := r.loader.Load(ctx, name, originalPath, r.tmpDir, r.lockPath)
	if err != nil {
		if r.telemetry != nil {
			r.telemetry.IncReloadFailure()
		}
		return fmt.Errorf("extension: load %s: %w", name, err)
	}

	loadFn, unloadFn, err := r.resolveEntryPoints(handle, loadSymbol, unloadSymbol)
	if err != nil {
		_ = r.loader.Close(handle)
		return err
	}

	rec := &Record{
		Name:         name,
		LibraryPath:  originalPath,
		LoadSymbol:   loadSymbol,
		UnloadSymbol: unloadSymbol,
		Reloadable:   reloadable,
		handle:       handle,
		loadFn:       loadFn,
		unloadFn:     unloadFn,
	}

	loadFn(r.api, false)

	r.mu.Lock()
	r.records[name] = rec
	if reloadable {
		r.hot = append(r.hot, name)
	}
	r.mu.Unlock()

	if reloadable && r.watcher != nil {
		_ = r.watcher.Add(handle)
	}

	if r.telemetry != nil {
		r.telemetry.IncExtensionLoad()
	}
	r.publish(ctx, notify.KindExtensionLoaded, name)
	r.record(ctx, "load", rec)
	return nil
}

// Unload calls UnloadExt, closes the underlying handle, and removes name
// from the registry. Unloading an unknown name is a no-op.
func (r *Registry) Unload(ctx context.Context, name string) error {
	r.mu.Lock()
	rec, ok := r.records[name]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.records, name)
	r.removeHotLocked(name)
	r.mu.Unlock()

	if r.watcher != nil {
		r.watcher.Remove(rec.handle)
	}

	rec.unloadFn(r.api)
	if err := r.loader.Close(rec.handle); err != nil {
		return fmt.Errorf("extension: close %s: %w", name, err)
	}

	if r.telemetry != nil {
		r.telemetry.IncExtensionUnload()
	}
	r.publish(ctx, notify.KindExtensionUnloaded, name)
	r.record(ctx, "unload", rec)
	return nil
}

// UnloadAll unloads every currently loaded extension. Order is
// unspecified; extensions must not depend on unload ordering among
// themselves.
func (r *Registry) UnloadAll(ctx context.Context) error {
	r.mu.Lock()
	names := make([]string, 0, len(r.records))
	for name := range r.records {
		names = append(names, name)
	}
	r.mu.Unlock()

	var firstErr error
	for _, name := range names {
		if err := r.Unload(ctx, name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ReloadSweep checks every hot-watched extension for an on-disk change
// and reloads any that changed. It is driven by the host's main loop,
// once per frame, rather than by the loader itself — the loader only
// knows how to detect and perform a single reload, not when to ask.
//
// After a successful reload the library's two entry points are always
// re-resolved, even though the handle's identity is preserved across
// Reload: the rebuilt library is opened from a new transient copy, so any
// function value resolved from the old mapping is stale.
func (r *Registry) ReloadSweep(ctx context.Context) error {
	r.mu.Lock()
	names := append([]string(nil), r.hot...)
	r.mu.Unlock()

	var firstErr error
	for _, name := range names {
		if err := r.reloadOne(ctx, name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// StartWatching drains the registry's fsnotify watcher (configured via
// WithWatcher) in a background goroutine, reloading a hot-watched
// extension as soon as its library file changes on disk rather than
// waiting for the next ReloadSweep. It returns immediately; the
// goroutine exits when ctx is cancelled or the watcher's Changed channel
// is closed. A Registry with no watcher configured returns immediately
// and does nothing.
func (r *Registry) StartWatching(ctx context.Context) {
	if r.watcher == nil {
		return
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case path, ok := <-r.watcher.Changed:
				if !ok {
					return
				}
				if name := r.nameForPath(path); name != "" {
					_ = r.reloadOne(ctx, name)
				}
			}
		}
	}()
}

func (r *Registry) nameForPath(path string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, rec := range r.records {
		if rec.LibraryPath == path {
			return name
		}
	}
	return ""
}

func (r *Registry) reloadOne(ctx context.Context, name string) error {
	r.mu.Lock()
	rec, ok := r.records[name]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	changed, err := r.loader.HasChanged(rec.handle)
	if err != nil {
		return fmt.Errorf("extension: check %s: %w", name, err)
	}
	if !changed {
		return nil
	}

	start := time.Now()
	if err := r.loader.Reload(ctx, rec.handle); err != nil {
		if r.telemetry != nil {
			r.telemetry.IncReloadFailure()
		}
		return fmt.Errorf("extension: reload %s: %w", name, err)
	}

	loadFn, unloadFn, err := r.resolveEntryPoints(rec.handle, rec.LoadSymbol, rec.UnloadSymbol)
	if err != nil {
		if r.telemetry != nil {
			r.telemetry.IncReloadFailure()
		}
		return err
	}

	r.mu.Lock()
	rec.loadFn = loadFn
	rec.unloadFn = unloadFn
	r.mu.Unlock()

	loadFn(r.api, true)

	if r.telemetry != nil {
		r.telemetry.ObserveReload(time.Since(start))
	}
	r.publish(ctx, notify.KindExtensionReloaded, name)
	r.record(ctx, "reload", rec)
	return nil
}

func (r *Registry) resolveEntryPoints(h *dylib.Handle, loadSymbol, unloadSymbol string) (LoadFunc, UnloadFunc, error) {
	loadSym, err := r.loader.Resolve(h, loadSymbol)
	if err != nil {
		return nil, nil, fmt.Errorf("extension: resolve %s: %w", loadSymbol, err)
	}
	loadFn, ok := loadSym.(func(*api.Registry, bool))
	if !ok {
		return nil, nil, fmt.Errorf("extension: symbol %s has wrong signature", loadSymbol)
	}

	unloadSym, err := r.loader.Resolve(h, unloadSymbol)
	if err != nil {
		return nil, nil, fmt.Errorf("extension: resolve %s: %w", unloadSymbol, err)
	}
	unloadFn, ok := unloadSym.(func(*api.Registry))
	if !ok {
		return nil, nil, fmt.Errorf("extension: symbol %s has wrong signature", unloadSymbol)
	}

	return loadFn, unloadFn, nil
}

// resolveCandidate globs libDir for on-disk files matching name and asks
// the VariantSelector to pick one.
func (r *Registry) resolveCandidate(name string) (string, error) {
	matches, err := filepath.Glob(defaultNameGlob(r.libDir, name))
	if err != nil {
		return "", fmt.Errorf("extension: glob %s: %w", name, err)
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("extension: no library found for %q under %s", name, r.libDir)
	}

	candidates := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		candidates = append(candidates, Candidate{Path: m, ModTime: info.ModTime()})
	}
	return r.variants.Select(name, candidates)
}

func (r *Registry) removeHotLocked(name string) {
	for i, n := range r.hot {
		if n == name {
			r.hot = append(r.hot[:i], r.hot[i+1:]...)
			return
		}
	}
}

func (r *Registry) publish(ctx context.Context, kind notify.Kind, name string) {
	_ = r.notifySink.Publish(ctx, notify.LifecycleEvent{
		Kind:      kind,
		Name:      name,
		Timestamp: time.Now(),
	})
}

func (r *Registry) record(ctx context.Context, kind string, rec *Record) {
	now := time.Now()
	info, err := os.Stat(rec.LibraryPath)
	var mtime int64
	if err == nil {
		mtime = info.ModTime().Unix()
	}
	_ = r.trail.Record(ctx, audit.Record{
		RunEpoch:      r.runEpoch,
		Kind:          kind,
		ExtensionName: rec.Name,
		LibraryPath:   rec.LibraryPath,
		TransientPath: rec.handle.TransientPath(),
		MTimeUnix:     mtime,
		Day:           now.UTC().Format("2006-01-02"),
	})
}

// Loaded reports whether name is currently loaded.
func (r *Registry) Loaded(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.records[name]
	return ok
}

// Names returns every currently loaded extension name, in no particular
// order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.records))
	for name := range r.records {
		names = append(names, name)
	}
	return names
}
