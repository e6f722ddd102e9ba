// Package dylib implements the Dynamic Library Loader: open/close a
// shared object, resolve named symbols, detect on-disk change, and
// atomically swap in a rebuilt copy while preserving handle identity.
//
// Go has no standard, cross-platform dlopen/dlclose. On linux and darwin
// this package backs Handle with the standard library's plugin package;
// on every other platform Open returns ErrUnsupportedPlatform. A further
// limitation inherited from plugin: a *plugin.Plugin is never actually
// unmapped once opened (the Go runtime does not support dlclose), so
// Close here only marks the handle closed for bookkeeping — the mapped
// code and any goroutines it started remain resident until process exit.
// This is called out because it is the one place this port cannot match
// the portability of the C original, which ran its own dlopen/dlclose on
// three platforms directly.
package dylib

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// ErrUnsupportedPlatform is returned by the default Open on platforms
// without Go plugin support.
var ErrUnsupportedPlatform = errors.New("dylib: dynamic loading unsupported on this platform")

// ErrSymbolNotFound is returned by Resolve for a missing symbol. Per the
// core spec's error model this is a "resource unavailable" condition:
// callers treat a nil resolved function as "extension unavailable", not
// as a fatal error.
var ErrSymbolNotFound = errors.New("dylib: symbol not found")

// SymbolResolver is the minimal capability a dynamically opened library
// must provide. The real implementation wraps *plugin.Plugin; tests
// substitute a fake.
type SymbolResolver interface {
	// Lookup resolves a named symbol, or returns an error if absent.
	Lookup(name string) (any, error)
}

// OpenFunc opens a shared library file and returns a resolver over its
// exported symbols. The default is platform-specific (see
// plugin_unix.go / plugin_unsupported.go).
type OpenFunc func(path string) (SymbolResolver, error)

// Config configures a Loader.
type Config struct {
	// Open opens a library file. Defaults to the platform's native
	// opener.
	Open OpenFunc
	// LockPollInterval is how long to sleep between checks of the
	// rendezvous lock file during Load/Reload. Defaults to 20ms.
	LockPollInterval time.Duration
}

// Loader opens, closes, and hot-swaps shared libraries using the
// copy-to-transient-path-then-open contract described in the core spec's
// §4.A and §9 design notes: the original file must remain writable by a
// concurrent build, so the loader never opens it directly.
type Loader struct {
	cfg Config
}

// New creates a Loader, filling unset Config fields with defaults.
func New(cfg Config) *Loader {
	if cfg.Open == nil {
		cfg.Open = defaultOpen
	}
	if cfg.LockPollInterval <= 0 {
		cfg.LockPollInterval = 20 * time.Millisecond
	}
	return &Loader{cfg: cfg}
}

// Handle is an opaque, long-lived reference to a loaded library. Its
// identity (the pointer) stays stable across Reload so that code holding
// onto a *Handle never needs to re-fetch it — only the symbols resolved
// through it need refreshing.
type Handle struct {
	name         string
	originalPath string
	lockPath     string
	transientDir string
	suffix       int

	resolver SymbolResolver
	loadedAt time.Time // mtime of originalPath as of the most recent (re)open
	closed   bool
}

// Name returns the handle's extension/library name.
func (h *Handle) Name() string { return h.name }

// TransientPath returns the path of the currently open transient copy,
// for diagnostics.
func (h *Handle) TransientPath() string {
	return rotatingPath(h.transientDir, h.name, h.suffix)
}

// Load opens originalPath. It waits for lockPath to disappear (a
// rendezvous file meaning "build in progress; defer"), copies
// originalPath to a rotating transient path under transientDir, and opens
// the copy. The original file is never opened directly.
func (l *Loader) Load(ctx context.Context, name, originalPath, transientDir, lockPath string) (*Handle, error) {
	if err := waitForLock(ctx, lockPath, l.cfg.LockPollInterval); err != nil {
		return nil, err
	}

	info, err := os.Stat(originalPath)
	if err != nil {
		return nil, fmt.Errorf("dylib: stat %s: %w", originalPath, err)
	}

	h := &Handle{
		name:         name,
		originalPath: originalPath,
		lockPath:     lockPath,
		transientDir: transientDir,
	}

	if err := l.openTransientCopy(h); err != nil {
		return nil, err
	}
	h.loadedAt = info.ModTime()
	return h, nil
}

// openTransientCopy copies h.originalPath to the transient path for
// h.suffix and opens it, populating h.resolver. Used by both Load and
// Reload (which increments h.suffix first). OpenBuiltin does not go
// through it.
func (l *Loader) openTransientCopy(h *Handle) error {
	if err := os.MkdirAll(h.transientDir, 0o755); err != nil {
		return fmt.Errorf("dylib: create transient dir: %w", err)
	}
	data, err := os.ReadFile(h.originalPath)
	if err != nil {
		return fmt.Errorf("dylib: read %s: %w", h.originalPath, err)
	}
	dst := rotatingPath(h.transientDir, h.name, h.suffix)
	if err := os.WriteFile(dst, data, 0o755); err != nil {
		return fmt.Errorf("dylib: write transient copy: %w", err)
	}
	resolver, err := l.cfg.Open(dst)
	if err != nil {
		return fmt.Errorf("dylib: open %s: %w", dst, err)
	}
	h.resolver = resolver
	return nil
}

// rotatingPath builds the transient filename `<name>_<suffix>` under dir,
// matching the on-disk layout contract in the core spec's §6.
func rotatingPath(dir, name string, suffix int) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%d", name, suffix))
}

// HasChanged compares the mtime of h's original path against the mtime
// captured at the most recent (re)open.
func (l *Loader) HasChanged(h *Handle) (bool, error) {
	info, err := os.Stat(h.originalPath)
	if err != nil {
		return false, fmt.Errorf("dylib: stat %s: %w", h.originalPath, err)
	}
	return info.ModTime().After(h.loadedAt), nil
}

// Reload waits for the build lock, closes the currently open transient
// copy, re-copies the original file to the next rotating transient path,
// and re-opens it — preserving h's identity so callers holding the
// *Handle see the refreshed resolver through the same pointer.
func (l *Loader) Reload(ctx context.Context, h *Handle) error {
	if err := waitForLock(ctx, h.lockPath, l.cfg.LockPollInterval); err != nil {
		return err
	}

	if closer, ok := h.resolver.(io.Closer); ok {
		_ = closer.Close()
	}

	info, err := os.Stat(h.originalPath)
	if err != nil {
		return fmt.Errorf("dylib: stat %s: %w", h.originalPath, err)
	}

	h.suffix++
	if err := l.openTransientCopy(h); err != nil {
		return err
	}
	h.loadedAt = info.ModTime()
	return nil
}

// Resolve looks up a named symbol on h. A missing symbol returns
// ErrSymbolNotFound rather than panicking — callers treat it as
// "extension unavailable" per the core spec's error model.
func (l *Loader) Resolve(h *Handle, name string) (any, error) {
	if h.closed {
		return nil, fmt.Errorf("dylib: handle %q is closed", h.name)
	}
	sym, err := h.resolver.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s in %s", ErrSymbolNotFound, name, h.name)
	}
	return sym, nil
}

// Close marks h closed. See the package doc comment: on the plugin-backed
// platforms this does not actually unmap the library from the process.
func (l *Loader) Close(h *Handle) error {
	if h.closed {
		return nil
	}
	if closer, ok := h.resolver.(io.Closer); ok {
		_ = closer.Close()
	}
	h.closed = true
	return nil
}
