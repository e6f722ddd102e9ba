//go:build !linux && !darwin

package dylib

// defaultOpen on platforms without Go plugin support always fails.
// Callers needing hot-reload on these platforms must inject their own
// Config.Open (e.g. backed by cgo dlopen bindings).
func defaultOpen(path string) (SymbolResolver, error) {
	return nil, ErrUnsupportedPlatform
}
