//go:build linux || darwin

package dylib

import "plugin"

// defaultOpen backs Loader.Config.Open on the two platforms the standard
// library's plugin package supports.
func defaultOpen(path string) (SymbolResolver, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return pluginResolver{p}, nil
}

// pluginResolver adapts *plugin.Plugin to SymbolResolver. It does not
// implement io.Closer: plugin.Plugin has no Close method, because the Go
// runtime cannot unmap a loaded plugin once opened.
type pluginResolver struct {
	p *plugin.Plugin
}

func (r pluginResolver) Lookup(name string) (any, error) {
	return r.p.Lookup(name)
}
