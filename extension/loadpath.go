package extension

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// LibraryExtension returns the platform-specific shared library suffix:
// ".dll" on Windows, ".dylib" on darwin, ".so" everywhere else.
func LibraryExtension() string {
	switch runtime.GOOS {
	case "windows":
		return ".dll"
	case "darwin":
		return ".dylib"
	default:
		return ".so"
	}
}

// LibraryFileName returns the default on-disk filename for extension
// name under the current platform's naming convention.
func LibraryFileName(name string) string {
	return name + LibraryExtension()
}

// Candidate is one on-disk library file matching an extension name,
// discovered when more than one build (e.g. debug and release) coexists.
type Candidate struct {
	Path    string
	ModTime time.Time
}

// ErrNoCandidates is returned by VariantSelector.Select when given an
// empty candidate list.
var ErrNoCandidates = fmt.Errorf("extension: no on-disk candidates for name")

// VariantSelector picks which on-disk candidate backs an extension name
// when more than one exists. Selection prefers the most recently built
// candidate, then stays sticky to it across subsequent calls until a
// strictly newer candidate appears — mirroring a round-robin/sticky
// proxy selector's shape, simplified to a single always-applicable
// "stickiness" rule instead of configurable strategies.
type VariantSelector struct {
	mu     sync.Mutex
	sticky map[string]Candidate
}

// NewVariantSelector creates an empty VariantSelector.
func NewVariantSelector() *VariantSelector {
	return &VariantSelector{sticky: make(map[string]Candidate)}
}

// Select returns the chosen path for name among candidates.
func (v *VariantSelector) Select(name string, candidates []Candidate) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoCandidates
	}

	mostRecent := candidates[0]
	for _, c := range candidates[1:] {
		if c.ModTime.After(mostRecent.ModTime) {
			mostRecent = c
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if current, ok := v.sticky[name]; ok {
		for _, c := range candidates {
			if c.Path == current.Path && !mostRecent.ModTime.After(current.ModTime) {
				return current.Path, nil
			}
		}
	}

	v.sticky[name] = mostRecent
	return mostRecent.Path, nil
}

// defaultNameGlob is the glob pattern used to discover candidates for
// name under dir: any file starting with the name and carrying the
// platform's library suffix, which allows coexisting "name_debug.so" /
// "name_release.so" style builds alongside the plain "name.so".
func defaultNameGlob(dir, name string) string {
	return filepath.Join(dir, name+"*"+LibraryExtension())
}
