package dylib

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Embedded builtin extension bundle: a no-op introspection extension
// ("ping", "describe") available through OpenBuiltin. Neither the host
// nor the extension registry opens it on its own; a name with no on-disk
// variant fails to load. It is compiled directly into the forge binary, so unlike an on-disk library it never needs
// dlopen/plugin.Open — builtinResolver below answers Lookup in-process.
// The manifest bytes are still embedded and extracted to a checksum-named
// temp path purely so audit/replay tooling has a real file to reference
// when it records "builtin" as an extension's source, mirroring how a
// regular Handle always names a transient path on disk.
//
//go:embed bundle/builtin.manifest
var embeddedManifest []byte

var (
	builtinOnce sync.Once
	builtinPath string
	builtinErr  error
)

// EmbeddedChecksum returns the SHA256 checksum of the builtin bundle.
func EmbeddedChecksum() string {
	sum := sha256.Sum256(embeddedManifest)
	return hex.EncodeToString(sum[:])
}

// ExtractedBuiltinPath extracts the embedded manifest to a deterministic,
// checksum-named temp path on first call and returns that path on every
// call thereafter.
func ExtractedBuiltinPath() (string, error) {
	builtinOnce.Do(func() {
		builtinPath, builtinErr = extractBuiltin()
	})
	return builtinPath, builtinErr
}

func extractBuiltin() (string, error) {
	checksum := EmbeddedChecksum()[:16]
	dir := filepath.Join(os.TempDir(), fmt.Sprintf("forge-builtin-%s", checksum))
	path := filepath.Join(dir, "builtin.manifest")

	if info, err := os.Stat(path); err == nil && info.Size() == int64(len(embeddedManifest)) {
		return path, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("dylib: create builtin extraction dir: %w", err)
	}
	if err := os.WriteFile(path, embeddedManifest, 0o644); err != nil {
		return "", fmt.Errorf("dylib: write builtin manifest: %w", err)
	}
	return path, nil
}

// builtinSymbols is the fixed symbol table the builtin extension exports.
var builtinSymbols = map[string]any{
	"ping":     func() string { return "pong" },
	"describe": func() string { return "forge builtin introspection extension" },
}

// builtinResolver answers Lookup against builtinSymbols without ever
// touching disk.
type builtinResolver struct{}

func (builtinResolver) Lookup(name string) (any, error) {
	sym, ok := builtinSymbols[name]
	if !ok {
		return nil, fmt.Errorf("dylib: builtin has no symbol %q", name)
	}
	return sym, nil
}

// OpenBuiltin returns a Handle backed by the in-process builtin
// extension. Its original path is the extracted manifest; its
// TransientPath is "<name>_0" in the manifest's directory, where no file
// is written. Loader.Reload does not special-case this handle: it copies
// the manifest to the next transient path and hands that to the Loader's
// Open function.
func OpenBuiltin(name string) (*Handle, error) {
	path, err := ExtractedBuiltinPath()
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &Handle{
		name:         name,
		originalPath: path,
		transientDir: filepath.Dir(path),
		resolver:     builtinResolver{},
		loadedAt:     info.ModTime(),
	}, nil
}
