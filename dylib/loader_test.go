package dylib

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// fakeResolver is a SymbolResolver over an in-memory symbol table, keyed
// by the content of the file it was "opened" from — good enough to
// distinguish one transient copy's generation from the next in tests.
type fakeResolver struct {
	payload string
}

func (f fakeResolver) Lookup(name string) (any, error) {
	if name == "payload" {
		return f.payload, nil
	}
	return nil, errors.New("not found")
}

func fakeOpen(path string) (SymbolResolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return fakeResolver{payload: string(data)}, nil
}

func writeLib(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadCopiesOriginalBeforeOpening(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "ext.so")
	writeLib(t, original, "v1")

	l := New(Config{Open: fakeOpen})
	h, err := l.Load(context.Background(), "ext", original, filepath.Join(dir, "transient"), filepath.Join(dir, "ext.lock"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	sym, err := l.Resolve(h, "payload")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if sym.(string) != "v1" {
		t.Fatalf("payload = %v, want v1", sym)
	}

	if h.TransientPath() == original {
		t.Fatal("handle opened the original path directly, want a transient copy")
	}
}

func TestLoadWaitsForLockToClear(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "ext.so")
	writeLib(t, original, "v1")
	lock := filepath.Join(dir, "ext.lock")
	writeLib(t, lock, "")

	l := New(Config{Open: fakeOpen, LockPollInterval: 5 * time.Millisecond})

	done := make(chan error, 1)
	go func() {
		_, err := l.Load(context.Background(), "ext", original, filepath.Join(dir, "transient"), lock)
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("Load returned before lock was released")
	case <-time.After(30 * time.Millisecond):
	}

	os.Remove(lock)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Load after lock release: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Load never returned after lock release")
	}
}

func TestLoadRespectsContextCancellationDuringLockWait(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "ext.so")
	writeLib(t, original, "v1")
	lock := filepath.Join(dir, "ext.lock")
	writeLib(t, lock, "")

	l := New(Config{Open: fakeOpen, LockPollInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := l.Load(ctx, "ext", original, filepath.Join(dir, "transient"), lock)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Load error = %v, want context.DeadlineExceeded", err)
	}
}

func TestHasChangedDetectsModifiedOriginal(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "ext.so")
	writeLib(t, original, "v1")

	l := New(Config{Open: fakeOpen})
	h, err := l.Load(context.Background(), "ext", original, filepath.Join(dir, "transient"), filepath.Join(dir, "ext.lock"))
	if err != nil {
		t.Fatal(err)
	}

	changed, err := l.HasChanged(h)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Fatal("HasChanged = true immediately after Load")
	}

	// Ensure a strictly later mtime regardless of filesystem timestamp
	// resolution.
	future := time.Now().Add(time.Second)
	writeLib(t, original, "v2")
	if err := os.Chtimes(original, future, future); err != nil {
		t.Fatal(err)
	}

	changed, err = l.HasChanged(h)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("HasChanged = false after original was modified")
	}
}

func TestReloadPreservesHandleIdentityAndPicksUpNewSymbols(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "ext.so")
	writeLib(t, original, "v1")

	l := New(Config{Open: fakeOpen})
	h, err := l.Load(context.Background(), "ext", original, filepath.Join(dir, "transient"), filepath.Join(dir, "ext.lock"))
	if err != nil {
		t.Fatal(err)
	}
	firstTransient := h.TransientPath()

	writeLib(t, original, "v2")
	if err := l.Reload(context.Background(), h); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if h.TransientPath() == firstTransient {
		t.Fatal("Reload did not rotate the transient path")
	}

	sym, err := l.Resolve(h, "payload")
	if err != nil {
		t.Fatal(err)
	}
	if sym.(string) != "v2" {
		t.Fatalf("payload after reload = %v, want v2", sym)
	}
}

func TestResolveUnknownSymbolReturnsSentinelError(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "ext.so")
	writeLib(t, original, "v1")

	l := New(Config{Open: fakeOpen})
	h, err := l.Load(context.Background(), "ext", original, filepath.Join(dir, "transient"), filepath.Join(dir, "ext.lock"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := l.Resolve(h, "does_not_exist"); !errors.Is(err, ErrSymbolNotFound) {
		t.Fatalf("Resolve unknown symbol = %v, want ErrSymbolNotFound", err)
	}
}

func TestCloseThenResolveFails(t *testing.T) {
	dir := t.TempDir()
	original := filepath.Join(dir, "ext.so")
	writeLib(t, original, "v1")

	l := New(Config{Open: fakeOpen})
	h, err := l.Load(context.Background(), "ext", original, filepath.Join(dir, "transient"), filepath.Join(dir, "ext.lock"))
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Close(h); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Resolve(h, "payload"); err == nil {
		t.Fatal("Resolve on a closed handle succeeded, want error")
	}
	// Closing twice is a no-op.
	if err := l.Close(h); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestOpenBuiltinAnswersFixedSymbols(t *testing.T) {
	h, err := OpenBuiltin("builtin")
	if err != nil {
		t.Fatal(err)
	}
	l := New(Config{})
	sym, err := l.Resolve(h, "ping")
	if err != nil {
		t.Fatal(err)
	}
	fn, ok := sym.(func() string)
	if !ok {
		t.Fatalf("ping symbol has wrong type: %T", sym)
	}
	if fn() != "pong" {
		t.Fatalf("ping() = %q, want pong", fn())
	}
}
