package host

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/forge-engine/forge/api"
	"github.com/forge-engine/forge/corelog"
	"github.com/forge-engine/forge/data"
	"github.com/forge-engine/forge/dylib"
	"github.com/forge-engine/forge/extension"
	"github.com/forge-engine/forge/ioloop"
)

// appState is the fake application's opaque state, carrying a generation
// counter so tests can observe that AppLoad was called again on reload
// and with the prior state handed back.
type appState struct {
	generation int
	updates    int
	prev       *appState
	shutdown   bool
}

type fakeAppResolver struct {
	generation int
}

func (f fakeAppResolver) Lookup(name string) (any, error) {
	gen := f.generation
	switch name {
	case appLoadSymbol:
		return func(reg *api.Registry, previous any) any {
			s := &appState{generation: gen}
			if prev, ok := previous.(*appState); ok {
				s.prev = prev
			}
			return s
		}, nil
	case appShutdownSymbol:
		return func(state any) {
			state.(*appState).shutdown = true
		}, nil
	case appResizeSymbol:
		return func(any, float64, float64) {}, nil
	case appUpdateSymbol:
		return func(state any, io *ioloop.State) {
			state.(*appState).updates++
		}, nil
	}
	return nil, os.ErrNotExist
}

func fakeAppOpen(generation int) dylib.OpenFunc {
	return func(path string) (dylib.SymbolResolver, error) {
		return fakeAppResolver{generation: generation}, nil
	}
}

func newTestHost(t *testing.T, open dylib.OpenFunc) (*Host, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "game.so"), []byte("v1"), 0o755); err != nil {
		t.Fatal(err)
	}

	loader := dylib.New(dylib.Config{Open: open, LockPollInterval: 5 * time.Millisecond})
	apiRegistry := api.New(nil)
	dataRegistry := data.NewRegistry()
	extDir := t.TempDir()
	extRegistry := extension.NewRegistry(apiRegistry, loader, extDir, filepath.Join(extDir, "transient"), filepath.Join(extDir, "build.lock"))
	logger := corelog.New(corelog.RunContext{RunEpoch: 1}).WithOutput(os.Stderr)

	h := New(apiRegistry, dataRegistry, extRegistry, loader, logger, dir, "game")
	return h, dir
}

func TestLoadApplicationCallsAppLoadAndPublishesState(t *testing.T) {
	h, _ := newTestHost(t, fakeAppOpen(1))

	if err := h.PublishSingletons(); err != nil {
		t.Fatalf("PublishSingletons: %v", err)
	}
	if err := h.LoadApplication(context.Background()); err != nil {
		t.Fatalf("LoadApplication: %v", err)
	}

	st, ok := h.appState.(*appState)
	if !ok || st.generation != 1 {
		t.Fatalf("appState = %+v", h.appState)
	}

	got, err := h.Data.GetSingleton(SingletonAppState)
	if err != nil {
		t.Fatalf("GetSingleton(app_state): %v", err)
	}
	if got.(*appState) != st {
		t.Fatal("published app_state does not match host.appState")
	}
}

func TestTickDrivesAppUpdate(t *testing.T) {
	h, _ := newTestHost(t, fakeAppOpen(1))
	if err := h.LoadApplication(context.Background()); err != nil {
		t.Fatalf("LoadApplication: %v", err)
	}

	if err := h.Tick(context.Background(), 1.0/60); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	st := h.appState.(*appState)
	if st.updates != 1 {
		t.Fatalf("updates = %d, want 1", st.updates)
	}
}

func TestReloadApplicationPreservesStateChain(t *testing.T) {
	h, dir := newTestHost(t, fakeAppOpen(1))
	if err := h.LoadApplication(context.Background()); err != nil {
		t.Fatalf("LoadApplication: %v", err)
	}
	first := h.appState.(*appState)

	path := filepath.Join(dir, "game.so")
	future := time.Now().Add(time.Second)
	if err := os.WriteFile(path, []byte("v2"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	if err := h.Tick(context.Background(), 1.0/60); err != nil {
		t.Fatalf("Tick: %v", err)
	}

	second := h.appState.(*appState)
	if second == first {
		t.Fatal("appState unchanged across a detected reload")
	}
	if second.prev != first {
		t.Fatal("reloaded AppLoad was not handed the previous state")
	}
}

func TestShutdownCallsAppShutdownAndUnloadsExtensions(t *testing.T) {
	h, _ := newTestHost(t, fakeAppOpen(1))
	if err := h.LoadApplication(context.Background()); err != nil {
		t.Fatalf("LoadApplication: %v", err)
	}

	if err := h.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if h.Running() {
		t.Fatal("Running() = true after Shutdown")
	}
	if !h.appState.(*appState).shutdown {
		t.Fatal("AppShutdown was not called")
	}
	if names := h.Extensions.Names(); len(names) != 0 {
		t.Fatalf("extensions still loaded after Shutdown: %v", names)
	}
}
