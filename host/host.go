// Package host wires the API Registry, Data Registry, Extension
// Registry, and IO state machine together into the engine's single
// executable entry point: it publishes the io/memory/log/profile
// singletons, loads the application library, drives the application ABI
// (app_load/app_shutdown/app_resize/app_update), and runs the main loop
// (extension reload sweep -> new frame -> app update), hot-reloading the
// application library itself via the same dylib mechanism extensions use.
package host

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/forge-engine/forge/api"
	"github.com/forge-engine/forge/corelog"
	"github.com/forge-engine/forge/data"
	"github.com/forge-engine/forge/dylib"
	"github.com/forge-engine/forge/extension"
	"github.com/forge-engine/forge/ioloop"
)

// Application ABI. The state value returned by AppLoad is opaque to the
// host; it is handed back unchanged to every other entry point and, on
// reload, back to AppLoad itself so the application can re-bind API
// pointers without losing its own state.
type (
	AppLoadFunc     func(reg *api.Registry, previousState any) any
	AppShutdownFunc func(state any)
	AppResizeFunc   func(state any, width, height float64)
	AppUpdateFunc   func(state any, io *ioloop.State)
)

const (
	appLoadSymbol     = "AppLoad"
	appShutdownSymbol = "AppShutdown"
	appResizeSymbol   = "AppResize"
	appUpdateSymbol   = "AppUpdate"
)

// Well-known Data Registry singleton names, per the application ABI
// contract: the application and every extension find these by name
// rather than receiving them as parameters.
const (
	SingletonIO      = "io"
	SingletonMemory  = "memory"
	SingletonLog     = "log"
	SingletonProfile = "profile"
	SingletonAppState = "app_state"
)

// Host owns every core registry plus the application's lifecycle.
type Host struct {
	API        *api.Registry
	Data       *data.Registry
	Extensions *extension.Registry
	IO         *ioloop.State
	Memory     *MemoryTracker
	Profile    *Profiler
	Log        *corelog.Logger

	loader   *dylib.Loader
	appDir   string
	appName  string
	appHandle *dylib.Handle

	appLoad     AppLoadFunc
	appShutdown AppShutdownFunc
	appResize   AppResizeFunc
	appUpdate   AppUpdateFunc
	appState    any

	running bool
}

// New wires a Host around the given registries. loader is used for both
// the application library and, indirectly, every extension the caller
// loads through Extensions.
func New(apiRegistry *api.Registry, dataRegistry *data.Registry, extRegistry *extension.Registry, loader *dylib.Loader, logger *corelog.Logger, appDir, appName string) *Host {
	h := &Host{
		API:        apiRegistry,
		Data:       dataRegistry,
		Extensions: extRegistry,
		IO:         ioloop.New(),
		Memory:     NewMemoryTracker(),
		Profile:    NewProfiler(),
		Log:        logger,
		loader:     loader,
		appDir:     appDir,
		appName:    appName,
		running:    true,
	}
	return h
}

// PublishSingletons publishes io/memory/log/profile into the Data
// Registry under their well-known names. Call once at startup, before
// loading the application.
func (h *Host) PublishSingletons() error {
	if _, err := h.Data.PublishSingleton(SingletonIO, h.IO); err != nil {
		return fmt.Errorf("host: publish io: %w", err)
	}
	if _, err := h.Data.PublishSingleton(SingletonMemory, h.Memory); err != nil {
		return fmt.Errorf("host: publish memory: %w", err)
	}
	if _, err := h.Data.PublishSingleton(SingletonLog, h.Log); err != nil {
		return fmt.Errorf("host: publish log: %w", err)
	}
	if _, err := h.Data.PublishSingleton(SingletonProfile, h.Profile); err != nil {
		return fmt.Errorf("host: publish profile: %w", err)
	}
	return nil
}

// LoadApplication opens the application library, resolves its four ABI
// entry points, and calls AppLoad(reg, nil) to obtain initial state. The
// state is also published into the Data Registry under "app_state" so it
// survives independently of the in-memory Host struct across the host's
// own hot-reload, per the supplemented "keep app state alive across host
// reload" feature.
func (h *Host) LoadApplication(ctx context.Context) error {
	originalPath := filepath.Join(h.appDir, h.appName+extension.LibraryExtension())
	transientDir := filepath.Join(h.appDir, ".transient")
	lockPath := filepath.Join(h.appDir, "lock.tmp")

	handle, err := h.loader.Load(ctx, h.appName, originalPath, transientDir, lockPath)
	if err != nil {
		return fmt.Errorf("host: load application: %w", err)
	}

	loadFn, shutdownFn, resizeFn, updateFn, err := h.resolveAppEntryPoints(handle)
	if err != nil {
		_ = h.loader.Close(handle)
		return err
	}

	h.appHandle = handle
	h.appLoad, h.appShutdown, h.appResize, h.appUpdate = loadFn, shutdownFn, resizeFn, updateFn
	h.appState = loadFn(h.API, nil)

	if _, err := h.Data.PublishSingleton(SingletonAppState, h.appState); err != nil {
		return fmt.Errorf("host: publish app_state: %w", err)
	}
	return nil
}

func (h *Host) resolveAppEntryPoints(handle *dylib.Handle) (AppLoadFunc, AppShutdownFunc, AppResizeFunc, AppUpdateFunc, error) {
	loadSym, err := h.loader.Resolve(handle, appLoadSymbol)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("host: resolve %s: %w", appLoadSymbol, err)
	}
	loadFn, ok := loadSym.(func(*api.Registry, any) any)
	if !ok {
		return nil, nil, nil, nil, fmt.Errorf("host: %s has wrong signature", appLoadSymbol)
	}

	shutdownSym, err := h.loader.Resolve(handle, appShutdownSymbol)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("host: resolve %s: %w", appShutdownSymbol, err)
	}
	shutdownFn, ok := shutdownSym.(func(any))
	if !ok {
		return nil, nil, nil, nil, fmt.Errorf("host: %s has wrong signature", appShutdownSymbol)
	}

	resizeSym, err := h.loader.Resolve(handle, appResizeSymbol)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("host: resolve %s: %w", appResizeSymbol, err)
	}
	resizeFn, ok := resizeSym.(func(any, float64, float64))
	if !ok {
		return nil, nil, nil, nil, fmt.Errorf("host: %s has wrong signature", appResizeSymbol)
	}

	updateSym, err := h.loader.Resolve(handle, appUpdateSymbol)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("host: resolve %s: %w", appUpdateSymbol, err)
	}
	updateFn, ok := updateSym.(func(any, *ioloop.State))
	if !ok {
		return nil, nil, nil, nil, fmt.Errorf("host: %s has wrong signature", appUpdateSymbol)
	}

	return loadFn, shutdownFn, resizeFn, updateFn, nil
}

// reloadApplicationIfChanged mirrors extension.Registry.reloadOne for the
// single application library: on a detected change it reloads the
// handle, re-resolves all four entry points (the rebuilt library is a
// fresh mapping even though the handle's identity is preserved), and
// calls AppLoad with the previous state so the application can re-bind
// without losing it.
func (h *Host) reloadApplicationIfChanged(ctx context.Context) error {
	if h.appHandle == nil {
		return nil
	}
	changed, err := h.loader.HasChanged(h.appHandle)
	if err != nil {
		return fmt.Errorf("host: check application: %w", err)
	}
	if !changed {
		return nil
	}

	if err := h.loader.Reload(ctx, h.appHandle); err != nil {
		return fmt.Errorf("host: reload application: %w", err)
	}

	loadFn, shutdownFn, resizeFn, updateFn, err := h.resolveAppEntryPoints(h.appHandle)
	if err != nil {
		return err
	}
	h.appLoad, h.appShutdown, h.appResize, h.appUpdate = loadFn, shutdownFn, resizeFn, updateFn

	previous, err := h.Data.GetSingleton(SingletonAppState)
	if err != nil {
		previous = h.appState
	}
	h.appState = loadFn(h.API, previous)
	if _, err := h.Data.PublishSingleton(SingletonAppState, h.appState); err != nil {
		return fmt.Errorf("host: republish app_state: %w", err)
	}
	return nil
}

// Tick runs one iteration of the main loop: reload any changed
// extensions, reload the application library if it changed, drain and
// derive IO state for the frame, then call the application's update
// entry point.
func (h *Host) Tick(ctx context.Context, dt float64) error {
	if err := h.Extensions.ReloadSweep(ctx); err != nil {
		h.Log.Warn("extension reload sweep failed", map[string]any{"error": err.Error()})
	}
	if err := h.reloadApplicationIfChanged(ctx); err != nil {
		h.Log.Warn("application reload failed", map[string]any{"error": err.Error()})
	}

	h.IO.NewFrame(dt)

	if h.appUpdate != nil {
		h.appUpdate(h.appState, h.IO)
	}
	return nil
}

// Resize forwards a viewport size change to the application.
func (h *Host) Resize(width, height float64) {
	h.IO.SetViewport(width, height)
	if h.appResize != nil {
		h.appResize(h.appState, width, height)
	}
}

// Shutdown calls the application's shutdown entry point, unloads every
// extension, and closes the application's library handle. Running is set
// false so a caller's loop `for h.Running()` terminates naturally.
func (h *Host) Shutdown(ctx context.Context) error {
	h.running = false

	if h.appShutdown != nil {
		h.appShutdown(h.appState)
	}
	if err := h.Extensions.UnloadAll(ctx); err != nil {
		h.Log.Warn("extension unload failed during shutdown", map[string]any{"error": err.Error()})
	}
	if h.appHandle != nil {
		if err := h.loader.Close(h.appHandle); err != nil {
			return fmt.Errorf("host: close application: %w", err)
		}
	}
	return h.Data.Close()
}

// Running reports whether the host's IO state (and thus, conventionally,
// the application) still wants the main loop to continue.
func (h *Host) Running() bool {
	return h.running && h.IO.Running
}

// AppLibraryExists reports whether an on-disk application library is
// present for this Host's configured name, used by `forge run` to give
// a clear startup error instead of a generic load failure.
func (h *Host) AppLibraryExists() bool {
	_, err := os.Stat(filepath.Join(h.appDir, h.appName+extension.LibraryExtension()))
	return err == nil
}

// frameBudget is a fixed 60 Hz tick duration. Nothing reads it: the CLI's
// run loop ticks on its own frameInterval constant in cli/cmd.
const frameBudget = time.Second / 60
