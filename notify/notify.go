// Package notify defines the lifecycle-event fan-out boundary. The
// Extension Registry publishes a LifecycleEvent to its configured Sink
// after each successful load, reload, or unload — after the extension's
// own entry point has run, so external observers never race ahead of
// in-process rebinding. The API Registry does not publish to a Sink; it
// reports mutations through its own api.Notifier interface, and no
// registry emits the KindAPI* kinds. This is purely additive: the core
// registries function identically with no Sink configured (notify.Noop).
package notify

import (
	"context"
	"time"
)

// Kind identifies the class of lifecycle transition a LifecycleEvent
// describes.
type Kind string

const (
	KindAPIAdded           Kind = "api_added"
	KindAPIReplaced        Kind = "api_replaced"
	KindAPIRemoved         Kind = "api_removed"
	KindExtensionLoaded    Kind = "extension_loaded"
	KindExtensionReloaded  Kind = "extension_reloaded"
	KindExtensionUnloaded  Kind = "extension_unloaded"
)

// LifecycleEvent is the payload published on every registry mutation
// worth telling the outside world about.
type LifecycleEvent struct {
	Kind      Kind      `json:"kind"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
	Attempt   int       `json:"attempt,omitempty"`
}

// Sink publishes lifecycle events to a downstream system. Implementations
// must be safe for concurrent use by multiple registries.
type Sink interface {
	// Publish sends ev to the downstream system. Must respect context
	// cancellation and deadlines.
	Publish(ctx context.Context, ev LifecycleEvent) error
	// Close releases sink resources.
	Close() error
}

// Noop discards every event. It is the default Sink so that registries
// never require a configured notifier.
type Noop struct{}

func (Noop) Publish(context.Context, LifecycleEvent) error { return nil }
func (Noop) Close() error                                  { return nil }

// Fanout publishes to every configured Sink concurrently, returning the
// first error encountered (after every sink has been given a chance to
// run) while still attempting all of them. A slow or failing sink never
// blocks the others — each runs in its own goroutine.
type Fanout struct {
	sinks []Sink
}

// NewFanout builds a Fanout over the given sinks. A nil or empty slice of
// sinks behaves like Noop.
func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Publish(ctx context.Context, ev LifecycleEvent) error {
	if len(f.sinks) == 0 {
		return nil
	}
	errs := make(chan error, len(f.sinks))
	for _, s := range f.sinks {
		s := s
		go func() { errs <- s.Publish(ctx, ev) }()
	}
	var first error
	for range f.sinks {
		if err := <-errs; err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f *Fanout) Close() error {
	var first error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
