// Package audit records a durable, Hive-partitioned history of extension
// load/unload/reload events for postmortem and compliance purposes
// ("which binary was live at frame N"). It is strictly a write-only log:
// nothing in this engine ever replays the audit trail to reconstruct
// registry state on restart — a registry's live state never rehydrates
// from disk.
package audit

import "context"

// Record is one entry in the audit trail.
type Record struct {
	RunEpoch      int64  `json:"run_epoch"`
	Kind          string `json:"kind"`
	ExtensionName string `json:"extension_name"`
	LibraryPath   string `json:"library_path"`
	TransientPath string `json:"transient_path"`
	MTimeUnix     int64  `json:"mtime_unix"`
	Day           string `json:"day"` // YYYY-MM-DD, the Hive partition key
}

// Trail appends audit records to durable storage. Implementations must be
// safe for concurrent use. The extension registry discards Record
// errors rather than propagating them — the reload sweep must not stall
// because the audit backend is unreachable.
type Trail interface {
	Record(ctx context.Context, rec Record) error
	Close() error
}

// Noop discards every record. Used when no audit backend is configured.
type Noop struct{}

func (Noop) Record(context.Context, Record) error { return nil }
func (Noop) Close() error                          { return nil }
