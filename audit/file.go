package audit

import (
	"context"
	"fmt"

	"github.com/justapithecus/lode/lode"
)

// trailDataset is the Lode dataset ID audit records are written under.
const trailDataset = "forge_audit"

// FileTrail appends audit records into a Lode dataset rooted at a local
// directory. Partitioning by day and extension name, and the segment and
// manifest layout underneath, are Lode's job (lode.WithHiveLayout) — callers
// never construct partition paths by hand.
type FileTrail struct {
	dataset lode.Dataset
}

// NewFileTrail creates a FileTrail backed by filesystem storage rooted at
// dir. Lode creates dir (and its partition subdirectories) as needed.
func NewFileTrail(dir string) (*FileTrail, error) {
	return newFileTrailWithFactory(lode.NewFSFactory(dir))
}

func newFileTrailWithFactory(factory lode.StoreFactory) (*FileTrail, error) {
	ds, err := newTrailDataset(factory)
	if err != nil {
		return nil, err
	}
	return &FileTrail{dataset: ds}, nil
}

// newTrailDataset opens the audit trail's Lode dataset against factory,
// partitioned by day and extension and written as newline-delimited JSON.
func newTrailDataset(factory lode.StoreFactory) (lode.Dataset, error) {
	ds, err := lode.NewDataset(
		lode.DatasetID(trailDataset),
		factory,
		lode.WithHiveLayout("day", "extension"),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
	if err != nil {
		return nil, fmt.Errorf("audit: open lode dataset: %w", err)
	}
	return ds, nil
}

func (t *FileTrail) Record(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.dataset.Write(ctx, []any{recordMap(rec)}, lode.Metadata{}); err != nil {
		return fmt.Errorf("audit: write record: %w", err)
	}
	return nil
}

func (t *FileTrail) Close() error { return nil }

// recordMap converts rec into the map[string]any shape Dataset.Write
// expects, adding the "extension" partition key alongside the JSON-named
// "extension_name" field Record itself carries.
func recordMap(rec Record) map[string]any {
	return map[string]any{
		"run_epoch":      rec.RunEpoch,
		"kind":           rec.Kind,
		"extension_name": rec.ExtensionName,
		"library_path":   rec.LibraryPath,
		"transient_path": rec.TransientPath,
		"mtime_unix":     rec.MTimeUnix,
		"day":            rec.Day,
		"extension":      rec.ExtensionName,
	}
}

var _ Trail = (*FileTrail)(nil)
