package dylib

import (
	"context"
	"errors"
	"os"
	"time"
)

// waitForLock spins, polling every interval, until lockPath no longer
// exists. A build system is expected to create lockPath before it starts
// writing the library and remove it when the write is complete; this is
// the loader's half of that rendezvous, matching the core spec's note
// that hot-reload must never open a library mid-write.
func waitForLock(ctx context.Context, lockPath string, interval time.Duration) error {
	for {
		_, err := os.Stat(lockPath)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}
