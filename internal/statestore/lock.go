package statestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryInterval = 100 * time.Millisecond

// fileLock serializes load-mutate-save cycles across processes.
type fileLock struct {
	lockPath string
}

func newFileLock(statePath string) fileLock {
	return fileLock{lockPath: statePath + ".lock"}
}

func (l fileLock) Lock(ctx context.Context) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(l.lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	lock := flock.New(l.lockPath)
	locked, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", l.lockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("acquire %s: lock not obtained", l.lockPath)
	}
	return lock.Unlock, nil
}
