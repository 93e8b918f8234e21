package file

import (
	"context"
	"fmt"
	"os"
	"time"
)

// dirLock is a file-based lock guarding read-modify-write sequences against
// other processes sharing the same store directory. In-process callers are
// already serialized per document by the write mutex; this covers the CLI
// and sibling processes.
type dirLock struct {
	path string
}

// acquire blocks until the lock file is created exclusively or ctx ends.
// The returned release function removes the lock.
func (l *dirLock) acquire(ctx context.Context) (func(), error) {
	for {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL, 0666)
		if err == nil {
			f.Close()
			return func() {
				os.Remove(l.path)
			}, nil
		}

		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", l.path, err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lock wait cancelled: %w", ctx.Err())
		case <-time.After(10 * time.Millisecond):
		}
	}
}
