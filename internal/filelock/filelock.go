// Package filelock provides an advisory lock flowctl run takes before
// opening and writing the shared sqlite history database, so two concurrent
// "flowctl run" invocations pointed at the same --history-db don't race
// opening or appending to it.
package filelock

import (
	"fmt"

	"github.com/gofrs/flock"
)

// FileLock wraps a flock lock guarding one history database path.
type FileLock struct {
	flock *flock.Flock
	path  string
}

// NewFileLock builds a lock for path. path is the lock file itself — the
// caller derives it from the database path it protects (see
// internal/cmd/run.go's recordHistory, which locks "{historyDB}.lock").
func NewFileLock(path string) *FileLock {
	return &FileLock{
		flock: flock.New(path),
		path:  path,
	}
}

// Lock acquires an exclusive lock, blocking until it is available.
func (fl *FileLock) Lock() error {
	if err := fl.flock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", fl.path, err)
	}
	return nil
}

// Unlock releases the lock.
func (fl *FileLock) Unlock() error {
	if err := fl.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", fl.path, err)
	}
	return nil
}
