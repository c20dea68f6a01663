// Package lockfile provides the exclusive lock files used to serialize
// catalog downloads and custom store rewrites across processes.
package lockfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrTimeout is returned by Wait when the lock stays held past the timeout
var ErrTimeout = errors.New("timed out waiting for lock")

// Lock is a held lock file
type Lock struct {
	file *os.File
	path string
}

// Acquire creates path exclusively. It fails with an error satisfying
// errors.Is(err, os.ErrExist) when another holder owns the lock.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	// O_CREATE|O_EXCL will fail if file exists
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	return &Lock{file: f, path: path}, nil
}

// Wait retries Acquire every interval until it succeeds, ctx is done or timeout elapses
func Wait(ctx context.Context, path string, interval, timeout time.Duration) (*Lock, error) {
	lock, err := Acquire(path)
	if err == nil || !errors.Is(err, os.ErrExist) {
		return lock, err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, fmt.Errorf("%w: %s", ErrTimeout, path)
		case <-ticker.C:
			lock, err := Acquire(path)
			if err == nil || !errors.Is(err, os.ErrExist) {
				return lock, err
			}
		}
	}
}

// Held reports whether a lock file currently exists at path
func Held(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Break removes a stale lock file. A missing file is not an error.
func Break(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Release closes and removes the lock file
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	closeErr := l.file.Close()
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return closeErr
}
