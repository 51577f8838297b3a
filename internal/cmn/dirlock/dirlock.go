// Package dirlock provides a directory-based lock for coordinating writers
// in several processes that share a directory.
package dirlock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	// ErrLockConflict indicates the lock is held by someone else.
	ErrLockConflict = errors.New("directory is locked by another process")

	// ErrNotLocked indicates Unlock was called without holding the lock.
	ErrNotLocked = errors.New("directory is not locked")
)

const lockDirName = ".retrainer.lock"

// Options configures lock behavior.
type Options struct {
	// StaleThreshold is the age after which a lock left behind by a crashed
	// holder is broken (default: 30s).
	StaleThreshold time.Duration

	// RetryInterval is the delay between acquisition attempts in Lock
	// (default: 50ms).
	RetryInterval time.Duration
}

// Lock is a lock on one directory. It is held while the lock
// subdirectory exists; creating it is atomic on every local filesystem.
type Lock struct {
	lockPath string
	opts     Options

	mu     sync.Mutex
	isHeld bool
}

// New creates a lock for directory. Nothing is touched on disk until the
// lock is acquired.
func New(directory string, opts *Options) *Lock {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.StaleThreshold == 0 {
		o.StaleThreshold = 30 * time.Second
	}
	if o.RetryInterval == 0 {
		o.RetryInterval = 50 * time.Millisecond
	}
	return &Lock{
		lockPath: filepath.Join(directory, lockDirName),
		opts:     o,
	}
}

// TryLock acquires the lock without blocking. It returns ErrLockConflict
// when a fresh lock exists.
func (l *Lock) TryLock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.isHeld {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(l.lockPath), 0o750); err != nil {
		return fmt.Errorf("failed to create target directory: %w", err)
	}

	err := os.Mkdir(l.lockPath, 0o700)
	if err != nil && os.IsExist(err) && l.breakStale() {
		err = os.Mkdir(l.lockPath, 0o700)
	}
	if err != nil {
		if os.IsExist(err) {
			return ErrLockConflict
		}
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	l.isHeld = true
	return nil
}

// Lock acquires the lock, blocking until it is available or ctx is done.
func (l *Lock) Lock(ctx context.Context) error {
	err := l.TryLock()
	if !errors.Is(err, ErrLockConflict) {
		return err
	}

	ticker := time.NewTicker(l.opts.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err := l.TryLock()
			if !errors.Is(err, ErrLockConflict) {
				return err
			}
		}
	}
}

// Unlock releases the lock.
func (l *Lock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.isHeld {
		return ErrNotLocked
	}
	if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock directory: %w", err)
	}
	l.isHeld = false
	return nil
}

// IsHeldByMe reports whether this instance holds the lock.
func (l *Lock) IsHeldByMe() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isHeld
}

// breakStale removes the lock directory when it is older than the stale
// threshold and reports whether it did.
func (l *Lock) breakStale() bool {
	info, err := os.Stat(l.lockPath)
	if err != nil {
		return os.IsNotExist(err)
	}
	if time.Since(info.ModTime()) <= l.opts.StaleThreshold {
		return false
	}
	return os.Remove(l.lockPath) == nil
}
