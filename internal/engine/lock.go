package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// WorkspaceLock is the workspace-wide advisory lock spec §5 requires to
// prevent two concurrent runs against the same workspace, grounded on the
// teacher's internal/embed.FileLock: same gofrs/flock wrapper and explicit
// locked-state tracking, retargeted from a model-download lock to the
// workspace lock at appconfig.Config.LockPath().
type WorkspaceLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewWorkspaceLock returns a lock for the given path (appconfig's
// LockPath()).
func NewWorkspaceLock(path string) *WorkspaceLock {
	return &WorkspaceLock{path: path, flock: flock.New(path)}
}

// Lock acquires the exclusive lock, blocking until it is available.
func (l *WorkspaceLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	if err := l.flock.Lock(); err != nil {
		return fmt.Errorf("acquire workspace lock: %w", err)
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking.
func (l *WorkspaceLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("create lock directory: %w", err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("acquire workspace lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// Unlock releases the lock. Safe to call multiple times or when unlocked.
func (l *WorkspaceLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		l.locked = false
		return fmt.Errorf("release workspace lock: %w", err)
	}
	l.locked = false
	return nil
}

func (l *WorkspaceLock) Path() string   { return l.path }
func (l *WorkspaceLock) IsLocked() bool { return l.locked }
