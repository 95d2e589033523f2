package utils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockFileSuffix = ".lock"
	lockRetryDelay = 250 * time.Millisecond
)

// DBLock serializes history writers across processes with a lock file next
// to the database.
type DBLock struct {
	lock *flock.Flock
	path string
}

// NewDBLock prepares the lock for dbPath, creating its directory.
func NewDBLock(dbPath string) (*DBLock, error) {
	absPath, err := GetAbsDBPath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, err
	}
	lockPath := absPath + lockFileSuffix
	return &DBLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// Lock waits for the lock without a deadline.
func (l *DBLock) Lock() error {
	return l.LockContext(context.Background())
}

// LockContext acquires the lock, polling until ctx is done. It logs a
// warning once if another process holds it.
func (l *DBLock) LockContext(ctx context.Context) error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}
	if locked {
		return nil
	}

	Log.Warnf("Another baseline-lite process is writing to %s, waiting for it to finish...", l.path)
	locked, err = l.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire lock on %s", l.path)
	}
	return nil
}

// Unlock releases the lock. Releasing a lock that was never taken is not
// an error.
func (l *DBLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

// GetAbsDBPath resolves the database path; empty means the default history
// file in the data directory.
func GetAbsDBPath(dbPath string) (string, error) {
	if dbPath == "" {
		dir, err := DataDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "history.sqlite"), nil
	}
	return filepath.Abs(ExpandPath(dbPath))
}
