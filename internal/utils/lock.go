package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileSuffix = ".lock"

// JobLock is a file-based lock that keeps a scheduled job single-flight
// across processes. A second process trying to run the same job either
// waits or, with TryLock, skips its run.
type JobLock struct {
	lock *flock.Flock
	path string
}

// NewJobLock creates a lock next to the database file, named after the job.
func NewJobLock(dbPath, job string) (*JobLock, error) {
	absPath, err := GetAbsDBPath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute db path: %w", err)
	}
	lockPath := absPath + "." + job + lockFileSuffix
	return &JobLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// TryLock attempts to acquire the lock without blocking. It returns false
// when another process already holds it, which callers treat as a silent
// skip of the superseding run.
func (l *JobLock) TryLock() (bool, error) {
	locked, err := l.lock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}
	return locked, nil
}

// Unlock releases the job lock.
func (l *JobLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		// Suppress error if the lock file doesn't exist, as it means we don't hold the lock.
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

// GetAbsDBPath resolves the database path.
func GetAbsDBPath(dbPath string) (string, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "shelfwatch", "shelfwatch.sqlite"), nil
	}
	return filepath.Abs(dbPath)
}
