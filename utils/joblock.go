package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gofrs/flock"
)

// JobLock is a file lock keyed by an arbitrary target (project + job kind + PR, ...)
// so that two jobs on the same target never overlap, across processes too.
type JobLock struct {
	lockFile *flock.Flock
	lockPath string
}

var unsafeLockChars = regexp.MustCompile(`[^\w\-.]`)

// sanitizeLockKey converts a key into a safe filename
func sanitizeLockKey(key string) string {
	sanitized := strings.ReplaceAll(key, "/", "--")
	sanitized = strings.ReplaceAll(sanitized, "\\", "--")
	sanitized = strings.ReplaceAll(sanitized, ":", "--")
	sanitized = unsafeLockChars.ReplaceAllString(sanitized, "-")

	// Avoid hidden files
	sanitized = strings.Trim(sanitized, ".-")

	if sanitized == "" {
		sanitized = "default"
	}

	return sanitized
}

// NewJobLock creates a lock for key inside lockDir (created if missing).
func NewJobLock(lockDir, key string) (*JobLock, error) {
	if lockDir == "" {
		lockDir = filepath.Join(os.TempDir(), "night-watch")
	}
	if err := os.MkdirAll(lockDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	lockPath := filepath.Join(lockDir, sanitizeLockKey(key)+".lock")

	return &JobLock{
		lockFile: flock.New(lockPath),
		lockPath: lockPath,
	}, nil
}

// TryLock attempts to acquire the lock without blocking.
// Returns false (and no error) when someone else holds it.
func (l *JobLock) TryLock() (bool, error) {
	locked, err := l.lockFile.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to try lock: %w", err)
	}
	return locked, nil
}

// Unlock releases the lock and removes the lock file
func (l *JobLock) Unlock() error {
	if l.lockFile == nil {
		return nil
	}

	if err := l.lockFile.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock: %w", err)
	}

	if err := os.Remove(l.lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}

	return nil
}

// Path returns the lock file path
func (l *JobLock) Path() string {
	return l.lockPath
}
