package storage

import (
	"context"
	"errors"
	"os"
	"syscall"
	"time"
)

// lockPoll is how often LockContext retries a held lock.
const lockPoll = 20 * time.Millisecond

// FileLock is an exclusive advisory lock on a file (flock).
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock returns an unlocked FileLock. The lock file is created on
// first use.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// Lock blocks until the lock is acquired.
func (l *FileLock) Lock() error {
	return l.acquire(syscall.LOCK_EX)
}

// LockContext acquires the lock, giving up when ctx is done.
func (l *FileLock) LockContext(ctx context.Context) error {
	ticker := time.NewTicker(lockPoll)
	defer ticker.Stop()

	for {
		err := l.acquire(syscall.LOCK_EX | syscall.LOCK_NB)
		if err == nil {
			return nil
		}
		if !errors.Is(err, syscall.EWOULDBLOCK) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *FileLock) acquire(how int) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return err
	}

	if err := syscall.Flock(int(f.Fd()), how); err != nil {
		f.Close()
		return err
	}
	l.file = f
	return nil
}

// Unlock releases the lock. Unlocking an unlocked FileLock is a no-op.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_UN); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WithLock runs fn while holding the lock at lockPath.
func WithLock(ctx context.Context, lockPath string, fn func() error) (err error) {
	lock := NewFileLock(lockPath)
	if err := lock.LockContext(ctx); err != nil {
		return err
	}
	defer func() {
		if uerr := lock.Unlock(); err == nil {
			err = uerr
		}
	}()
	return fn()
}
