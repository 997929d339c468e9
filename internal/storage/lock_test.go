package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestFileLock_Reusable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scene.yaml.lock")
	lock := NewFileLock(path)

	for range 2 {
		require.NoError(t, lock.Lock())
		assert.FileExists(t, path)
		require.NoError(t, lock.Unlock())
	}
	assert.NoError(t, lock.Unlock(), "unlocking twice")
}

func TestFileLock_ContextDeadline(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "history.json.lock")
	held := NewFileLock(path)
	require.NoError(t, held.Lock())

	ctx, cancel := context.WithTimeout(context.Background(), 3*lockPoll)
	defer cancel()
	assert.ErrorIs(t, NewFileLock(path).LockContext(ctx), context.DeadlineExceeded)

	require.NoError(t, held.Unlock())
	waiter := NewFileLock(path)
	require.NoError(t, waiter.LockContext(context.Background()))
	require.NoError(t, waiter.Unlock())
}

func TestFileLock_MissingDir(t *testing.T) {
	t.Parallel()

	assert.Error(t, NewFileLock(filepath.Join(t.TempDir(), "gone", "x.lock")).Lock())
}

func TestWithLock_Serializes(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scene.yaml.lock")
	var inside, overlaps atomic.Int32

	var g errgroup.Group
	for range 4 {
		g.Go(func() error {
			return WithLock(context.Background(), path, func() error {
				if inside.Add(1) > 1 {
					overlaps.Add(1)
				}
				time.Sleep(5 * time.Millisecond)
				inside.Add(-1)
				return nil
			})
		})
	}
	require.NoError(t, g.Wait())
	assert.Zero(t, overlaps.Load())
}

func TestWithLock_ReturnsFnError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "x.lock")
	boom := errors.New("boom")

	assert.ErrorIs(t, WithLock(context.Background(), path, func() error { return boom }), boom)
	assert.NoError(t, WithLock(context.Background(), path, func() error { return nil }), "lock released after error")
}
