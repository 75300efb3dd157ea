package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	first, err := l.Obtain(ctx, "payroll-run:1", time.Minute)
	require.NoError(t, err)

	_, err = l.Obtain(ctx, "payroll-run:1", time.Minute)
	assert.ErrorIs(t, err, ErrNotObtained)

	other, err := l.Obtain(ctx, "payroll-run:2", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, first.Release(ctx))
	require.NoError(t, first.Release(ctx))

	again, err := l.Obtain(ctx, "payroll-run:1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLocalLocker_Expired(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	_, err := l.Obtain(ctx, "k", time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	_, err = l.Obtain(ctx, "k", time.Minute)
	assert.NoError(t, err)
}

func TestLocalLocker_Refresh(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	lk, err := l.Obtain(ctx, "k", 20*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, lk.Refresh(ctx, time.Minute))

	time.Sleep(30 * time.Millisecond)
	_, err = l.Obtain(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrNotObtained, "refreshed lock is still held")

	require.NoError(t, lk.Release(ctx))
	assert.ErrorIs(t, lk.Refresh(ctx, time.Minute), ErrNotObtained)
}

func TestLocalLocker_RefreshAfterTakeover(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	stale, err := l.Obtain(ctx, "k", time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	current, err := l.Obtain(ctx, "k", time.Minute)
	require.NoError(t, err)

	assert.ErrorIs(t, stale.Refresh(ctx, time.Minute), ErrNotObtained)
	require.NoError(t, stale.Release(ctx))

	_, err = l.Obtain(ctx, "k", time.Minute)
	assert.ErrorIs(t, err, ErrNotObtained, "stale release must not free the new holder")
	require.NoError(t, current.Release(ctx))
}
