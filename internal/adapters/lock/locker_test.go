package lock_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/require"
	"go.trai.ch/zb/internal/adapters/lock"
	"go.trai.ch/zb/internal/adapters/logger"
	"go.trai.ch/zb/internal/core/domain"
)

func lockFile(dir, name string) string {
	return filepath.Join(dir, fmt.Sprintf("%016x.lock", xxhash.Sum64String(name)))
}

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()
	l, err := lock.New(dir, logger.New())
	require.NoError(t, err)

	held, err := l.Acquire(context.Background(), "pkg:jq", time.Second)
	require.NoError(t, err)
	require.FileExists(t, lockFile(dir, "pkg:jq"))

	require.NoError(t, held.Release())
	_, err = os.Stat(lockFile(dir, "pkg:jq"))
	require.True(t, os.IsNotExist(err))
}

func TestAcquire_TimesOutWhileHeld(t *testing.T) {
	dir := t.TempDir()
	l, err := lock.New(dir, logger.New())
	require.NoError(t, err)

	held, err := l.Acquire(context.Background(), "pkg:jq", time.Second)
	require.NoError(t, err)
	defer func() { require.NoError(t, held.Release()) }()

	start := time.Now()
	_, err = l.Acquire(context.Background(), "pkg:jq", 150*time.Millisecond)
	require.ErrorIs(t, err, domain.ErrLockTimeout)
	require.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestAcquire_DistinctNamesDoNotContend(t *testing.T) {
	l, err := lock.New(t.TempDir(), logger.New())
	require.NoError(t, err)

	a, err := l.Acquire(context.Background(), "pkg:a", time.Second)
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Release()) }()

	b, err := l.Acquire(context.Background(), "pkg:b", time.Second)
	require.NoError(t, err)
	require.NoError(t, b.Release())
}

func TestAcquire_ReclaimsDeadHolder(t *testing.T) {
	dir := t.TempDir()
	l, err := lock.New(dir, logger.New())
	require.NoError(t, err)

	// Forge a lock held by a PID that cannot exist.
	stale, err := json.Marshal(map[string]any{
		"pid":         1 << 27,
		"holder":      "ghost/134217728",
		"acquired_at": time.Now().Add(-time.Hour).UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(lockFile(dir, "pkg:jq"), stale, 0o644))

	held, err := l.Acquire(context.Background(), "pkg:jq", time.Second)
	require.NoError(t, err)
	require.NoError(t, held.Release())
}

func TestAcquire_KeepsLiveHolder(t *testing.T) {
	dir := t.TempDir()
	l, err := lock.New(dir, logger.New())
	require.NoError(t, err)

	// A lock held by this very process must not be reclaimed.
	live, err := json.Marshal(map[string]any{
		"pid":         os.Getpid(),
		"holder":      "self",
		"acquired_at": time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(lockFile(dir, "pkg:jq"), live, 0o644))

	_, err = l.Acquire(context.Background(), "pkg:jq", 150*time.Millisecond)
	require.ErrorIs(t, err, domain.ErrLockTimeout)
}

func TestReclaimStale_ClaimsAndLeavesNoTombstone(t *testing.T) {
	dir := t.TempDir()
	l, err := lock.New(dir, logger.New())
	require.NoError(t, err)

	stale, err := json.Marshal(map[string]any{
		"pid":         1 << 27,
		"holder":      "ghost/134217728",
		"acquired_at": time.Now().Add(-time.Hour).UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(l.LockFile("pkg:jq"), stale, 0o644))

	reclaimed, err := l.ReclaimStale("pkg:jq")
	require.NoError(t, err)
	require.True(t, reclaimed)

	// The claim goes through a rename, so only the winner ever deletes a
	// file; nothing may survive in the directory afterwards.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestReclaimStale_NeverTouchesLiveLock(t *testing.T) {
	dir := t.TempDir()
	l, err := lock.New(dir, logger.New())
	require.NoError(t, err)

	live, err := json.Marshal(map[string]any{
		"pid":         os.Getpid(),
		"holder":      "self",
		"acquired_at": time.Now().UTC(),
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(l.LockFile("pkg:jq"), live, 0o644))

	reclaimed, err := l.ReclaimStale("pkg:jq")
	require.NoError(t, err)
	require.False(t, reclaimed)
	require.FileExists(t, l.LockFile("pkg:jq"))
}

func TestAcquire_ContextCancelled(t *testing.T) {
	dir := t.TempDir()
	l, err := lock.New(dir, logger.New())
	require.NoError(t, err)

	held, err := l.Acquire(context.Background(), "pkg:jq", time.Second)
	require.NoError(t, err)
	defer func() { require.NoError(t, held.Release()) }()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err = l.Acquire(ctx, "pkg:jq", time.Minute)
	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrLockTimeout)
}
