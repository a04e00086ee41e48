// Package store implements the content-addressed store: immutable,
// hash-named directory trees published by a single atomic rename.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zb/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sys/unix"
)

var _ ports.ContentStore = (*Store)(nil)

// rootLock serializes every store-root-mutating rename across processes.
// Reads of already-published entries take no lock.
const rootLock = "store-root"

// stagingDir is where extractions happen before they become visible.
const stagingDir = ".staging"

// lockTimeout bounds the store-root lock acquisition; the critical section
// is a single rename, so contention is short-lived.
const lockTimeout = time.Minute

// Store owns the store directory. Entries are keyed by the bottle's sha256.
type Store struct {
	root   string
	locker ports.Locker
	logger ports.Logger
}

// New creates a Store rooted at the given directory.
func New(root string, locker ports.Locker, logger ports.Logger) (*Store, error) {
	s := &Store{root: filepath.Clean(root), locker: locker, logger: logger}
	if err := os.MkdirAll(filepath.Join(s.root, stagingDir), domain.DirPerm); err != nil {
		return nil, zerr.Wrap(err, "failed to create store staging directory")
	}
	return s, nil
}

func (s *Store) entryPath(key string) string {
	return filepath.Join(s.root, key)
}

// withRootLock runs fn while holding the store-root lock.
func (s *Store) withRootLock(ctx context.Context, fn func() error) error {
	lock, err := s.locker.Acquire(ctx, rootLock, lockTimeout)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			s.logger.Warn("failed to release store-root lock", "error", err)
		}
	}()
	return fn()
}

// Entry returns the published entry for key, if any.
func (s *Store) Entry(key string) (domain.StoreEntry, bool) {
	path := s.entryPath(key)
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return domain.StoreEntry{}, false
	}
	return domain.StoreEntry{Key: key, Path: path}, true
}

// Install extracts the verified artifact into a fresh staging directory and
// atomically renames it into place. The rename is the only point where the
// entry becomes visible; a concurrent reader either sees nothing or the
// complete tree. Installing an already-published key reuses the entry.
func (s *Store) Install(ctx context.Context, artifactPath, key string) (domain.StoreEntry, error) {
	if entry, ok := s.Entry(key); ok {
		return entry, nil
	}

	staging := filepath.Join(s.root, stagingDir,
		fmt.Sprintf("%s-%d-%d", shortKey(key), os.Getpid(), time.Now().UnixNano()))
	if err := extractTarGz(artifactPath, staging); err != nil {
		_ = os.RemoveAll(staging)
		return domain.StoreEntry{}, err
	}

	lock, err := s.locker.Acquire(ctx, rootLock, lockTimeout)
	if err != nil {
		_ = os.RemoveAll(staging)
		return domain.StoreEntry{}, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			s.logger.Warn("failed to release store-root lock", "error", err)
		}
	}()

	final := s.entryPath(key)
	if entry, ok := s.Entry(key); ok {
		// Another process published the identical entry while we extracted.
		_ = os.RemoveAll(staging)
		return entry, nil
	}
	if err := os.Rename(staging, final); err != nil {
		_ = os.RemoveAll(staging)
		return domain.StoreEntry{}, publishFailure(err, key)
	}
	return domain.StoreEntry{Key: key, Path: final}, nil
}

// publishFailure classifies a failed publication rename. The race sentinel
// is reserved for a target that already exists; anything else is a plain
// filesystem fault.
func publishFailure(err error, key string) error {
	switch {
	case errors.Is(err, fs.ErrExist) || errors.Is(err, unix.ENOTEMPTY):
		rerr := zerr.With(domain.ErrRenameRaceLost, "cause", err.Error())
		return zerr.With(rerr, "key", key)
	case errors.Is(err, unix.ENOSPC):
		rerr := zerr.With(domain.ErrDiskFull, "cause", err.Error())
		return zerr.With(rerr, "key", key)
	default:
		return zerr.With(zerr.Wrap(err, "failed to publish store entry"), "key", key)
	}
}

// Keys lists every published store key.
func (s *Store) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, zerr.With(domain.ErrStoreCorrupt, "cause", err.Error())
	}
	var keys []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == stagingDir {
			continue
		}
		keys = append(keys, e.Name())
	}
	return keys, nil
}

// Confirm reports whether key is published, checked under the store-root
// lock. Sweep holds the same lock across its reference check and removal,
// so an entry confirmed after its reference was recorded can no longer be
// collected.
func (s *Store) Confirm(ctx context.Context, key string) (bool, error) {
	var ok bool
	err := s.withRootLock(ctx, func() error {
		_, ok = s.Entry(key)
		return nil
	})
	return ok, err
}

// Sweep removes every entry the referenced callback reports unused and
// returns the removed keys. The reference check and the removal happen in
// one critical section under the store-root lock.
func (s *Store) Sweep(ctx context.Context, referenced func(key string) (bool, error)) ([]string, error) {
	var removed []string
	err := s.withRootLock(ctx, func() error {
		keys, err := s.Keys()
		if err != nil {
			return err
		}
		for _, key := range keys {
			inUse, err := referenced(key)
			if err != nil {
				return err
			}
			if inUse {
				continue
			}
			if err := os.RemoveAll(s.entryPath(key)); err != nil {
				return zerr.With(zerr.Wrap(err, "failed to remove store entry"), "key", key)
			}
			removed = append(removed, key)
		}
		return nil
	})
	return removed, err
}

// Remove deletes a published entry under the store-root lock. The caller is
// responsible for having checked the reference count.
func (s *Store) Remove(ctx context.Context, key string) error {
	return s.withRootLock(ctx, func() error {
		if err := os.RemoveAll(s.entryPath(key)); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to remove store entry"), "key", key)
		}
		return nil
	})
}

// SweepStaging removes extraction leftovers from crashed runs. Directories
// younger than an hour may belong to a live extraction and are kept.
func (s *Store) SweepStaging() error {
	dir := filepath.Join(s.root, stagingDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return zerr.Wrap(err, "failed to read staging directory")
	}
	cutoff := time.Now().Add(-time.Hour)
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return zerr.Wrap(err, "failed to remove stale staging directory")
		}
		s.logger.Info("swept stale staging directory", "name", e.Name())
	}
	return nil
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
