// Package lock implements cross-process named locks as files in the
// layout's locks directory.
package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zb/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sys/unix"
)

var _ ports.Locker = (*Locker)(nil)

const (
	// pollInterval is how often a blocked acquirer re-tries the lock file.
	pollInterval = 50 * time.Millisecond

	// staleAge is the age past which a lock whose holder cannot be probed
	// is presumed abandoned.
	staleAge = 10 * time.Minute
)

// lockInfo is the JSON body of a lock file, identifying the holder so a
// later process can tell a live lock from a leftover of a crashed one.
type lockInfo struct {
	PID        int       `json:"pid"`
	Holder     string    `json:"holder"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Locker creates locks as exclusively-created files under dir. The file name
// is a hash of the lock name so arbitrary names (package names, URLs) stay
// filesystem-safe.
type Locker struct {
	dir    string
	holder string
	logger ports.Logger
	poll   time.Duration
}

// New creates a Locker writing lock files under dir.
func New(dir string, logger ports.Logger) (*Locker, error) {
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return nil, zerr.Wrap(err, "failed to create locks directory")
	}
	host, _ := os.Hostname()
	return &Locker{
		dir:    dir,
		holder: fmt.Sprintf("%s/%d", host, os.Getpid()),
		logger: logger,
		poll:   pollInterval,
	}, nil
}

func (l *Locker) lockPath(name string) string {
	return filepath.Join(l.dir, fmt.Sprintf("%016x.lock", xxhash.Sum64String(name)))
}

// Acquire polls until the lock file can be created exclusively. A lock held
// by a dead process is reclaimed in place; reclamation is logged, never
// silent.
func (l *Locker) Acquire(ctx context.Context, name string, timeout time.Duration) (ports.Lock, error) {
	path := l.lockPath(name)
	deadline := time.Now().Add(timeout)

	for {
		ok, err := l.tryAcquire(path)
		if err != nil {
			return nil, zerr.With(err, "lock", name)
		}
		if ok {
			return &fileLock{path: path}, nil
		}

		if reclaimed, err := l.reclaimStale(path, name); err == nil && reclaimed {
			continue
		}

		if time.Now().After(deadline) {
			holder := "unknown"
			if info, err := readInfo(path); err == nil {
				holder = info.Holder
			}
			lerr := zerr.With(domain.ErrLockTimeout, "lock", name)
			lerr = zerr.With(lerr, "timeout", timeout.String())
			return nil, zerr.With(lerr, "held_by", holder)
		}

		select {
		case <-ctx.Done():
			return nil, zerr.With(zerr.Wrap(ctx.Err(), "lock acquisition cancelled"), "lock", name)
		case <-time.After(l.poll):
		}
	}
}

// tryAcquire creates the lock file exclusively. ok=false means another
// process holds it.
func (l *Locker) tryAcquire(path string) (bool, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644) //nolint:gosec // lock file is world-readable on purpose
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, zerr.Wrap(err, "failed to create lock file")
	}

	info := lockInfo{PID: os.Getpid(), Holder: l.holder, AcquiredAt: time.Now().UTC()}
	if err := json.NewEncoder(f).Encode(info); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return false, zerr.Wrap(err, "failed to write lock file")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return false, zerr.Wrap(err, "failed to close lock file")
	}
	return true, nil
}

// reclaimStale removes the lock file when its holder is provably dead or the
// file is unreadably old. The file is claimed by an atomic rename to a
// unique tombstone first: when several waiters judge the same lock stale,
// only one rename succeeds, so a waiter can never delete a lock file it did
// not inspect. The next tryAcquire races normally against other waiters, so
// at most one of them wins the reclaimed lock.
func (l *Locker) reclaimStale(path, name string) (bool, error) {
	info, err := readInfo(path)
	if err != nil {
		// Unreadable or mid-write lock file; fall back to age.
		st, serr := os.Stat(path)
		if serr != nil || time.Since(st.ModTime()) < staleAge {
			return false, nil //nolint:nilerr // not stale, keep polling
		}
	} else if processAlive(info.PID) {
		return false, nil
	}

	tomb := fmt.Sprintf("%s.reclaim-%d-%d", path, os.Getpid(), time.Now().UnixNano())
	if err := os.Rename(path, tomb); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil // another waiter claimed it first
		}
		return false, zerr.Wrap(err, "failed to reclaim stale lock")
	}

	// The path may have been reclaimed and re-acquired by a live process
	// between the staleness check and the rename. In that case the tombstone
	// holds a live lock and must go back before anyone acquires the path.
	if claimed, cerr := readInfo(tomb); cerr == nil && processAlive(claimed.PID) {
		replaced := info == nil || claimed.PID != info.PID || !claimed.AcquiredAt.Equal(info.AcquiredAt)
		if replaced {
			if _, serr := os.Stat(path); !errors.Is(serr, fs.ErrNotExist) {
				return false, zerr.With(zerr.New("lock path reoccupied during reclaim"), "lock", name)
			}
			if rerr := os.Rename(tomb, path); rerr != nil {
				return false, zerr.Wrap(rerr, "failed to restore live lock")
			}
			return false, nil
		}
	}

	if err := os.Remove(tomb); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return false, zerr.Wrap(err, "failed to reclaim stale lock")
	}
	holder := "unknown"
	if info != nil {
		holder = info.Holder
	}
	l.logger.Warn(domain.ErrStaleLockRecovered.Error(), "lock", name, "held_by", holder)
	return true, nil
}

func readInfo(path string) (*lockInfo, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is under our locks dir
	if err != nil {
		return nil, err
	}
	var info lockInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	if info.PID == 0 {
		return nil, errors.New("lock file missing pid")
	}
	return &info, nil
}

// processAlive probes pid with signal 0. ESRCH means the process is gone;
// EPERM means it exists but belongs to someone else, so the lock stands.
func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

type fileLock struct {
	path string
}

func (f *fileLock) Release() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.Wrap(err, "failed to release lock")
	}
	return nil
}
