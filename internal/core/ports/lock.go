package ports

import (
	"context"
	"time"
)

// Locker provides named mutual exclusion across zb processes sharing one
// root. Locks are durable files; a lock held by a dead process is detected
// and reclaimed rather than wedging the system.
//
//go:generate mockgen -source=lock.go -destination=mocks/mock_lock.go -package=mocks
type Locker interface {
	// Acquire blocks until the named lock is held, the timeout elapses
	// (domain.ErrLockTimeout), or ctx is cancelled.
	Acquire(ctx context.Context, name string, timeout time.Duration) (Lock, error)
}

// Lock is a held named lock. Release must be called on every exit path.
type Lock interface {
	Release() error
}
