package lock

// ReclaimStale exposes stale-lock reclamation for tests.
func (l *Locker) ReclaimStale(name string) (bool, error) {
	return l.reclaimStale(l.lockPath(name), name)
}

// LockFile exposes the on-disk path of a named lock for tests.
func (l *Locker) LockFile(name string) string {
	return l.lockPath(name)
}
