package domain

import "go.trai.ch/zerr"

// Resolution errors.
var (
	// ErrUnknownFormula is returned when a requested or transitively required
	// formula cannot be found by the formula source.
	ErrUnknownFormula = zerr.New("unknown formula")

	// ErrCyclicDependency is returned when the dependency graph contains a cycle.
	ErrCyclicDependency = zerr.New("cyclic dependency")

	// ErrVersionConflict is returned when reachable packages place incompatible
	// version constraints on the same formula.
	ErrVersionConflict = zerr.New("version conflict")
)

// Selection errors.
var (
	// ErrNoCompatibleBottle is returned when a formula offers no bottle for the
	// host platform or any of its compatible fallback tags.
	ErrNoCompatibleBottle = zerr.New("no compatible bottle")
)

// Fetch errors.
var (
	// ErrTransportFailure is returned when the transport collaborator fails to
	// deliver the artifact bytes after all retries.
	ErrTransportFailure = zerr.New("transport failure")

	// ErrIntegrityMismatch is returned when a fully downloaded artifact does not
	// match its declared content hash. The artifact is discarded and never
	// promoted to the store.
	ErrIntegrityMismatch = zerr.New("integrity mismatch")

	// ErrFetchTimeout is returned when a download is cut short by the caller's
	// deadline or cancellation rather than a transport fault.
	ErrFetchTimeout = zerr.New("fetch timeout")
)

// Store errors.
var (
	// ErrExtractionFailure is returned when a bottle artifact cannot be
	// extracted into the staging directory.
	ErrExtractionFailure = zerr.New("extraction failure")

	// ErrRenameRaceLost is returned when the atomic rename into the store fails
	// because another process published the same entry first.
	ErrRenameRaceLost = zerr.New("store rename race lost")

	// ErrStoreCorrupt is returned when the content store is in a state the
	// manager cannot reconcile.
	ErrStoreCorrupt = zerr.New("store corrupt")

	// ErrDiskFull is returned when extraction or staging runs out of space on
	// the store volume.
	ErrDiskFull = zerr.New("disk full")
)

// Lock errors.
var (
	// ErrLockTimeout is returned when a named lock cannot be acquired within
	// the caller's timeout.
	ErrLockTimeout = zerr.New("lock timeout")

	// ErrStaleLockRecovered reports that a lock file left behind by a dead
	// process was reclaimed.
	ErrStaleLockRecovered = zerr.New("stale lock recovered")
)

// Database errors.
var (
	// ErrDatabaseCorrupt is returned when the local database cannot be opened
	// or decoded. Fatal for the run, but the store is never touched.
	ErrDatabaseCorrupt = zerr.New("database corrupt")

	// ErrDatabaseIO is returned for I/O failures against the local database.
	ErrDatabaseIO = zerr.New("database io failure")
)

// Installer errors.
var (
	// ErrNotInstalled is returned when an operation targets a package that has
	// no installed record.
	ErrNotInstalled = zerr.New("not installed")

	// ErrStillRequired is returned when uninstalling a package that other
	// installed packages depend on.
	ErrStillRequired = zerr.New("still required by installed packages")

	// ErrInstallFailed signals that at least one plan entry failed. The report
	// carries the per-package outcomes.
	ErrInstallFailed = zerr.New("install failed")

	// ErrInvalidFormula is returned when a formula document fails validation.
	ErrInvalidFormula = zerr.New("invalid formula")
)
