// Package installer orchestrates resolve, select, fetch, store, link and
// record into a per-package install transaction.
package installer

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zb/internal/core/ports"
	"go.trai.ch/zb/internal/engine/resolver"
	"go.trai.ch/zb/internal/engine/selector"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Status tracks a plan entry through its install transaction.
type Status string

const (
	// StatusPending indicates the entry has not started yet.
	StatusPending Status = "Pending"
	// StatusSelecting indicates bottle selection is running.
	StatusSelecting Status = "Selecting"
	// StatusFetching indicates the bottle is downloading.
	StatusFetching Status = "Fetching"
	// StatusVerifying indicates the artifact digest is being checked.
	StatusVerifying Status = "Verifying"
	// StatusStoring indicates extraction into the content store.
	StatusStoring Status = "Storing"
	// StatusLinking indicates prefix symlinks are being created.
	StatusLinking Status = "Linking"
	// StatusRecorded indicates the entry installed successfully.
	StatusRecorded Status = "Recorded"
	// StatusSatisfied indicates the package was already installed at a
	// version meeting every constraint.
	StatusSatisfied Status = "Satisfied"
	// StatusFailed indicates the entry's transaction failed and was rolled
	// back; earlier successful entries stand.
	StatusFailed Status = "Failed"
	// StatusSkipped indicates the entry was never attempted because one of
	// its declared dependencies failed earlier in the plan.
	StatusSkipped Status = "Skipped"
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	switch s {
	case StatusRecorded, StatusSatisfied, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// EntryResult is the per-package outcome surfaced to the caller.
type EntryResult struct {
	Name    string
	Version string
	Status  Status
	Err     error
}

// Report collects the outcome of every plan entry. One package's failure
// never obscures the others' results.
type Report struct {
	Entries []EntryResult
}

// Failed returns the entries that failed or were skipped.
func (r *Report) Failed() []EntryResult {
	var out []EntryResult
	for _, e := range r.Entries {
		if e.Status == StatusFailed || e.Status == StatusSkipped {
			out = append(out, e)
		}
	}
	return out
}

// Installed counts entries that completed a full transaction this run.
func (r *Report) Installed() int {
	n := 0
	for _, e := range r.Entries {
		if e.Status == StatusRecorded {
			n++
		}
	}
	return n
}

// Deps bundles the collaborators of an Installer.
type Deps struct {
	Platform domain.Platform
	Source   ports.FormulaSource
	Fetcher  ports.BottleFetcher
	Store    ports.ContentStore
	Linker   ports.PrefixLinker
	Locker   ports.Locker
	DB       ports.Database
	Logger   ports.Logger
	Tracer   ports.Tracer

	// LockTimeout bounds every lock acquisition. Zero means DefaultLockTimeout.
	LockTimeout time.Duration
}

// DefaultLockTimeout bounds lock acquisition when Deps does not override it.
const DefaultLockTimeout = 5 * time.Minute

// packageLock names the per-package critical section.
func packageLock(name string) string { return "pkg:" + name }

// Installer runs install/uninstall transactions against a shared layout.
type Installer struct {
	deps     Deps
	resolver *resolver.Resolver

	mu     sync.RWMutex
	status map[string]Status
}

// New creates an Installer.
func New(deps Deps) *Installer {
	if deps.LockTimeout == 0 {
		deps.LockTimeout = DefaultLockTimeout
	}
	return &Installer{
		deps:     deps,
		resolver: resolver.New(deps.Source),
		status:   make(map[string]Status),
	}
}

func (i *Installer) setStatus(name string, s Status) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.status[name] = s
}

// Status returns the current state of a plan entry.
func (i *Installer) Status(name string) Status {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if s, ok := i.status[name]; ok {
		return s
	}
	return StatusPending
}

// Plan resolves the requested packages without touching the filesystem.
func (i *Installer) Plan(ctx context.Context, names []string) (*domain.Plan, error) {
	requests := make([]domain.Dependency, 0, len(names))
	for _, name := range names {
		dep, err := domain.ParseDependency(name)
		if err != nil {
			return nil, err
		}
		requests = append(requests, dep)
	}
	return i.resolver.Resolve(ctx, requests, i.deps.DB)
}

// Install resolves, fetches and installs the requested packages. The run is
// best-effort forward: a failed entry is rolled back and reported, entries
// depending on it are skipped, and independent entries still proceed.
// Already-installed entries whose version satisfies every constraint are
// reported as Satisfied and left untouched.
func (i *Installer) Install(ctx context.Context, names []string, link bool) (*Report, error) {
	plan, err := i.Plan(ctx, names)
	if err != nil {
		return nil, err
	}
	i.deps.Tracer.EmitPlan(ctx, plan.Names())

	for _, e := range plan.Entries {
		i.setStatus(e.Formula.Name, StatusPending)
	}

	// Selection runs for the whole plan up front: it is cheap, touches no
	// filesystem state, and lets the prefetch start every download at once.
	selErrs := make(map[string]error)
	for idx := range plan.Entries {
		e := &plan.Entries[idx]
		if e.Satisfied {
			continue
		}
		i.setStatus(e.Formula.Name, StatusSelecting)
		bottle, err := selector.Select(e.Formula, i.deps.Platform)
		if err != nil {
			selErrs[e.Formula.Name] = err
			continue
		}
		e.Bottle = bottle
	}

	fetchErrs := i.prefetch(ctx, plan, selErrs)

	report := &Report{Entries: make([]EntryResult, 0, len(plan.Entries))}
	broken := make(map[string]bool)

	for _, e := range plan.Entries {
		name := e.Formula.Name
		result := EntryResult{Name: name, Version: e.Formula.Version}

		switch {
		case e.Satisfied:
			result.Status = StatusSatisfied

		case i.dependencyBroken(e.Formula, broken):
			result.Status = StatusSkipped
			result.Err = zerr.With(zerr.New("dependency failed earlier in plan"), "formula", name)
			broken[name] = true

		case selErrs[name] != nil:
			result.Status = StatusFailed
			result.Err = selErrs[name]
			broken[name] = true

		case fetchErrs[name] != nil:
			result.Status = StatusFailed
			result.Err = fetchErrs[name]
			broken[name] = true

		default:
			if err := i.installEntry(ctx, e, link); err != nil {
				result.Status = StatusFailed
				result.Err = err
				broken[name] = true
				i.deps.Logger.Error(err)
			} else {
				result.Status = i.Status(name)
			}
		}

		i.setStatus(name, result.Status)
		report.Entries = append(report.Entries, result)
	}

	return report, nil
}

// prefetch downloads every selected bottle concurrently. The fetcher caps
// concurrency and dedupes identical digests; artifacts stay in the cache,
// untrusted until verified, so overlapping downloads are safe.
func (i *Installer) prefetch(ctx context.Context, plan *domain.Plan, selErrs map[string]error) map[string]error {
	var mu sync.Mutex
	fetchErrs := make(map[string]error)

	g, gctx := errgroup.WithContext(ctx)
	for _, e := range plan.Entries {
		if e.Satisfied || selErrs[e.Formula.Name] != nil {
			continue
		}
		name, bottle := e.Formula.Name, e.Bottle
		i.setStatus(name, StatusFetching)
		g.Go(func() error {
			_, span := i.deps.Tracer.Start(gctx, "fetch "+name)
			_, err := i.deps.Fetcher.Fetch(gctx, bottle)
			span.End(err)
			if err != nil {
				mu.Lock()
				fetchErrs[name] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait() // individual errors are collected per entry
	return fetchErrs
}

func (i *Installer) dependencyBroken(f *domain.Formula, broken map[string]bool) bool {
	for _, dep := range f.Dependencies {
		if broken[dep.Name] {
			return true
		}
	}
	return false
}

// installEntry runs one package's transaction under its named lock:
// fetch (a cache hit after prefetch) -> store install -> prefix link ->
// database record. Any failure rolls back the entry's own work only.
func (i *Installer) installEntry(ctx context.Context, e domain.PlanEntry, link bool) error {
	name := e.Formula.Name
	ctx, span := i.deps.Tracer.Start(ctx, "install "+name)
	var retErr error
	defer func() { span.End(retErr) }()

	lock, err := i.deps.Locker.Acquire(ctx, packageLock(name), i.deps.LockTimeout)
	if err != nil {
		retErr = err
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			i.deps.Logger.Warn("failed to release package lock", "package", name, "error", err)
		}
	}()

	// Re-check under the lock: a concurrent invocation may have finished the
	// same package while we waited.
	if rec, err := i.deps.DB.Get(name); err != nil {
		retErr = err
		return err
	} else if rec != nil && rec.Version == e.Formula.Version {
		if entry, ok := i.deps.Store.Entry(rec.StoreKey); ok {
			if link {
				if err := i.deps.Linker.Link(name, rec.Version, entry); err != nil {
					retErr = err
					return err
				}
			}
			i.setStatus(name, StatusSatisfied)
			return nil
		}
		// Record without a store entry: the previous install crashed between
		// delete and record, fall through and repair it.
		i.deps.Logger.Warn("installed record has no store entry, reinstalling", "package", name)
	}

	i.setStatus(name, StatusFetching)
	span.SetStatus("fetching")
	artifact, err := i.deps.Fetcher.Fetch(ctx, e.Bottle)
	if err != nil {
		retErr = err
		return err
	}
	i.setStatus(name, StatusVerifying)

	i.setStatus(name, StatusStoring)
	span.SetStatus("storing")
	entry, err := i.deps.Store.Install(ctx, artifact, e.Bottle.SHA256)
	if err != nil {
		retErr = err
		return err
	}

	if link {
		i.setStatus(name, StatusLinking)
		span.SetStatus("linking")
		if err := i.deps.Linker.Link(name, e.Formula.Version, entry); err != nil {
			retErr = err
			return err
		}
	}

	deps := make([]string, len(e.Formula.Dependencies))
	for idx, d := range e.Formula.Dependencies {
		deps[idx] = d.Name
	}
	rec := domain.InstalledPackage{
		Name:         name,
		Version:      e.Formula.Version,
		StoreKey:     entry.Key,
		Dependencies: deps,
		InstalledAt:  time.Now().UTC(),
	}
	if err := i.deps.DB.Put(rec); err != nil {
		// The store entry stays (an orphan the GC can reconcile), but the
		// prefix must not advertise a package the database does not know.
		if link {
			if uerr := i.deps.Linker.Unlink(name, e.Formula.Version, entry); uerr != nil {
				i.deps.Logger.Warn("failed to unlink after database error", "package", name, "error", uerr)
			}
		}
		retErr = err
		return err
	}

	// A concurrent sweep may have collected the entry between the store
	// install and the record write. Confirm runs under the same lock as the
	// sweep, so once the entry is confirmed here the record's reference
	// protects it from any later sweep.
	ok, cerr := i.deps.Store.Confirm(ctx, entry.Key)
	if cerr != nil {
		retErr = cerr
		return cerr
	}
	if !ok {
		if derr := i.deps.DB.Delete(name); derr != nil {
			i.deps.Logger.Warn("failed to undo record after sweep", "package", name, "error", derr)
		}
		if link {
			if uerr := i.deps.Linker.Unlink(name, e.Formula.Version, entry); uerr != nil {
				i.deps.Logger.Warn("failed to unlink after sweep", "package", name, "error", uerr)
			}
		}
		retErr = zerr.With(zerr.New("store entry swept during install"), "key", entry.Key)
		return retErr
	}

	i.setStatus(name, StatusRecorded)
	span.SetStatus("recorded")
	return nil
}

// Uninstall removes one installed package: prefix links first, then the
// database record. The store entry is released, never deleted inline; an
// explicit GC pass reclaims it once nothing references it.
func (i *Installer) Uninstall(ctx context.Context, name string) error {
	lock, err := i.deps.Locker.Acquire(ctx, packageLock(name), i.deps.LockTimeout)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			i.deps.Logger.Warn("failed to release package lock", "package", name, "error", err)
		}
	}()

	rec, err := i.deps.DB.Get(name)
	if err != nil {
		return err
	}
	if rec == nil {
		return zerr.With(domain.ErrNotInstalled, "package", name)
	}

	dependents, err := i.dependents(name)
	if err != nil {
		return err
	}
	if len(dependents) > 0 {
		err := zerr.With(domain.ErrStillRequired, "package", name)
		return zerr.With(err, "required_by", strings.Join(dependents, ", "))
	}

	if entry, ok := i.deps.Store.Entry(rec.StoreKey); ok {
		if err := i.deps.Linker.Unlink(name, rec.Version, entry); err != nil {
			return err
		}
	}
	return i.deps.DB.Delete(name)
}

// UninstallAll removes every installed package in reverse-dependency-safe
// order and returns the names removed.
func (i *Installer) UninstallAll(ctx context.Context) ([]string, error) {
	var removed []string
	for {
		pkgs, err := i.deps.DB.List()
		if err != nil {
			return removed, err
		}
		if len(pkgs) == 0 {
			return removed, nil
		}

		required := make(map[string]bool)
		installed := make(map[string]bool, len(pkgs))
		for _, p := range pkgs {
			installed[p.Name] = true
		}
		for _, p := range pkgs {
			for _, dep := range p.Dependencies {
				if installed[dep] {
					required[dep] = true
				}
			}
		}

		progress := false
		for _, p := range pkgs {
			if required[p.Name] {
				continue
			}
			if err := i.Uninstall(ctx, p.Name); err != nil {
				return removed, err
			}
			removed = append(removed, p.Name)
			progress = true
		}
		if !progress {
			// Every remaining package is required by another: a dependency
			// cycle among installed records. Refuse rather than loop.
			return removed, zerr.With(domain.ErrStillRequired, "packages", len(pkgs))
		}
	}
}

// dependents returns installed packages whose dependency snapshot names the
// given package.
func (i *Installer) dependents(name string) ([]string, error) {
	pkgs, err := i.deps.DB.List()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range pkgs {
		for _, dep := range p.Dependencies {
			if dep == name {
				out = append(out, p.Name)
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// List returns every installed package record.
func (i *Installer) List() ([]domain.InstalledPackage, error) {
	return i.deps.DB.List()
}

// Info returns the installed record for a package, or ErrNotInstalled.
func (i *Installer) Info(name string) (*domain.InstalledPackage, error) {
	rec, err := i.deps.DB.Get(name)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, zerr.With(domain.ErrNotInstalled, "package", name)
	}
	return rec, nil
}

// GC removes store entries no installed package references, then sweeps
// stale staging directories and partial downloads. The reference check and
// the removal run as one critical section inside the store's sweep, so a
// concurrent install cannot reuse an entry mid-collection. Deletion is
// deliberate and auditable: it only happens here, never inline during
// install or uninstall.
func (i *Installer) GC(ctx context.Context) ([]string, error) {
	removed, err := i.deps.Store.Sweep(ctx, func(key string) (bool, error) {
		refs, err := i.deps.DB.ReferencedBy(key)
		return len(refs) > 0, err
	})
	if err != nil {
		return removed, err
	}

	if err := i.deps.Store.SweepStaging(); err != nil {
		return removed, err
	}
	if err := i.deps.Fetcher.SweepTmp(); err != nil {
		return removed, err
	}
	return removed, nil
}
