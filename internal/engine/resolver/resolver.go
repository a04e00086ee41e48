// Package resolver turns a set of requested formula names into a
// topologically ordered install plan.
package resolver

import (
	"context"
	"sort"
	"strings"

	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zb/internal/core/ports"
	"go.trai.ch/zerr"
)

// Resolver builds install plans from a formula source and the installed
// package database.
type Resolver struct {
	source ports.FormulaSource
}

// New creates a Resolver over the given formula source.
func New(source ports.FormulaSource) *Resolver {
	return &Resolver{source: source}
}

// node traversal state. Revisiting an in-progress node means the graph has
// a cycle.
const (
	unvisited = iota
	inProgress
	done
)

type traversal struct {
	ctx       context.Context
	source    ports.FormulaSource
	installed ports.InstalledLookup

	state       map[string]int
	formulas    map[string]*domain.Formula
	records     map[string]*domain.InstalledPackage
	constraints map[string][]domain.Constraint
	path        []string
	order       []string
}

// Resolve produces a plan for the requested dependencies (names with
// optional version constraints). Every dependency precedes its dependents,
// diamond dependencies appear exactly once, and ties are broken by lexical
// name so the plan is stable across runs.
func (r *Resolver) Resolve(ctx context.Context, requests []domain.Dependency, installed ports.InstalledLookup) (*domain.Plan, error) {
	t := &traversal{
		ctx:         ctx,
		source:      r.source,
		installed:   installed,
		state:       make(map[string]int),
		formulas:    make(map[string]*domain.Formula),
		records:     make(map[string]*domain.InstalledPackage),
		constraints: make(map[string][]domain.Constraint),
	}

	roots := make([]domain.Dependency, len(requests))
	copy(roots, requests)
	sort.Slice(roots, func(i, j int) bool { return roots[i].Name < roots[j].Name })

	for _, req := range roots {
		if !req.Constraint.Any() {
			t.constraints[req.Name] = append(t.constraints[req.Name], req.Constraint)
		}
		if err := t.visit(req.Name); err != nil {
			return nil, err
		}
	}

	if err := t.checkConflicts(); err != nil {
		return nil, err
	}

	plan := &domain.Plan{Entries: make([]domain.PlanEntry, 0, len(t.order))}
	for _, name := range t.order {
		plan.Entries = append(plan.Entries, domain.PlanEntry{
			Formula:   t.formulas[name],
			Satisfied: t.satisfied(name),
		})
	}
	return plan, nil
}

func (t *traversal) visit(name string) error {
	switch t.state[name] {
	case done:
		return nil
	case inProgress:
		return t.cycleError(name)
	}

	t.state[name] = inProgress
	t.path = append(t.path, name)

	formula, err := t.source.Lookup(t.ctx, name)
	if err != nil {
		return err
	}
	if formula == nil {
		return zerr.With(domain.ErrUnknownFormula, "formula", name)
	}
	t.formulas[name] = formula

	if t.installed != nil {
		rec, err := t.installed.Get(name)
		if err != nil {
			return err
		}
		t.records[name] = rec
	}

	deps := make([]domain.Dependency, len(formula.Dependencies))
	copy(deps, formula.Dependencies)
	sort.Slice(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })

	for _, dep := range deps {
		if !dep.Constraint.Any() {
			t.constraints[dep.Name] = append(t.constraints[dep.Name], dep.Constraint)
		}
		if err := t.visit(dep.Name); err != nil {
			return err
		}
	}

	t.state[name] = done
	t.path = t.path[:len(t.path)-1]
	t.order = append(t.order, name)
	return nil
}

// cycleError reconstructs the cycle from the in-progress path, e.g.
// "a -> b -> c -> a".
func (t *traversal) cycleError(name string) error {
	start := 0
	for i, n := range t.path {
		if n == name {
			start = i
			break
		}
	}
	cycle := append(append([]string{}, t.path[start:]...), name)
	return zerr.With(domain.ErrCyclicDependency, "cycle", strings.Join(cycle, " -> "))
}

// effectiveVersion is the version an entry will end up at: the installed
// version if a record exists, otherwise the formula's current version.
func (t *traversal) effectiveVersion(name string) string {
	if rec := t.records[name]; rec != nil {
		return rec.Version
	}
	return t.formulas[name].Version
}

// satisfied reports whether the installed record already meets every
// constraint placed on the package, so the installer can skip it.
func (t *traversal) satisfied(name string) bool {
	rec := t.records[name]
	if rec == nil {
		return false
	}
	for _, c := range t.constraints[name] {
		if !c.Satisfies(rec.Version) {
			return false
		}
	}
	return true
}

// checkConflicts verifies every accumulated constraint against each
// package's effective version. An installed version that no longer satisfies
// a new constraint is a conflict too, not a silent reinstall.
func (t *traversal) checkConflicts() error {
	names := make([]string, 0, len(t.constraints))
	for name := range t.constraints {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, ok := t.formulas[name]; !ok {
			continue
		}
		version := t.effectiveVersion(name)
		for _, c := range t.constraints[name] {
			if c.Satisfies(version) {
				continue
			}
			all := make([]string, len(t.constraints[name]))
			for i, cc := range t.constraints[name] {
				all[i] = cc.String()
			}
			err := zerr.With(domain.ErrVersionConflict, "formula", name)
			err = zerr.With(err, "version", version)
			return zerr.With(err, "constraints", strings.Join(all, ", "))
		}
	}
	return nil
}
