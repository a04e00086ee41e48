package resolver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/zb/internal/adapters/formula"
	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zb/internal/engine/resolver"
)

// installedMap is a canned ports.InstalledLookup.
type installedMap map[string]*domain.InstalledPackage

func (m installedMap) Get(name string) (*domain.InstalledPackage, error) {
	return m[name], nil
}

func mkFormula(name, version string, deps ...string) domain.Formula {
	f := domain.Formula{
		Name:    name,
		Version: version,
		Bottles: map[string]domain.BottleSpec{
			"all": {Tag: "all", URL: "https://example.com/" + name, SHA256: "deadbeef"},
		},
	}
	for _, dep := range deps {
		d, err := domain.ParseDependency(dep)
		if err != nil {
			panic(err)
		}
		f.Dependencies = append(f.Dependencies, d)
	}
	return f
}

func requests(t *testing.T, names ...string) []domain.Dependency {
	t.Helper()
	var out []domain.Dependency
	for _, n := range names {
		d, err := domain.ParseDependency(n)
		require.NoError(t, err)
		out = append(out, d)
	}
	return out
}

func planNames(p *domain.Plan) []string {
	names := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		names[i] = e.Formula.Name
	}
	return names
}

func TestResolve_DependenciesPrecedeDependents(t *testing.T) {
	source := formula.NewStatic(
		mkFormula("pkgA", "1.0", "pkgB"),
		mkFormula("pkgB", "2.0"),
	)
	r := resolver.New(source)

	plan, err := r.Resolve(context.Background(), requests(t, "pkgA"), installedMap{})
	require.NoError(t, err)
	require.Equal(t, []string{"pkgB", "pkgA"}, planNames(plan))
}

func TestResolve_DiamondAppearsOnce(t *testing.T) {
	source := formula.NewStatic(
		mkFormula("top", "1.0", "left", "right"),
		mkFormula("left", "1.0", "base"),
		mkFormula("right", "1.0", "base"),
		mkFormula("base", "1.0"),
	)
	r := resolver.New(source)

	plan, err := r.Resolve(context.Background(), requests(t, "top"), installedMap{})
	require.NoError(t, err)
	require.Equal(t, []string{"base", "left", "right", "top"}, planNames(plan))
}

func TestResolve_DeterministicOrder(t *testing.T) {
	source := formula.NewStatic(
		mkFormula("zeta", "1.0"),
		mkFormula("alpha", "1.0"),
		mkFormula("mid", "1.0", "zeta", "alpha"),
	)
	r := resolver.New(source)

	want, err := r.Resolve(context.Background(), requests(t, "mid", "zeta"), installedMap{})
	require.NoError(t, err)
	for range 5 {
		got, err := r.Resolve(context.Background(), requests(t, "zeta", "mid"), installedMap{})
		require.NoError(t, err)
		require.Equal(t, planNames(want), planNames(got))
	}
}

func TestResolve_CycleDetected(t *testing.T) {
	source := formula.NewStatic(
		mkFormula("a", "1.0", "b"),
		mkFormula("b", "1.0", "a"),
	)
	r := resolver.New(source)

	_, err := r.Resolve(context.Background(), requests(t, "a"), installedMap{})
	require.ErrorIs(t, err, domain.ErrCyclicDependency)
}

func TestResolve_UnknownFormula(t *testing.T) {
	source := formula.NewStatic(mkFormula("a", "1.0", "ghost"))
	r := resolver.New(source)

	_, err := r.Resolve(context.Background(), requests(t, "a"), installedMap{})
	require.ErrorIs(t, err, domain.ErrUnknownFormula)
}

func TestResolve_VersionConflict(t *testing.T) {
	source := formula.NewStatic(
		mkFormula("app", "1.0", "lib>=2.0"),
		mkFormula("other", "1.0", "lib<2.0"),
		mkFormula("lib", "2.5"),
	)
	r := resolver.New(source)

	_, err := r.Resolve(context.Background(), requests(t, "app", "other"), installedMap{})
	require.ErrorIs(t, err, domain.ErrVersionConflict)
}

func TestResolve_InstalledSatisfiesConstraint(t *testing.T) {
	source := formula.NewStatic(
		mkFormula("app", "1.0", "lib>=2.0"),
		mkFormula("lib", "3.0"),
	)
	r := resolver.New(source)

	installed := installedMap{
		"lib": {Name: "lib", Version: "2.4", StoreKey: "k1"},
	}
	plan, err := r.Resolve(context.Background(), requests(t, "app"), installed)
	require.NoError(t, err)
	require.Equal(t, []string{"lib", "app"}, planNames(plan))
	require.True(t, plan.Entries[0].Satisfied)
	require.False(t, plan.Entries[1].Satisfied)
}

func TestResolve_InstalledVersionConflicts(t *testing.T) {
	source := formula.NewStatic(
		mkFormula("app", "1.0", "lib>=3.0"),
		mkFormula("lib", "3.0"),
	)
	r := resolver.New(source)

	// The installed lib no longer satisfies the new constraint; that is a
	// conflict, not a silent reinstall.
	installed := installedMap{
		"lib": {Name: "lib", Version: "2.4", StoreKey: "k1"},
	}
	_, err := r.Resolve(context.Background(), requests(t, "app"), installed)
	require.ErrorIs(t, err, domain.ErrVersionConflict)
}
