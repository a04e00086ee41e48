package selector_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zb/internal/engine/selector"
)

func formulaWith(tags ...string) *domain.Formula {
	f := &domain.Formula{
		Name:    "pkg",
		Version: "1.0",
		Bottles: make(map[string]domain.BottleSpec, len(tags)),
	}
	for _, tag := range tags {
		f.Bottles[tag] = domain.BottleSpec{
			Tag:    tag,
			URL:    "https://example.com/pkg-" + tag,
			SHA256: "deadbeef",
		}
	}
	return f
}

func TestSelect_ExactTag(t *testing.T) {
	f := formulaWith("x86_64_linux", "arm64_sonoma", "all")
	p := domain.Platform{OS: "linux", Arch: "x86_64"}

	spec, err := selector.Select(f, p)
	require.NoError(t, err)
	require.Equal(t, "x86_64_linux", spec.Tag)
}

func TestSelect_FallsBackToOlderRelease(t *testing.T) {
	f := formulaWith("arm64_ventura")
	p := domain.Platform{OS: "darwin", Arch: "arm64", MacOS: "sonoma"}

	spec, err := selector.Select(f, p)
	require.NoError(t, err)
	require.Equal(t, "arm64_ventura", spec.Tag)
}

func TestSelect_PrefersExactOverAll(t *testing.T) {
	f := formulaWith("all", "x86_64_linux")
	p := domain.Platform{OS: "linux", Arch: "x86_64"}

	spec, err := selector.Select(f, p)
	require.NoError(t, err)
	require.Equal(t, "x86_64_linux", spec.Tag)
}

func TestSelect_AllTag(t *testing.T) {
	f := formulaWith("all")
	p := domain.Platform{OS: "darwin", Arch: "arm64", MacOS: "sonoma"}

	spec, err := selector.Select(f, p)
	require.NoError(t, err)
	require.Equal(t, "all", spec.Tag)
}

func TestSelect_NoCompatibleBottle(t *testing.T) {
	f := formulaWith("arm64_sonoma")
	p := domain.Platform{OS: "linux", Arch: "x86_64"}

	_, err := selector.Select(f, p)
	require.ErrorIs(t, err, domain.ErrNoCompatibleBottle)
}

func TestSelect_NewerBottleNotOffered(t *testing.T) {
	// A ventura host must not take a sonoma-only bottle.
	f := formulaWith("arm64_sonoma")
	p := domain.Platform{OS: "darwin", Arch: "arm64", MacOS: "ventura"}

	_, err := selector.Select(f, p)
	require.ErrorIs(t, err, domain.ErrNoCompatibleBottle)
}
