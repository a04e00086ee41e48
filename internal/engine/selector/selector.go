// Package selector picks the bottle variant matching the host platform.
package selector

import (
	"sort"
	"strings"

	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zerr"
)

// Select returns the best bottle for the platform: the exact tag if the
// formula offers one, otherwise the first hit walking the platform's
// compatibility chain. No match is a hard error, never a silent skip.
func Select(f *domain.Formula, p domain.Platform) (domain.BottleSpec, error) {
	for _, tag := range p.CandidateTags() {
		if spec, ok := f.Bottles[tag]; ok {
			return spec, nil
		}
	}

	offered := make([]string, 0, len(f.Bottles))
	for tag := range f.Bottles {
		offered = append(offered, tag)
	}
	sort.Strings(offered)

	err := zerr.With(domain.ErrNoCompatibleBottle, "formula", f.Name)
	err = zerr.With(err, "platform", p.Tag())
	return domain.BottleSpec{}, zerr.With(err, "offered", strings.Join(offered, ", "))
}
