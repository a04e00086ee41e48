package formula

import (
	"context"

	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zb/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.FormulaSource = (*Static)(nil)

// Static serves a fixed in-memory set of formulae. It backs tests and
// air-gapped setups where the formula set is baked in.
type Static struct {
	formulae map[string]domain.Formula
}

// NewStatic creates a source holding the given formulae.
func NewStatic(formulae ...domain.Formula) *Static {
	m := make(map[string]domain.Formula, len(formulae))
	for _, f := range formulae {
		m[f.Name] = f
	}
	return &Static{formulae: m}
}

// Lookup returns the formula by name.
func (s *Static) Lookup(_ context.Context, name string) (*domain.Formula, error) {
	f, ok := s.formulae[name]
	if !ok {
		return nil, zerr.With(domain.ErrUnknownFormula, "formula", name)
	}
	cp := f
	return &cp, nil
}
