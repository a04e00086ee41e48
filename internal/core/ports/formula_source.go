package ports

import (
	"context"

	"go.trai.ch/zb/internal/core/domain"
)

// FormulaSource resolves a formula name to its definition. Implementations
// read a directory of formula documents, an in-memory set, or the formula
// API; fetching and updating the formula repository itself is not zb's job.
//
//go:generate mockgen -source=formula_source.go -destination=mocks/mock_formula_source.go -package=mocks
type FormulaSource interface {
	// Lookup returns the formula definition for name, or
	// domain.ErrUnknownFormula if the source has never heard of it.
	Lookup(ctx context.Context, name string) (*domain.Formula, error)
}
