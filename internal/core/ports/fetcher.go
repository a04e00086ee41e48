package ports

import (
	"context"

	"go.trai.ch/zb/internal/core/domain"
)

// BottleFetcher downloads a bottle artifact and verifies its content hash.
//
//go:generate mockgen -source=fetcher.go -destination=mocks/mock_fetcher.go -package=mocks
type BottleFetcher interface {
	// Fetch returns the path of a verified local copy of the bottle. The
	// returned file matches spec.SHA256 exactly; anything that does not is
	// discarded and reported as domain.ErrIntegrityMismatch.
	Fetch(ctx context.Context, spec domain.BottleSpec) (string, error)

	// SweepTmp removes partial downloads left behind by crashed runs.
	SweepTmp() error
}
