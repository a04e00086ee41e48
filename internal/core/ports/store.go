package ports

import (
	"context"

	"go.trai.ch/zb/internal/core/domain"
)

// ContentStore owns the content-addressed store on disk. Entries are
// immutable once published; publication is a single atomic rename.
//
//go:generate mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type ContentStore interface {
	// Install extracts the verified artifact at artifactPath into the store
	// under the given content key. Installing a key that already exists is a
	// no-op returning the existing entry.
	Install(ctx context.Context, artifactPath, key string) (domain.StoreEntry, error)

	// Entry returns the entry for key if it is present in the store.
	Entry(key string) (domain.StoreEntry, bool)

	// Confirm reports whether key is published, checked under the same lock
	// that serializes sweeps. A reference recorded before a true result is
	// therefore visible to any later sweep.
	Confirm(ctx context.Context, key string) (bool, error)

	// Sweep removes every entry the referenced callback reports unused and
	// returns the removed keys. The reference check and the removal form one
	// critical section, so a concurrent install cannot reuse an entry
	// between the check and its deletion.
	Sweep(ctx context.Context, referenced func(key string) (bool, error)) ([]string, error)

	// SweepStaging removes leftover staging directories from crashed runs.
	SweepStaging() error
}
