package ports

import "go.trai.ch/zb/internal/core/domain"

// PrefixLinker exposes store entries through the shared prefix: one Cellar
// symlink per keg and one bin symlink per executable.
//
//go:generate mockgen -source=prefix.go -destination=mocks/mock_prefix.go -package=mocks
type PrefixLinker interface {
	// Link publishes the entry under prefix/Cellar/<name>/<version> and links
	// its executables into prefix/bin. Re-linking an already linked package
	// is a no-op.
	Link(name, version string, entry domain.StoreEntry) error

	// Unlink removes the package's Cellar symlink and every bin symlink that
	// points into the entry. Links owned by other packages are left alone.
	Unlink(name, version string, entry domain.StoreEntry) error
}
