package ports

import "go.trai.ch/zb/internal/core/domain"

// Database is the durable record of installed packages. Upserts and deletes
// are atomic per record, and the store-key reverse index supports safe
// garbage collection.
//
//go:generate mockgen -source=database.go -destination=mocks/mock_database.go -package=mocks
type Database interface {
	// Get returns the installed record for name, or nil, nil if not installed.
	Get(name string) (*domain.InstalledPackage, error)

	// Put upserts the record and maintains the store-key reverse index.
	Put(pkg domain.InstalledPackage) error

	// Delete removes the record and its reverse-index entry. Deleting a
	// missing record is a no-op.
	Delete(name string) error

	// List returns every installed record, ordered by name.
	List() ([]domain.InstalledPackage, error)

	// ReferencedBy returns the names of installed packages whose records
	// point at the given store key.
	ReferencedBy(storeKey string) ([]string, error)

	Close() error
}

// InstalledLookup is the narrow read view the resolver needs; Database
// satisfies it.
type InstalledLookup interface {
	Get(name string) (*domain.InstalledPackage, error)
}
