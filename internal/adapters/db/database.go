// Package db persists installed-package records in an embedded Badger
// database under the layout's db directory.
package db

import (
	"encoding/json"
	"errors"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zb/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Database = (*Database)(nil)

const (
	pkgPrefix = "pkg:"
	refPrefix = "ref:"
)

// Database implements ports.Database. Each installed package is one record
// under pkg:<name>; a reverse index under ref:<storeKey>:<name> lets the
// garbage collector find the packages holding a store entry alive without
// scanning every record.
type Database struct {
	db *badger.DB
}

// Open opens (or creates) the database at dir.
func Open(dir string) (*Database, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, zerr.With(zerr.With(domain.ErrDatabaseIO, "cause", err.Error()), "dir", dir)
	}
	return &Database{db: bdb}, nil
}

func pkgKey(name string) []byte {
	return []byte(pkgPrefix + name)
}

func refKey(storeKey, name string) []byte {
	return []byte(refPrefix + storeKey + ":" + name)
}

// Get returns the record for name, or nil, nil when not installed.
func (d *Database) Get(name string) (*domain.InstalledPackage, error) {
	var pkg *domain.InstalledPackage
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pkgKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return zerr.With(domain.ErrDatabaseIO, "cause", err.Error())
		}
		return item.Value(func(val []byte) error {
			var p domain.InstalledPackage
			if err := json.Unmarshal(val, &p); err != nil {
				return zerr.With(zerr.With(domain.ErrDatabaseCorrupt, "cause", err.Error()), "package", name)
			}
			pkg = &p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return pkg, nil
}

// Put upserts the record and keeps the reverse index consistent in the same
// transaction: a version change that moves the package to a new store key
// drops the old ref entry.
func (d *Database) Put(pkg domain.InstalledPackage) error {
	data, err := json.Marshal(pkg)
	if err != nil {
		return zerr.Wrap(err, "failed to encode package record")
	}
	err = d.db.Update(func(txn *badger.Txn) error {
		if item, err := txn.Get(pkgKey(pkg.Name)); err == nil {
			var old domain.InstalledPackage
			verr := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &old)
			})
			if verr == nil && old.StoreKey != "" && old.StoreKey != pkg.StoreKey {
				if err := txn.Delete(refKey(old.StoreKey, pkg.Name)); err != nil {
					return err
				}
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := txn.Set(pkgKey(pkg.Name), data); err != nil {
			return err
		}
		return txn.Set(refKey(pkg.StoreKey, pkg.Name), nil)
	})
	if err != nil {
		return zerr.With(zerr.With(domain.ErrDatabaseIO, "cause", err.Error()), "package", pkg.Name)
	}
	return nil
}

// Delete removes the record and its ref entry. Missing records are a no-op.
func (d *Database) Delete(name string) error {
	err := d.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(pkgKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var pkg domain.InstalledPackage
		if verr := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &pkg)
		}); verr == nil && pkg.StoreKey != "" {
			if err := txn.Delete(refKey(pkg.StoreKey, name)); err != nil {
				return err
			}
		}
		return txn.Delete(pkgKey(name))
	})
	if err != nil {
		return zerr.With(zerr.With(domain.ErrDatabaseIO, "cause", err.Error()), "package", name)
	}
	return nil
}

// List returns every installed record ordered by name. Badger iterates in
// key order, which for pkg:<name> keys is name order.
func (d *Database) List() ([]domain.InstalledPackage, error) {
	var pkgs []domain.InstalledPackage
	err := d.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(pkgPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var p domain.InstalledPackage
				if err := json.Unmarshal(val, &p); err != nil {
					return zerr.With(zerr.With(domain.ErrDatabaseCorrupt, "cause", err.Error()),
						"key", string(item.Key()))
				}
				pkgs = append(pkgs, p)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pkgs, nil
}

// ReferencedBy returns the installed packages recorded against storeKey.
func (d *Database) ReferencedBy(storeKey string) ([]string, error) {
	var names []string
	err := d.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte(refPrefix + storeKey + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), string(prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, zerr.With(domain.ErrDatabaseIO, "cause", err.Error())
	}
	return names, nil
}

// Close flushes and closes the underlying database.
func (d *Database) Close() error {
	if err := d.db.Close(); err != nil {
		return zerr.With(domain.ErrDatabaseIO, "cause", err.Error())
	}
	return nil
}
