// Package domain contains the core data model for formulas, bottles,
// resolved plans and the on-disk layout.
package domain

import (
	"time"

	"go.trai.ch/zerr"
)

// Dependency is one edge of a formula's dependency list: a formula name plus
// an optional version constraint.
type Dependency struct {
	Name       string
	Constraint Constraint
}

func (d Dependency) String() string {
	if d.Constraint.Any() {
		return d.Name
	}
	return d.Name + d.Constraint.String()
}

// BottleSpec describes one precompiled artifact of a formula for a single
// platform tag.
type BottleSpec struct {
	Tag    string
	URL    string
	SHA256 string
	Size   int64
}

// Formula is the immutable in-memory representation of a package definition.
// Bottles are keyed by platform tag.
type Formula struct {
	Name         string
	Version      string
	Dependencies []Dependency
	Bottles      map[string]BottleSpec
}

// Validate checks the structural invariants of a loaded formula document.
func (f *Formula) Validate() error {
	if f.Name == "" {
		return zerr.With(ErrInvalidFormula, "reason", "missing name")
	}
	if f.Version == "" {
		return zerr.With(zerr.With(ErrInvalidFormula, "formula", f.Name), "reason", "missing stable version")
	}
	for tag, b := range f.Bottles {
		if b.URL == "" || b.SHA256 == "" {
			err := zerr.With(ErrInvalidFormula, "formula", f.Name)
			err = zerr.With(err, "bottle_tag", tag)
			return zerr.With(err, "reason", "bottle missing url or sha256")
		}
	}
	return nil
}

// StoreEntry identifies one immutable, content-addressed tree in the store.
type StoreEntry struct {
	// Key is the content digest the entry is addressed by (the bottle's
	// sha256 in hex).
	Key string

	// Path is the absolute directory the entry lives at.
	Path string
}

// InstalledPackage is the durable record of one installed formula, owned by
// the local database.
type InstalledPackage struct {
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	StoreKey     string    `json:"store_key"`
	Dependencies []string  `json:"dependencies"`
	InstalledAt  time.Time `json:"installed_at"`
}
