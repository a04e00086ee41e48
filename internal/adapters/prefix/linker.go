// Package prefix exposes store entries through the shared prefix tree.
package prefix

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zb/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.PrefixLinker = (*Linker)(nil)

// Linker creates and removes the symlinks that make an installed package
// usable: prefix/Cellar/<name>/<version> pointing at the store entry, and
// prefix/bin/<exe> pointing at each executable inside it.
type Linker struct {
	layout domain.Layout
	logger ports.Logger
}

// New creates a Linker for the layout's prefix.
func New(layout domain.Layout, logger ports.Logger) *Linker {
	return &Linker{layout: layout, logger: logger}
}

func (l *Linker) kegLink(name, version string) string {
	return filepath.Join(l.layout.CellarDir(), name, version)
}

// Link publishes the entry. Linking is idempotent: a link that already
// points at the right target is left untouched, and a link from an older
// install of the same tool is replaced.
func (l *Linker) Link(name, version string, entry domain.StoreEntry) error {
	keg := l.kegLink(name, version)
	if err := os.MkdirAll(filepath.Dir(keg), domain.DirPerm); err != nil {
		return zerr.Wrap(err, "failed to create cellar directory")
	}
	if err := ensureSymlink(entry.Path, keg); err != nil {
		return err
	}

	bins, err := entryExecutables(entry)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(l.layout.BinDir(), domain.DirPerm); err != nil {
		return zerr.Wrap(err, "failed to create bin directory")
	}
	for _, bin := range bins {
		link := filepath.Join(l.layout.BinDir(), filepath.Base(bin))
		if err := ensureSymlink(bin, link); err != nil {
			return err
		}
	}
	return nil
}

// Unlink removes the package's keg symlink and every bin symlink pointing
// into the entry. Links owned by other packages are preserved.
func (l *Linker) Unlink(name, version string, entry domain.StoreEntry) error {
	binDir := l.layout.BinDir()
	links, err := os.ReadDir(binDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.Wrap(err, "failed to read bin directory")
	}
	for _, le := range links {
		link := filepath.Join(binDir, le.Name())
		target, err := os.Readlink(link)
		if err != nil {
			continue // not a symlink, not ours
		}
		if strings.HasPrefix(target, entry.Path+string(os.PathSeparator)) {
			if err := os.Remove(link); err != nil {
				return zerr.With(zerr.Wrap(err, "failed to remove bin link"), "link", link)
			}
		}
	}

	keg := l.kegLink(name, version)
	if err := os.Remove(keg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return zerr.With(zerr.Wrap(err, "failed to remove keg link"), "keg", keg)
	}
	// Drop the name directory if this was its last version.
	_ = os.Remove(filepath.Dir(keg))
	return nil
}

// ensureSymlink makes link point at target, replacing a link that points
// elsewhere. An existing correct link is a no-op.
func ensureSymlink(target, link string) error {
	existing, err := os.Readlink(link)
	switch {
	case err == nil && existing == target:
		return nil
	case err == nil:
		if err := os.Remove(link); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to replace link"), "link", link)
		}
	case !errors.Is(err, fs.ErrNotExist):
		// Something that is not a symlink occupies the path; refuse to
		// clobber a real file.
		if _, statErr := os.Lstat(link); statErr == nil {
			return zerr.With(zerr.New("refusing to replace non-symlink"), "path", link)
		}
	}
	if err := os.Symlink(target, link); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create link"), "link", link)
	}
	return nil
}

// entryExecutables lists the executable files in the entry's bin directory.
func entryExecutables(entry domain.StoreEntry) ([]string, error) {
	binDir := filepath.Join(entry.Path, "bin")
	entries, err := os.ReadDir(binDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil // library-only package
	}
	if err != nil {
		return nil, zerr.Wrap(err, "failed to read entry bin directory")
	}
	var bins []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		bins = append(bins, filepath.Join(binDir, e.Name()))
	}
	return bins, nil
}
