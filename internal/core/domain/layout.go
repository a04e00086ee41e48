package domain

import (
	"os"
	"path/filepath"

	"go.trai.ch/zerr"
)

// DirPerm is the permission mode for directories created by zb.
const DirPerm = 0o755

// Layout fixes the on-disk directory contract shared by every zb invocation:
// a root holding the store, database, download cache and lock files, and a
// prefix receiving the Cellar and bin symlinks.
type Layout struct {
	Root   string
	Prefix string
}

// NewLayout cleans and absolutizes both roots.
func NewLayout(root, prefix string) Layout {
	if prefix == "" {
		prefix = filepath.Join(root, "prefix")
	}
	return Layout{Root: filepath.Clean(root), Prefix: filepath.Clean(prefix)}
}

// StoreDir is the content-addressed store root.
func (l Layout) StoreDir() string { return filepath.Join(l.Root, "store") }

// DBDir holds the local database files.
func (l Layout) DBDir() string { return filepath.Join(l.Root, "db") }

// CacheDir holds downloaded artifacts pending verification.
func (l Layout) CacheDir() string { return filepath.Join(l.Root, "cache") }

// LocksDir holds the cross-process lock files.
func (l Layout) LocksDir() string { return filepath.Join(l.Root, "locks") }

// BinDir receives executable symlinks.
func (l Layout) BinDir() string { return filepath.Join(l.Prefix, "bin") }

// CellarDir receives one symlink per installed keg.
func (l Layout) CellarDir() string { return filepath.Join(l.Prefix, "Cellar") }

// Ensure creates every directory of the layout. It is idempotent and backs
// the `zb init` command.
func (l Layout) Ensure() error {
	dirs := []string{
		l.Root,
		l.StoreDir(),
		l.DBDir(),
		l.CacheDir(),
		l.LocksDir(),
		l.Prefix,
		l.BinDir(),
		l.CellarDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, DirPerm); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to create layout directory"), "dir", dir)
		}
	}
	return nil
}

// Check verifies that the layout roots exist and are writable, without
// creating anything.
func (l Layout) Check() error {
	for _, dir := range []string{l.StoreDir(), l.DBDir(), l.CacheDir(), l.LocksDir(), l.Prefix} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return zerr.With(zerr.New("zb is not initialized, run 'zb init'"), "missing", dir)
		}
	}
	return nil
}
