package store

import (
	"archive/tar"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zerr"
	"golang.org/x/sys/unix"
)

// extractFailure classifies an extraction error. Running out of space on the
// store volume is its own failure mode.
func extractFailure(err error) error {
	if errors.Is(err, unix.ENOSPC) {
		return zerr.With(domain.ErrDiskFull, "cause", err.Error())
	}
	return zerr.With(domain.ErrExtractionFailure, "cause", err.Error())
}

// extractTarGz unpacks a bottle tarball into dst. Homebrew bottles nest
// everything under "<name>/<version>/", which is stripped so the entry root
// holds bin/, lib/ and friends directly. File modes and symlinks are
// preserved; anything escaping dst is rejected.
func extractTarGz(artifactPath, dst string) error {
	f, err := os.Open(artifactPath) //nolint:gosec // path comes from the verified cache
	if err != nil {
		return extractFailure(err)
	}
	defer f.Close() //nolint:errcheck // read-only close

	gz, err := gzip.NewReader(f)
	if err != nil {
		return extractFailure(err)
	}
	defer gz.Close() //nolint:errcheck // read-only close

	if err := os.MkdirAll(dst, domain.DirPerm); err != nil {
		return extractFailure(err)
	}

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return extractFailure(err)
		}
		if err := extractEntry(tr, hdr, dst); err != nil {
			return err
		}
	}
}

func extractEntry(tr *tar.Reader, hdr *tar.Header, dst string) error {
	name, ok := stripKegPrefix(hdr.Name)
	if !ok {
		return nil // the name/ and name/version/ wrapper directories
	}

	path, err := securePath(dst, name)
	if err != nil {
		return err
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(path, os.FileMode(hdr.Mode)|0o700); err != nil {
			return extractFailure(err)
		}

	case tar.TypeReg:
		if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
			return extractFailure(err)
		}
		out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, os.FileMode(hdr.Mode)) //nolint:gosec // path validated above
		if err != nil {
			return extractFailure(err)
		}
		if _, err := io.Copy(out, tr); err != nil { //nolint:gosec // size bounded by the verified artifact
			_ = out.Close()
			return extractFailure(err)
		}
		if err := out.Close(); err != nil {
			return extractFailure(err)
		}

	case tar.TypeSymlink:
		if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
			return extractFailure(err)
		}
		if err := os.Symlink(hdr.Linkname, path); err != nil {
			return extractFailure(err)
		}

	case tar.TypeLink:
		target, ok := stripKegPrefix(hdr.Linkname)
		if !ok {
			return zerr.With(domain.ErrExtractionFailure, "hardlink", hdr.Linkname)
		}
		targetPath, err := securePath(dst, target)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), domain.DirPerm); err != nil {
			return extractFailure(err)
		}
		if err := os.Link(targetPath, path); err != nil {
			return extractFailure(err)
		}

	case tar.TypeXGlobalHeader, tar.TypeXHeader:
		// PAX metadata, nothing to materialize.

	default:
		err := zerr.With(domain.ErrExtractionFailure, "entry", hdr.Name)
		return zerr.With(err, "type", int(hdr.Typeflag))
	}
	return nil
}

// stripKegPrefix drops the leading "<name>/<version>" components of a
// bottle member path. Paths with nothing underneath report ok=false.
func stripKegPrefix(name string) (string, bool) {
	name = strings.TrimPrefix(filepath.ToSlash(name), "./")
	parts := strings.SplitN(name, "/", 3)
	if len(parts) < 3 || parts[2] == "" {
		return "", false
	}
	return parts[2], true
}

// securePath joins name onto dst and rejects traversal outside it.
func securePath(dst, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", zerr.With(domain.ErrExtractionFailure, "entry", name)
	}
	path := filepath.Join(dst, name)
	if !strings.HasPrefix(path, filepath.Clean(dst)+string(os.PathSeparator)) {
		return "", zerr.With(domain.ErrExtractionFailure, "entry", name)
	}
	return path, nil
}
