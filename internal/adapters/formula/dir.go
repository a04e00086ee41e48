package formula

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zb/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.FormulaSource = (*Dir)(nil)

// Dir serves formulae from a directory of <name>.json documents.
type Dir struct {
	dir string
}

// NewDir creates a directory-backed source.
func NewDir(dir string) *Dir {
	return &Dir{dir: dir}
}

// Lookup reads <dir>/<name>.json. A missing file means the formula does not
// exist; any other read failure is surfaced as-is.
func (d *Dir) Lookup(_ context.Context, name string) (*domain.Formula, error) {
	path := filepath.Join(d.dir, name+".json")
	data, err := os.ReadFile(path) //nolint:gosec // formula dir is operator-supplied
	if errors.Is(err, fs.ErrNotExist) {
		return nil, zerr.With(domain.ErrUnknownFormula, "formula", name)
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to read formula document"), "formula", name)
	}
	return parse(name, data)
}
