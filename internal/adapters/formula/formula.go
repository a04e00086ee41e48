// Package formula resolves formula names to definitions from a local
// directory, an in-memory set, or the formula API.
package formula

import (
	"encoding/json"

	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zerr"
)

// formulaDoc mirrors the Homebrew formula JSON document. Only the fields zb
// consumes are declared; everything else is ignored on decode.
type formulaDoc struct {
	Name     string `json:"name"`
	Versions struct {
		Stable string `json:"stable"`
	} `json:"versions"`
	Dependencies []string `json:"dependencies"`
	Bottle       struct {
		Stable struct {
			Files map[string]struct {
				URL    string `json:"url"`
				SHA256 string `json:"sha256"`
			} `json:"files"`
		} `json:"stable"`
	} `json:"bottle"`
}

// parse decodes a formula document and converts it into the domain model.
// name is the name the caller asked for; a document whose own name disagrees
// is rejected rather than silently aliased.
func parse(name string, data []byte) (*domain.Formula, error) {
	var doc formulaDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		werr := zerr.With(domain.ErrInvalidFormula, "cause", err.Error())
		return nil, zerr.With(werr, "formula", name)
	}
	if doc.Name != name {
		err := zerr.With(domain.ErrInvalidFormula, "formula", name)
		return nil, zerr.With(err, "document_name", doc.Name)
	}

	f := &domain.Formula{
		Name:    doc.Name,
		Version: doc.Versions.Stable,
		Bottles: make(map[string]domain.BottleSpec, len(doc.Bottle.Stable.Files)),
	}
	for _, dep := range doc.Dependencies {
		d, err := domain.ParseDependency(dep)
		if err != nil {
			return nil, zerr.With(err, "formula", name)
		}
		f.Dependencies = append(f.Dependencies, d)
	}
	for tag, file := range doc.Bottle.Stable.Files {
		f.Bottles[tag] = domain.BottleSpec{
			Tag:    tag,
			URL:    file.URL,
			SHA256: file.SHA256,
		}
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}
