package formula

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.trai.ch/zb/internal/adapters/fetch"
	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zb/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.FormulaSource = (*API)(nil)

// API serves formulae from the formula API over an injected transport.
type API struct {
	transport ports.Transport
	base      string
}

// NewAPI creates an API-backed source rooted at base, e.g.
// "https://formulae.brew.sh".
func NewAPI(transport ports.Transport, base string) *API {
	return &API{transport: transport, base: strings.TrimRight(base, "/")}
}

// Lookup fetches <base>/api/formula/<name>.json. An HTTP 404 is reported as
// an unknown formula; other transport failures keep their own identity so
// callers can tell "no such package" from "network is down".
func (a *API) Lookup(ctx context.Context, name string) (*domain.Formula, error) {
	url := a.base + "/api/formula/" + name + ".json"
	body, err := a.transport.Get(ctx, url)
	if err != nil {
		if isNotFound(err) {
			return nil, zerr.With(domain.ErrUnknownFormula, "formula", name)
		}
		return nil, zerr.With(err, "formula", name)
	}
	defer body.Close() //nolint:errcheck // read-only close

	data, err := io.ReadAll(body)
	if err != nil {
		werr := zerr.With(domain.ErrTransportFailure, "cause", err.Error())
		return nil, zerr.With(werr, "formula", name)
	}
	return parse(name, data)
}

func isNotFound(err error) bool {
	var serr *fetch.StatusError
	return errors.As(err, &serr) && serr.Status == http.StatusNotFound
}
