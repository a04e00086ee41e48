package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zb/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Transport = (*HTTPTransport)(nil)

// StatusError reports a non-2xx HTTP response. It matches
// domain.ErrTransportFailure via errors.Is so callers that only care about
// "the transfer failed" keep working, while callers that need the status
// code can errors.As for it.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.Status, e.URL)
}

func (e *StatusError) Is(target error) bool {
	return target == domain.ErrTransportFailure
}

// HTTPTransport implements ports.Transport over net/http.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates a transport using the given client, or
// http.DefaultClient when nil.
func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTransport{client: client}
}

// Get opens the response body stream for url. Non-2xx responses are
// transport failures.
func (t *HTTPTransport) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, zerr.With(domain.ErrTransportFailure, "cause", err.Error())
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, zerr.With(domain.ErrTransportFailure, "cause", err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &StatusError{URL: url, Status: resp.StatusCode}
	}
	return resp.Body, nil
}
