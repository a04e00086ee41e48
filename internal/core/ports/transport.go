package ports

import (
	"context"
	"io"
)

// Transport delivers raw bytes for a URL. The production implementation is a
// thin wrapper over net/http; fetch logic treats it as an untrusted
// collaborator and verifies everything it returns.
//
//go:generate mockgen -source=transport.go -destination=mocks/mock_transport.go -package=mocks
type Transport interface {
	// Get opens a byte stream for the given URL. The caller owns the stream
	// and must close it.
	Get(ctx context.Context, url string) (io.ReadCloser, error)
}
