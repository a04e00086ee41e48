// Package fetch downloads bottle artifacts into the cache and verifies
// their content hash before anything else is allowed to trust them.
package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zb/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

var _ ports.BottleFetcher = (*Fetcher)(nil)

const (
	// defaultRetries bounds re-downloads after transport failures. Retrying
	// is safe because nothing is trusted until the digest matches.
	defaultRetries = 3

	// initialBackoff is the delay before the first retry; it doubles per
	// attempt.
	initialBackoff = 500 * time.Millisecond
)

// Fetcher implements ports.BottleFetcher over an injected transport. Blobs
// land in cache/blobs keyed by their sha256; in-flight writes live in
// cache/tmp as .part files that never survive a failed verification.
type Fetcher struct {
	transport ports.Transport
	blobDir   string
	tmpDir    string
	logger    ports.Logger

	sem     *semaphore.Weighted
	group   singleflight.Group
	retries int
	backoff time.Duration
}

// New creates a Fetcher writing into the given cache directory. concurrency
// caps simultaneous downloads across the whole process.
func New(transport ports.Transport, cacheDir string, concurrency int64, logger ports.Logger) (*Fetcher, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	f := &Fetcher{
		transport: transport,
		blobDir:   filepath.Join(cacheDir, "blobs"),
		tmpDir:    filepath.Join(cacheDir, "tmp"),
		logger:    logger,
		sem:       semaphore.NewWeighted(concurrency),
		retries:   defaultRetries,
		backoff:   initialBackoff,
	}
	for _, dir := range []string{f.blobDir, f.tmpDir} {
		if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to create cache directory"), "dir", dir)
		}
	}
	return f, nil
}

// blobPath is the final, verified location of an artifact.
func (f *Fetcher) blobPath(sha string) string {
	return filepath.Join(f.blobDir, sha+".tar.gz")
}

// Fetch returns a verified local copy of the bottle, downloading it if the
// cache does not already hold it. Concurrent fetches of the same digest are
// deduplicated into a single download.
func (f *Fetcher) Fetch(ctx context.Context, spec domain.BottleSpec) (string, error) {
	blob := f.blobPath(spec.SHA256)
	if _, err := os.Stat(blob); err == nil {
		return blob, nil
	}

	path, err, _ := f.group.Do(spec.SHA256, func() (any, error) {
		if err := f.sem.Acquire(ctx, 1); err != nil {
			return "", zerr.With(domain.ErrFetchTimeout, "cause", err.Error())
		}
		defer f.sem.Release(1)

		// Another waiter may have completed the blob while we queued.
		if _, err := os.Stat(blob); err == nil {
			return blob, nil
		}
		return f.download(ctx, spec)
	})
	if err != nil {
		return "", err
	}
	return path.(string), nil
}

// download retries transport failures with doubling backoff. A completed
// stream whose digest mismatches is terminal: the bytes are wrong, not
// missing.
func (f *Fetcher) download(ctx context.Context, spec domain.BottleSpec) (string, error) {
	backoff := f.backoff
	var lastErr error

	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			f.logger.Warn("retrying download", "url", spec.URL, "attempt", attempt)
			select {
			case <-ctx.Done():
				return "", zerr.With(domain.ErrFetchTimeout, "cause", ctx.Err().Error())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		path, err := f.attempt(ctx, spec)
		if err == nil {
			return path, nil
		}
		if errors.Is(err, domain.ErrIntegrityMismatch) {
			return "", err
		}
		if ctx.Err() != nil {
			return "", zerr.With(domain.ErrFetchTimeout, "cause", err.Error())
		}
		lastErr = err
	}

	err := zerr.With(domain.ErrTransportFailure, "cause", lastErr.Error())
	err = zerr.With(err, "url", spec.URL)
	return "", zerr.With(err, "attempts", f.retries+1)
}

// attempt streams one download into a .part file, hashing as it goes. Only
// a byte-exact artifact is promoted into the blob directory.
func (f *Fetcher) attempt(ctx context.Context, spec domain.BottleSpec) (retPath string, retErr error) {
	body, err := f.transport.Get(ctx, spec.URL)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "transport request failed"), "url", spec.URL)
	}
	defer body.Close() //nolint:errcheck // best effort close

	// Each download writes its own temp file. A shared per-digest path would
	// let a slow concurrent writer keep appending to a blob another process
	// already verified and promoted.
	out, err := os.CreateTemp(f.tmpDir, spec.SHA256+"-*.part")
	if err != nil {
		return "", zerr.Wrap(err, "failed to create temporary artifact")
	}
	part := out.Name()
	defer func() {
		if retErr != nil {
			_ = out.Close()
			_ = os.Remove(part)
		}
	}()

	hasher := sha256.New()
	if _, err := io.Copy(io.MultiWriter(out, hasher), body); err != nil {
		return "", zerr.With(zerr.Wrap(err, "download interrupted"), "url", spec.URL)
	}
	if err := out.Close(); err != nil {
		return "", zerr.Wrap(err, "failed to finalize temporary artifact")
	}

	actual := hex.EncodeToString(hasher.Sum(nil))
	if actual != spec.SHA256 {
		err := zerr.With(domain.ErrIntegrityMismatch, "url", spec.URL)
		err = zerr.With(err, "expected", spec.SHA256)
		return "", zerr.With(err, "actual", actual)
	}

	blob := f.blobPath(spec.SHA256)
	if err := os.Rename(part, blob); err != nil {
		return "", zerr.Wrap(err, "failed to promote verified artifact")
	}
	return blob, nil
}

// SweepTmp removes leftover .part files from crashed runs. Files younger
// than an hour may belong to a live download in another process and are
// kept.
func (f *Fetcher) SweepTmp() error {
	entries, err := os.ReadDir(f.tmpDir)
	if err != nil {
		return zerr.Wrap(err, "failed to read cache tmp directory")
	}
	cutoff := time.Now().Add(-time.Hour)
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(f.tmpDir, e.Name())); err != nil {
			return zerr.Wrap(err, "failed to remove stale temporary artifact")
		}
	}
	return nil
}
