package fetch_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.trai.ch/zb/internal/adapters/fetch"
	"go.trai.ch/zb/internal/adapters/logger"
	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zb/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func bottleSpec(content []byte) domain.BottleSpec {
	sum := sha256.Sum256(content)
	return domain.BottleSpec{
		Tag:    "all",
		URL:    "https://example.com/pkg.tar.gz",
		SHA256: hex.EncodeToString(sum[:]),
	}
}

func body(content []byte) io.ReadCloser {
	return io.NopCloser(bytes.NewReader(content))
}

func TestFetch_DownloadsAndVerifies(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	content := []byte("bottle bytes")
	spec := bottleSpec(content)

	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().Get(gomock.Any(), spec.URL).Return(body(content), nil)

	cacheDir := t.TempDir()
	f, err := fetch.New(transport, cacheDir, 4, logger.New())
	require.NoError(t, err)

	path, err := f.Fetch(context.Background(), spec)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cacheDir, "blobs", spec.SHA256+".tar.gz"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestFetch_CacheHitSkipsTransport(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	content := []byte("cached bytes")
	spec := bottleSpec(content)

	// No transport expectations: a cache hit must not touch the network.
	transport := mocks.NewMockTransport(ctrl)

	cacheDir := t.TempDir()
	f, err := fetch.New(transport, cacheDir, 4, logger.New())
	require.NoError(t, err)

	blob := filepath.Join(cacheDir, "blobs", spec.SHA256+".tar.gz")
	require.NoError(t, os.WriteFile(blob, content, 0o644))

	path, err := f.Fetch(context.Background(), spec)
	require.NoError(t, err)
	require.Equal(t, blob, path)
}

func TestFetch_IntegrityMismatchIsTerminal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	content := []byte("bottle bytes")
	spec := bottleSpec(content)
	corrupted := append([]byte{}, content...)
	corrupted[0] ^= 0xff

	transport := mocks.NewMockTransport(ctrl)
	// Exactly one attempt: a digest mismatch must not be retried.
	transport.EXPECT().Get(gomock.Any(), spec.URL).Return(body(corrupted), nil).Times(1)

	cacheDir := t.TempDir()
	f, err := fetch.New(transport, cacheDir, 4, logger.New())
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), spec)
	require.ErrorIs(t, err, domain.ErrIntegrityMismatch)

	// Nothing corrupt survives in the cache.
	_, err = os.Stat(filepath.Join(cacheDir, "blobs", spec.SHA256+".tar.gz"))
	require.True(t, os.IsNotExist(err))
	parts, err := os.ReadDir(filepath.Join(cacheDir, "tmp"))
	require.NoError(t, err)
	require.Empty(t, parts)
}

func TestFetch_RetriesTransportFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	content := []byte("bottle bytes")
	spec := bottleSpec(content)

	transport := mocks.NewMockTransport(ctrl)
	gomock.InOrder(
		transport.EXPECT().Get(gomock.Any(), spec.URL).Return(nil, errors.New("connection reset")),
		transport.EXPECT().Get(gomock.Any(), spec.URL).Return(body(content), nil),
	)

	f, err := fetch.New(transport, t.TempDir(), 4, logger.New())
	require.NoError(t, err)
	f.SetBackoff(time.Millisecond)

	path, err := f.Fetch(context.Background(), spec)
	require.NoError(t, err)
	require.FileExists(t, path)
}

func TestFetch_ExhaustedRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	spec := bottleSpec([]byte("never arrives"))

	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().Get(gomock.Any(), spec.URL).
		Return(nil, errors.New("connection reset")).Times(4)

	f, err := fetch.New(transport, t.TempDir(), 4, logger.New())
	require.NoError(t, err)
	f.SetBackoff(time.Millisecond)

	_, err = f.Fetch(context.Background(), spec)
	require.ErrorIs(t, err, domain.ErrTransportFailure)
}

func TestFetch_CanceledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	spec := bottleSpec([]byte("never starts"))

	// No transport expectations: a canceled caller never reaches the network.
	transport := mocks.NewMockTransport(ctrl)

	f, err := fetch.New(transport, t.TempDir(), 4, logger.New())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = f.Fetch(ctx, spec)
	require.ErrorIs(t, err, domain.ErrFetchTimeout)
}

func TestSweepTmp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cacheDir := t.TempDir()
	f, err := fetch.New(mocks.NewMockTransport(ctrl), cacheDir, 4, logger.New())
	require.NoError(t, err)

	stale := filepath.Join(cacheDir, "tmp", "abc.part")
	require.NoError(t, os.WriteFile(stale, []byte("leftover"), 0o644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	// A fresh .part may belong to another process's live download.
	fresh := filepath.Join(cacheDir, "tmp", "def.part")
	require.NoError(t, os.WriteFile(fresh, []byte("in flight"), 0o644))

	require.NoError(t, f.SweepTmp())
	_, err = os.Stat(stale)
	require.True(t, os.IsNotExist(err))
	require.FileExists(t, fresh)
}

// gatedBody blocks mid-stream until released, then delivers the rest.
type gatedBody struct {
	first   []byte
	rest    []byte
	started chan struct{}
	release chan struct{}
	stage   int
}

func (g *gatedBody) Read(p []byte) (int, error) {
	switch g.stage {
	case 0:
		g.stage = 1
		close(g.started)
		return copy(p, g.first), nil
	case 1:
		<-g.release
		g.stage = 2
		return copy(p, g.rest), nil
	default:
		return 0, io.EOF
	}
}

func (g *gatedBody) Close() error { return nil }

func TestFetch_SlowCorruptDownloadCannotTouchVerifiedBlob(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	content := bytes.Repeat([]byte("G"), 64)
	spec := bottleSpec(content)
	cacheDir := t.TempDir()

	// A second process downloading the same digest, stalled mid-stream and
	// delivering corrupt bytes once it resumes.
	slow := &gatedBody{
		first:   content[:32],
		rest:    bytes.Repeat([]byte("X"), 32),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	slowTransport := mocks.NewMockTransport(ctrl)
	slowTransport.EXPECT().Get(gomock.Any(), spec.URL).Return(slow, nil).Times(1)

	slowFetcher, err := fetch.New(slowTransport, cacheDir, 4, logger.New())
	require.NoError(t, err)
	slowFetcher.SetBackoff(time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := slowFetcher.Fetch(context.Background(), spec)
		done <- err
	}()
	<-slow.started

	// The fast process completes and promotes the verified blob meanwhile.
	fastTransport := mocks.NewMockTransport(ctrl)
	fastTransport.EXPECT().Get(gomock.Any(), spec.URL).Return(body(content), nil)
	fastFetcher, err := fetch.New(fastTransport, cacheDir, 4, logger.New())
	require.NoError(t, err)

	blob, err := fastFetcher.Fetch(context.Background(), spec)
	require.NoError(t, err)

	close(slow.release)
	require.ErrorIs(t, <-done, domain.ErrIntegrityMismatch)

	got, err := os.ReadFile(blob)
	require.NoError(t, err)
	require.Equal(t, content, got)
}
