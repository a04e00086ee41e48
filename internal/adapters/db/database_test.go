package db_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.trai.ch/zb/internal/adapters/db"
	"go.trai.ch/zb/internal/core/domain"
)

func openDB(t *testing.T) *db.Database {
	t.Helper()
	d, err := db.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, d.Close()) })
	return d
}

func pkg(name, version, storeKey string, deps ...string) domain.InstalledPackage {
	return domain.InstalledPackage{
		Name:         name,
		Version:      version,
		StoreKey:     storeKey,
		Dependencies: deps,
		InstalledAt:  time.Now().UTC().Truncate(time.Second),
	}
}

func TestGet_MissingReturnsNil(t *testing.T) {
	d := openDB(t)
	rec, err := d.Get("ghost")
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestPutGetRoundTrip(t *testing.T) {
	d := openDB(t)
	want := pkg("jq", "1.7", "key1", "oniguruma")

	require.NoError(t, d.Put(want))

	got, err := d.Get("jq")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, want, *got)
}

func TestPut_UpsertMovesReverseIndex(t *testing.T) {
	d := openDB(t)
	require.NoError(t, d.Put(pkg("jq", "1.6", "oldkey")))
	require.NoError(t, d.Put(pkg("jq", "1.7", "newkey")))

	refs, err := d.ReferencedBy("oldkey")
	require.NoError(t, err)
	require.Empty(t, refs)

	refs, err = d.ReferencedBy("newkey")
	require.NoError(t, err)
	require.Equal(t, []string{"jq"}, refs)
}

func TestDelete_RemovesRecordAndRef(t *testing.T) {
	d := openDB(t)
	require.NoError(t, d.Put(pkg("jq", "1.7", "key1")))

	require.NoError(t, d.Delete("jq"))

	rec, err := d.Get("jq")
	require.NoError(t, err)
	require.Nil(t, rec)

	refs, err := d.ReferencedBy("key1")
	require.NoError(t, err)
	require.Empty(t, refs)

	// Deleting again is a no-op.
	require.NoError(t, d.Delete("jq"))
}

func TestList_OrderedByName(t *testing.T) {
	d := openDB(t)
	require.NoError(t, d.Put(pkg("zsh", "5.9", "k3")))
	require.NoError(t, d.Put(pkg("bat", "0.24", "k1")))
	require.NoError(t, d.Put(pkg("jq", "1.7", "k2")))

	pkgs, err := d.List()
	require.NoError(t, err)
	names := make([]string, len(pkgs))
	for i, p := range pkgs {
		names[i] = p.Name
	}
	require.Equal(t, []string{"bat", "jq", "zsh"}, names)
}

func TestReferencedBy_SharedStoreKey(t *testing.T) {
	d := openDB(t)
	require.NoError(t, d.Put(pkg("a", "1.0", "shared")))
	require.NoError(t, d.Put(pkg("b", "1.0", "shared")))

	refs, err := d.ReferencedBy("shared")
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, refs)
}

func TestReopenPersists(t *testing.T) {
	dir := t.TempDir()
	d, err := db.Open(dir)
	require.NoError(t, err)
	require.NoError(t, d.Put(pkg("jq", "1.7", "key1")))
	require.NoError(t, d.Close())

	d, err = db.Open(dir)
	require.NoError(t, err)
	defer func() { require.NoError(t, d.Close()) }()

	rec, err := d.Get("jq")
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "1.7", rec.Version)
}
