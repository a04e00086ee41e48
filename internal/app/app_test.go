package app_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/zb/internal/adapters/db"
	"go.trai.ch/zb/internal/adapters/logger"
	"go.trai.ch/zb/internal/adapters/telemetry"
	"go.trai.ch/zb/internal/app"
	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zb/internal/engine/installer"
)

func newApp(t *testing.T) (*app.App, domain.Layout) {
	t.Helper()
	layout := domain.NewLayout(filepath.Join(t.TempDir(), "root"), "")

	database, err := db.Open(layout.DBDir())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, database.Close()) })

	log := logger.New()
	inst := installer.New(installer.Deps{
		DB:     database,
		Logger: log,
		Tracer: telemetry.NewNoOpTracer(),
	})
	return app.New(inst, layout, database, log), layout
}

func TestApp_RequiresInit(t *testing.T) {
	a, _ := newApp(t)

	_, err := a.List()
	require.Error(t, err)
	require.Contains(t, err.Error(), "not initialized")
}

func TestApp_InitThenList(t *testing.T) {
	a, layout := newApp(t)

	require.NoError(t, a.Init())
	require.DirExists(t, layout.StoreDir())
	require.DirExists(t, layout.BinDir())

	pkgs, err := a.List()
	require.NoError(t, err)
	require.Empty(t, pkgs)

	// Init is idempotent.
	require.NoError(t, a.Init())
}

func TestApp_InfoNotInstalled(t *testing.T) {
	a, _ := newApp(t)
	require.NoError(t, a.Init())

	_, err := a.Info("ghost")
	require.ErrorIs(t, err, domain.ErrNotInstalled)
}
