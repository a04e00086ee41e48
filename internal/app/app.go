// Package app implements the application layer for zb.
package app

import (
	"context"

	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zb/internal/core/ports"
	"go.trai.ch/zb/internal/engine/installer"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	installer *installer.Installer
	layout    domain.Layout
	db        ports.Database
	logger    ports.Logger
}

// New creates a new App instance.
func New(inst *installer.Installer, layout domain.Layout, database ports.Database, log ports.Logger) *App {
	return &App{
		installer: inst,
		layout:    layout,
		db:        database,
		logger:    log,
	}
}

// Init creates the layout directories. It is idempotent.
func (a *App) Init() error {
	if err := a.layout.Ensure(); err != nil {
		return err
	}
	a.logger.Info("initialized", "root", a.layout.Root, "prefix", a.layout.Prefix)
	return nil
}

// Install resolves and installs the named packages. Every entry's outcome is
// reported; the call fails with domain.ErrInstallFailed when any entry did.
func (a *App) Install(ctx context.Context, names []string, link bool) error {
	if err := a.layout.Check(); err != nil {
		return err
	}

	report, err := a.installer.Install(ctx, names, link)
	if err != nil {
		return err
	}

	for _, e := range report.Entries {
		switch e.Status {
		case installer.StatusRecorded:
			a.logger.Info("installed", "package", e.Name, "version", e.Version)
		case installer.StatusSatisfied:
			a.logger.Info("already installed", "package", e.Name, "version", e.Version)
		case installer.StatusSkipped:
			a.logger.Warn("skipped", "package", e.Name, "reason", "dependency failed")
		case installer.StatusFailed:
			a.logger.Warn("failed", "package", e.Name, "error", e.Err)
		}
	}

	if failed := report.Failed(); len(failed) > 0 {
		err := zerr.With(domain.ErrInstallFailed, "failed", len(failed))
		return zerr.With(err, "installed", report.Installed())
	}
	return nil
}

// Uninstall removes one installed package, or every package when all is set.
func (a *App) Uninstall(ctx context.Context, names []string, all bool) error {
	if err := a.layout.Check(); err != nil {
		return err
	}

	if all {
		removed, err := a.installer.UninstallAll(ctx)
		for _, name := range removed {
			a.logger.Info("uninstalled", "package", name)
		}
		return err
	}

	for _, name := range names {
		if err := a.installer.Uninstall(ctx, name); err != nil {
			return err
		}
		a.logger.Info("uninstalled", "package", name)
	}
	return nil
}

// List returns every installed package record.
func (a *App) List() ([]domain.InstalledPackage, error) {
	if err := a.layout.Check(); err != nil {
		return nil, err
	}
	return a.installer.List()
}

// Info returns the installed record for one package.
func (a *App) Info(name string) (*domain.InstalledPackage, error) {
	if err := a.layout.Check(); err != nil {
		return nil, err
	}
	return a.installer.Info(name)
}

// GC removes unreferenced store entries and returns the removed keys.
func (a *App) GC(ctx context.Context) ([]string, error) {
	if err := a.layout.Check(); err != nil {
		return nil, err
	}
	return a.installer.GC(ctx)
}

// Close releases the App's resources, in particular the database.
func (a *App) Close() error {
	return a.db.Close()
}
