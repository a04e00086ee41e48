package installer

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/zb/internal/adapters/config"
	"go.trai.ch/zb/internal/adapters/db"
	"go.trai.ch/zb/internal/adapters/fetch"
	"go.trai.ch/zb/internal/adapters/formula"
	"go.trai.ch/zb/internal/adapters/lock"
	"go.trai.ch/zb/internal/adapters/logger"
	"go.trai.ch/zb/internal/adapters/prefix"
	"go.trai.ch/zb/internal/adapters/store"
	"go.trai.ch/zb/internal/adapters/telemetry"
	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zb/internal/core/ports"
)

const NodeID graft.ID = "engine.installer"

func init() {
	graft.Register(graft.Node[*Installer]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			formula.NodeID,
			fetch.NodeID,
			store.NodeID,
			prefix.NodeID,
			lock.NodeID,
			db.NodeID,
			logger.NodeID,
			telemetry.NodeID,
		},
		Run: runInstallerNode,
	})
}

func runInstallerNode(ctx context.Context) (*Installer, error) {
	cfg, err := graft.Dep[*config.Config](ctx)
	if err != nil {
		return nil, err
	}
	source, err := graft.Dep[ports.FormulaSource](ctx)
	if err != nil {
		return nil, err
	}
	fetcher, err := graft.Dep[ports.BottleFetcher](ctx)
	if err != nil {
		return nil, err
	}
	cas, err := graft.Dep[ports.ContentStore](ctx)
	if err != nil {
		return nil, err
	}
	linker, err := graft.Dep[ports.PrefixLinker](ctx)
	if err != nil {
		return nil, err
	}
	locker, err := graft.Dep[ports.Locker](ctx)
	if err != nil {
		return nil, err
	}
	database, err := graft.Dep[ports.Database](ctx)
	if err != nil {
		return nil, err
	}
	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}
	tracer, err := graft.Dep[ports.Tracer](ctx)
	if err != nil {
		return nil, err
	}

	return New(Deps{
		Platform: domain.DetectPlatform(cfg.MacOS),
		Source:   source,
		Fetcher:  fetcher,
		Store:    cas,
		Linker:   linker,
		Locker:   locker,
		DB:       database,
		Logger:   log,
		Tracer:   tracer,
	}), nil
}
