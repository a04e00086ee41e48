package db

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/zb/internal/adapters/config"
	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zb/internal/core/ports"
)

const NodeID graft.ID = "adapter.database"

func init() {
	graft.Register(graft.Node[ports.Database]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID},
		Run: func(ctx context.Context) (ports.Database, error) {
			cfg, err := graft.Dep[*config.Config](ctx)
			if err != nil {
				return nil, err
			}
			layout := domain.NewLayout(cfg.Root, cfg.Prefix)
			return Open(layout.DBDir())
		},
	})
}
