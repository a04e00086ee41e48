package lock

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/zb/internal/adapters/config"
	"go.trai.ch/zb/internal/adapters/logger"
	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zb/internal/core/ports"
)

const NodeID graft.ID = "adapter.locker"

func init() {
	graft.Register(graft.Node[ports.Locker]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (ports.Locker, error) {
			cfg, err := graft.Dep[*config.Config](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			layout := domain.NewLayout(cfg.Root, cfg.Prefix)
			return New(layout.LocksDir(), log)
		},
	})
}
