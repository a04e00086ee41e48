package prefix

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/zb/internal/adapters/config"
	"go.trai.ch/zb/internal/adapters/logger"
	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zb/internal/core/ports"
)

const NodeID graft.ID = "adapter.linker"

func init() {
	graft.Register(graft.Node[ports.PrefixLinker]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (ports.PrefixLinker, error) {
			cfg, err := graft.Dep[*config.Config](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return New(domain.NewLayout(cfg.Root, cfg.Prefix), log), nil
		},
	})
}
