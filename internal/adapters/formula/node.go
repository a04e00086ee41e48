package formula

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/zb/internal/adapters/config"
	"go.trai.ch/zb/internal/adapters/fetch"
	"go.trai.ch/zb/internal/core/ports"
)

const NodeID graft.ID = "adapter.formula_source"

func init() {
	graft.Register(graft.Node[ports.FormulaSource]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.NodeID, fetch.TransportNodeID},
		Run: func(ctx context.Context) (ports.FormulaSource, error) {
			cfg, err := graft.Dep[*config.Config](ctx)
			if err != nil {
				return nil, err
			}
			if cfg.FormulaDir != "" {
				return NewDir(cfg.FormulaDir), nil
			}
			transport, err := graft.Dep[ports.Transport](ctx)
			if err != nil {
				return nil, err
			}
			return NewAPI(transport, cfg.APIBase), nil
		},
	})
}
