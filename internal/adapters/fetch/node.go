package fetch

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/zb/internal/adapters/config"
	"go.trai.ch/zb/internal/adapters/logger"
	"go.trai.ch/zb/internal/core/domain"
	"go.trai.ch/zb/internal/core/ports"
)

const (
	// TransportNodeID identifies the HTTP transport node.
	TransportNodeID graft.ID = "adapter.transport"
	// NodeID identifies the bottle fetcher node.
	NodeID graft.ID = "adapter.fetcher"
)

func init() {
	graft.Register(graft.Node[ports.Transport]{
		ID:        TransportNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Transport, error) {
			return NewHTTPTransport(nil), nil
		},
	})

	graft.Register(graft.Node[ports.BottleFetcher]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{TransportNodeID, config.NodeID, logger.NodeID},
		Run: func(ctx context.Context) (ports.BottleFetcher, error) {
			transport, err := graft.Dep[ports.Transport](ctx)
			if err != nil {
				return nil, err
			}
			cfg, err := graft.Dep[*config.Config](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			layout := domain.NewLayout(cfg.Root, cfg.Prefix)
			return New(transport, layout.CacheDir(), int64(cfg.Concurrency), log)
		},
	})
}
