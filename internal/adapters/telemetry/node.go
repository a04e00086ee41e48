package telemetry

import (
	"context"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/zb/internal/adapters/telemetry/progrock"
	"go.trai.ch/zb/internal/core/ports"
)

const NodeID graft.ID = "adapter.telemetry"

func init() {
	graft.Register(graft.Node[ports.Tracer]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.Tracer, error) {
			if os.Getenv("ZB_NO_PROGRESS") != "" {
				return NewNoOpTracer(), nil
			}
			return progrock.New(), nil
		},
	})
}
