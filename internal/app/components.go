package app

import (
	"go.trai.ch/zb/internal/adapters/config"
	"go.trai.ch/zb/internal/core/ports"
)

// Components contains all the initialized application components.
// This struct provides controlled access to components needed by the CLI layer.
type Components struct {
	App    *App
	Logger ports.Logger
	Config *config.Config
}
