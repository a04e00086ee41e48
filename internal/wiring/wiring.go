// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/zb/internal/adapters/config"
	_ "go.trai.ch/zb/internal/adapters/db"
	_ "go.trai.ch/zb/internal/adapters/fetch"
	_ "go.trai.ch/zb/internal/adapters/formula"
	_ "go.trai.ch/zb/internal/adapters/lock"
	_ "go.trai.ch/zb/internal/adapters/logger"
	_ "go.trai.ch/zb/internal/adapters/prefix"
	_ "go.trai.ch/zb/internal/adapters/store"
	_ "go.trai.ch/zb/internal/adapters/telemetry"
	// Register app and engine nodes.
	_ "go.trai.ch/zb/internal/app"
	_ "go.trai.ch/zb/internal/engine/installer"
)
