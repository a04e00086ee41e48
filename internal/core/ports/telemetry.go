package ports

import (
	"context"
	"io"
)

//go:generate mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks

// Tracer is the entry point for recording per-package progress.
type Tracer interface {
	// Start creates a new span for one unit of work (one package install,
	// one download).
	Start(ctx context.Context, name string) (context.Context, Span)

	// EmitPlan signals that a set of packages is planned for installation.
	EmitPlan(ctx context.Context, names []string)
}

// Span represents a unit of work in flight.
type Span interface {
	io.Writer

	// End completes the span; a non-nil err marks it failed.
	End(err error)

	// SetStatus records a human-readable phase ("fetching", "linking").
	SetStatus(status string)
}
