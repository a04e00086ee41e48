// Package progrock provides the Progrock implementation of the progress
// tracer, rendering per-package vertices as installs proceed.
package progrock

import (
	"context"
	"fmt"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"go.trai.ch/zb/internal/core/ports"
)

// Recorder implements ports.Tracer using the progrock library.
type Recorder struct {
	w   progrock.Writer
	rec *progrock.Recorder
}

// New creates a Recorder with a default tape.
func New() *Recorder {
	return NewRecorder(progrock.NewTape())
}

// NewRecorder creates a Recorder writing to w.
func NewRecorder(w progrock.Writer) *Recorder {
	return &Recorder{w: w, rec: progrock.NewRecorder(w)}
}

// Start opens a vertex for one unit of work.
func (r *Recorder) Start(ctx context.Context, name string) (context.Context, ports.Span) {
	v := r.rec.Vertex(digest.FromString(name), name)
	return ctx, &Span{vertex: v}
}

// EmitPlan records the planned package set as its own vertex so the render
// shows what is coming before any download starts.
func (r *Recorder) EmitPlan(_ context.Context, names []string) {
	v := r.rec.Vertex(digest.FromString("plan"), "plan")
	for _, name := range names {
		_, _ = fmt.Fprintln(v.Stdout(), name)
	}
	v.Done(nil)
}

// Close flushes and closes the recording session.
func (r *Recorder) Close() error {
	if c, ok := r.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Span implements ports.Span wrapping *progrock.VertexRecorder.
type Span struct {
	vertex *progrock.VertexRecorder
}

// Write appends to the vertex's output stream.
func (s *Span) Write(p []byte) (int, error) {
	return s.vertex.Stdout().Write(p)
}

// SetStatus records the current phase on the vertex output.
func (s *Span) SetStatus(status string) {
	_, _ = fmt.Fprintf(s.vertex.Stdout(), "%s\n", status)
}

// End marks the vertex done; a non-nil err renders it failed.
func (s *Span) End(err error) {
	s.vertex.Done(err)
}
