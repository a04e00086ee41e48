package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.trai.ch/zb/internal/adapters/telemetry"
)

func TestNoOpTracer(t *testing.T) {
	tracer := telemetry.NewNoOpTracer()

	ctx, span := tracer.Start(context.Background(), "install jq")
	require.NotNil(t, ctx)

	n, err := span.Write([]byte("output"))
	require.NoError(t, err)
	require.Equal(t, 6, n)

	span.SetStatus("fetching")
	span.End(errors.New("ignored"))
	tracer.EmitPlan(ctx, []string{"jq"})
}
