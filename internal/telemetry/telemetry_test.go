package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_Disabled_ReturnsNoopShutdown(t *testing.T) {
	t.Parallel()

	p, err := Setup("gateway-test", false)
	require.NoError(t, err)
	require.NotNil(t, p.Tracer)

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetup_Enabled_BuildsExporterAndShutsDownCleanly(t *testing.T) {
	t.Parallel()

	p, err := Setup("gateway-test", true)
	require.NoError(t, err)
	require.NotNil(t, p.Tracer)

	ctx, span := p.StartPhase(context.Background(), "planning")
	span.End()

	assert.NoError(t, p.Shutdown(ctx))
}
