package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_TracingEnabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{TracingEnabled: true})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
	// second call is a no-op
	assert.NoError(t, shutdown(context.Background()))
}
