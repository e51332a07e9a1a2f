package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAppliesDefaultsWhenConfigNil(t *testing.T) {
	p := New(nil)
	require.NotNil(t, p.Logger())
	require.NotNil(t, p.MeterProvider())
}

func TestNewDisablesMetricsWhenConfigured(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MetricsEnabled = false
	p := New(cfg)
	require.Nil(t, p.MeterProvider())
	require.NoError(t, p.Shutdown(context.Background()))
}
