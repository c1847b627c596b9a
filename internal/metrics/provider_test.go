package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	provider, err := NewProvider("relay")

	require.NoError(t, err)
	assert.NotNil(t, provider.MeterProvider())
	assert.NotNil(t, provider.Handler())
}

func TestProvider_RuntimeCollectors(t *testing.T) {
	provider, err := NewProvider("relay")
	require.NoError(t, err)

	families, err := provider.Gatherer().Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["go_goroutines"])
}

func TestProvider_IsolatedRegistries(t *testing.T) {
	first, err := NewProvider("relay")
	require.NoError(t, err)
	second, err := NewProvider("relay")
	require.NoError(t, err)

	assert.NotSame(t, first.registry, second.registry)
}

func TestProvider_Shutdown(t *testing.T) {
	t.Run("initialized provider", func(t *testing.T) {
		provider, err := NewProvider("relay")
		require.NoError(t, err)
		assert.NoError(t, provider.Shutdown(context.Background()))
	})

	t.Run("zero provider", func(t *testing.T) {
		provider := &Provider{}
		assert.NoError(t, provider.Shutdown(context.Background()))
	})
}
