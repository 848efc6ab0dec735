package resolver

import (
	"context"
	"testing"

	"github.com/kaspa-bridge/deposit-sender/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver(map[string][]string{
		"mainnet":    {"wss://a:17110", "wss://b:17110"},
		"testnet-10": {"ws://t:17210"},
	})
	ctx := context.Background()

	first, err := r.Resolve(ctx, config.Mainnet)
	require.NoError(t, err)
	second, err := r.Resolve(ctx, config.Mainnet)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"wss://a:17110", "wss://b:17110"}, []string{first, second})

	url, err := r.Resolve(ctx, config.Testnet10)
	require.NoError(t, err)
	assert.Equal(t, "ws://t:17210", url)
}

func TestStaticResolver_Errors(t *testing.T) {
	r := NewStaticResolver(nil)

	_, err := r.Resolve(context.Background(), config.Mainnet)
	require.ErrorIs(t, err, ErrNoEndpoints)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Resolve(ctx, config.Mainnet)
	require.ErrorIs(t, err, context.Canceled)
}
