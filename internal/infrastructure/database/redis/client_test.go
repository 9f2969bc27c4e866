package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AAriam/rdkit/internal/infrastructure/monitoring/logging"
	"github.com/AAriam/rdkit/pkg/errors"
)

func TestNewClient_Standalone(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(RedisConfig{Mode: "standalone", Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()))
}

func TestNewClient_ConnectionFailed(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client, err := NewClient(RedisConfig{Addr: addr}, logging.NewNopLogger())
	assert.Nil(t, client)
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))
}

func TestCache_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)
	defer client.Close()

	cache := NewCache(client, logging.NewNopLogger())
	ctx := context.Background()

	type result struct {
		SMILES string `json:"smiles"`
	}
	require.NoError(t, cache.Set(ctx, "glycine", result{SMILES: "NCC(=O)O"}, 0))
	assert.True(t, mr.Exists("chargefix:glycine"))

	var got result
	require.NoError(t, cache.Get(ctx, "glycine", &got))
	assert.Equal(t, "NCC(=O)O", got.SMILES)

	n, err := cache.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, ErrCacheMiss, cache.Get(ctx, "glycine", &got))
}

func TestClient_Close(t *testing.T) {
	mr := miniredis.RunT(t)
	client, err := NewClient(RedisConfig{Addr: mr.Addr()}, logging.NewNopLogger())
	require.NoError(t, err)

	assert.NoError(t, client.Close())
	assert.NoError(t, client.Close())
	assert.Equal(t, ErrClientClosed, client.Ping(context.Background()))
}
