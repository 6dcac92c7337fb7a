package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nocksapp/nocks-gateway/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) Cache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	config.MockConfig(&config.Configuration{
		Redis: config.RedisConfig{Dns: mr.Addr()},
	})

	c, err := NewCache()
	require.NoError(t, err)
	return c
}

func TestSetAndGet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	setValue := map[string]string{"status": "open"}
	require.NoError(t, c.Set(ctx, "transaction_trx-1", setValue, 5*time.Minute))

	var getValue map[string]string
	require.NoError(t, c.Get(ctx, "transaction_trx-1", &getValue))
	assert.Equal(t, setValue, getValue)
}

func TestGetMissIsNotAnError(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	var got map[string]string
	assert.NoError(t, c.Get(ctx, "transaction_missing", &got))
	assert.Nil(t, got)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	require.NoError(t, c.Set(ctx, "transaction_trx-2", "snapshot", time.Minute))
	require.NoError(t, c.Delete(ctx, "transaction_trx-2"))

	var got string
	require.NoError(t, c.Get(ctx, "transaction_trx-2", &got))
	assert.Empty(t, got)
}
