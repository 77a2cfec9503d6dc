package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return srv, client
}

func TestNewPingsServer(t *testing.T) {
	srv, _ := newRedis(t)
	client, err := New(context.Background(), srv.Addr())
	require.NoError(t, err)
	require.NoError(t, client.Close())
}

func TestFetchJSONCachesUntilBump(t *testing.T) {
	_, client := newRedis(t)
	c := NewVersioned(client, "refdata", time.Minute)
	ctx := context.Background()

	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return []string{"KG", "Pcs"}, nil
	}

	key, err := c.BuildKey(ctx, "unit")
	require.NoError(t, err)
	assert.Equal(t, "refdata:unit:1", key)

	var got []string
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	assert.Equal(t, []string{"KG", "Pcs"}, got)
	assert.Equal(t, 1, calls)

	require.NoError(t, c.Bump(ctx))
	key, err = c.BuildKey(ctx, "unit")
	require.NoError(t, err)
	assert.Equal(t, "refdata:unit:2", key)
	require.NoError(t, c.FetchJSON(ctx, key, &got, loader))
	assert.Equal(t, 2, calls)
}

func TestNilClientRunsLoader(t *testing.T) {
	c := NewVersioned(nil, "refdata", time.Minute)
	ctx := context.Background()
	key, err := c.BuildKey(ctx, "brand")
	require.NoError(t, err)
	assert.Equal(t, "refdata:brand", key)

	var got []string
	require.NoError(t, c.FetchJSON(ctx, key, &got, func(context.Context) (any, error) {
		return []string{"Nike"}, nil
	}))
	assert.Equal(t, []string{"Nike"}, got)
	assert.NoError(t, c.Bump(ctx))
}

func TestSubscribeReceivesBumps(t *testing.T) {
	_, client := newRedis(t)
	c := NewVersioned(client, "refdata", time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seen := make(chan int64, 1)
	require.NoError(t, c.Subscribe(ctx, func(v int64) { seen <- v }))
	require.NoError(t, c.Bump(ctx))

	select {
	case v := <-seen:
		assert.Equal(t, int64(1), v)
	case <-time.After(2 * time.Second):
		t.Fatal("bump not delivered")
	}
}
