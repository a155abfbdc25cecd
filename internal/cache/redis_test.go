package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	cli := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = cli.Close() })
	require.NoError(t, cli.Ping(ctx).Err())
	return cli
}

func TestRedisCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	ctx := context.Background()
	cli := setupRedis(t)
	c := NewRedis(cli, "test:")

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, SetJSON(ctx, c, "popular", []string{"a", "b"}, time.Minute))
	var got []string
	ok, err = GetJSON(ctx, c, "popular", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)

	raw, err := cli.Get(ctx, "test:popular").Result()
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, raw)

	first, err := c.SetNX(ctx, "idem", "pending", time.Minute)
	require.NoError(t, err)
	assert.True(t, first)
	second, err := c.SetNX(ctx, "idem", "pending", time.Minute)
	require.NoError(t, err)
	assert.False(t, second)
	require.NoError(t, c.Del(ctx, "idem"))
	again, err := c.SetNX(ctx, "idem", "x", time.Minute)
	require.NoError(t, err)
	assert.True(t, again)

	for i := 1; i <= 3; i++ {
		allowed, err := c.Allow(ctx, "chat:u1", 2, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i <= 2, allowed, "hit %d", i)
	}
	ttl, err := cli.PTTL(ctx, "test:chat:u1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
