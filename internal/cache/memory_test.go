package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAllowWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, err := m.Allow(ctx, "chat:u1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "hit %d", i+1)
	}
	ok, _ := m.Allow(ctx, "chat:u1", 3, time.Minute)
	assert.False(t, ok)

	now = now.Add(61 * time.Second)
	ok, _ = m.Allow(ctx, "chat:u1", 3, time.Minute)
	assert.True(t, ok)
}

func TestMemorySetNXAndJSON(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	first, err := m.SetNX(ctx, "idem:k", "pending", time.Hour)
	require.NoError(t, err)
	assert.True(t, first)
	again, _ := m.SetNX(ctx, "idem:k", "other", time.Hour)
	assert.False(t, again)

	type payload struct{ Names []string }
	require.NoError(t, SetJSON(ctx, m, "popular", payload{Names: []string{"Dune"}}, time.Minute))
	var got payload
	hit, err := GetJSON(ctx, m, "popular", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"Dune"}, got.Names)

	require.NoError(t, m.Del(ctx, "popular"))
	hit, _ = GetJSON(ctx, m, "popular", &got)
	assert.False(t, hit)
}

func TestMemorySweepDropsExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	_, err := m.SetNX(ctx, "idem:order:u1:k1", "pending", time.Hour)
	require.NoError(t, err)
	_, err = m.Allow(ctx, "ratelimit:chat:u1", 3, time.Minute)
	require.NoError(t, err)
	require.NoError(t, m.Set(ctx, "forever", "v", 0))

	now = now.Add(2 * time.Minute)
	m.Sweep()
	assert.Len(t, m.data, 2)

	now = now.Add(2 * time.Hour)
	m.Sweep()
	assert.Len(t, m.data, 1)
	_, ok, _ := m.Get(ctx, "forever")
	assert.True(t, ok)
}

func TestMemorySweeperStops(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "short", "v", time.Millisecond))

	stop := m.StartSweeper(5 * time.Millisecond)
	assert.Eventually(t, func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return len(m.data) == 0
	}, time.Second, 5*time.Millisecond)
	stop()
	stop()
}
