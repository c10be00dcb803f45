package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStoreSetGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, ok := store.Get(ctx, "missing")
	assert.False(t, ok)

	store.Set(ctx, "k", "v1", 0)
	got, ok := store.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v1", got)

	store.Set(ctx, "k", "v2", 0)
	got, _ = store.Get(ctx, "k")
	assert.Equal(t, "v2", got)
}

func TestMemoryStoreExpiry(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStoreWithClock(func() time.Time { return now })
	ctx := context.Background()

	store.Set(ctx, "k", "v", time.Minute)

	now = now.Add(59 * time.Second)
	_, ok := store.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(time.Second)
	_, ok = store.Get(ctx, "k")
	assert.False(t, ok)

	// ttl 为 0 表示不过期
	store.Set(ctx, "p", "v", 0)
	now = now.Add(24 * time.Hour)
	_, ok = store.Get(ctx, "p")
	assert.True(t, ok)
}
