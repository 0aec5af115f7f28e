package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomeCache_SetAndGet(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewOutcomeCache(client)
	ctx := context.Background()

	key := "0b7d4f1e-8c7a-4a53-9a57-2d4c5e9f0a11"
	value := []byte(`{"id":"0b7d4f1e-8c7a-4a53-9a57-2d4c5e9f0a11","status":"APPROVED"}`)

	result, err := cache.Get(ctx, key)
	assert.NoError(t, err)
	assert.Nil(t, result)

	require.NoError(t, cache.Set(ctx, key, value, 24*time.Hour))

	result, err = cache.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, value, result)
	assert.True(t, s.Exists("purchase-outcome:"+key))
}

func TestOutcomeCache_TTLExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	cache := NewOutcomeCache(client)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "p-1", []byte(`{}`), time.Second))

	s.FastForward(2 * time.Second)

	result, err := cache.Get(ctx, "p-1")
	assert.NoError(t, err)
	assert.Nil(t, result, "expired key should return nil")
}

func TestOutcomeCache_GetError(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr(), MaxRetries: -1})
	cache := NewOutcomeCache(client)
	s.Close()

	_, err := cache.Get(context.Background(), "p-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis outcome get")
}
