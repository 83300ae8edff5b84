package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilClientFailsSafe(t *testing.T) {
	var c *Client
	ctx := context.Background()

	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	assert.NoError(t, c.Delete(ctx, "k"))
	assert.False(t, c.Exists(ctx, "k"))

	release, acquired := c.Lock(ctx, "lock:k", time.Second)
	assert.True(t, acquired)
	assert.NotPanics(t, release)
}

func TestUnreachableRedisFailsSafe(t *testing.T) {
	c := New("127.0.0.1:1", "", 0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.False(t, c.Exists(ctx, "k"))

	_, acquired := c.Lock(ctx, "lock:k", time.Second)
	assert.True(t, acquired)
}

func TestLock_AgainstRedis(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	c := New(addr, os.Getenv("REDIS_TEST_PASSWORD"), 0)
	ctx := context.Background()
	key := "lock:test:" + t.Name()
	t.Cleanup(func() { _ = c.Delete(ctx, key) })

	release, acquired := c.Lock(ctx, key, 5*time.Second)
	require.True(t, acquired)

	_, second := c.Lock(ctx, key, 5*time.Second)
	assert.False(t, second)

	// a holder whose lock expired must not release the next holder's lock
	require.NoError(t, c.Delete(ctx, key))
	nextRelease, next := c.Lock(ctx, key, 5*time.Second)
	require.True(t, next)
	release()
	assert.True(t, c.Exists(ctx, key))

	nextRelease()
	assert.False(t, c.Exists(ctx, key))

	_, again := c.Lock(ctx, key, 5*time.Second)
	assert.True(t, again)
}
