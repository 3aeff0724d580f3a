package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCache_LocalFallback(t *testing.T) {
	c, err := NewCache(CacheConfig{})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = c.Get(ctx, "missing")
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotFound(nil))

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}

func TestNewPubSub_LocalRelay(t *testing.T) {
	ps, err := NewPubSub(CacheConfig{LocalPubSubBuf: 8})
	require.NoError(t, err)

	ctx := context.Background()
	ch, cancel, err := ps.Subscribe(ctx, "session:x")
	require.NoError(t, err)

	require.NoError(t, ps.Publish(ctx, "session:x", `{"type":"level_up"}`))
	select {
	case msg := <-ch:
		assert.Equal(t, "session:x", msg.Channel)
		assert.JSONEq(t, `{"type":"level_up"}`, msg.Payload)
	case <-time.After(time.Second):
		t.Fatal("no message relayed")
	}

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "relay closes when the subscription ends")
	case <-time.After(time.Second):
		t.Fatal("relay not closed")
	}
}

func TestNewCache_BadRedisAddr(t *testing.T) {
	_, err := NewCache(CacheConfig{RedisAddr: "127.0.0.1:1"})
	assert.Error(t, err)
}
