package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClient(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("p", 0)
	defer c.Close()

	_, err := c.Get(ctx, "k")
	assert.True(t, IsNotFound(err))

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	require.NoError(t, c.Delete(ctx, "k"))
	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, c.Ping(ctx))
}

func TestMemoryClientExpires(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("", 0)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "short", "v", 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)
	_, err := c.Get(ctx, "short")
	assert.True(t, IsNotFound(err))
}

func TestNewDefaultsToMemory(t *testing.T) {
	c, err := New(Config{Driver: "memory"})
	require.NoError(t, err)
	defer c.Close()
	assert.NoError(t, c.Set(context.Background(), "a", "b", time.Minute))
}

func TestMemoryClientTouch(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("p", 0)
	defer c.Close()

	assert.ErrorIs(t, c.Touch(ctx, "missing", time.Minute), ErrNotFound)

	require.NoError(t, c.Set(ctx, "k", "v", 30*time.Millisecond))
	require.NoError(t, c.Touch(ctx, "k", time.Minute))
	time.Sleep(60 * time.Millisecond)
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)
}
