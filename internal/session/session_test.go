package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tollgate/internal/cache"
	"github.com/dropDatabas3/tollgate/internal/maintenance"
)

func newStore(t *testing.T) (*Store, cache.Client) {
	t.Helper()
	c := cache.NewMemory("test", 0)
	t.Cleanup(func() { _ = c.Close() })
	return NewStore(c, time.Minute), c
}

func TestOpenAndLoad(t *testing.T) {
	ctx := context.Background()
	st, c := newStore(t)

	s, err := st.Open(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, s.ID())

	// el id en claro no aparece en la key
	_, err = c.Get(ctx, "sid:"+s.ID())
	assert.True(t, cache.IsNotFound(err))
	_, err = c.Get(ctx, Key(s.ID()))
	require.NoError(t, err)

	loaded, err := st.Load(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, s.ID(), loaded.ID())
}

func TestLoadUnknown(t *testing.T) {
	st, _ := newStore(t)
	_, err := st.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.Load(context.Background(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOverridePersistsAcrossLoads(t *testing.T) {
	ctx := context.Background()
	st, _ := newStore(t)

	s, err := st.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, maintenance.GrantOverride(ctx, s))
	require.NoError(t, maintenance.GrantOverride(ctx, s))

	again, err := st.Load(ctx, s.ID())
	require.NoError(t, err)
	assert.True(t, maintenance.HasOverride(ctx, again))

	require.NoError(t, maintenance.RevokeOverride(ctx, again, false))
	third, err := st.Load(ctx, s.ID())
	require.NoError(t, err)
	assert.False(t, maintenance.HasOverride(ctx, third))
}

func TestDestroy(t *testing.T) {
	ctx := context.Background()
	st, _ := newStore(t)
	s, err := st.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, st.Destroy(ctx, s.ID()))
	_, err = st.Load(ctx, s.ID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHashIsStable(t *testing.T) {
	assert.Equal(t, Hash("abc"), Hash("abc"))
	assert.NotEqual(t, Hash("abc"), Hash("abd"))
	assert.Equal(t, "sid:"+Hash("abc"), Key("abc"))
}

// interleavedCache corre afterGet entre el Get de Load y la renovación del TTL.
type interleavedCache struct {
	cache.Client
	afterGet func()
}

func (c *interleavedCache) Get(ctx context.Context, key string) (string, error) {
	v, err := c.Client.Get(ctx, key)
	if c.afterGet != nil {
		fn := c.afterGet
		c.afterGet = nil
		fn()
	}
	return v, err
}

func TestLoadDoesNotOverwriteConcurrentGrant(t *testing.T) {
	ctx := context.Background()
	direct, c := newStore(t)
	s, err := direct.Open(ctx)
	require.NoError(t, err)

	wrapped := &interleavedCache{Client: c}
	slow := NewStore(wrapped, time.Minute)
	wrapped.afterGet = func() {
		other, err := direct.Load(ctx, s.ID())
		require.NoError(t, err)
		require.NoError(t, maintenance.GrantOverride(ctx, other))
	}

	_, err = slow.Load(ctx, s.ID())
	require.NoError(t, err)

	again, err := direct.Load(ctx, s.ID())
	require.NoError(t, err)
	assert.True(t, maintenance.HasOverride(ctx, again))
}

func TestLoadAfterDestroyBetweenGetAndTouch(t *testing.T) {
	ctx := context.Background()
	direct, c := newStore(t)
	s, err := direct.Open(ctx)
	require.NoError(t, err)

	wrapped := &interleavedCache{Client: c, afterGet: func() {
		require.NoError(t, direct.Destroy(ctx, s.ID()))
	}}
	_, err = NewStore(wrapped, time.Minute).Load(ctx, s.ID())
	assert.ErrorIs(t, err, ErrNotFound)
}
