package maintenance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newMemSession()
	require.NoError(t, GrantOverride(ctx, s))
	require.NoError(t, GrantOverride(ctx, s))
	assert.True(t, HasOverride(ctx, s))
	assert.Len(t, s.data, 1)
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	s := newMemSession()
	require.NoError(t, GrantOverride(ctx, s))

	err := RevokeOverride(ctx, s, true)
	assert.True(t, IsRejection(err))
	assert.False(t, HasOverride(ctx, s))

	// revocar sin override no falla
	assert.NoError(t, RevokeOverride(ctx, s, false))
}

func TestOverrideWithoutSession(t *testing.T) {
	ctx := context.Background()
	assert.ErrorIs(t, GrantOverride(ctx, nil), ErrNoSession)
	assert.ErrorIs(t, RevokeOverride(ctx, nil, true), ErrNoSession)
	assert.False(t, HasOverride(ctx, nil))
}

func TestHasOverrideIgnoresNonBool(t *testing.T) {
	ctx := context.Background()
	s := newMemSession()
	s.data[OverrideKey] = "yes"
	assert.False(t, HasOverride(ctx, s))
}

func TestSessionContext(t *testing.T) {
	s := newMemSession()
	ctx := WithSession(context.Background(), s)
	assert.Same(t, s, SessionFrom(ctx))
	assert.Nil(t, SessionFrom(context.Background()))
}
