package ops

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tollgate/internal/maintenance"
)

// memSession es una sesión en memoria para tests.
type memSession struct {
	mu   sync.Mutex
	data map[string]any
}

func newMemSession() *memSession { return &memSession{data: map[string]any{}} }

func (s *memSession) GetData(_ context.Context, k string) (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[k]
	return v, ok, nil
}

func (s *memSession) SetData(_ context.Context, k string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[k] = v
	return nil
}

func (s *memSession) DelData(_ context.Context, k string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, k)
	return nil
}

type fixedState struct{ rec *maintenance.Record }

func (f *fixedState) Snapshot() *maintenance.Record { return f.rec }

type shopFixture struct {
	state    *fixedState
	exec     *Executor
	purchase int
}

func newShop(t *testing.T, token string) *shopFixture {
	t.Helper()
	fx := &shopFixture{state: &fixedState{}}

	reg := NewRegistry()
	reg.Module("shop").
		Handle("purchase", func(context.Context, map[string]any) (any, error) {
			fx.purchase++
			return "bought", nil
		}, MaintenanceAccess(maintenance.DenyAccess)).
		Handle("catalog", func(context.Context, map[string]any) (any, error) {
			return []string{"a", "b"}, nil
		}, MaintenanceAccess(maintenance.AllowAccess))
	RegisterMaintenance(reg, MaintenanceDeps{
		Status:         func() *maintenance.Record { return fx.state.rec },
		OverrideToken:  token,
		StatusOnRevoke: true,
	})
	RegisterSystem(reg, "n1")

	cat, err := reg.Build()
	require.NoError(t, err)
	gate := maintenance.NewGate(fx.state, cat.Policies())
	fx.exec = NewExecutor(cat, gate.Hook())
	return fx
}

func batch(names ...string) maintenance.Batch {
	b := make(maintenance.Batch, len(names))
	for i, n := range names {
		b[i] = maintenance.Operation{Name: n, Params: map[string]any{}}
	}
	return b
}

func TestPurchaseDuringMaintenanceIsReplaced(t *testing.T) {
	fx := newShop(t, "")
	fx.state.rec = &maintenance.Record{Message: "upgrade"}
	ctx := maintenance.WithSession(context.Background(), newMemSession())

	out := fx.exec.Execute(ctx, batch("shop.purchase", "shop.catalog"))

	assert.Equal(t, 0, fx.purchase)
	assert.Equal(t, maintenance.StatusOperation, out.Batch[0].Name)
	assert.Equal(t, "shop.catalog", out.Batch[1].Name)
	require.NoError(t, out.Results[0].Err)
	st, ok := out.Results[0].Result.(maintenance.Status)
	require.True(t, ok)
	assert.True(t, st.Active)
	assert.Equal(t, "upgrade", st.Message)
	assert.Equal(t, 1, maintenance.Rewritten(batch("shop.purchase", "shop.catalog"), out.Batch))
}

func TestOverrideLetsPurchaseThrough(t *testing.T) {
	fx := newShop(t, "")
	fx.state.rec = &maintenance.Record{}
	sess := newMemSession()
	ctx := maintenance.WithSession(context.Background(), sess)

	out := fx.exec.Execute(ctx, batch("maintenance.grant_override"))
	require.NoError(t, out.Results[0].Err)

	out = fx.exec.Execute(ctx, batch("shop.purchase"))
	require.NoError(t, out.Results[0].Err)
	assert.Equal(t, "bought", out.Results[0].Result)
	assert.Equal(t, 1, fx.purchase)

	out = fx.exec.Execute(ctx, batch("maintenance.revoke_override"))
	assert.True(t, maintenance.IsRejection(out.Results[0].Err))

	out = fx.exec.Execute(ctx, batch("shop.purchase"))
	assert.Equal(t, maintenance.StatusOperation, out.Batch[0].Name)
	assert.Equal(t, 1, fx.purchase)
}

func TestRevokeWithoutFail(t *testing.T) {
	fx := newShop(t, "")
	sess := newMemSession()
	ctx := maintenance.WithSession(context.Background(), sess)
	require.NoError(t, maintenance.GrantOverride(ctx, sess))

	b := maintenance.Batch{{Name: "maintenance.revoke_override", Params: map[string]any{"fail": false}}}
	out := fx.exec.Execute(ctx, b)
	require.NoError(t, out.Results[0].Err)
	assert.False(t, maintenance.HasOverride(ctx, sess))
}

func TestGrantRequiresToken(t *testing.T) {
	fx := newShop(t, "s3cret")
	sess := newMemSession()
	ctx := maintenance.WithSession(context.Background(), sess)

	out := fx.exec.Execute(ctx, maintenance.Batch{{Name: "maintenance.grant_override", Params: map[string]any{"token": "nope"}}})
	assert.ErrorIs(t, out.Results[0].Err, ErrBadOverrideToken)
	assert.False(t, maintenance.HasOverride(ctx, sess))

	out = fx.exec.Execute(ctx, maintenance.Batch{{Name: "maintenance.grant_override", Params: map[string]any{"token": "s3cret"}}})
	require.NoError(t, out.Results[0].Err)
	assert.True(t, maintenance.HasOverride(ctx, sess))
}

func TestGrantWithoutSession(t *testing.T) {
	fx := newShop(t, "")
	out := fx.exec.Execute(context.Background(), batch("maintenance.grant_override"))
	assert.ErrorIs(t, out.Results[0].Err, maintenance.ErrNoSession)
}

func TestSystemModule(t *testing.T) {
	fx := newShop(t, "")
	fx.state.rec = &maintenance.Record{}

	out := fx.exec.Execute(context.Background(), batch("system.ping", "system.health", "system.echo"))
	assert.Equal(t, "system.ping", out.Batch[0].Name)
	assert.Equal(t, "system.health", out.Batch[1].Name)
	assert.Equal(t, maintenance.StatusOperation, out.Batch[2].Name)
	assert.Equal(t, map[string]any{"pong": true, "node_id": "n1"}, out.Results[1].Result)
}

func TestUnknownOperation(t *testing.T) {
	fx := newShop(t, "")
	out := fx.exec.Execute(context.Background(), batch("shop.refund"))
	assert.ErrorIs(t, out.Results[0].Err, ErrUnknownOperation)
}

func TestHookChangingLengthIsIgnored(t *testing.T) {
	reg := NewRegistry()
	reg.Module("a").Handle("b", noop)
	cat, err := reg.Build()
	require.NoError(t, err)

	shrink := func(context.Context, maintenance.Batch) maintenance.Batch { return nil }
	out := NewExecutor(cat, shrink).Execute(context.Background(), batch("a.b"))
	require.Len(t, out.Results, 1)
	assert.Equal(t, "ok", out.Results[0].Result)
}

func TestPanicBecomesError(t *testing.T) {
	reg := NewRegistry()
	reg.Module("a").Handle("boom", func(context.Context, map[string]any) (any, error) {
		panic(errors.New("kaboom"))
	})
	cat, err := reg.Build()
	require.NoError(t, err)

	out := NewExecutor(cat).Execute(context.Background(), batch("a.boom"))
	assert.Error(t, out.Results[0].Err)
}
