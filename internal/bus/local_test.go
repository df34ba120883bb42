package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tollgate/internal/maintenance"
)

func recv(t *testing.T, ch <-chan maintenance.Message) maintenance.Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return maintenance.Message{}
	}
}

func TestLocalFanOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLocal()
	a, b := l.Endpoint("a"), l.Endpoint("b")

	chA, err := a.Subscribe(ctx, maintenance.Category)
	require.NoError(t, err)
	chB, err := b.Subscribe(ctx, maintenance.Category)
	require.NoError(t, err)
	other, err := b.Subscribe(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, 2, l.Subscribers(maintenance.Category))

	require.NoError(t, a.Broadcast(ctx, maintenance.Category, []string{"start"}))

	for _, ch := range []<-chan maintenance.Message{chA, chB} {
		m := recv(t, ch)
		assert.Equal(t, "a", m.Origin)
		assert.Equal(t, []string{"start"}, m.Body)
		assert.Equal(t, maintenance.Category, m.Category)
	}
	select {
	case m := <-other:
		t.Fatalf("unexpected message in other category: %+v", m)
	default:
	}
}

func TestLocalUnsubscribeOnCancel(t *testing.T) {
	l := NewLocal()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := l.Endpoint("a").Subscribe(ctx, maintenance.Category)
	require.NoError(t, err)

	cancel()
	require.Eventually(t, func() bool { return l.Subscribers(maintenance.Category) == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-ch
	assert.False(t, open)

	// publicar sin suscriptores no falla
	assert.NoError(t, l.Endpoint("b").Broadcast(context.Background(), maintenance.Category, []string{"end"}))
}

func TestLocalDropsWhenFull(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLocal()
	e := l.Endpoint("a")
	_, err := e.Subscribe(ctx, maintenance.Category)
	require.NoError(t, err)

	for i := 0; i < localBuffer+5; i++ {
		require.NoError(t, e.Broadcast(ctx, maintenance.Category, []string{"start"}))
	}
	assert.Equal(t, int64(5), l.Dropped())
}
