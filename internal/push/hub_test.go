package push

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tollgate/internal/maintenance"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readNotice(t *testing.T, conn *websocket.Conn) maintenance.ClientNotice {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, b, err := conn.ReadMessage()
	require.NoError(t, err)
	var n maintenance.ClientNotice
	require.NoError(t, json.Unmarshal(b, &n))
	return n
}

func TestHubWelcomeAndBroadcast(t *testing.T) {
	hub := NewHub(HubOptions{
		Welcome: func() any {
			return maintenance.ClientNotice{Event: maintenance.StatusOperation}
		},
	})
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	conn := dial(t, srv)
	welcome := readNotice(t, conn)
	assert.Equal(t, maintenance.StatusOperation, welcome.Event)
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	rec := &maintenance.Record{Message: "db upgrade"}
	notice := maintenance.ClientNotice{
		Event:  maintenance.EventStart.ClientEvent(),
		Record: rec,
		Status: maintenance.StatusOf(rec),
	}
	require.NoError(t, hub.Broadcast(context.Background(), notice.Event, notice))

	got := readNotice(t, conn)
	assert.Equal(t, "maintenance.start", got.Event)
	require.NotNil(t, got.Record)
	assert.Equal(t, "db upgrade", got.Record.Message)
	assert.True(t, got.Status.Active)
}

func TestHubForgetsClosedClients(t *testing.T) {
	hub := NewHub(HubOptions{})
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	_ = conn.Close()
	require.Eventually(t, func() bool { return hub.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.NoError(t, hub.Broadcast(context.Background(), "maintenance.end", maintenance.ClientNotice{}))
}
