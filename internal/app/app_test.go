package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tollgate/internal/bus"
	"github.com/dropDatabas3/tollgate/internal/config"
	"github.com/dropDatabas3/tollgate/internal/maintenance"
	"github.com/dropDatabas3/tollgate/internal/observability/logger"
	"github.com/dropDatabas3/tollgate/internal/ops"
	"github.com/dropDatabas3/tollgate/internal/store"
)

func testConfig(t *testing.T, nodeID string) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.App.NodeID = nodeID
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Server.AdminAPIKey = "k"
	return cfg
}

func shopModule(r *ops.Registry) {
	r.Module("shop").
		Handle("purchase", func(context.Context, map[string]any) (any, error) {
			return "bought", nil
		}, ops.MaintenanceAccess(maintenance.DenyAccess))
}

type sentMail struct {
	mu sync.Mutex
	to []string
}

func (s *sentMail) Send(to, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.to = append(s.to, to)
	return nil
}

func post(t *testing.T, url string, body any, hdr map[string]string) map[string]any {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	require.NoError(t, err)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func firstName(t *testing.T, body map[string]any) string {
	t.Helper()
	rs := body["results"].([]any)
	return rs[0].(map[string]any)["name"].(string)
}

func TestTwoNodesConvergeOverHTTP(t *testing.T) {
	logger.Nop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shared := store.NewMemory()
	local := bus.NewLocal()
	mail := &sentMail{}

	var apps []*App
	var servers []*httptest.Server
	var wg sync.WaitGroup
	for _, id := range []string{"n1", "n2"} {
		cfg := testConfig(t, id)
		opts := []Option{
			WithStore(shared),
			WithTransport(local.Endpoint(id)),
			WithModules(shopModule),
			WithRegisterer(prometheus.NewRegistry()),
		}
		cfg.Push.SMTP.Host = "smtp.test"
		cfg.Push.SMTP.From = "noreply@test"
		cfg.Push.SMTP.Recipients = []string{"ops@test"}
		opts = append(opts, WithMailSender(mail))
		a, err := New(ctx, cfg, opts...)
		require.NoError(t, err)
		apps = append(apps, a)
		servers = append(servers, httptest.NewServer(a.Handler))

		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = a.Run(ctx)
		}()
	}
	defer func() {
		cancel()
		wg.Wait()
		for i := range apps {
			servers[i].Close()
			_ = apps[i].Close()
		}
	}()
	require.Eventually(t, func() bool { return local.Subscribers(maintenance.Category) == 2 }, 2*time.Second, 10*time.Millisecond)

	purchase := map[string]any{"ops": []map[string]any{{"name": "shop.purchase", "params": map[string]any{}}}}
	assert.Equal(t, "shop.purchase", firstName(t, post(t, servers[1].URL+"/v1/ops", purchase, nil)))

	st := post(t, servers[0].URL+"/v1/admin/maintenance/start", map[string]any{"message": "rolling upgrade"},
		map[string]string{"X-Admin-API-Key": "k"})
	require.Equal(t, true, st["active"])

	require.Eventually(t, func() bool {
		return firstName(t, post(t, servers[1].URL+"/v1/ops", purchase, nil)) == maintenance.StatusOperation
	}, 2*time.Second, 10*time.Millisecond)

	post(t, servers[1].URL+"/v1/admin/maintenance/end", nil, map[string]string{"X-Admin-API-Key": "k"})
	require.Eventually(t, func() bool { return apps[0].Coordinator.Status() == nil }, 2*time.Second, 10*time.Millisecond)

	// un email por transición: start desde n1, end desde n2
	sent := func() int {
		mail.mu.Lock()
		defer mail.mu.Unlock()
		return len(mail.to)
	}
	require.Eventually(t, func() bool { return sent() == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return sent() > 2 }, 200*time.Millisecond, 20*time.Millisecond)
}

func TestNewRejectsBadRegistration(t *testing.T) {
	logger.Nop()
	cfg := testConfig(t, "n1")
	_, err := New(context.Background(), cfg,
		WithRegisterer(prometheus.NewRegistry()),
		WithModules(func(r *ops.Registry) {
			r.Module("shop").
				Handle("catalog", func(context.Context, map[string]any) (any, error) { return nil, nil }).
				Alias("list", "catalog", ops.MaintenanceAccess(maintenance.AllowAccess))
		}))
	require.Error(t, err)
	assert.ErrorIs(t, err, maintenance.ErrConfig)
}

func TestNewStartsInMaintenanceFromStore(t *testing.T) {
	logger.Nop()
	st := store.NewMemory()
	require.NoError(t, st.Save(context.Background(), maintenance.Record{Message: "ongoing"}))

	a, err := New(context.Background(), testConfig(t, "late"), WithStore(st), WithRegisterer(prometheus.NewRegistry()))
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.Coordinator.Status())
	assert.Equal(t, "ongoing", a.Coordinator.Status().Message)

	srv := httptest.NewServer(a.Handler)
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["maintenance"])
	assert.Equal(t, "ready", body["status"])
}
