package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/tollgate/internal/security/secretbox"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "dev", c.App.Env)
	assert.NotEmpty(t, c.App.NodeID)
	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "memory", c.Store.Driver)
	assert.Equal(t, "local", c.Bus.Driver)
	assert.Equal(t, "memory", c.Cache.Kind)
	assert.Equal(t, "sid", c.Session.CookieName)
	require.NotNil(t, c.Maintenance.StatusOnRevoke)
	assert.True(t, *c.Maintenance.StatusOnRevoke)
}

func TestLoadYAMLAndRelativePaths(t *testing.T) {
	p := writeYAML(t, `
app:
  env: staging
  node_id: n2
store:
  driver: fs
  fs_path: data/maintenance.yaml
maintenance:
  override_token: abc
  status_on_revoke: false
cluster:
  nodes:
    n1: 127.0.0.1:8201
`)
	c, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "n2", c.App.NodeID)
	assert.Equal(t, filepath.Join(filepath.Dir(p), "data", "maintenance.yaml"), c.Store.FSPath)
	assert.Equal(t, "abc", c.Maintenance.OverrideToken)
	assert.False(t, *c.Maintenance.StatusOnRevoke)
	assert.Equal(t, map[string]string{"n1": "127.0.0.1:8201"}, c.Cluster.Nodes)
}

func TestEnvOverridesWin(t *testing.T) {
	p := writeYAML(t, "app:\n  node_id: from-yaml\n")
	t.Setenv("NODE_ID", "from-env")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("BUS_DRIVER", "redis")
	t.Setenv("CLUSTER_NODES", "n1=a:1;n2=b:2")
	t.Setenv("SMTP_RECIPIENTS", "a@x.io, b@x.io")
	t.Setenv("SMTP_HOST", "smtp.x.io")
	t.Setenv("SMTP_FROM", "noreply@x.io")
	t.Setenv("MAINTENANCE_STATUS_ON_REVOKE", "false")

	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.App.NodeID)
	assert.Equal(t, "redis:6379", c.Bus.Redis.Addr)
	assert.Equal(t, "redis:6379", c.Store.Redis.Addr)
	assert.Equal(t, map[string]string{"n1": "a:1", "n2": "b:2"}, c.Cluster.Nodes)
	assert.Equal(t, []string{"a@x.io", "b@x.io"}, c.Push.SMTP.Recipients)
	assert.False(t, *c.Maintenance.StatusOnRevoke)
}

func TestValidate(t *testing.T) {
	p := writeYAML(t, `
store:
  driver: raft
bus:
  driver: kafka
session:
  ttl: forever
`)
	_, err := Load(p)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "raft_addr")
	assert.Contains(t, msg, `unsupported bus.driver "kafka"`)
	assert.Contains(t, msg, "session.ttl")
}

func TestValidateProdRequiresAdminKey(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "admin_api_key")

	t.Setenv("ADMIN_API_KEY", "k")
	_, err = Load("")
	assert.NoError(t, err)
}

func TestDuration(t *testing.T) {
	assert.Equal(t, 2*time.Second, Duration("2s", time.Minute))
	assert.Equal(t, time.Minute, Duration("", time.Minute))
	assert.Equal(t, time.Minute, Duration("nope", time.Minute))
}

func TestParseKVList(t *testing.T) {
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, parseKVList(" a=1 ; b=2;;=x;c=", ";"))
	assert.Empty(t, parseKVList("", ";"))
}

func TestSealedSecrets(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(7 * i)
	}
	box, err := secretbox.New(key)
	require.NoError(t, err)
	sealedDSN, err := box.Seal("postgres://u:p@db/tollgate")
	require.NoError(t, err)
	sealedKey, err := box.Seal("admin-key")
	require.NoError(t, err)

	p := writeYAML(t, `
server:
  admin_api_key: "`+sealedKey+`"
store:
  driver: postgres
  dsn: "`+sealedDSN+`"
`)

	t.Setenv(secretbox.EnvVar, "")
	_, err = Load(p)
	assert.ErrorIs(t, err, secretbox.ErrNoKey)

	t.Setenv(secretbox.EnvVar, base64.StdEncoding.EncodeToString(key))
	c, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db/tollgate", c.Store.DSN)
	assert.Equal(t, "admin-key", c.Server.AdminAPIKey)
}
