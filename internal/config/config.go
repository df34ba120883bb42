// Package config carga la configuración desde YAML y la completa con
// variables de entorno (las env siempre ganan).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/tollgate/internal/security/secretbox"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env    string `yaml:"env"`
		NodeID string `yaml:"node_id"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Server struct {
		Addr         string `yaml:"addr"`
		AdminAPIKey  string `yaml:"admin_api_key"`
		ReadTimeout  string `yaml:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout"`
	} `yaml:"server"`

	// Store durable del Record de mantenimiento.
	Store struct {
		Driver   string `yaml:"driver"` // memory | fs | redis | postgres | raft
		FSPath   string `yaml:"fs_path"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Key      string `yaml:"key"`
		} `yaml:"redis"`
	} `yaml:"store"`

	// Transporte de notificaciones entre nodos.
	Bus struct {
		Driver string `yaml:"driver"` // local | redis
		Redis  struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
		Prefix string `yaml:"prefix"`
	} `yaml:"bus"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Session struct {
		CookieName string `yaml:"cookie_name"`
		Secure     bool   `yaml:"secure"`
		TTL        string `yaml:"ttl"`
	} `yaml:"session"`

	Maintenance struct {
		// Si no está vacío, maintenance.grant_override exige params.token.
		OverrideToken string `yaml:"override_token"`
		// Default de params.fail en maintenance.revoke_override.
		StatusOnRevoke *bool `yaml:"status_on_revoke"`
	} `yaml:"maintenance"`

	Cluster struct {
		RaftAddr     string            `yaml:"raft_addr"`
		RaftDir      string            `yaml:"raft_dir"`
		Nodes        map[string]string `yaml:"nodes"` // nodeID -> host:port (raft)
		ApplyTimeout string            `yaml:"apply_timeout"`
	} `yaml:"cluster"`

	Push struct {
		WebSocket bool `yaml:"websocket"`
		SMTP      struct {
			Host       string   `yaml:"host"`
			Port       int      `yaml:"port"`
			Username   string   `yaml:"username"`
			Password   string   `yaml:"password"`
			From       string   `yaml:"from"`
			TLSMode    string   `yaml:"tls_mode"` // auto | starttls | ssl | none
			Recipients []string `yaml:"recipients"`
		} `yaml:"smtp"`
	} `yaml:"push"`
}

// Load lee el YAML en path. Si path está vacío arranca de una config vacía
// (todo por defaults + env).
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	c.applyEnvOverrides()
	if err := c.openSecrets(); err != nil {
		return nil, err
	}
	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, err
	}

	// Normalizar rutas relativas respecto al directorio del YAML
	if path != "" {
		base := filepath.Dir(path)
		if p := c.Store.FSPath; p != "" && !filepath.IsAbs(p) {
			c.Store.FSPath = filepath.Clean(filepath.Join(base, p))
		}
		if p := c.Cluster.RaftDir; p != "" && !filepath.IsAbs(p) {
			c.Cluster.RaftDir = filepath.Clean(filepath.Join(base, p))
		}
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.NodeID == "" {
		if h, err := os.Hostname(); err == nil && h != "" {
			c.App.NodeID = h
		} else {
			c.App.NodeID = "node-1"
		}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "15s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "30s"
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}
	if c.Store.Postgres.MaxConns == 0 {
		c.Store.Postgres.MaxConns = 4
	}
	if c.Store.Redis.Key == "" {
		c.Store.Redis.Key = "tollgate:maintenance"
	}
	if c.Bus.Driver == "" {
		c.Bus.Driver = "local"
	}
	if c.Bus.Prefix == "" {
		c.Bus.Prefix = "tollgate"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "tollgate"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "sid"
	}
	if c.Session.TTL == "" {
		c.Session.TTL = "12h"
	}
	if c.Maintenance.StatusOnRevoke == nil {
		t := true
		c.Maintenance.StatusOnRevoke = &t
	}
	if c.Cluster.Nodes == nil {
		c.Cluster.Nodes = map[string]string{}
	}
	if c.Cluster.ApplyTimeout == "" {
		c.Cluster.ApplyTimeout = "5s"
	}
	if c.Push.SMTP.Port == 0 {
		c.Push.SMTP.Port = 587
	}
	if c.Push.SMTP.TLSMode == "" {
		c.Push.SMTP.TLSMode = "auto"
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}
func getEnvKVList(key, sep string) (map[string]string, bool) {
	if s, ok := getEnvStr(key); ok {
		return parseKVList(s, sep), true
	}
	return nil, false
}

func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("NODE_ID"); ok {
		c.App.NodeID = v
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("ADMIN_API_KEY"); ok {
		c.Server.AdminAPIKey = v
	}

	// STORE
	if v, ok := getEnvStr("STORE_DRIVER"); ok {
		c.Store.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("STORE_FS_PATH"); ok {
		c.Store.FSPath = v
	}
	if v, ok := getEnvStr("STORE_DSN"); ok {
		c.Store.DSN = v
	}
	if v, ok := getEnvInt("POSTGRES_MAX_CONNS"); ok {
		c.Store.Postgres.MaxConns = v
	}
	if v, ok := getEnvStr("POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Store.Postgres.ConnMaxLifetime = v
	}
	if v, ok := getEnvStr("STORE_REDIS_ADDR"); ok {
		c.Store.Redis.Addr = v
	}
	if v, ok := getEnvInt("STORE_REDIS_DB"); ok {
		c.Store.Redis.DB = v
	}
	if v, ok := getEnvStr("STORE_REDIS_KEY"); ok {
		c.Store.Redis.Key = v
	}

	// BUS
	if v, ok := getEnvStr("BUS_DRIVER"); ok {
		c.Bus.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("BUS_REDIS_ADDR"); ok {
		c.Bus.Redis.Addr = v
	}
	if v, ok := getEnvStr("BUS_PREFIX"); ok {
		c.Bus.Prefix = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
		// REDIS_ADDR sirve de default para bus y store redis
		if c.Bus.Redis.Addr == "" {
			c.Bus.Redis.Addr = v
		}
		if c.Store.Redis.Addr == "" {
			c.Store.Redis.Addr = v
		}
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}
	if v, ok := getEnvStr("CACHE_MEMORY_DEFAULT_TTL"); ok {
		c.Cache.Memory.DefaultTTL = v
	}

	// SESSION
	if v, ok := getEnvStr("SESSION_COOKIE_NAME"); ok {
		c.Session.CookieName = v
	}
	if v, ok := getEnvBool("SESSION_SECURE"); ok {
		c.Session.Secure = v
	}
	if v, ok := getEnvStr("SESSION_TTL"); ok {
		c.Session.TTL = v
	}

	// MAINTENANCE
	if v, ok := getEnvStr("MAINTENANCE_OVERRIDE_TOKEN"); ok {
		c.Maintenance.OverrideToken = v
	}
	if v, ok := getEnvBool("MAINTENANCE_STATUS_ON_REVOKE"); ok {
		c.Maintenance.StatusOnRevoke = &v
	}

	// CLUSTER
	if v, ok := getEnvStr("RAFT_ADDR"); ok {
		c.Cluster.RaftAddr = v
	}
	if v, ok := getEnvStr("RAFT_DIR"); ok {
		c.Cluster.RaftDir = v
	}
	// CLUSTER_NODES="n1=127.0.0.1:8201;n2=127.0.0.1:8202"
	if m, ok := getEnvKVList("CLUSTER_NODES", ";"); ok {
		c.Cluster.Nodes = m
	}

	// PUSH
	if v, ok := getEnvBool("PUSH_WEBSOCKET"); ok {
		c.Push.WebSocket = v
	}
	if v, ok := getEnvStr("SMTP_HOST"); ok {
		c.Push.SMTP.Host = v
	}
	if v, ok := getEnvInt("SMTP_PORT"); ok {
		c.Push.SMTP.Port = v
	}
	if v, ok := getEnvStr("SMTP_USERNAME"); ok {
		c.Push.SMTP.Username = v
	}
	if v, ok := getEnvStr("SMTP_PASSWORD"); ok {
		c.Push.SMTP.Password = v
	}
	if v, ok := getEnvStr("SMTP_FROM"); ok {
		c.Push.SMTP.From = v
	}
	if v, ok := getEnvStr("SMTP_TLS_MODE"); ok {
		c.Push.SMTP.TLSMode = strings.ToLower(v)
	}
	if v, ok := getEnvCSV("SMTP_RECIPIENTS"); ok {
		c.Push.SMTP.Recipients = v
	}
}

// openSecrets descifra los valores sellados ("enc:...") con la clave de
// SECRETBOX_MASTER_KEY. Sin valores sellados la clave no hace falta.
func (c *Config) openSecrets() error {
	fields := map[string]*string{
		"server.admin_api_key":       &c.Server.AdminAPIKey,
		"store.dsn":                  &c.Store.DSN,
		"store.redis.password":       &c.Store.Redis.Password,
		"bus.redis.password":         &c.Bus.Redis.Password,
		"cache.redis.password":       &c.Cache.Redis.Password,
		"maintenance.override_token": &c.Maintenance.OverrideToken,
		"push.smtp.password":         &c.Push.SMTP.Password,
	}
	var box *secretbox.Box
	var errs []error
	for name, ptr := range fields {
		if !secretbox.IsSealed(*ptr) {
			continue
		}
		if box == nil {
			b, err := secretbox.FromEnv()
			if err != nil {
				return fmt.Errorf("config: %s is sealed: %w", name, err)
			}
			box = b
		}
		v, err := box.Open(*ptr)
		if err != nil {
			errs = append(errs, fmt.Errorf("config: %s: %w", name, err))
			continue
		}
		*ptr = v
	}
	return errors.Join(errs...)
}

// Validate junta todos los problemas para reportarlos de una vez.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("config: "+format, args...))
	}

	switch c.Store.Driver {
	case "memory", "redis":
	case "fs":
		if strings.TrimSpace(c.Store.FSPath) == "" {
			bad("store.fs_path is required for the fs driver")
		}
	case "postgres":
		if strings.TrimSpace(c.Store.DSN) == "" {
			bad("store.dsn is required for the postgres driver")
		}
	case "raft":
		if c.Cluster.RaftAddr == "" || c.Cluster.RaftDir == "" {
			bad("cluster.raft_addr and cluster.raft_dir are required for the raft driver")
		}
	default:
		bad("unsupported store.driver %q", c.Store.Driver)
	}

	switch c.Bus.Driver {
	case "local":
	case "redis":
		if c.Bus.Redis.Addr == "" {
			bad("bus.redis.addr is required for the redis bus")
		}
	default:
		bad("unsupported bus.driver %q", c.Bus.Driver)
	}

	switch c.Cache.Kind {
	case "memory", "redis":
	default:
		bad("unsupported cache.kind %q", c.Cache.Kind)
	}

	for name, v := range map[string]string{
		"server.read_timeout":              c.Server.ReadTimeout,
		"server.write_timeout":             c.Server.WriteTimeout,
		"session.ttl":                      c.Session.TTL,
		"cluster.apply_timeout":            c.Cluster.ApplyTimeout,
		"cache.memory.default_ttl":         c.Cache.Memory.DefaultTTL,
		"store.postgres.conn_max_lifetime": c.Store.Postgres.ConnMaxLifetime,
	} {
		if v == "" {
			continue
		}
		if _, err := time.ParseDuration(v); err != nil {
			bad("%s: invalid duration %q", name, v)
		}
	}

	if len(c.Push.SMTP.Recipients) > 0 && (c.Push.SMTP.Host == "" || c.Push.SMTP.From == "") {
		bad("push.smtp.host and push.smtp.from are required when recipients are set")
	}
	if strings.EqualFold(c.App.Env, "prod") && c.Server.AdminAPIKey == "" {
		bad("server.admin_api_key is required in prod")
	}
	return errors.Join(errs...)
}

// Duration parsea un valor ya validado; vacío o inválido => def.
func Duration(v string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
		return d
	}
	return def
}

func parseKVList(s, sep string) map[string]string {
	s = strings.TrimSpace(s)
	if s == "" {
		return map[string]string{}
	}
	items := strings.Split(s, sep)
	out := make(map[string]string, len(items))
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		// split at first '='
		if i := strings.IndexRune(it, '='); i > 0 {
			k := strings.TrimSpace(it[:i])
			v := strings.TrimSpace(it[i+1:])
			if k != "" && v != "" {
				out[k] = v
			}
		}
	}
	return out
}
