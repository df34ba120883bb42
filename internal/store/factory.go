// Package store implementa los backends durables del Record de mantenimiento.
// Todos cumplen maintenance.Store; el driver se elige por config.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/tollgate/internal/cluster"
	"github.com/dropDatabas3/tollgate/internal/maintenance"
	"github.com/dropDatabas3/tollgate/internal/observability/logger"
	rdb "github.com/redis/go-redis/v9"
)

// Drivers soportados.
const (
	DriverMemory   = "memory"
	DriverFS       = "fs"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverRaft     = "raft"
)

type Config struct {
	Driver string

	// fs
	FSPath string

	// postgres
	DSN      string
	Postgres struct {
		MaxConns        int
		ConnMaxLifetime string
	}

	// redis
	Redis struct {
		Addr     string
		Password string
		DB       int
		Key      string
	}

	// raft: el nodo lo levanta el wiring (comparte lifecycle con la app).
	Raft *cluster.Node
}

// Open crea el store según cfg.Driver. close libera conexiones; nunca es nil.
func Open(ctx context.Context, cfg Config) (st maintenance.Store, closeFn func() error, err error) {
	noop := func() error { return nil }
	d := strings.ToLower(strings.TrimSpace(cfg.Driver))
	logger.From(ctx).Info("opening maintenance store", logger.Driver(d))

	switch d {
	case DriverMemory, "":
		return NewMemory(), noop, nil

	case DriverFS:
		if cfg.FSPath == "" {
			return nil, noop, fmt.Errorf("store: fs driver requires a path")
		}
		return NewFS(cfg.FSPath), noop, nil

	case DriverRedis:
		client := rdb.NewClient(&rdb.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("store: redis ping failed: %w", err)
		}
		return NewRedis(client, cfg.Redis.Key), client.Close, nil

	case DriverPostgres, "pg", "postgresql":
		pg, err := OpenPostgres(ctx, cfg.DSN, cfg.Postgres.MaxConns, cfg.Postgres.ConnMaxLifetime)
		if err != nil {
			return nil, noop, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, noop, err
		}
		return pg, func() error { pg.Close(); return nil }, nil

	case DriverRaft:
		if cfg.Raft == nil {
			return nil, noop, fmt.Errorf("store: raft driver requires a running cluster node")
		}
		return NewRaft(cfg.Raft), noop, nil

	default:
		return nil, noop, fmt.Errorf("store: unsupported driver: %s", cfg.Driver)
	}
}
