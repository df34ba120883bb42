package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/dropDatabas3/tollgate/internal/maintenance"
	migrations "github.com/dropDatabas3/tollgate/migrations/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres guarda el Record en la tabla maintenance_record (una fila).
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres crea el pool. maxConns/lifetime son opcionales.
func OpenPostgres(ctx context.Context, dsn string, maxConns int, lifetime string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgxpool config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	if lifetime != "" {
		if dur, err := time.ParseDuration(lifetime); err == nil {
			cfg.MaxConnLifetime = dur
			cfg.MaxConnIdleTime = dur
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("new pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: postgres ping failed: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// NewPostgres usa un pool existente.
func NewPostgres(pool *pgxpool.Pool) *Postgres { return &Postgres{pool: pool} }

// Migrate aplica las migraciones embebidas. Son idempotentes (IF NOT EXISTS).
func (p *Postgres) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations.PostgresFS, "*.up.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		sql, err := fs.ReadFile(migrations.PostgresFS, name)
		if err != nil {
			return err
		}
		if _, err := p.pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("store: migration %s: %w", name, err)
		}
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context) (*maintenance.Record, error) {
	var (
		start, end *time.Time
		msg        string
	)
	err := p.pool.QueryRow(ctx,
		`SELECT starts_at, ends_at, message FROM maintenance_record WHERE id = 1`,
	).Scan(&start, &end, &msg)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: postgres load: %w", err)
	}
	rec := &maintenance.Record{Message: msg}
	if start != nil {
		rec.Start = *start
	}
	if end != nil {
		rec.End = *end
	}
	return rec, nil
}

func (p *Postgres) Save(ctx context.Context, rec maintenance.Record) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO maintenance_record (id, starts_at, ends_at, message, updated_at)
		VALUES (1, $1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE
		SET starts_at = EXCLUDED.starts_at,
		    ends_at = EXCLUDED.ends_at,
		    message = EXCLUDED.message,
		    updated_at = now()`,
		nullTime(rec.Start), nullTime(rec.End), rec.Message,
	)
	if err != nil {
		return fmt.Errorf("store: postgres save: %w", err)
	}
	return nil
}

func (p *Postgres) Clear(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM maintenance_record WHERE id = 1`); err != nil {
		return fmt.Errorf("store: postgres clear: %w", err)
	}
	return nil
}

func (p *Postgres) Close() { p.pool.Close() }

// nullTime: tiempo cero => NULL.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
