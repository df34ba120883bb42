package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dropDatabas3/tollgate/internal/maintenance"
	rdb "github.com/redis/go-redis/v9"
)

const defaultRedisKey = "tollgate:maintenance"

// Redis guarda el Record como JSON bajo una key fija, sin TTL:
// End del Record es informativo y no debe expirar la key.
type Redis struct {
	c   rdb.UniversalClient
	key string
}

func NewRedis(c rdb.UniversalClient, key string) *Redis {
	if key == "" {
		key = defaultRedisKey
	}
	return &Redis{c: c, key: key}
}

func (r *Redis) Load(ctx context.Context) (*maintenance.Record, error) {
	b, err := r.c.Get(ctx, r.key).Bytes()
	if errors.Is(err, rdb.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: redis get: %w", err)
	}
	var rec maintenance.Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, fmt.Errorf("store: redis decode: %w", err)
	}
	return &rec, nil
}

func (r *Redis) Save(ctx context.Context, rec maintenance.Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return r.c.Set(ctx, r.key, b, 0).Err()
}

func (r *Redis) Clear(ctx context.Context) error {
	return r.c.Del(ctx, r.key).Err()
}
