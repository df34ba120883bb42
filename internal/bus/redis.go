package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dropDatabas3/tollgate/internal/maintenance"
	"github.com/dropDatabas3/tollgate/internal/observability/logger"
	rdb "github.com/redis/go-redis/v9"
)

const defaultPrefix = "tollgate"

// Redis publica sobre Redis Pub/Sub, canal "<prefix>:<category>".
// El envelope es JSON {category, body, origin}.
type Redis struct {
	c      rdb.UniversalClient
	prefix string
	nodeID string
}

var _ maintenance.Transport = (*Redis)(nil)

func NewRedis(c rdb.UniversalClient, prefix, nodeID string) *Redis {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Redis{c: c, prefix: prefix, nodeID: nodeID}
}

func (r *Redis) channel(category string) string {
	return r.prefix + ":" + category
}

func (r *Redis) Broadcast(ctx context.Context, category string, body []string) error {
	b, err := json.Marshal(maintenance.Message{Category: category, Body: body, Origin: r.nodeID})
	if err != nil {
		return err
	}
	if err := r.c.Publish(ctx, r.channel(category), b).Err(); err != nil {
		return fmt.Errorf("bus: redis publish: %w", err)
	}
	return nil
}

// Subscribe confirma la suscripción antes de volver, así un Start emitido
// justo después no se pierde para este nodo.
func (r *Redis) Subscribe(ctx context.Context, category string) (<-chan maintenance.Message, error) {
	ps := r.c.Subscribe(ctx, r.channel(category))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("bus: redis subscribe: %w", err)
	}

	log := logger.From(ctx).With(logger.Component("bus.redis"), logger.Category(category))
	out := make(chan maintenance.Message, localBuffer)
	in := ps.Channel()

	go func() {
		defer close(out)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-in:
				if !ok {
					return
				}
				var msg maintenance.Message
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					log.Warn("dropping undecodable cluster message", logger.Err(err))
					continue
				}
				if msg.Category == "" {
					msg.Category = category
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
