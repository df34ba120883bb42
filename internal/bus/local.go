package bus

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/dropDatabas3/tollgate/internal/maintenance"
)

const localBuffer = 64

// Local es un bus en proceso. Cada nodo obtiene su Endpoint; un broadcast
// llega a todos los suscriptores de la categoría, incluido el emisor.
type Local struct {
	mu      sync.RWMutex
	subs    map[string]map[*localSub]struct{}
	dropped atomic.Int64
}

type localSub struct {
	ch chan maintenance.Message
}

func NewLocal() *Local {
	return &Local{subs: make(map[string]map[*localSub]struct{})}
}

// Endpoint devuelve el Transport de un nodo.
func (l *Local) Endpoint(nodeID string) *Endpoint {
	return &Endpoint{bus: l, nodeID: nodeID}
}

// Dropped cantidad de mensajes descartados por buffers llenos.
func (l *Local) Dropped() int64 { return l.dropped.Load() }

// Subscribers cantidad de suscripciones activas en la categoría.
func (l *Local) Subscribers(category string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.subs[category])
}

func (l *Local) publish(msg maintenance.Message) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for s := range l.subs[msg.Category] {
		m := msg
		m.Body = append([]string(nil), msg.Body...)
		select {
		case s.ch <- m:
		default:
			l.dropped.Add(1)
		}
	}
}

func (l *Local) subscribe(ctx context.Context, category string) <-chan maintenance.Message {
	s := &localSub{ch: make(chan maintenance.Message, localBuffer)}
	l.mu.Lock()
	if l.subs[category] == nil {
		l.subs[category] = make(map[*localSub]struct{})
	}
	l.subs[category][s] = struct{}{}
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		delete(l.subs[category], s)
		close(s.ch)
		l.mu.Unlock()
	}()
	return s.ch
}

// Endpoint es la vista de un nodo sobre el bus Local.
type Endpoint struct {
	bus    *Local
	nodeID string
}

var _ maintenance.Transport = (*Endpoint)(nil)

func (e *Endpoint) Broadcast(ctx context.Context, category string, body []string) error {
	e.bus.publish(maintenance.Message{Category: category, Body: body, Origin: e.nodeID})
	return nil
}

func (e *Endpoint) Subscribe(ctx context.Context, category string) (<-chan maintenance.Message, error) {
	return e.bus.subscribe(ctx, category), nil
}
