package store

import (
	"context"
	"sync"

	"github.com/dropDatabas3/tollgate/internal/maintenance"
)

// Memory guarda el Record en el proceso. Útil para nodo único y tests;
// varios coordinators pueden compartir la misma instancia para simular
// un store común del cluster.
type Memory struct {
	mu  sync.RWMutex
	rec *maintenance.Record
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Load(ctx context.Context) (*maintenance.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rec.Clone(), nil
}

func (m *Memory) Save(ctx context.Context, rec maintenance.Record) error {
	m.mu.Lock()
	m.rec = &rec
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.rec = nil
	m.mu.Unlock()
	return nil
}
