package maintenance

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

type memSession struct {
	mu    sync.Mutex
	data  map[string]any
	reads atomic.Int32
	fail  bool
}

func newMemSession() *memSession { return &memSession{data: map[string]any{}} }

func (s *memSession) GetData(_ context.Context, k string) (any, bool, error) {
	s.reads.Add(1)
	if s.fail {
		return nil, false, errors.New("cache down")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[k]
	return v, ok, nil
}

func (s *memSession) SetData(_ context.Context, k string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[k] = v
	return nil
}

func (s *memSession) DelData(_ context.Context, k string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, k)
	return nil
}

// countingState cuenta cuántas veces se lee el snapshot.
type countingState struct {
	rec   *Record
	reads atomic.Int32
}

func (c *countingState) Snapshot() *Record {
	c.reads.Add(1)
	return c.rec
}

func mustPolicies(pairs map[string]bool) PolicyTable {
	b := NewPolicyBuilder()
	for k, v := range pairs {
		if err := b.Set(k, v); err != nil {
			panic(err)
		}
	}
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

func ops(names ...string) Batch {
	b := make(Batch, len(names))
	for i, n := range names {
		b[i] = Operation{Name: n, Params: map[string]any{"x": i}}
	}
	return b
}

func names(b Batch) []string {
	out := make([]string, len(b))
	for i, op := range b {
		out[i] = op.Name
	}
	return out
}
