package cluster

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/dropDatabas3/tollgate/internal/maintenance"
	"github.com/hashicorp/raft"
)

// FSM mantiene el Record de mantenimiento replicado.
// Todo el estado entra en memoria; el snapshot es el Record en JSON.
type FSM struct {
	mu  sync.RWMutex
	rec *maintenance.Record
	// applied es el índice del último log aplicado (diagnóstico).
	applied uint64
	// onApply se invoca (en su propia goroutine) tras cada cambio del Record.
	onApply func()
}

// OnApply registra fn para enterarse de cada mutación aplicada o snapshot
// restaurado. fn corre fuera del loop de Raft: puede bloquear o leer la FSM.
func (f *FSM) OnApply(fn func()) {
	f.mu.Lock()
	f.onApply = fn
	f.mu.Unlock()
}

func (f *FSM) notify() {
	f.mu.RLock()
	fn := f.onApply
	f.mu.RUnlock()
	if fn != nil {
		go fn()
	}
}

func NewFSM() *FSM { return &FSM{} }

// Record devuelve una copia del Record replicado o nil.
func (f *FSM) Record() *maintenance.Record {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.rec.Clone()
}

// AppliedIndex índice del último log aplicado.
func (f *FSM) AppliedIndex() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.applied
}

// Apply decodifica la mutación y actualiza el Record. Devuelve error (como
// valor) para que ApplyFuture.Response() lo exponga al que propuso.
func (f *FSM) Apply(l *raft.Log) interface{} {
	if l == nil || len(l.Data) == 0 {
		return nil
	}
	var m Mutation
	if err := json.Unmarshal(l.Data, &m); err != nil {
		return fmt.Errorf("cluster: decode mutation: %w", err)
	}

	switch m.Type {
	case MutationSetMaintenance:
		var rec maintenance.Record
		if err := json.Unmarshal(m.Payload, &rec); err != nil {
			return fmt.Errorf("cluster: decode record: %w", err)
		}
		f.mu.Lock()
		f.rec = &rec
		f.applied = l.Index
		f.mu.Unlock()
		f.notify()
	case MutationClearMaintenance:
		f.mu.Lock()
		f.rec = nil
		f.applied = l.Index
		f.mu.Unlock()
		f.notify()
	default:
		// Mutación de una versión más nueva: no rompemos el log.
		return fmt.Errorf("cluster: unknown mutation %q", m.Type)
	}
	return nil
}

// Snapshot captura el Record actual.
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return &recordSnap{rec: f.rec.Clone()}, nil
}

// Restore reemplaza el estado con el contenido del snapshot.
// Un snapshot vacío ("null") significa sin mantenimiento.
func (f *FSM) Restore(rc io.ReadCloser) error {
	if rc == nil {
		return nil
	}
	defer rc.Close()
	var rec *maintenance.Record
	if err := json.NewDecoder(rc).Decode(&rec); err != nil && err != io.EOF {
		return fmt.Errorf("cluster: restore snapshot: %w", err)
	}
	f.mu.Lock()
	f.rec = rec
	f.mu.Unlock()
	f.notify()
	return nil
}

type recordSnap struct{ rec *maintenance.Record }

func (s *recordSnap) Persist(sink raft.SnapshotSink) error {
	if err := json.NewEncoder(sink).Encode(s.rec); err != nil {
		_ = sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *recordSnap) Release() {}
