package maintenance

import "sync/atomic"

// StateReader es la vista de solo lectura que recibe el Gate.
type StateReader interface {
	Snapshot() *Record
}

// State guarda el Record vigente del nodo. nil significa Normal.
// Los Record publicados no se mutan; solo el Coordinator llama set.
type State struct {
	cur atomic.Pointer[Record]
}

// Snapshot devuelve el Record vigente. No bloquea.
func (s *State) Snapshot() *Record {
	return s.cur.Load()
}

// Active indica si el nodo cree estar en mantenimiento.
func (s *State) Active() bool {
	return s.cur.Load() != nil
}

func (s *State) set(rec *Record) {
	s.cur.Store(rec.Clone())
}
