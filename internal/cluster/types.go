// Package cluster provee el nodo Raft embebido que respalda al store "raft".
// El broadcast de eventos de mantenimiento NO pasa por acá (ver internal/bus):
// Raft solo replica el Record durable.
package cluster

import "errors"

// MutationType define el catálogo de operaciones replicadas.
type MutationType string

const (
	MutationSetMaintenance   MutationType = "maintenance.set"
	MutationClearMaintenance MutationType = "maintenance.clear"
)

// Mutation representa una operación a replicar por Raft.
// El payload es JSON crudo del Record (vacío en clear).
type Mutation struct {
	Type    MutationType `json:"type"`
	NodeID  string       `json:"nodeId,omitempty"` // quién propuso la mutación
	TsUnix  int64        `json:"tsUnix"`
	Payload []byte       `json:"payload,omitempty"`
}

var (
	// ErrNotLeader: solo el líder acepta Apply.
	ErrNotLeader = errors.New("cluster: this node is not the raft leader")
	// ErrNotInitialized: Node nil o ya cerrado.
	ErrNotInitialized = errors.New("cluster: raft not initialized")
)
