package store

import (
	"context"
	"encoding/json"

	"github.com/dropDatabas3/tollgate/internal/cluster"
	"github.com/dropDatabas3/tollgate/internal/maintenance"
)

// Raft replica el Record con el log de Raft. Load lee la FSM local, que en
// un follower puede ir detrás del broadcast del líder; por eso OnChange
// avisa cuando la FSM aplica la entrada. Save/Clear solo funcionan en el
// líder y devuelven cluster.ErrNotLeader en el resto.
type Raft struct {
	node *cluster.Node
}

func NewRaft(node *cluster.Node) *Raft { return &Raft{node: node} }

func (r *Raft) Load(ctx context.Context) (*maintenance.Record, error) {
	return r.node.FSM().Record(), nil
}

func (r *Raft) Save(ctx context.Context, rec maintenance.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = r.node.Apply(ctx, cluster.Mutation{Type: cluster.MutationSetMaintenance, Payload: payload})
	return err
}

func (r *Raft) Clear(ctx context.Context) error {
	_, err := r.node.Apply(ctx, cluster.Mutation{Type: cluster.MutationClearMaintenance})
	return err
}

// OnChange registra fn para cada mutación que la FSM local aplica.
func (r *Raft) OnChange(fn func()) {
	r.node.FSM().OnApply(fn)
}
