package cluster

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	appmetrics "github.com/dropDatabas3/tollgate/internal/metrics"
	"github.com/dropDatabas3/tollgate/internal/observability/logger"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
)

// Node es un wrapper liviano alrededor de *raft.Raft con stores BoltDB,
// snapshots en disco y transporte TCP.
type Node struct {
	r            *raft.Raft
	fsm          *FSM
	applyTimeout time.Duration
	id           raft.ServerID
	addr         raft.ServerAddress
	peers        map[string]string // nodeID -> raftAddr
	stop         chan struct{}
	closeOnce    sync.Once
}

type NodeOptions struct {
	NodeID   string            // identidad de este nodo (cfg.App.NodeID)
	RaftAddr string            // host:port del transporte Raft
	RaftDir  string            // directorio de datos de Raft
	FSM      *FSM              // si es nil se crea una FSM nueva
	Peers    map[string]string // nodeID->raftAddr. Si >1, bootstrap estático en el de menor NodeID.

	// ApplyTimeout para raft.Apply. Default 5s.
	ApplyTimeout time.Duration
}

func NewNode(opts NodeOptions) (*Node, error) {
	if opts.NodeID == "" || opts.RaftAddr == "" || opts.RaftDir == "" {
		return nil, fmt.Errorf("cluster: invalid NodeOptions (node_id, raft_addr and raft_dir are required)")
	}
	if opts.FSM == nil {
		opts.FSM = NewFSM()
	}
	if opts.ApplyTimeout <= 0 {
		opts.ApplyTimeout = 5 * time.Second
	}
	if err := os.MkdirAll(opts.RaftDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir raft dir: %w", err)
	}
	log := logger.L().With(logger.Component("cluster.raft"), logger.NodeID(opts.NodeID))

	// Stores: log + stable en la misma Bolt DB.
	boltPath := filepath.Join(opts.RaftDir, "raft.db")
	boltStore, err := raftboltdb.NewBoltStore(boltPath)
	if err != nil {
		return nil, fmt.Errorf("bolt store: %w", err)
	}

	// Snapshots en disco (retenemos 2).
	snapStore, err := raft.NewFileSnapshotStore(opts.RaftDir, 2, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("snapshot store: %w", err)
	}

	trans, err := raft.NewTCPTransport(opts.RaftAddr, nil, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("tcp transport: %w", err)
	}

	cfg := raft.DefaultConfig()
	cfg.LocalID = raft.ServerID(opts.NodeID)

	r, err := raft.NewRaft(cfg, opts.FSM, boltStore, boltStore, snapStore, trans)
	if err != nil {
		return nil, fmt.Errorf("new raft: %w", err)
	}

	hasState, err := raft.HasExistingState(boltStore, boltStore, snapStore)
	if err != nil {
		return nil, fmt.Errorf("check state: %w", err)
	}
	if !hasState {
		if err := bootstrap(r, cfg.LocalID, trans.LocalAddr(), opts); err != nil {
			return nil, err
		}
	}

	n := &Node{
		r:            r,
		fsm:          opts.FSM,
		applyTimeout: opts.ApplyTimeout,
		id:           cfg.LocalID,
		addr:         trans.LocalAddr(),
		peers:        opts.Peers,
		stop:         make(chan struct{}),
	}

	// Leadership change counter (metrics)
	go func(ch <-chan bool) {
		for {
			select {
			case v, ok := <-ch:
				if !ok {
					return
				}
				if v {
					appmetrics.RaftLeadershipChanges.Inc()
					log.Info("raft leadership acquired")
				}
			case <-n.stop:
				return
			}
		}
	}(r.LeaderCh())

	return n, nil
}

// bootstrap arma la configuración inicial cuando no hay estado previo.
// Con peers estáticos solo el de menor NodeID hace bootstrap; el resto espera
// que el líder lo contacte.
func bootstrap(r *raft.Raft, id raft.ServerID, addr raft.ServerAddress, opts NodeOptions) error {
	log := logger.L().With(logger.Component("cluster.raft"), logger.NodeID(opts.NodeID))

	if len(opts.Peers) <= 1 {
		conf := raft.Configuration{Servers: []raft.Server{{ID: id, Address: addr}}}
		if err := r.BootstrapCluster(conf).Error(); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
		log.Info("bootstrapped single-node raft cluster")
		return nil
	}

	smallest := opts.NodeID
	for k := range opts.Peers {
		if k < smallest {
			smallest = k
		}
	}
	if opts.NodeID != smallest {
		log.Info("waiting to join static raft cluster", logger.String("bootstrapper", smallest))
		return nil
	}

	servers := make([]raft.Server, 0, len(opts.Peers))
	for pid, paddr := range opts.Peers {
		servers = append(servers, raft.Server{ID: raft.ServerID(pid), Address: raft.ServerAddress(paddr)})
	}
	if err := r.BootstrapCluster(raft.Configuration{Servers: servers}).Error(); err != nil {
		return fmt.Errorf("bootstrap(static): %w", err)
	}
	log.Info("bootstrapped static raft cluster", logger.Count(len(servers)))
	return nil
}

// FSM devuelve la máquina de estados del nodo.
func (n *Node) FSM() *FSM {
	if n == nil {
		return nil
	}
	return n.fsm
}

// Apply serializa la mutación y espera commit o timeout.
// Respeta la cancelación de ctx mientras espera el futuro.
func (n *Node) Apply(ctx context.Context, m Mutation) (uint64, error) {
	if n == nil || n.r == nil {
		return 0, ErrNotInitialized
	}
	if !n.IsLeader() {
		return 0, ErrNotLeader
	}
	if m.NodeID == "" {
		m.NodeID = string(n.id)
	}
	if m.TsUnix == 0 {
		m.TsUnix = time.Now().Unix()
	}
	buf, err := json.Marshal(m)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	fut := n.r.Apply(buf, n.applyTimeout)

	done := make(chan struct{})
	var applyErr error
	go func() {
		applyErr = fut.Error()
		if applyErr == nil {
			if resp, ok := fut.Response().(error); ok && resp != nil {
				applyErr = resp
			}
		}
		close(done)
	}()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-done:
		appmetrics.RaftApplyLatency.Observe(float64(time.Since(start).Milliseconds()))
		if applyErr == raft.ErrNotLeader {
			return 0, ErrNotLeader
		}
		return fut.Index(), applyErr
	}
}

func (n *Node) IsLeader() bool {
	if n == nil || n.r == nil {
		return false
	}
	return n.r.State() == raft.Leader
}

func (n *Node) LeaderID() string {
	if n == nil || n.r == nil {
		return ""
	}
	addr, id := n.r.LeaderWithID()
	if id != "" {
		return string(id)
	}
	return string(addr)
}

func (n *Node) NodeID() string {
	if n == nil {
		return ""
	}
	return string(n.id)
}

func (n *Node) RaftAddr() string {
	if n == nil {
		return ""
	}
	return string(n.addr)
}

// Stats expone métricas de Raft tal como las produce raft.Raft.Stats().
func (n *Node) Stats() map[string]string {
	if n == nil || n.r == nil {
		return map[string]string{}
	}
	return n.r.Stats()
}

func (n *Node) Close() error {
	if n == nil || n.r == nil {
		return nil
	}
	var err error
	n.closeOnce.Do(func() {
		close(n.stop)
		err = n.r.Shutdown().Error()
	})
	return err
}
