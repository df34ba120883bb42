// Package metrics define los collectors prometheus del servicio.
// Vive aparte para evitar ciclos entre cluster, maintenance y http.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RaftApplyLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tollgate_raft_apply_latency_ms",
		Help:    "Latencia de raft.Apply en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	RaftLeadershipChanges = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tollgate_raft_leadership_changes_total",
		Help: "Cambios de rol a leader",
	})
)

// register ignora AlreadyRegisteredError para que Register sea idempotente
// (tests y múltiples servidores en el mismo proceso).
func register(reg prometheus.Registerer, cs ...prometheus.Collector) error {
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// Register registra todos los collectors en reg (o el default si es nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return register(reg,
		RaftApplyLatency,
		RaftLeadershipChanges,
		GateDecisions,
		MaintenanceActive,
		Transitions,
		Notifications,
		PushClients,
	)
}
