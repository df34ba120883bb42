package metrics

import (
	"github.com/dropDatabas3/tollgate/internal/maintenance"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	GateDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tollgate_gate_decisions_total",
		Help: "Decisiones del gate por operación (solo con mantenimiento activo)",
	}, []string{"decision", "reason"})

	MaintenanceActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tollgate_maintenance_active",
		Help: "1 si este nodo cree estar en mantenimiento",
	})

	Transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tollgate_transitions_total",
		Help: "Transiciones de estado de mantenimiento por tipo y origen",
	}, []string{"kind", "origin"})

	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tollgate_notifications_total",
		Help: "Notificaciones del cluster recibidas por evento y resultado",
	}, []string{"event", "result"})

	PushClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tollgate_push_clients",
		Help: "Clientes websocket conectados al canal push",
	})
)

// Maintenance implementa maintenance.Metrics sobre los collectors globales.
type Maintenance struct{}

var _ maintenance.Metrics = Maintenance{}

func (Maintenance) ObserveDecision(d maintenance.Decision) {
	decision := "allowed"
	if !d.Allowed {
		decision = "rejected"
	}
	GateDecisions.WithLabelValues(decision, string(d.Reason)).Inc()
}

func (Maintenance) ObserveTransition(ev maintenance.Event, origin string, active bool) {
	Transitions.WithLabelValues(string(ev), origin).Inc()
	if active {
		MaintenanceActive.Set(1)
	} else {
		MaintenanceActive.Set(0)
	}
}

func (Maintenance) ObserveNotification(ev string, result string) {
	if ev == "" {
		ev = "malformed"
	}
	Notifications.WithLabelValues(ev, result).Inc()
}
