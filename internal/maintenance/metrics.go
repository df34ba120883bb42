package maintenance

// Metrics recibe observaciones del gate, del coordinator y del listener.
// internal/metrics provee la implementación prometheus.
type Metrics interface {
	ObserveDecision(d Decision)
	ObserveTransition(ev Event, origin string, active bool)
	ObserveNotification(ev string, result string)
}

// Orígenes de transición.
const (
	OriginLocal  = "local"
	OriginRemote = "remote"
	OriginSetup  = "setup"
)

// Resultados de una notificación recibida.
const (
	NotificationApplied = "applied"
	NotificationIgnored = "ignored"
	NotificationFailed  = "failed"
)

type nopMetrics struct{}

func (nopMetrics) ObserveDecision(Decision)              {}
func (nopMetrics) ObserveTransition(Event, string, bool) {}
func (nopMetrics) ObserveNotification(string, string)    {}
