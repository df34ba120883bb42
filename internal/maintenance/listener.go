package maintenance

import (
	"context"

	"github.com/dropDatabas3/tollgate/internal/observability/logger"
)

// Listener consume la suscripción del cluster y despacha cada mensaje al
// Coordinator de forma síncrona. Un mensaje inválido se loguea y se descarta:
// peers con otra versión pueden emitir variantes que este nodo no conoce.
type Listener struct {
	coord     *Coordinator
	transport Transport
	metrics   Metrics
}

func NewListener(coord *Coordinator, transport Transport) *Listener {
	return &Listener{coord: coord, transport: transport, metrics: coord.deps.Metrics}
}

// Run bloquea hasta que ctx termine o el transporte cierre la suscripción.
func (l *Listener) Run(ctx context.Context) error {
	msgs, err := l.transport.Subscribe(ctx, Category)
	if err != nil {
		return err
	}
	log := logger.From(ctx).With(
		logger.Component("maintenance.listener"),
		logger.Category(Category),
	)
	log.Info("listening for cluster notifications")
	ctx = logger.ToContext(ctx, log)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				log.Info("subscription closed")
				return nil
			}
			l.Dispatch(ctx, msg)
		}
	}
}

// Dispatch procesa un mensaje. Nunca entra en pánico ni devuelve error:
// la convergencia es best-effort.
func (l *Listener) Dispatch(ctx context.Context, msg Message) {
	log := logger.From(ctx).With(logger.Origin(msg.Origin))

	if msg.Origin != "" && msg.Origin == l.coord.NodeID() {
		return
	}
	if msg.Category != "" && msg.Category != Category {
		return
	}
	if len(msg.Body) != 1 {
		l.metrics.ObserveNotification("", NotificationIgnored)
		log.Warn("ignoring malformed cluster notification", logger.Count(len(msg.Body)))
		return
	}
	ev, err := ParseEvent(msg.Body[0])
	if err != nil {
		l.metrics.ObserveNotification("unknown", NotificationIgnored)
		log.Warn("ignoring unknown cluster notification", logger.Event(msg.Body[0]))
		return
	}
	if err := l.coord.HandleEvent(ctx, ev); err != nil {
		l.metrics.ObserveNotification(string(ev), NotificationFailed)
		log.Error("apply cluster notification failed", logger.Event(string(ev)), logger.Err(err))
		return
	}
	l.metrics.ObserveNotification(string(ev), NotificationApplied)
	log.Debug("cluster notification applied", logger.Event(string(ev)))
}
