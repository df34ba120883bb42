package maintenance

import "context"

// Reason explica por qué el gate dejó pasar o reemplazó una operación.
type Reason string

const (
	ReasonInactive Reason = "inactive"
	ReasonSelf     Reason = "self"
	ReasonSession  Reason = "session"
	ReasonPolicy   Reason = "policy"
	ReasonDefault  Reason = "default"
)

// Decision es el veredicto para una operación.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Gate reescribe batches según el estado de mantenimiento.
// Es síncrono y no tiene efectos sobre estado, sesión ni registro.
type Gate struct {
	state    StateReader
	policies PolicyTable
	metrics  Metrics
}

// GateOption configura opciones del Gate.
type GateOption func(*Gate)

// WithGateMetrics registra cada decisión en m.
func WithGateMetrics(m Metrics) GateOption {
	return func(g *Gate) {
		if m != nil {
			g.metrics = m
		}
	}
}

func NewGate(state StateReader, policies PolicyTable, opts ...GateOption) *Gate {
	g := &Gate{state: state, policies: policies, metrics: nopMetrics{}}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Decide evalúa una operación contra un snapshot ya tomado.
// override es el flag de sesión ya resuelto.
func (g *Gate) Decide(rec *Record, override bool, op Operation) Decision {
	switch {
	case rec == nil:
		return Decision{Allowed: true, Reason: ReasonInactive}
	case op.Module() == Namespace:
		return Decision{Allowed: true, Reason: ReasonSelf}
	case override:
		return Decision{Allowed: true, Reason: ReasonSession}
	case g.policies.Allowed(op.Name):
		return Decision{Allowed: true, Reason: ReasonPolicy}
	default:
		return Decision{Allowed: false, Reason: ReasonDefault}
	}
}

// Filter devuelve un batch nuevo del mismo largo y orden. El estado se lee
// una única vez al entrar: un Start/End concurrente no mezcla veredictos
// dentro del mismo batch.
func (g *Gate) Filter(ctx context.Context, sess Session, in Batch) Batch {
	out := make(Batch, len(in))
	copy(out, in)

	rec := g.state.Snapshot()
	if rec == nil {
		return out
	}

	// El flag de sesión se resuelve a lo sumo una vez por batch.
	var override, resolved bool
	for i, op := range in {
		if op.Module() != Namespace && !resolved {
			override = HasOverride(ctx, sess)
			resolved = true
		}
		d := g.Decide(rec, override, op)
		g.metrics.ObserveDecision(d)
		if !d.Allowed {
			out[i] = StatusOp()
		}
	}
	return out
}

// Hook adapta el gate a la firma de hook del pipeline de ejecución.
// La sesión viaja en el contexto (ver WithSession).
func (g *Gate) Hook() func(ctx context.Context, in Batch) Batch {
	return func(ctx context.Context, in Batch) Batch {
		return g.Filter(ctx, SessionFrom(ctx), in)
	}
}
