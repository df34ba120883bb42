package maintenance

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dropDatabas3/tollgate/internal/observability/logger"
	"go.uber.org/zap"
)

// Store es el almacenamiento durable del Record. Load devuelve (nil, nil)
// cuando no hay mantenimiento declarado.
type Store interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, rec Record) error
	Clear(ctx context.Context) error
}

// CoordinatorDeps contiene las dependencias del Coordinator.
// Transport, Push y Announce son opcionales (nodo único / sin clientes push).
//
// Push recibe toda transición, local o remota: cada nodo avisa a sus propios
// clientes conectados. Announce recibe solo las transiciones originadas en
// este nodo; es para canales que ya llegan a todo el cluster (email), donde
// un aviso por nodo sería un duplicado.
type CoordinatorDeps struct {
	NodeID    string
	Store     Store
	Transport Transport
	Push      ClientPush
	Announce  ClientPush
	Metrics   Metrics
}

// Coordinator es el único que muta el State del nodo.
type Coordinator struct {
	deps  CoordinatorDeps
	state State

	// mu serializa toda escritura de state: transiciones locales
	// (persist -> publish) y recargas remotas (load -> publish).
	mu sync.Mutex
}

func NewCoordinator(deps CoordinatorDeps) (*Coordinator, error) {
	if deps.Store == nil {
		return nil, errors.New("maintenance: coordinator requires a store")
	}
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	return &Coordinator{deps: deps}, nil
}

// NodeID del nodo local.
func (c *Coordinator) NodeID() string { return c.deps.NodeID }

// State expone la vista de lectura para el Gate.
func (c *Coordinator) State() StateReader { return &c.state }

// Status es una lectura pura del Record vigente (copia). nil => Normal.
func (c *Coordinator) Status() *Record {
	return c.state.Snapshot().Clone()
}

// Setup carga el estado inicial desde el Store, así un nodo recién levantado
// toma un mantenimiento ya en curso.
func (c *Coordinator) Setup(ctx context.Context) error {
	rec, err := c.deps.Store.Load(ctx)
	if err != nil {
		return fmt.Errorf("maintenance: initial load: %w", err)
	}
	c.state.set(rec)
	c.deps.Metrics.ObserveTransition(eventFor(rec), OriginSetup, rec != nil)
	if rec != nil {
		c.log(ctx, "Setup").Info("node starts in maintenance",
			logger.Window(rec.Start, rec.End))
	}
	return nil
}

// Start declara mantenimiento. Si el Store falla no hay cambio local ni broadcast.
// Re-declarar estando en mantenimiento reemplaza el Record (last writer wins).
func (c *Coordinator) Start(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	log := c.log(ctx, "Start")

	c.mu.Lock()
	if err := c.deps.Store.Save(ctx, rec); err != nil {
		c.mu.Unlock()
		log.Error("persist maintenance record failed", logger.Err(err))
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	c.state.set(&rec)
	c.mu.Unlock()

	c.deps.Metrics.ObserveTransition(EventStart, OriginLocal, true)
	log.Info("maintenance started", logger.Window(rec.Start, rec.End))

	c.broadcast(ctx, EventStart)
	c.push(ctx, EventStart, true)
	return nil
}

// End termina el mantenimiento. Siempre emite broadcast, aun si ya estaba
// en Normal, porque los peers pueden estar desincronizados.
func (c *Coordinator) End(ctx context.Context) error {
	log := c.log(ctx, "End")

	c.mu.Lock()
	if err := c.deps.Store.Clear(ctx); err != nil {
		// El Record durable queda: un nodo que arranque lo va a ver.
		log.Error("clear maintenance record failed", logger.Err(err))
	}
	c.state.set(nil)
	c.mu.Unlock()

	c.deps.Metrics.ObserveTransition(EventEnd, OriginLocal, false)
	log.Info("maintenance ended")

	c.broadcast(ctx, EventEnd)
	c.push(ctx, EventEnd, true)
	return nil
}

// HandleEvent aplica una notificación remota.
func (c *Coordinator) HandleEvent(ctx context.Context, ev Event) error {
	switch ev {
	case EventStart:
		if _, err := c.reload(ctx); err != nil {
			return err
		}
	case EventEnd:
		c.mu.Lock()
		c.state.set(nil)
		c.mu.Unlock()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, string(ev))
	}
	c.deps.Metrics.ObserveTransition(ev, OriginRemote, c.state.Active())
	c.push(ctx, ev, false)
	return nil
}

// Refresh relee el Store y avisa a los clientes locales solo si el Record
// cambió. Lo dispara el store raft cada vez que la FSM local aplica una
// mutación, así un follower converge aunque el "start" del bus le llegue
// antes que la entrada del log.
func (c *Coordinator) Refresh(ctx context.Context) error {
	prev, err := c.reload(ctx)
	if err != nil {
		return err
	}
	cur := c.state.Snapshot()
	if prev.Equal(cur) {
		return nil
	}
	ev := eventFor(cur)
	c.deps.Metrics.ObserveTransition(ev, OriginRemote, cur != nil)
	c.push(ctx, ev, false)
	return nil
}

// reload relee el Store bajo mu y devuelve el Record anterior. Cada
// notificación hace su propia lectura: una lectura en curso puede ser
// anterior al Save que originó la notificación siguiente.
func (c *Coordinator) reload(ctx context.Context) (*Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, err := c.deps.Store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("maintenance: reload: %w", err)
	}
	prev := c.state.Snapshot()
	c.state.set(rec)
	return prev, nil
}

func (c *Coordinator) broadcast(ctx context.Context, ev Event) {
	if c.deps.Transport == nil {
		return
	}
	if err := c.deps.Transport.Broadcast(ctx, Category, []string{string(ev)}); err != nil {
		c.log(ctx, "broadcast").Warn("cluster broadcast failed",
			logger.Event(string(ev)), logger.Err(err))
	}
}

// push avisa a los clientes locales; local indica que la transición nació
// en este nodo y también va a Announce.
func (c *Coordinator) push(ctx context.Context, ev Event, local bool) {
	if c.deps.Push == nil && (!local || c.deps.Announce == nil) {
		return
	}
	rec := c.state.Snapshot().Clone()
	notice := ClientNotice{Event: ev.ClientEvent(), Record: rec, Status: StatusOf(rec)}
	targets := []ClientPush{c.deps.Push}
	if local {
		targets = append(targets, c.deps.Announce)
	}
	for _, p := range targets {
		if p == nil {
			continue
		}
		if err := p.Broadcast(ctx, notice.Event, notice); err != nil {
			c.log(ctx, "push").Warn("client push failed",
				logger.Event(notice.Event), logger.Err(err))
		}
	}
}

func (c *Coordinator) log(ctx context.Context, op string) *zap.Logger {
	return logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("maintenance.coordinator"),
		logger.Op(op),
	)
}

func eventFor(rec *Record) Event {
	if rec == nil {
		return EventEnd
	}
	return EventStart
}
