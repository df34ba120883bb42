// Package app arma el servidor a partir de la config: stores, transporte,
// coordinator, gate, catálogo de operaciones y router HTTP.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	rdb "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/tollgate/internal/bus"
	"github.com/dropDatabas3/tollgate/internal/cache"
	"github.com/dropDatabas3/tollgate/internal/cluster"
	"github.com/dropDatabas3/tollgate/internal/config"
	adminctrl "github.com/dropDatabas3/tollgate/internal/http/controllers/admin"
	healthctrl "github.com/dropDatabas3/tollgate/internal/http/controllers/health"
	opsctrl "github.com/dropDatabas3/tollgate/internal/http/controllers/ops"
	sessionctrl "github.com/dropDatabas3/tollgate/internal/http/controllers/session"
	"github.com/dropDatabas3/tollgate/internal/http/router"
	"github.com/dropDatabas3/tollgate/internal/maintenance"
	"github.com/dropDatabas3/tollgate/internal/metrics"
	"github.com/dropDatabas3/tollgate/internal/observability/logger"
	"github.com/dropDatabas3/tollgate/internal/ops"
	"github.com/dropDatabas3/tollgate/internal/push"
	"github.com/dropDatabas3/tollgate/internal/session"
	"github.com/dropDatabas3/tollgate/internal/store"
)

const shutdownTimeout = 10 * time.Second

// Option permite reemplazar piezas del wiring (tests, binarios embebidos).
type Option func(*options)

type options struct {
	store     maintenance.Store
	transport maintenance.Transport
	modules   []func(*ops.Registry)
	registry  prometheus.Registerer
	sender    push.Sender
}

// WithStore usa st en lugar del driver configurado.
func WithStore(st maintenance.Store) Option {
	return func(o *options) { o.store = st }
}

// WithTransport usa t en lugar del bus configurado.
func WithTransport(t maintenance.Transport) Option {
	return func(o *options) { o.transport = t }
}

// WithModules agrega módulos de operaciones al catálogo.
func WithModules(fns ...func(*ops.Registry)) Option {
	return func(o *options) { o.modules = append(o.modules, fns...) }
}

// WithRegisterer registra las métricas en reg en lugar del default.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registry = reg }
}

// WithMailSender reemplaza el SMTPSender de los anuncios.
func WithMailSender(s push.Sender) Option {
	return func(o *options) { o.sender = s }
}

// App es la aplicación cableada.
type App struct {
	cfg *config.Config

	Handler     http.Handler
	Coordinator *maintenance.Coordinator
	Catalog     *ops.Catalog

	listener *maintenance.Listener
	hub      *push.Hub
	mailer   *push.Mailer
	node     *cluster.Node
	closers  []func() error
}

// New arma la app. Un error de registro de operaciones (maintenance.ErrConfig)
// o un store inaccesible abortan el arranque.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	nodeID := cfg.App.NodeID
	log := logger.From(ctx).With(logger.Component("app"), logger.NodeID(nodeID))

	a := &App{cfg: cfg}
	wired := false
	defer func() {
		if !wired {
			_ = a.Close()
		}
	}()

	if err := metrics.Register(o.registry); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	// ─── Store ───
	st := o.store
	if st == nil {
		sc := store.Config{Driver: cfg.Store.Driver, FSPath: cfg.Store.FSPath, DSN: cfg.Store.DSN}
		sc.Postgres.MaxConns = cfg.Store.Postgres.MaxConns
		sc.Postgres.ConnMaxLifetime = cfg.Store.Postgres.ConnMaxLifetime
		sc.Redis.Addr = cfg.Store.Redis.Addr
		sc.Redis.Password = cfg.Store.Redis.Password
		sc.Redis.DB = cfg.Store.Redis.DB
		sc.Redis.Key = cfg.Store.Redis.Key

		if cfg.Store.Driver == store.DriverRaft {
			node, err := cluster.NewNode(cluster.NodeOptions{
				NodeID:       nodeID,
				RaftAddr:     cfg.Cluster.RaftAddr,
				RaftDir:      cfg.Cluster.RaftDir,
				Peers:        cfg.Cluster.Nodes,
				ApplyTimeout: config.Duration(cfg.Cluster.ApplyTimeout, 5*time.Second),
			})
			if err != nil {
				return nil, fmt.Errorf("cluster: %w", err)
			}
			a.node = node
			a.closers = append(a.closers, node.Close)
			sc.Raft = node
		}

		opened, closeFn, err := store.Open(ctx, sc)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, closeFn)
		st = opened
	}

	// ─── Transporte del cluster ───
	tr := o.transport
	if tr == nil {
		switch cfg.Bus.Driver {
		case "redis":
			client := rdb.NewClient(&rdb.Options{
				Addr:     cfg.Bus.Redis.Addr,
				Password: cfg.Bus.Redis.Password,
				DB:       cfg.Bus.Redis.DB,
			})
			a.closers = append(a.closers, client.Close)
			tr = bus.NewRedis(client, cfg.Bus.Prefix, nodeID)
		default:
			// nodo único: el bus local no tiene peers
			tr = bus.NewLocal().Endpoint(nodeID)
		}
	}

	// ─── Cache + sesiones ───
	cc, err := cache.New(cache.Config{
		Driver:     cfg.Cache.Kind,
		Addr:       cfg.Cache.Redis.Addr,
		Password:   cfg.Cache.Redis.Password,
		DB:         cfg.Cache.Redis.DB,
		Prefix:     cfg.Cache.Redis.Prefix,
		DefaultTTL: config.Duration(cfg.Cache.Memory.DefaultTTL, 0),
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, cc.Close)
	sessions := session.NewStore(cc, config.Duration(cfg.Session.TTL, session.DefaultTTL))

	// ─── Push a clientes ───
	// coord se asigna más abajo; el hub solo lo consulta al conectar un cliente.
	var coord *maintenance.Coordinator
	var fan push.Fanout
	if cfg.Push.WebSocket {
		a.hub = push.NewHub(push.HubOptions{Welcome: func() any {
			rec := coord.Status()
			return maintenance.ClientNotice{Event: maintenance.StatusOperation, Record: rec, Status: maintenance.StatusOf(rec)}
		}})
		fan = append(fan, a.hub)
	}
	if len(cfg.Push.SMTP.Recipients) > 0 {
		sender := o.sender
		if sender == nil {
			sender = &push.SMTPSender{
				Host:    cfg.Push.SMTP.Host,
				Port:    cfg.Push.SMTP.Port,
				From:    cfg.Push.SMTP.From,
				User:    cfg.Push.SMTP.Username,
				Pass:    cfg.Push.SMTP.Password,
				TLSMode: cfg.Push.SMTP.TLSMode,
			}
		}
		a.mailer = push.NewMailer(sender, cfg.Push.SMTP.Recipients)
	}
	var clientPush, announce maintenance.ClientPush
	if len(fan) > 0 {
		clientPush = fan
	}
	// el email llega a todos los destinatarios desde un solo nodo: solo
	// se anuncian las transiciones originadas acá
	if a.mailer != nil {
		announce = a.mailer
	}

	// ─── Coordinator ───
	coord, err = maintenance.NewCoordinator(maintenance.CoordinatorDeps{
		NodeID:    nodeID,
		Store:     st,
		Transport: tr,
		Push:      clientPush,
		Announce:  announce,
		Metrics:   metrics.Maintenance{},
	})
	if err != nil {
		return nil, err
	}
	if err := coord.Setup(ctx); err != nil {
		return nil, err
	}
	a.Coordinator = coord
	if rs, ok := st.(*store.Raft); ok {
		// el "start" del bus puede llegar antes que la entrada del log
		rctx := context.WithoutCancel(ctx)
		rs.OnChange(func() {
			if err := coord.Refresh(rctx); err != nil {
				log.Warn("refresh after raft apply failed", logger.Err(err))
			}
		})
	}
	a.listener = maintenance.NewListener(coord, tr)

	// ─── Catálogo de operaciones ───
	reg := ops.NewRegistry()
	statusOnRevoke := cfg.Maintenance.StatusOnRevoke == nil || *cfg.Maintenance.StatusOnRevoke
	ops.RegisterMaintenance(reg, ops.MaintenanceDeps{
		Status:         coord.Status,
		OverrideToken:  cfg.Maintenance.OverrideToken,
		StatusOnRevoke: statusOnRevoke,
	})
	ops.RegisterSystem(reg, nodeID)
	for _, fn := range o.modules {
		fn(reg)
	}
	catalog, err := reg.Build()
	if err != nil {
		return nil, err
	}
	a.Catalog = catalog
	log.Info("operation catalog built",
		logger.Count(len(catalog.Names())),
		logger.Any("maintenance_policies", catalog.Policies().Len()))

	gate := maintenance.NewGate(coord.State(), catalog.Policies(), maintenance.WithGateMetrics(metrics.Maintenance{}))
	exec := ops.NewExecutor(catalog, gate.Hook())

	// ─── HTTP ───
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if g, ok := o.registry.(prometheus.Gatherer); ok {
		gatherer = g
	}
	checks := map[string]healthctrl.Check{"cache": cc.Ping}
	if a.node != nil {
		node := a.node
		checks["raft"] = func(context.Context) error {
			if node.LeaderID() == "" {
				return errors.New("no leader")
			}
			return nil
		}
	}
	deps := router.Deps{
		NodeID:        nodeID,
		AdminAPIKey:   cfg.Server.AdminAPIKey,
		SessionCookie: cfg.Session.CookieName,
		Sessions:      sessions,
		Ops:           opsctrl.NewController(exec, coord.State()),
		Maintenance:   adminctrl.NewMaintenanceController(coord),
		Session:       sessionctrl.NewController(sessions, cfg.Session.CookieName, cfg.Session.Secure),
		Health:        healthctrl.NewController(nodeID, coord.State(), checks),
		Metrics:       promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
	}
	if a.hub != nil {
		deps.Push = a.hub
	}
	a.Handler = router.New(deps)

	log.Info("app wired",
		logger.Driver(cfg.Store.Driver),
		logger.String("bus", cfg.Bus.Driver),
		logger.String("cache", cfg.Cache.Kind),
		logger.Bool("maintenance", coord.Status() != nil))
	wired = true
	return a, nil
}

// Run atiende HTTP y escucha el cluster hasta que ctx termina. Cualquiera
// de los dos que falle baja al otro.
func (a *App) Run(ctx context.Context) error {
	log := logger.From(ctx).With(logger.Component("app"), logger.NodeID(a.cfg.App.NodeID))
	srv := &http.Server{
		Addr:         a.cfg.Server.Addr,
		Handler:      a.Handler,
		ReadTimeout:  config.Duration(a.cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout: config.Duration(a.cfg.Server.WriteTimeout, 30*time.Second),
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.listener.Run(gctx)
	})
	g.Go(func() error {
		log.Info("http server listening", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		if a.hub != nil {
			a.hub.Close()
		}
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

// Close libera stores, cache y raft. Espera los emails en curso.
func (a *App) Close() error {
	if a.mailer != nil {
		a.mailer.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
