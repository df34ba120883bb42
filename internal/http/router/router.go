// Package router arma el chi.Router del servidor.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	adminctrl "github.com/dropDatabas3/tollgate/internal/http/controllers/admin"
	healthctrl "github.com/dropDatabas3/tollgate/internal/http/controllers/health"
	opsctrl "github.com/dropDatabas3/tollgate/internal/http/controllers/ops"
	sessionctrl "github.com/dropDatabas3/tollgate/internal/http/controllers/session"
	httperrors "github.com/dropDatabas3/tollgate/internal/http/errors"
	mw "github.com/dropDatabas3/tollgate/internal/http/middlewares"
	"github.com/dropDatabas3/tollgate/internal/session"
)

// Deps contiene todo lo que el router necesita.
type Deps struct {
	NodeID        string
	AdminAPIKey   string
	SessionCookie string
	Sessions      *session.Store

	Ops         *opsctrl.Controller
	Maintenance *adminctrl.MaintenanceController
	Session     *sessionctrl.Controller
	Health      *healthctrl.Controller

	Push    http.Handler // nil => push deshabilitado
	Metrics http.Handler // nil => sin /metrics
}

// New registra todas las rutas.
//
//	GET  /readyz
//	GET  /metrics
//	POST /v1/session, DELETE /v1/session
//	POST /v1/ops                              (sesión + gate)
//	GET  /v1/push                             (websocket)
//	POST /v1/admin/maintenance/start|end      (X-Admin-API-Key)
//	GET  /v1/admin/maintenance/status         (X-Admin-API-Key)
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(mw.WithRecover(), mw.WithRequestID(), mw.WithLogging(d.NodeID))
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	if d.Health != nil {
		d.Health.Register(r)
	}
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}
	if d.Push != nil {
		r.Method(http.MethodGet, "/v1/push", d.Push)
	}

	r.Group(func(r chi.Router) {
		if d.Sessions != nil {
			r.Use(mw.WithSession(d.Sessions, d.SessionCookie))
		}
		if d.Session != nil {
			d.Session.Register(r)
		}
		if d.Ops != nil {
			d.Ops.Register(r)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAdminKey(d.AdminAPIKey))
		if d.Maintenance != nil {
			d.Maintenance.Register(r)
		}
	})
	return r
}
