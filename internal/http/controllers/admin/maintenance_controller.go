// Package admin contiene los controllers del admin API (X-Admin-API-Key).
package admin

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/tollgate/internal/http/controllers"
	"github.com/dropDatabas3/tollgate/internal/http/dto"
	httperrors "github.com/dropDatabas3/tollgate/internal/http/errors"
	"github.com/dropDatabas3/tollgate/internal/maintenance"
	"github.com/dropDatabas3/tollgate/internal/observability/logger"
)

// Maintenance es lo que el controller necesita del Coordinator.
type Maintenance interface {
	NodeID() string
	Start(ctx context.Context, rec maintenance.Record) error
	End(ctx context.Context) error
	Status() *maintenance.Record
}

// MaintenanceController maneja /v1/admin/maintenance/*.
type MaintenanceController struct {
	m Maintenance
}

func NewMaintenanceController(m Maintenance) *MaintenanceController {
	return &MaintenanceController{m: m}
}

func (c *MaintenanceController) Register(r chi.Router) {
	r.Route("/v1/admin/maintenance", func(r chi.Router) {
		r.Post("/start", c.Start)
		r.Post("/end", c.End)
		r.Get("/status", c.Status)
	})
}

// Start maneja POST /v1/admin/maintenance/start
func (c *MaintenanceController) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("MaintenanceController.Start"))

	var req dto.StartMaintenanceRequest
	if err := controllers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	if err := c.m.Start(ctx, req.Record()); err != nil {
		log.Warn("start maintenance failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	c.writeStatus(w)
}

// End maneja POST /v1/admin/maintenance/end
func (c *MaintenanceController) End(w http.ResponseWriter, r *http.Request) {
	if err := c.m.End(r.Context()); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	c.writeStatus(w)
}

// Status maneja GET /v1/admin/maintenance/status
func (c *MaintenanceController) Status(w http.ResponseWriter, r *http.Request) {
	c.writeStatus(w)
}

func (c *MaintenanceController) writeStatus(w http.ResponseWriter) {
	controllers.WriteJSON(w, http.StatusOK, dto.MaintenanceStatusResponse{
		NodeID: c.m.NodeID(),
		Status: maintenance.StatusOf(c.m.Status()),
	})
}
