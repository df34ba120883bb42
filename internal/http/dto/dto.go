// Package dto contiene los cuerpos de request/response de la API.
package dto

import (
	"time"

	"github.com/dropDatabas3/tollgate/internal/maintenance"
)

// OpsRequest es el cuerpo de POST /v1/ops.
type OpsRequest struct {
	Ops maintenance.Batch `json:"ops"`
}

// OpResult es la salida de una operación. Error sigue el formato de los
// errores HTTP ({code, message, detail}).
type OpResult struct {
	Name   string `json:"name"`
	Result any    `json:"result,omitempty"`
	Error  any    `json:"error,omitempty"`
}

type OpsResponse struct {
	Results []OpResult `json:"results"`
}

// StartMaintenanceRequest es el cuerpo de POST /v1/admin/maintenance/start.
type StartMaintenanceRequest struct {
	Start   *time.Time `json:"start,omitempty"`
	End     *time.Time `json:"end,omitempty"`
	Message string     `json:"message"`
}

// Record convierte el request al Record de dominio.
func (r StartMaintenanceRequest) Record() maintenance.Record {
	rec := maintenance.Record{Message: r.Message}
	if r.Start != nil {
		rec.Start = r.Start.UTC()
	}
	if r.End != nil {
		rec.End = r.End.UTC()
	}
	return rec
}

// MaintenanceStatusResponse es la vista admin del estado del nodo.
type MaintenanceStatusResponse struct {
	NodeID string `json:"node_id"`
	maintenance.Status
}

// SessionResponse es la respuesta de POST /v1/session.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	ExpiresIn int    `json:"expires_in"`
}

// ReadyResponse es la respuesta de GET /readyz.
type ReadyResponse struct {
	Status      string            `json:"status"`
	NodeID      string            `json:"node_id"`
	Maintenance bool              `json:"maintenance"`
	Components  map[string]string `json:"components,omitempty"`
}
