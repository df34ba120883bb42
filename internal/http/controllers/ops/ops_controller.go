// Package ops contiene el controller del endpoint de operaciones.
package ops

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/tollgate/internal/http/controllers"
	"github.com/dropDatabas3/tollgate/internal/http/dto"
	httperrors "github.com/dropDatabas3/tollgate/internal/http/errors"
	"github.com/dropDatabas3/tollgate/internal/maintenance"
	"github.com/dropDatabas3/tollgate/internal/observability/logger"
	pipeline "github.com/dropDatabas3/tollgate/internal/ops"
)

const (
	HeaderMaintenance = "X-Maintenance"
	HeaderFiltered    = "X-Maintenance-Filtered"

	maxBatch = 100
)

// Controller atiende POST /v1/ops.
type Controller struct {
	exec  *pipeline.Executor
	state maintenance.StateReader
}

func NewController(exec *pipeline.Executor, state maintenance.StateReader) *Controller {
	return &Controller{exec: exec, state: state}
}

func (c *Controller) Register(r chi.Router) {
	r.Post("/v1/ops", c.Execute)
}

// Execute corre el batch. El status HTTP es 200 aunque haya operaciones
// rechazadas: cada resultado lleva su propio error. X-Maintenance-Filtered
// indica cuántas posiciones reemplazó el gate.
func (c *Controller) Execute(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("OpsController.Execute"))

	var req dto.OpsRequest
	if err := controllers.ReadJSON(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	if len(req.Ops) == 0 {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("ops vacío"))
		return
	}
	if len(req.Ops) > maxBatch {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("demasiadas operaciones en el batch"))
		return
	}

	out := c.exec.Execute(ctx, req.Ops)

	filtered := maintenance.Rewritten(req.Ops, out.Batch)
	if filtered > 0 || c.state.Snapshot() != nil {
		w.Header().Set(HeaderMaintenance, "active")
	}
	if filtered > 0 {
		w.Header().Set(HeaderFiltered, strconv.Itoa(filtered))
		log.Debug("batch filtered by maintenance gate", logger.Count(filtered))
	}

	resp := dto.OpsResponse{Results: make([]dto.OpResult, len(out.Results))}
	for i, res := range out.Results {
		item := dto.OpResult{Name: res.Name, Result: res.Result}
		if res.Err != nil {
			appErr := httperrors.FromError(res.Err)
			if appErr.HTTPStatus >= 500 && !maintenance.IsRejection(res.Err) {
				log.Error("operation failed", logger.Operation(res.Name), logger.Err(res.Err))
			}
			item.Error = httperrors.Body(appErr)
		}
		resp.Results[i] = item
	}
	controllers.WriteJSON(w, http.StatusOK, resp)
}
