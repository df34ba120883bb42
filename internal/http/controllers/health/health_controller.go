// Package health contiene el controller para health checks.
package health

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/tollgate/internal/http/controllers"
	"github.com/dropDatabas3/tollgate/internal/http/dto"
	"github.com/dropDatabas3/tollgate/internal/maintenance"
	"github.com/dropDatabas3/tollgate/internal/observability/logger"
)

// Check verifica una dependencia (cache, store, raft).
type Check func(ctx context.Context) error

// Controller maneja GET /readyz. Estar en mantenimiento no hace fallar el
// readiness: el nodo sigue atendiendo operaciones permitidas.
type Controller struct {
	nodeID string
	state  maintenance.StateReader
	checks map[string]Check
}

func NewController(nodeID string, state maintenance.StateReader, checks map[string]Check) *Controller {
	return &Controller{nodeID: nodeID, state: state, checks: checks}
}

func (c *Controller) Register(r chi.Router) {
	r.Get("/readyz", c.Readyz)
}

// Readyz maneja GET /readyz
func (c *Controller) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := dto.ReadyResponse{
		Status:      "ready",
		NodeID:      c.nodeID,
		Maintenance: c.state.Snapshot() != nil,
		Components:  map[string]string{},
	}

	names := make([]string, 0, len(c.checks))
	for n := range c.checks {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := c.checks[name](ctx); err != nil {
			resp.Status = "unavailable"
			resp.Components[name] = "error: " + err.Error()
			continue
		}
		resp.Components[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
		logger.From(ctx).Warn("readiness check failed",
			logger.Layer("controller"), logger.Op("HealthController.Readyz"))
	}
	controllers.WriteJSON(w, status, resp)
}
