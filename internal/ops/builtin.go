package ops

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/dropDatabas3/tollgate/internal/maintenance"
)

// ErrBadOverrideToken el token de grant_override no coincide.
var ErrBadOverrideToken = errors.New("ops: invalid override token")

// MaintenanceDeps alimenta el módulo "maintenance".
type MaintenanceDeps struct {
	// Status devuelve el Record vigente (nil => Normal).
	Status func() *maintenance.Record
	// OverrideToken, si no está vacío, se exige en params.token para el grant.
	OverrideToken string
	// StatusOnRevoke es el default de params.fail en revoke_override.
	StatusOnRevoke bool
}

// RegisterMaintenance registra maintenance.status, grant_override y
// revoke_override. Todo el namespace está exento del gate.
func RegisterMaintenance(r *Registry, d MaintenanceDeps) {
	m := r.Module(maintenance.Namespace)

	m.Handle("status", func(ctx context.Context, _ map[string]any) (any, error) {
		var rec *maintenance.Record
		if d.Status != nil {
			rec = d.Status()
		}
		return maintenance.StatusOf(rec), nil
	})

	m.Handle("grant_override", func(ctx context.Context, params map[string]any) (any, error) {
		if d.OverrideToken != "" {
			tok, _ := params["token"].(string)
			if subtle.ConstantTimeCompare([]byte(tok), []byte(d.OverrideToken)) != 1 {
				return nil, ErrBadOverrideToken
			}
		}
		if err := maintenance.GrantOverride(ctx, maintenance.SessionFrom(ctx)); err != nil {
			return nil, err
		}
		return map[string]any{"override": true}, nil
	})

	m.Handle("revoke_override", func(ctx context.Context, params map[string]any) (any, error) {
		fail := d.StatusOnRevoke
		if v, ok := params["fail"].(bool); ok {
			fail = v
		}
		if err := maintenance.RevokeOverride(ctx, maintenance.SessionFrom(ctx), fail); err != nil {
			return nil, err
		}
		return map[string]any{"override": false}, nil
	})
}

// RegisterSystem registra operaciones de diagnóstico: system.ping corre
// durante mantenimiento (y su alias system.health lo hereda); system.echo no.
func RegisterSystem(r *Registry, nodeID string) {
	r.Module("system").
		Handle("ping", func(ctx context.Context, _ map[string]any) (any, error) {
			return map[string]any{"pong": true, "node_id": nodeID}, nil
		}, MaintenanceAccess(maintenance.AllowAccess)).
		Alias("health", "ping").
		Handle("echo", func(ctx context.Context, params map[string]any) (any, error) {
			return params, nil
		})
}
