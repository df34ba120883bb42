package push

import (
	"context"
	"errors"

	"github.com/dropDatabas3/tollgate/internal/maintenance"
)

// Fanout reenvía cada evento a todos los canales. Un error en uno no
// impide los demás.
type Fanout []maintenance.ClientPush

func (f Fanout) Broadcast(ctx context.Context, event string, payload any) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Broadcast(ctx, event, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
