package ops

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/tollgate/internal/maintenance"
	"github.com/dropDatabas3/tollgate/internal/observability/logger"
)

// ErrUnknownOperation operación no registrada.
var ErrUnknownOperation = errors.New("ops: unknown operation")

// Hook corre antes de ejecutar y puede reescribir el batch. Debe devolver
// un batch del mismo largo.
type Hook func(ctx context.Context, in maintenance.Batch) maintenance.Batch

// Result es la salida de una operación.
type Result struct {
	Name   string
	Result any
	Err    error
}

// Outcome es lo que devuelve Execute: el batch efectivo (post hooks) y un
// Result por posición.
type Outcome struct {
	Batch   maintenance.Batch
	Results []Result
}

// Executor corre los hooks y después cada operación en orden.
type Executor struct {
	catalog *Catalog
	hooks   []Hook
}

func NewExecutor(c *Catalog, hooks ...Hook) *Executor {
	return &Executor{catalog: c, hooks: hooks}
}

func (x *Executor) Execute(ctx context.Context, in maintenance.Batch) Outcome {
	batch := in
	for _, h := range x.hooks {
		next := h(ctx, batch)
		if len(next) != len(batch) {
			// Un hook que cambia el largo rompe la correspondencia request/response.
			logger.From(ctx).Error("hook changed batch length, ignoring its output",
				logger.Component("ops.executor"), logger.Count(len(next)))
			continue
		}
		batch = next
	}

	results := make([]Result, len(batch))
	for i, op := range batch {
		results[i] = x.run(ctx, op)
	}
	return Outcome{Batch: batch, Results: results}
}

func (x *Executor) run(ctx context.Context, op maintenance.Operation) (res Result) {
	res.Name = op.Name
	h, ok := x.catalog.Lookup(op.Name)
	if !ok {
		res.Err = fmt.Errorf("%w: %q", ErrUnknownOperation, op.Name)
		return res
	}
	params := op.Params
	if params == nil {
		params = map[string]any{}
	}
	defer func() {
		if rec := recover(); rec != nil {
			logger.From(ctx).Error("operation panicked",
				logger.Component("ops.executor"),
				logger.Operation(op.Name),
				logger.Any("panic", rec))
			res.Err = fmt.Errorf("ops: %s panicked", op.Name)
		}
	}()
	res.Result, res.Err = h(ctx, params)
	return res
}
