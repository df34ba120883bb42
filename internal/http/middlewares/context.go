package middlewares

import (
	"context"

	"github.com/dropDatabas3/tollgate/internal/session"
)

type ctxKey int

const (
	ctxRequestID ctxKey = iota
	ctxSession
)

func setRequestID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, ctxRequestID, rid)
}

// GetRequestID obtiene el request id del contexto.
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxRequestID).(string)
	return v
}

func setSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, ctxSession, s)
}

// GetSession obtiene la sesión cargada por WithSession (nil si no hay).
func GetSession(ctx context.Context) *session.Session {
	v, _ := ctx.Value(ctxSession).(*session.Session)
	return v
}
