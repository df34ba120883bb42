package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/tollgate/internal/maintenance"
	"github.com/dropDatabas3/tollgate/internal/observability/logger"
	"github.com/dropDatabas3/tollgate/internal/session"
)

// SessionID extrae el id de sesión del header X-Session-ID o de la cookie.
func SessionID(r *http.Request, cookieName string) string {
	if v := strings.TrimSpace(r.Header.Get(session.HeaderName)); v != "" {
		return v
	}
	if ck, err := r.Cookie(cookieName); err == nil {
		return strings.TrimSpace(ck.Value)
	}
	return ""
}

// WithSession carga la sesión del request (si hay) y la deja disponible
// para los handlers y para el gate. Una sesión inválida o un cache caído
// no cortan el request: se sigue sin sesión.
func WithSession(store *session.Store, cookieName string) Middleware {
	if cookieName == "" {
		cookieName = session.DefaultCookieName
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := SessionID(r, cookieName)
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			s, err := store.Load(ctx, id)
			if err != nil {
				lvl := logger.From(ctx).Debug
				if !errors.Is(err, session.ErrNotFound) {
					lvl = logger.From(ctx).Warn
				}
				lvl("session not loaded", logger.SessionHash(session.Hash(id)), logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			ctx = setSession(ctx, s)
			ctx = maintenance.WithSession(ctx, s)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.SessionHash(session.Hash(id))))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
