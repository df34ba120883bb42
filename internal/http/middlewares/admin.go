package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/tollgate/internal/http/errors"
	"github.com/dropDatabas3/tollgate/internal/observability/logger"
)

// AdminKeyHeader es el header que usa tollgatectl.
const AdminKeyHeader = "X-Admin-API-Key"

// RequireAdminKey exige el header X-Admin-API-Key. Sin key configurada el
// admin API queda cerrado.
func RequireAdminKey(key string) Middleware {
	want := []byte(strings.TrimSpace(key))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(strings.TrimSpace(r.Header.Get(AdminKeyHeader)))
			if len(want) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
				logger.From(r.Context()).Warn("admin key rejected", logger.ClientIP(clientIP(r)))
				httperrors.WriteError(w, httperrors.ErrAdminKey)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
