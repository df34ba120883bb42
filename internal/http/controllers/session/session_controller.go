// Package session contiene el controller de apertura/cierre de sesiones.
package session

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/tollgate/internal/http/controllers"
	"github.com/dropDatabas3/tollgate/internal/http/dto"
	httperrors "github.com/dropDatabas3/tollgate/internal/http/errors"
	mw "github.com/dropDatabas3/tollgate/internal/http/middlewares"
	"github.com/dropDatabas3/tollgate/internal/observability/logger"
	sess "github.com/dropDatabas3/tollgate/internal/session"
)

// Controller maneja /v1/session.
type Controller struct {
	store      *sess.Store
	cookieName string
	secure     bool
}

func NewController(store *sess.Store, cookieName string, secure bool) *Controller {
	if cookieName == "" {
		cookieName = sess.DefaultCookieName
	}
	return &Controller{store: store, cookieName: cookieName, secure: secure}
}

func (c *Controller) Register(r chi.Router) {
	r.Post("/v1/session", c.Open)
	r.Delete("/v1/session", c.Close)
}

// Open maneja POST /v1/session: crea la sesión y setea la cookie.
func (c *Controller) Open(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s, err := c.store.Open(ctx)
	if err != nil {
		logger.From(ctx).Error("open session failed",
			logger.Layer("controller"), logger.Op("SessionController.Open"), logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	ttl := c.store.TTL()
	http.SetCookie(w, c.cookie(s.ID(), ttl))
	controllers.WriteJSON(w, http.StatusCreated, dto.SessionResponse{
		SessionID: s.ID(),
		ExpiresIn: int(ttl.Seconds()),
	})
}

// Close maneja DELETE /v1/session. Sin sesión responde igual (idempotente).
func (c *Controller) Close(w http.ResponseWriter, r *http.Request) {
	if id := mw.SessionID(r, c.cookieName); id != "" {
		if err := c.store.Destroy(r.Context(), id); err != nil {
			httperrors.WriteError(w, err)
			return
		}
	}
	http.SetCookie(w, c.cookie("", -1))
	w.WriteHeader(http.StatusNoContent)
}

func (c *Controller) cookie(value string, ttl time.Duration) *http.Cookie {
	ck := &http.Cookie{
		Name:     c.cookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		ck.Expires = time.Now().Add(ttl).UTC()
		ck.MaxAge = int(ttl.Seconds())
	} else {
		ck.Expires = time.Unix(0, 0).UTC()
		ck.MaxAge = -1
	}
	return ck
}
