// Package session guarda los datos de sesión en el cache (memory o redis).
//
// El id opaco viaja en la cookie (o en el header X-Session-ID); en el cache
// solo se guarda su hash: sid:<sha256-b64url(id)>.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dropDatabas3/tollgate/internal/cache"
	"github.com/dropDatabas3/tollgate/internal/maintenance"
)

const (
	DefaultCookieName = "sid"
	HeaderName        = "X-Session-ID"
	DefaultTTL        = 12 * time.Hour

	idBytes = 32
)

// ErrNotFound sesión inexistente o expirada.
var ErrNotFound = errors.New("session: not found")

// Store abre y carga sesiones.
type Store struct {
	cache cache.Client
	ttl   time.Duration
}

func NewStore(c cache.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{cache: c, ttl: ttl}
}

// TTL devuelve la duración deslizante de cada sesión.
func (st *Store) TTL() time.Duration { return st.ttl }

// Open crea una sesión vacía y la persiste.
func (st *Store) Open(ctx context.Context) (*Session, error) {
	id, err := newID()
	if err != nil {
		return nil, fmt.Errorf("session: generate id: %w", err)
	}
	s := &Session{id: id, store: st, data: map[string]any{}}
	if err := s.save(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Load trae la sesión del cache y renueva su TTL. Solo se toca el TTL: un
// request concurrente pudo escribir datos nuevos después de este Get.
func (st *Store) Load(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	raw, err := st.cache.Get(ctx, Key(id))
	if cache.IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}
	data := map[string]any{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return nil, fmt.Errorf("session: decode: %w", err)
		}
	}
	if err := st.cache.Touch(ctx, Key(id), st.ttl); err != nil {
		if cache.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("session: touch: %w", err)
	}
	return &Session{id: id, store: st, data: data}, nil
}

// Destroy borra la sesión del cache.
func (st *Store) Destroy(ctx context.Context, id string) error {
	return st.cache.Delete(ctx, Key(id))
}

// Key devuelve la key de cache para un id de sesión.
func Key(id string) string {
	return "sid:" + Hash(id)
}

// Hash es sha256(id) en base64url sin padding. Es lo único que se loguea.
func Hash(id string) string {
	sum := sha256.Sum256([]byte(id))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func newID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Session implementa maintenance.Session. Los datos se cargan una vez por
// request; cada escritura se persiste de inmediato.
type Session struct {
	id    string
	store *Store

	mu   sync.RWMutex
	data map[string]any
}

var _ maintenance.Session = (*Session)(nil)

func (s *Session) ID() string { return s.id }

func (s *Session) GetData(_ context.Context, key string) (any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Session) SetData(ctx context.Context, key string, value any) error {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
	return s.save(ctx)
}

func (s *Session) DelData(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return s.save(ctx)
}

func (s *Session) save(ctx context.Context) error {
	s.mu.RLock()
	b, err := json.Marshal(s.data)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	if err := s.store.cache.Set(ctx, Key(s.id), string(b), s.store.ttl); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}
