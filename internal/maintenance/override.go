package maintenance

import "context"

// OverrideKey es la key reservada dentro de los datos de sesión.
// Solo GrantOverride/RevokeOverride la escriben.
const OverrideKey = "maintenance_override"

// Session es la fachada mínima sobre el key/value de una sesión.
type Session interface {
	GetData(ctx context.Context, key string) (any, bool, error)
	SetData(ctx context.Context, key string, value any) error
	DelData(ctx context.Context, key string) error
}

// GrantOverride habilita el bypass para el resto de la sesión. Idempotente.
func GrantOverride(ctx context.Context, s Session) error {
	if s == nil {
		return ErrNoSession
	}
	return s.SetData(ctx, OverrideKey, true)
}

// RevokeOverride elimina el bypass. Con signal=true devuelve ErrMaintenance
// después de limpiar, para que el llamador vea la respuesta de mantenimiento.
func RevokeOverride(ctx context.Context, s Session, signal bool) error {
	if s == nil {
		return ErrNoSession
	}
	if err := s.DelData(ctx, OverrideKey); err != nil {
		return err
	}
	if signal {
		return ErrMaintenance
	}
	return nil
}

// HasOverride lee el flag. Ausente, no-bool o error de lectura => false.
func HasOverride(ctx context.Context, s Session) bool {
	if s == nil {
		return false
	}
	v, ok, err := s.GetData(ctx, OverrideKey)
	if err != nil || !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

type sessionCtxKey struct{}

// WithSession asocia la sesión del request al contexto para el hook del gate.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

// SessionFrom devuelve la sesión del contexto o nil.
func SessionFrom(ctx context.Context) Session {
	if ctx == nil {
		return nil
	}
	s, _ := ctx.Value(sessionCtxKey{}).(Session)
	return s
}
