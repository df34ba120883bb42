package maintenance

import (
	"errors"
	"strings"
)

// Constantes para legibilidad en el punto de registro.
const (
	AllowAccess = true
	DenyAccess  = false
)

// PolicyTable mapea nombre calificado -> permitido durante mantenimiento.
// Se construye una vez al arrancar y no cambia después; no necesita locks.
type PolicyTable struct {
	m map[string]bool
}

// Allowed devuelve la política; un nombre desconocido es "sin opt-in".
func (t PolicyTable) Allowed(name string) bool {
	return t.m[name]
}

// Lookup distingue "no registrada" de DenyAccess.
func (t PolicyTable) Lookup(name string) (allowed, found bool) {
	allowed, found = t.m[name]
	return
}

// Len cantidad de operaciones con política explícita.
func (t PolicyTable) Len() int { return len(t.m) }

// PolicyBuilder acumula políticas durante el registro de handlers.
// Los errores se juntan y se devuelven en Build para abortar el arranque
// con el listado completo en lugar del primero.
type PolicyBuilder struct {
	m      map[string]bool
	errs   []error
	sealed bool
}

func NewPolicyBuilder() *PolicyBuilder {
	return &PolicyBuilder{m: make(map[string]bool)}
}

// Set registra la política de una operación. Se permite una sola vez por nombre.
func (b *PolicyBuilder) Set(name string, allowed bool) error {
	var err error
	switch {
	case b.sealed:
		err = configErrorf("policy for %q set after build", name)
	case !validName(name):
		err = configErrorf("policy for malformed operation name %q", name)
	default:
		if _, dup := b.m[name]; dup {
			err = configErrorf("policy for %q already set", name)
		}
	}
	if err != nil {
		b.errs = append(b.errs, err)
		return err
	}
	b.m[name] = allowed
	return nil
}

// Reject registra un error de configuración detectado por quien registra
// (p.ej. política adjunta a un alias).
func (b *PolicyBuilder) Reject(err error) {
	if err != nil {
		b.errs = append(b.errs, err)
	}
}

// Build sella el builder y devuelve la tabla inmutable.
func (b *PolicyBuilder) Build() (PolicyTable, error) {
	b.sealed = true
	if len(b.errs) > 0 {
		return PolicyTable{}, errors.Join(b.errs...)
	}
	m := make(map[string]bool, len(b.m))
	for k, v := range b.m {
		m[k] = v
	}
	return PolicyTable{m: m}, nil
}

func validName(name string) bool {
	mod, op, ok := SplitName(name)
	if !ok {
		return false
	}
	return strings.TrimSpace(mod) == mod && strings.TrimSpace(op) == op && !strings.ContainsAny(name, " \t\n")
}
