// Package ops es el catálogo de operaciones y el pipeline que las ejecuta.
//
// Cada módulo registra sus handlers bajo un namespace; la política de
// mantenimiento se declara en el mismo punto de registro:
//
//	shop := reg.Module("shop")
//	shop.Handle("purchase", purchase, ops.MaintenanceAccess(maintenance.DenyAccess))
//	shop.Handle("catalog", catalog, ops.MaintenanceAccess(maintenance.AllowAccess))
//	shop.Alias("list", "catalog") // hereda AllowAccess
//
// Los errores de registro se acumulan y Build los devuelve juntos.
package ops

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dropDatabas3/tollgate/internal/maintenance"
)

// Handler ejecuta una operación con sus params.
type Handler func(ctx context.Context, params map[string]any) (any, error)

// Option configura una entrada del catálogo.
type Option func(*entryOpts)

type entryOpts struct {
	access []bool
}

// MaintenanceAccess declara si la operación corre durante mantenimiento.
// Solo vale en el handler canónico y una única vez.
func MaintenanceAccess(allowed bool) Option {
	return func(o *entryOpts) { o.access = append(o.access, allowed) }
}

var segmentRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

type entry struct {
	name    string // calificado
	handler Handler
	target  string // calificado; solo en alias
	opts    entryOpts
}

func (e *entry) isAlias() bool { return e.target != "" }

// Registry junta los módulos antes del arranque.
type Registry struct {
	modules map[string]*Module
	entries map[string]*entry
	order   []string
	errs    []error
	built   bool
}

func NewRegistry() *Registry {
	return &Registry{
		modules: make(map[string]*Module),
		entries: make(map[string]*entry),
	}
}

// Module devuelve el módulo del namespace, creándolo si hace falta.
func (r *Registry) Module(namespace string) *Module {
	if m, ok := r.modules[namespace]; ok {
		return m
	}
	if !segmentRe.MatchString(namespace) {
		r.fail("malformed module namespace %q", namespace)
	}
	m := &Module{r: r, ns: namespace}
	r.modules[namespace] = m
	return m
}

func (r *Registry) fail(format string, args ...any) {
	r.errs = append(r.errs, fmt.Errorf("%w: %s", maintenance.ErrConfig, fmt.Sprintf(format, args...)))
}

func (r *Registry) add(e *entry) {
	if r.built {
		r.fail("operation %q registered after build", e.name)
		return
	}
	if _, dup := r.entries[e.name]; dup {
		r.fail("operation %q registered twice", e.name)
		return
	}
	r.entries[e.name] = e
	r.order = append(r.order, e.name)
}

// Module agrupa las operaciones de un namespace.
type Module struct {
	r  *Registry
	ns string
}

// Namespace del módulo.
func (m *Module) Namespace() string { return m.ns }

// Handle registra la entrada canónica de op.
func (m *Module) Handle(op string, h Handler, opts ...Option) *Module {
	name := m.ns + "." + op
	if !segmentRe.MatchString(op) {
		m.r.fail("malformed operation name %q", name)
		return m
	}
	if h == nil {
		m.r.fail("operation %q has no handler", name)
		return m
	}
	e := &entry{name: name, handler: h}
	for _, o := range opts {
		o(&e.opts)
	}
	m.r.add(e)
	return m
}

// Alias registra op como otro nombre de target. target puede ser local
// ("catalog") o calificado ("shop.catalog"). La política no se declara
// en el alias: se hereda de la entrada canónica.
func (m *Module) Alias(op, target string, opts ...Option) *Module {
	name := m.ns + "." + op
	if !segmentRe.MatchString(op) {
		m.r.fail("malformed operation name %q", name)
		return m
	}
	if !strings.Contains(target, ".") {
		target = m.ns + "." + target
	}
	e := &entry{name: name, target: target}
	for _, o := range opts {
		o(&e.opts)
	}
	m.r.add(e)
	return m
}

// Build valida el registro y produce el catálogo inmutable junto con la
// tabla de políticas. Cualquier error aborta el arranque.
func (r *Registry) Build() (*Catalog, error) {
	r.built = true
	pb := maintenance.NewPolicyBuilder()
	handlers := make(map[string]Handler, len(r.entries))
	aliases := make(map[string]string)

	for _, name := range r.order {
		e := r.entries[name]
		if !e.isAlias() {
			if len(e.opts.access) > 1 {
				pb.Reject(fmt.Errorf("%w: maintenance access declared %d times for %q",
					maintenance.ErrConfig, len(e.opts.access), name))
			} else if len(e.opts.access) == 1 {
				_ = pb.Set(name, e.opts.access[0])
			}
			handlers[name] = e.handler
			continue
		}

		if len(e.opts.access) > 0 {
			pb.Reject(fmt.Errorf("%w: maintenance access declared on alias %q; declare it on %q",
				maintenance.ErrConfig, name, e.target))
		}
		t, ok := r.entries[e.target]
		switch {
		case !ok:
			pb.Reject(fmt.Errorf("%w: alias %q points to unknown operation %q",
				maintenance.ErrConfig, name, e.target))
			continue
		case t.isAlias():
			pb.Reject(fmt.Errorf("%w: alias %q points to another alias %q",
				maintenance.ErrConfig, name, e.target))
			continue
		}
		aliases[name] = e.target
		if len(t.opts.access) == 1 {
			_ = pb.Set(name, t.opts.access[0])
		}
	}

	table, perr := pb.Build()
	if err := errors.Join(append(r.errs, perr)...); err != nil {
		return nil, err
	}
	return &Catalog{handlers: handlers, aliases: aliases, policies: table}, nil
}

// Catalog es el resultado de Build. No cambia después del arranque.
type Catalog struct {
	handlers map[string]Handler
	aliases  map[string]string
	policies maintenance.PolicyTable
}

// Lookup resuelve alias y devuelve el handler canónico.
func (c *Catalog) Lookup(name string) (Handler, bool) {
	if t, ok := c.aliases[name]; ok {
		name = t
	}
	h, ok := c.handlers[name]
	return h, ok
}

// Canonical devuelve el nombre canónico (el mismo si no es alias).
func (c *Catalog) Canonical(name string) string {
	if t, ok := c.aliases[name]; ok {
		return t
	}
	return name
}

// Policies es la tabla que consume el gate.
func (c *Catalog) Policies() maintenance.PolicyTable { return c.policies }

// Names lista todas las operaciones registradas, alias incluidos.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.handlers)+len(c.aliases))
	for n := range c.handlers {
		out = append(out, n)
	}
	for n := range c.aliases {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
