package maintenance

import "time"

// Record es la declaración de mantenimiento vigente.
// Start/End son informativos: nada expira automáticamente al llegar End.
type Record struct {
	Start   time.Time `json:"start" yaml:"start"`
	End     time.Time `json:"end" yaml:"end"`
	Message string    `json:"message" yaml:"message"`
}

// Validate rechaza ventanas invertidas. Cualquiera de los extremos puede ser cero.
func (r Record) Validate() error {
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return ErrInvalidRecord
	}
	return nil
}

// Clone devuelve una copia; nil se preserva.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}

// Equal compara por instante (no por location) y mensaje.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == nil && o == nil
	}
	return r.Start.Equal(o.Start) && r.End.Equal(o.End) && r.Message == o.Message
}

// Status es la vista pública del estado, usada por maintenance.status,
// el endpoint admin y el canal push.
type Status struct {
	Active  bool       `json:"active"`
	Start   *time.Time `json:"start,omitempty"`
	End     *time.Time `json:"end,omitempty"`
	Message string     `json:"message,omitempty"`
}

// StatusOf construye la vista pública a partir de un snapshot.
func StatusOf(rec *Record) Status {
	if rec == nil {
		return Status{}
	}
	st := Status{Active: true, Message: rec.Message}
	if !rec.Start.IsZero() {
		t := rec.Start
		st.Start = &t
	}
	if !rec.End.IsZero() {
		t := rec.End
		st.End = &t
	}
	return st
}
