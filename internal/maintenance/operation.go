package maintenance

import "strings"

const (
	// Namespace es el namespace propio; sus operaciones nunca se filtran.
	Namespace = "maintenance"

	// StatusOperation es la operación de diagnóstico que reemplaza a las rechazadas.
	StatusOperation = Namespace + ".status"
)

// Operation es una unidad de trabajo pedida por el cliente.
type Operation struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

// Batch es la secuencia ordenada de operaciones de un request.
type Batch []Operation

// StatusOp devuelve el descriptor de diagnóstico con params vacíos.
func StatusOp() Operation {
	return Operation{Name: StatusOperation, Params: map[string]any{}}
}

// Module devuelve el prefijo de namespace ("shop" en "shop.purchase").
// Sin punto devuelve "".
func (o Operation) Module() string {
	mod, _, _ := SplitName(o.Name)
	return mod
}

// SplitName separa "<module>.<operation>". ok es false si falta alguna parte.
func SplitName(name string) (module, op string, ok bool) {
	i := strings.IndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return "", "", false
	}
	return name[:i], name[i+1:], true
}

// Rewritten cuenta cuántas posiciones cambió el gate entre in y out.
// Asume len(in) == len(out).
func Rewritten(in, out Batch) int {
	n := 0
	for i := range in {
		if i < len(out) && in[i].Name != out[i].Name {
			n++
		}
	}
	return n
}
