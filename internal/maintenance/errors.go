package maintenance

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSession: grant/revoke sin sesión activa.
	ErrNoSession = errors.New("maintenance: no active session")

	// ErrMaintenance es la señal de rechazo por mantenimiento.
	// Es un resultado esperado, no un defecto del servidor.
	ErrMaintenance = errors.New("maintenance: service under maintenance")

	// ErrPersist envuelve fallas del Store durante Start.
	ErrPersist = errors.New("maintenance: persist record")

	// ErrConfig agrupa errores de registro detectados al arrancar.
	ErrConfig = errors.New("maintenance: invalid configuration")

	// ErrUnknownEvent: variante de evento que este nodo no entiende.
	ErrUnknownEvent = errors.New("maintenance: unknown cluster event")

	// ErrInvalidRecord: ventana con End anterior a Start.
	ErrInvalidRecord = errors.New("maintenance: invalid record")
)

// IsRejection indica si err es la señal de mantenimiento.
func IsRejection(err error) bool {
	return errors.Is(err, ErrMaintenance)
}

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}
