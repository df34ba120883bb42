package logger

import (
	"time"

	"go.uber.org/zap"
)

// Field es un alias de zap.Field para no importar zap en cada paquete.
type Field = zap.Field

// =================================================================================
// CAMPOS ESTÁNDAR - HTTP
// =================================================================================

// RequestID crea un campo para el ID del request.
func RequestID(v string) zap.Field { return zap.String("request_id", v) }

// Method crea un campo para el método HTTP.
func Method(v string) zap.Field { return zap.String("method", v) }

// Path crea un campo para el path del request.
func Path(v string) zap.Field { return zap.String("path", v) }

// Status crea un campo para el status code HTTP.
func Status(v int) zap.Field { return zap.Int("status", v) }

// DurationMs crea un campo para la duración en milisegundos.
func DurationMs(v int64) zap.Field { return zap.Int64("duration_ms", v) }

// Bytes crea un campo para los bytes de respuesta.
func Bytes(v int) zap.Field { return zap.Int("bytes", v) }

// ClientIP crea un campo para la IP del cliente.
func ClientIP(v string) zap.Field { return zap.String("client_ip", v) }

// =================================================================================
// CAMPOS ESTÁNDAR - MANTENIMIENTO / CLUSTER
// =================================================================================

// NodeID identifica el nodo local o el origen de un mensaje del cluster.
func NodeID(v string) zap.Field { return zap.String("node_id", v) }

// Origin es el nodo que emitió un broadcast.
func Origin(v string) zap.Field { return zap.String("origin", v) }

// Event es la variante de la notificación ("start" / "end").
func Event(v string) zap.Field { return zap.String("event", v) }

// Category es la categoría de evento en el transporte del cluster.
func Category(v string) zap.Field { return zap.String("category", v) }

// Operation es el nombre calificado de una operación (<module>.<op>).
func Operation(v string) zap.Field { return zap.String("operation", v) }

// SessionHash es el hash del session id; nunca loguear el id crudo.
func SessionHash(v string) zap.Field { return zap.String("session_hash", v) }

// Driver identifica el backend (store, bus, cache).
func Driver(v string) zap.Field { return zap.String("driver", v) }

// Window describe la ventana planificada de mantenimiento.
func Window(start, end time.Time) zap.Field {
	return zap.Dict("window", zap.Time("start", start), zap.Time("end", end))
}

// =================================================================================
// CAMPOS ESTÁNDAR - SISTEMA
// =================================================================================

// Component crea un campo para el componente/módulo.
func Component(v string) zap.Field { return zap.String("component", v) }

// Op crea un campo para la operación interna en curso.
func Op(v string) zap.Field { return zap.String("op", v) }

// Layer crea un campo para la capa (handler, service, store).
func Layer(v string) zap.Field { return zap.String("layer", v) }

// Err crea un campo para un error.
func Err(err error) zap.Field { return zap.Error(err) }

// Count crea un campo para un conteo.
func Count(v int) zap.Field { return zap.Int("count", v) }

// Any crea un campo genérico para cualquier tipo.
func Any(key string, v any) zap.Field { return zap.Any(key, v) }

// String crea un campo string genérico.
func String(key, v string) zap.Field { return zap.String(key, v) }

// Bool crea un campo bool genérico.
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
