// Package errors define el error estándar de la API HTTP y su serialización.
package errors

import (
	"encoding/json"
	"net/http"
)

// errorResponse estructura interna para la serialización JSON.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError escribe una respuesta HTTP basada en el error proporcionado.
// Maneja automáticamente errores de tipo *AppError, sentinels de dominio y
// errores genéricos.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	if appErr.HTTPStatus == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "60")
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(Body(appErr))
}

// Body devuelve la forma serializable de un AppError (también se usa dentro
// de los resultados por operación).
func Body(e *AppError) any {
	return errorResponse{Code: e.Code, Message: e.Message, Detail: e.Detail}
}
