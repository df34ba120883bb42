package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/dropDatabas3/tollgate/internal/maintenance"
	"github.com/dropDatabas3/tollgate/internal/ops"
)

// AppError define la estructura estándar para errores de la API.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // causa original, solo para logs
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New crea un nuevo AppError.
func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// FromError convierte un error de cualquier capa en AppError. Los sentinels
// de mantenimiento tienen su propio código: un rechazo nunca se reporta
// como error interno.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	switch {
	case stderrors.Is(err, maintenance.ErrMaintenance):
		return ErrMaintenanceActive.WithCause(err)
	case stderrors.Is(err, maintenance.ErrNoSession):
		return ErrNoSession.WithCause(err)
	case stderrors.Is(err, maintenance.ErrPersist):
		return ErrPersistFailed.WithCause(err)
	case stderrors.Is(err, maintenance.ErrInvalidRecord):
		return ErrInvalidWindow.WithCause(err)
	case stderrors.Is(err, ops.ErrUnknownOperation):
		return ErrUnknownOperation.WithCause(err).WithDetail(err.Error())
	case stderrors.Is(err, ops.ErrBadOverrideToken):
		return ErrForbidden.WithCause(err).WithDetail("override token inválido")
	}
	return ErrInternalServerError.WithCause(err)
}

// WithDetail devuelve una COPIA con detalle.
func (e *AppError) WithDetail(detail string) *AppError {
	newErr := *e
	newErr.Detail = detail
	return &newErr
}

// WithCause devuelve una COPIA con la causa original.
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// =================================================================================
// LISTA DE ERRORES PREDEFINIDOS
// =================================================================================

var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "La solicitud contiene sintaxis inválida o parámetros faltantes.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidJSON = &AppError{
		Code:       "INVALID_JSON",
		Message:    "El cuerpo de la solicitud no es un JSON válido.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrBodyTooLarge = &AppError{
		Code:       "BODY_TOO_LARGE",
		Message:    "El cuerpo de la solicitud excede el tamaño máximo permitido.",
		HTTPStatus: http.StatusRequestEntityTooLarge,
	}

	ErrNoSession = &AppError{
		Code:       "NO_SESSION",
		Message:    "La operación requiere una sesión activa.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidWindow = &AppError{
		Code:       "INVALID_WINDOW",
		Message:    "La ventana de mantenimiento termina antes de empezar.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrUnknownOperation = &AppError{
		Code:       "UNKNOWN_OPERATION",
		Message:    "La operación solicitada no existe.",
		HTTPStatus: http.StatusNotFound,
	}
)

var (
	ErrAdminKey = &AppError{
		Code:       "ADMIN_KEY_INVALID",
		Message:    "Falta el header X-Admin-API-Key o es inválido.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "No tiene permisos para realizar esta acción.",
		HTTPStatus: http.StatusForbidden,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "El recurso solicitado no fue encontrado.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrMethodNotAllowed = &AppError{
		Code:       "METHOD_NOT_ALLOWED",
		Message:    "El método HTTP no está permitido para este recurso.",
		HTTPStatus: http.StatusMethodNotAllowed,
	}
)

var (
	ErrInternalServerError = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Ocurrió un error inesperado en el servidor.",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrPersistFailed = &AppError{
		Code:       "MAINTENANCE_PERSIST_FAILED",
		Message:    "No se pudo persistir el estado de mantenimiento.",
		HTTPStatus: http.StatusInternalServerError,
	}

	// ErrMaintenanceActive es un rechazo esperado, no una falla del servidor.
	ErrMaintenanceActive = &AppError{
		Code:       "MAINTENANCE",
		Message:    "El servicio está en mantenimiento.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)
