package apperrors

import (
	"fmt"
	"net/http"
	"strings"
)

// =========================================================================
// Fleet API taxonomy
// =========================================================================

// ErrConnection - no response from the fleet API.
func ErrConnection(err error) *AppError {
	return Wrap(err, CodeConnectionError, "fleet_api", "Error de conexión", http.StatusBadGateway)
}

// ErrUpstream - non-2xx from the fleet API. message is the body's message,
// the raw body text, or empty for the generic fallback.
func ErrUpstream(status int, message string) *AppError {
	message = strings.TrimSpace(message)
	if message == "" {
		message = fmt.Sprintf("Error %d: Error desconocido", status)
	}
	httpCode := status
	if httpCode < 400 || httpCode > 599 {
		httpCode = http.StatusBadGateway
	}
	return New(CodeUpstreamError, "fleet_api", message, httpCode).WithDetails(map[string]int{"status": status})
}

// ErrSessionExpired - 401 from the fleet API or an expired token. Always
// forces a logout.
var ErrSessionExpired = New(
	CodeSessionExpired,
	"auth",
	"Sesión expirada. Redirigiendo al login...",
	http.StatusUnauthorized,
)

// ErrStorage - object storage write failed.
func ErrStorage(err error) *AppError {
	return Wrap(err, CodeStorageError, "storage", "Error subiendo archivo: "+errText(err), http.StatusBadGateway)
}

// =========================================================================
// Console controllers
// =========================================================================

var ErrFileTooLarge = New(
	CodeLimitExceeded,
	"validation",
	"El archivo es muy grande (máx 10MB).",
	http.StatusRequestEntityTooLarge,
)

// ErrUnsupportedFileType - the upload's content type is not accepted.
func ErrUnsupportedFileType(mimeType string) *AppError {
	return New(
		CodeValidationFailed,
		"validation",
		"Tipo de archivo no permitido: "+mimeType,
		http.StatusUnsupportedMediaType,
	)
}

var ErrPreviewNotFound = New(
	CodeNotFound,
	"preview",
	"La vista previa expiró o no existe",
	http.StatusNotFound,
)

var ErrPathNotAllowed = New(
	CodeForbidden,
	"preview",
	"El archivo no pertenece a este módulo",
	http.StatusForbidden,
)

var ErrNotLoggedIn = New(
	CodeUnauthorized,
	"auth",
	"No has iniciado sesión",
	http.StatusUnauthorized,
)

var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Permisos insuficientes",
	http.StatusForbidden,
)

var ErrUnknownResource = New(
	CodeNotFound,
	"console",
	"Módulo desconocido",
	http.StatusNotFound,
)

var ErrFormNotOpen = New(
	CodeInvalidStatus,
	"form",
	"El formulario no está abierto",
	http.StatusConflict,
)

var ErrSubmitInFlight = New(
	CodeInvalidStatus,
	"form",
	"Guardando, espere...",
	http.StatusConflict,
)

var ErrRecordLocked = New(
	CodeInvalidOperation,
	"form",
	"El registro no se puede editar en su estado actual",
	http.StatusConflict,
)

var ErrUploadInFlight = New(
	CodeInvalidStatus,
	"attachments",
	"Subiendo archivo, espere...",
	http.StatusConflict,
)

var ErrNoAttachments = New(
	CodeInvalidOperation,
	"attachments",
	"Este módulo no admite adjuntos",
	http.StatusBadRequest,
)

var ErrNothingPending = New(
	CodeInvalidStatus,
	"confirm",
	"No hay ninguna acción pendiente de confirmación",
	http.StatusConflict,
)

var ErrConfirmInFlight = New(
	CodeInvalidStatus,
	"confirm",
	"Procesando...",
	http.StatusConflict,
)

var ErrConfirmPending = New(
	CodeInvalidStatus,
	"confirm",
	"Ya hay una acción pendiente de confirmación",
	http.StatusConflict,
)

// ErrMissingFields - the submit gate. fields are the empty required fields.
func ErrMissingFields(fields []string) *AppError {
	return New(
		CodeValidationFailed,
		"form",
		"Faltan campos requeridos: "+strings.Join(fields, ", "),
		http.StatusUnprocessableEntity,
	).WithDetails(map[string][]string{"missing": fields})
}

// ErrInconsistentRecord - the buffer fails a cross-field rule.
func ErrInconsistentRecord(message string) *AppError {
	return New(CodeValidationFailed, "form", message, http.StatusUnprocessableEntity)
}

// ErrInvalidField - a value that cannot be coerced to the field's kind.
func ErrInvalidField(field, message string) *AppError {
	return New(
		CodeValidationFailed,
		"form",
		fmt.Sprintf("Campo %s inválido: %s", field, message),
		http.StatusUnprocessableEntity,
	).WithDetails(map[string]string{field: message})
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
