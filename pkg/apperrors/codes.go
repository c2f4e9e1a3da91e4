package apperrors

// ErrorCode identifies an error class across the console and its HTTP surface.
type ErrorCode string

const (
	// System
	CodeInternalError ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError ErrorCode = "DATABASE_ERROR"

	// Fleet API transport
	CodeConnectionError ErrorCode = "CONNECTION_ERROR"
	CodeUpstreamError   ErrorCode = "UPSTREAM_ERROR"
	CodeStorageError    ErrorCode = "STORAGE_ERROR"

	// Business / validation
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeLimitExceeded    ErrorCode = "LIMIT_EXCEEDED"
	CodeInvalidStatus    ErrorCode = "INVALID_STATUS"
	CodeInvalidOperation ErrorCode = "INVALID_OPERATION"

	// Auth
	CodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	CodeForbidden      ErrorCode = "FORBIDDEN"
	CodeSessionExpired ErrorCode = "SESSION_EXPIRED"
)
