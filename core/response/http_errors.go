package response

import "net/http"

// HTTPError is a structured error response that implements the error
// interface. The Code values are the machine-readable error codes the
// frontend dispatches on; Status never reaches the JSON body.
type HTTPError struct {
	Status  int            `json:"-"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e HTTPError) Error() string {
	return e.Message
}

// StatusCode returns the HTTP status code for the error.
func (e HTTPError) StatusCode() int {
	return e.Status
}

// WithMessage returns a copy of the error with a custom message.
func (e HTTPError) WithMessage(message string) HTTPError {
	e.Message = message
	return e
}

// WithDetails returns a copy of the error with additional details.
func (e HTTPError) WithDetails(details map[string]any) HTTPError {
	e.Details = details
	return e
}

// WithError returns a copy of the error carrying the cause in its details.
func (e HTTPError) WithError(err error) HTTPError {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details["cause"] = err.Error()
	e.Details = details
	return e
}

// Envelope is the JSON error body returned to clients. ErrorID correlates
// the response with server logs without leaking internals.
type Envelope struct {
	Error   string         `json:"error"`
	ErrorID string         `json:"error_id,omitempty"`
	Message string         `json:"message"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// Envelope builds the client-facing body for the error.
func (e HTTPError) Envelope(errorID string) Envelope {
	return Envelope{
		Error:   http.StatusText(e.Status),
		ErrorID: errorID,
		Message: e.Message,
		Code:    e.Code,
		Details: e.Details,
	}
}

// Predefined errors covering the service error taxonomy.
var (
	// Client errors.
	ErrValidation = HTTPError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: "Invalid request data",
	}

	ErrInvalidContentType = HTTPError{
		Status:  http.StatusBadRequest,
		Code:    "INVALID_CONTENT_TYPE",
		Message: "Content-Type must be application/json",
	}

	ErrPermissionDenied = HTTPError{
		Status:  http.StatusForbidden,
		Code:    "PERMISSION_DENIED",
		Message: "You do not have permission to perform this action",
	}

	ErrSecurityViolation = HTTPError{
		Status:  http.StatusForbidden,
		Code:    "SECURITY_VIOLATION",
		Message: "Session security check failed",
	}

	ErrNotFound = HTTPError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: "Resource not found",
	}

	ErrRequestTooLarge = HTTPError{
		Status:  http.StatusRequestEntityTooLarge,
		Code:    "REQUEST_TOO_LARGE",
		Message: "Request body exceeds the maximum allowed size",
	}

	ErrConcurrentSessionLimit = HTTPError{
		Status:  http.StatusTooManyRequests,
		Code:    "CONCURRENT_SESSION_LIMIT",
		Message: "Too many active sessions",
	}

	ErrRateLimited = HTTPError{
		Status:  http.StatusTooManyRequests,
		Code:    "RATE_LIMITED",
		Message: "Too many requests",
	}

	// Server and dependency errors.
	ErrInternal = HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: "An unexpected error occurred",
	}

	ErrDatabase = HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "DATABASE_ERROR",
		Message: "A storage error occurred",
	}

	ErrExternalServiceTimeout = HTTPError{
		Status:  http.StatusBadGateway,
		Code:    "EXTERNAL_SERVICE_TIMEOUT",
		Message: "An upstream service timed out",
	}

	ErrExternalServiceConnection = HTTPError{
		Status:  http.StatusBadGateway,
		Code:    "EXTERNAL_SERVICE_CONNECTION_ERROR",
		Message: "Could not reach an upstream service",
	}

	ErrExternalServiceUnavailable = HTTPError{
		Status:  http.StatusServiceUnavailable,
		Code:    "EXTERNAL_SERVICE_UNAVAILABLE",
		Message: "An upstream service is temporarily unavailable",
	}

	ErrServiceUnavailable = HTTPError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Message: "Service is temporarily unavailable, please try again shortly",
	}
)
