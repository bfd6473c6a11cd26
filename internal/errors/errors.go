package errors

import "fmt"

// ErrorCode represents a sabis error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"   // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrFileNotFound     ErrorCode = "FILE_NOT_FOUND"    // 404
	ErrFileTooLarge     ErrorCode = "FILE_TOO_LARGE"    // 413
	ErrParseFailed      ErrorCode = "PARSE_FAILED"      // 422
	ErrSessionExpired   ErrorCode = "SESSION_EXPIRED"   // 401
	ErrUpstream         ErrorCode = "UPSTREAM"          // 502
	ErrParseUnavailable ErrorCode = "PARSE_UNAVAILABLE" // 503
	ErrCancelled        ErrorCode = "CANCELLED"         // 499
	ErrInternal         ErrorCode = "INTERNAL"          // 500
)

// SabisError represents a structured error with code, status, and details.
type SabisError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *SabisError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *SabisError {
	return &SabisError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing snapshot or resource.
func NewNotFound(identifier string) *SabisError {
	return &SabisError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing input file.
func NewFileNotFound(path string) *SabisError {
	return &SabisError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewFileTooLarge creates a 413 error when an HTML input exceeds the size limit.
func NewFileTooLarge(max, actual int64) *SabisError {
	return &SabisError{
		Code:    ErrFileTooLarge,
		Status:  413,
		Message: fmt.Sprintf("input exceeds maximum size: %d bytes (max %d)", actual, max),
		Details: map[string]any{"max_bytes": max, "actual_bytes": actual},
	}
}

// NewParseUnavailable creates a 503 error when no HTML parser is configured.
// Callers are expected to pick a fallback path.
func NewParseUnavailable(what string) *SabisError {
	return &SabisError{
		Code:    ErrParseUnavailable,
		Status:  503,
		Message: fmt.Sprintf("no HTML parser available for %s", what),
		Details: map[string]any{"input": what},
	}
}

// NewParseFailed creates a 422 error when the HTML input could not be turned into a document.
func NewParseFailed(what string, err error) *SabisError {
	msg := fmt.Sprintf("failed to parse %s", what)
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &SabisError{
		Code:    ErrParseFailed,
		Status:  422,
		Message: msg,
		Details: map[string]any{"input": what},
	}
}

// NewSessionExpired creates a 401 error when the portal answered with its login page.
func NewSessionExpired(url string) *SabisError {
	return &SabisError{
		Code:    ErrSessionExpired,
		Status:  401,
		Message: "portal session is not logged in",
		Details: map[string]any{"url": url},
	}
}

// NewUpstream creates a 502 error for failed portal requests.
func NewUpstream(url string, status int, err error) *SabisError {
	msg := fmt.Sprintf("portal request failed: %s", url)
	if status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, status)
	}
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &SabisError{
		Code:    ErrUpstream,
		Status:  502,
		Message: msg,
		Details: map[string]any{"url": url, "http_status": status},
	}
}

// NewCancelled creates a 499 error when an operation stops because its context ended.
func NewCancelled(operation string) *SabisError {
	return &SabisError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *SabisError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &SabisError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a SabisError with the given code.
func Is(err error, code ErrorCode) bool {
	if sErr, ok := err.(*SabisError); ok {
		return sErr.Code == code
	}
	return false
}
