package entity

import "fmt"

// ErrorCategory is the taxonomy of error kinds surfaced to callers of the
// runtime. Router-recoverable categories are retried inside the router;
// the rest become tool-result or turn-terminal errors the model or the
// host can observe.
type ErrorCategory string

const (
	ErrAuth                 ErrorCategory = "auth_error"
	ErrRateLimit            ErrorCategory = "rate_limit"
	ErrInvalidRequest       ErrorCategory = "invalid_request"
	ErrAPI                  ErrorCategory = "api_error"
	ErrNetwork              ErrorCategory = "network_error"
	ErrUnsupportedCapability ErrorCategory = "unsupported_capability"
	ErrTimeout              ErrorCategory = "timeout"
	ErrPermissionDenied     ErrorCategory = "permission_denied"
	ErrAirlockRejected      ErrorCategory = "airlock_rejected"
	ErrConversationLimit    ErrorCategory = "conversation_limit_exceeded"
	ErrUnknownTool          ErrorCategory = "unknown_tool"
	ErrUnknownMethod        ErrorCategory = "unknown_method"
	ErrNoProviderAvailable  ErrorCategory = "no_provider_available"
)

// CategorizedError wraps an underlying error with the taxonomy category
// so callers can switch on category without string matching.
type CategorizedError struct {
	Category ErrorCategory
	Message  string
	Cause    error
}

func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *CategorizedError) Unwrap() error { return e.Cause }

// NewError builds a CategorizedError without a wrapped cause.
func NewError(cat ErrorCategory, msg string) *CategorizedError {
	return &CategorizedError{Category: cat, Message: msg}
}

// WrapError builds a CategorizedError around an existing error.
func WrapError(cat ErrorCategory, msg string, cause error) *CategorizedError {
	return &CategorizedError{Category: cat, Message: msg, Cause: cause}
}

// Retryable reports whether the router should keep trying other providers
// for this category (§7 propagation policy).
func (c ErrorCategory) Retryable() bool {
	switch c {
	case ErrRateLimit, ErrAPI, ErrNetwork, ErrTimeout:
		return true
	default:
		return false
	}
}
