package apperror

import (
	"errors"
	"net/http"
	"time"
)

// Kind classifies a failure for logs, metrics and response shaping.
type Kind string

const (
	KindValidation        Kind = "VALIDATION_ERROR"
	KindRateLimited       Kind = "RATE_LIMITED"
	KindProviderAuth      Kind = "PROVIDER_AUTH_ERROR"
	KindProviderTransient Kind = "PROVIDER_TRANSIENT_ERROR"
	KindNotConfigured     Kind = "PROVIDER_NOT_CONFIGURED"
	KindDispatchFailed    Kind = "DISPATCH_FAILED"
	KindBadRequest        Kind = "BAD_REQUEST"
	KindUnhandled         Kind = "UNHANDLED_ERROR"
)

type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Kind    Kind   `json:"kind"`
	Err     error  `json:"-"`

	// Errors lists field level problems for validation failures.
	Errors []string `json:"errors,omitempty"`
	// RetryAfter is set for rate limited requests.
	RetryAfter time.Duration `json:"-"`
	// ReferenceID is set once a submission was accepted for dispatch.
	ReferenceID string `json:"referenceId,omitempty"`
	// Debug is only rendered when debug responses are enabled.
	Debug map[string]any `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithReference returns the error annotated with a submission reference id.
func (e *AppError) WithReference(ref string) *AppError {
	e.ReferenceID = ref
	return e
}

// WithDebug attaches a key to the debug payload.
func (e *AppError) WithDebug(key string, value any) *AppError {
	if e.Debug == nil {
		e.Debug = make(map[string]any)
	}
	e.Debug[key] = value
	return e
}

func New(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Kind:    kindForStatus(code),
		Err:     err,
	}
}

func BadRequest(message string) *AppError {
	return New(http.StatusBadRequest, message, nil)
}

func Validation(message string, errs []string) *AppError {
	e := New(http.StatusBadRequest, message, nil)
	e.Kind = KindValidation
	e.Errors = errs
	return e
}

func RateLimited(message string, retryAfter time.Duration) *AppError {
	e := New(http.StatusTooManyRequests, message, nil)
	e.Kind = KindRateLimited
	e.RetryAfter = retryAfter
	return e
}

func ProviderAuth(message string, err error) *AppError {
	e := New(http.StatusInternalServerError, message, err)
	e.Kind = KindProviderAuth
	return e
}

func ProviderTransient(message string, err error) *AppError {
	e := New(http.StatusInternalServerError, message, err)
	e.Kind = KindProviderTransient
	return e
}

func NotConfigured(message string, err error) *AppError {
	e := New(http.StatusInternalServerError, message, err)
	e.Kind = KindNotConfigured
	return e
}

func DispatchFailed(message string, err error) *AppError {
	e := New(http.StatusInternalServerError, message, err)
	e.Kind = KindDispatchFailed
	return e
}

func Internal(err error) *AppError {
	return New(http.StatusInternalServerError, "Internal Server Error", err)
}

// As extracts an *AppError from err.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func kindForStatus(code int) Kind {
	switch {
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code >= 400 && code < 500:
		return KindBadRequest
	default:
		return KindUnhandled
	}
}
