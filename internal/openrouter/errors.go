package openrouter

import (
	"errors"
	"fmt"
)

// ErrorKind classifies API failures so callers can report them precisely.
type ErrorKind int

const (
	// KindAPI is a generic API failure
	KindAPI ErrorKind = iota

	// KindAuth is an invalid or missing API key (HTTP 401)
	KindAuth

	// KindRateLimit is a rate limit rejection (HTTP 429)
	KindRateLimit

	// KindModelNotFound is an unknown model ID (HTTP 404)
	KindModelNotFound

	// KindContentFilter is a response truncated by content moderation
	KindContentFilter

	// KindTimeout is a request that exceeded the configured API timeout
	KindTimeout
)

// Error is a model-attributed API failure. The model ID is carried so that
// failures from concurrent requests stay attributable.
type Error struct {
	Model      string
	Message    string
	StatusCode int
	Kind       ErrorKind
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Model, e.Message)
}

func newError(model string, kind ErrorKind, statusCode int, format string, args ...any) *Error {
	return &Error{
		Model:      model,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
		Kind:       kind,
	}
}

// IsTimeout reports whether err is a request timeout.
func IsTimeout(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindTimeout
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindAuth
}

// ExtractError indicates a successful API response that contained no usable
// code block.
type ExtractError struct {
	Model   string
	Message string
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("[%s] failed to extract code: %s", e.Model, e.Message)
}
