package core

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// RateLimitMessage is shown whenever a remote service throttles us.
const RateLimitMessage = "Rate limit exceeded. Please try again in 30 seconds."

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

// NewValidationMessage builds a ValidationError out of a plain message.
func NewValidationMessage(format string, args ...interface{}) error {
	return &ValidationError{Err: fmt.Errorf(format, args...)}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// NotFoundError reports that a single-record lookup yielded nothing.
type NotFoundError struct {
	Message string
}

func NewNotFoundError(msg string) error {
	return &NotFoundError{Message: msg}
}

func (err NotFoundError) Error() string {
	return err.Message
}

// UpstreamError is a non-2xx answer (or a transport failure) from a remote service.
type UpstreamError struct {
	Service    string
	StatusCode int // 0 when the call never got an answer
	Message    string
	Body       string
}

func (err UpstreamError) Error() string {
	if err.IsRateLimited() {
		return RateLimitMessage
	}
	return err.Message
}

func (err UpstreamError) IsRateLimited() bool {
	return err.StatusCode == http.StatusTooManyRequests
}

// AuthError is an identity-provider failure carrying a human readable message.
type AuthError struct {
	Code    string
	Message string
	Status  int
}

func (err AuthError) Error() string {
	return err.Message
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

func IsRateLimited(err error) bool {
	uErr, ok := errors.Cause(err).(*UpstreamError)
	return ok && uErr.IsRateLimited()
}

func IsValidation(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}
