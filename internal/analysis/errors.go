package analysis

import (
	"errors"
	"fmt"
	"time"

	"github.com/joelkehle/housing-analyst/internal/ratelimit"
)

const (
	CodeInvalidArgument = "invalid_argument"
	CodeNotFound        = "not_found"
	CodeQuotaExceeded   = "quota_exceeded"
	CodeInternal        = "internal"
)

// Error is a request failure. Model outages never produce one; they degrade
// into fallback results instead.
type Error struct {
	Code       string
	Message    string
	RetryAfter time.Duration
	Status     int
	Err        error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func statusForCode(code string) int {
	switch code {
	case CodeInvalidArgument:
		return 400
	case CodeNotFound:
		return 404
	case CodeQuotaExceeded:
		return 429
	default:
		return 500
	}
}

func newError(code, message string, retryAfter time.Duration, cause error) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		RetryAfter: retryAfter,
		Status:     statusForCode(code),
		Err:        cause,
	}
}

func invalidArgument(format string, args ...any) *Error {
	return newError(CodeInvalidArgument, fmt.Sprintf(format, args...), 0, nil)
}

func notFound(format string, args ...any) *Error {
	return newError(CodeNotFound, fmt.Sprintf(format, args...), 0, nil)
}

func internal(message string, cause error) *Error {
	return newError(CodeInternal, message+": "+cause.Error(), 0, cause)
}

func quotaExceeded(q *ratelimit.QuotaExceededError) *Error {
	return newError(CodeQuotaExceeded, q.Error(), q.RetryAfter, q)
}

// CodeOf returns the error code carried by err, or CodeInternal.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
