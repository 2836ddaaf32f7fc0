package churnapi

import (
	"errors"
	"fmt"

	"github.com/refset/churn-insight-dashboard/internal/customer"
)

var (
	// ErrNetwork means the request never produced a response.
	ErrNetwork = errors.New("network error")
	// ErrRequestFailed means the backend answered with a non-2xx status.
	ErrRequestFailed = errors.New("request failed")
	// ErrMalformedResponse means the body did not have the expected shape.
	ErrMalformedResponse = errors.New("malformed response")
)

// RequestFailedError carries the status of a non-2xx answer and the
// backend's error message when the body had one.
type RequestFailedError struct {
	Method  string
	URL     string
	Status  int
	Message string
}

func (e *RequestFailedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Status)
}

func (e *RequestFailedError) Unwrap() error { return ErrRequestFailed }

// Malformed wraps ErrMalformedResponse with a description of what was wrong.
func Malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}

// ErrorKind is the short, user-facing class of a failure.
type ErrorKind string

const (
	KindValidation        ErrorKind = "ValidationError"
	KindNetwork           ErrorKind = "NetworkError"
	KindRequestFailed     ErrorKind = "RequestFailed"
	KindMalformedResponse ErrorKind = "MalformedResponse"
	KindUnknown           ErrorKind = "Error"
)

// KindOf classifies err.
func KindOf(err error) ErrorKind {
	var verr *customer.ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return KindValidation
	case errors.Is(err, ErrRequestFailed):
		return KindRequestFailed
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformedResponse
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	}
	return KindUnknown
}
