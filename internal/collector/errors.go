package collector

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrMalformedPayload marks a payload whose shape the adapter does not
// recognize. It is never retried.
var ErrMalformedPayload = errors.New("malformed payload")

// StatusError is a non-200 response from a source.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// Malformed wraps err as ErrMalformedPayload.
func Malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedPayload, fmt.Sprintf(format, args...))
}

// IsRetryable reports whether a fetch error is transient: network errors,
// timeouts, 429 and 5xx. Cancellation, 4xx and malformed payloads are final.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMalformedPayload) || errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
