package weather

import (
	"errors"
	"fmt"
)

// ErrEmptyCity is returned when a fetch is requested without a city name.
var ErrEmptyCity = errors.New("city must not be empty")

// TransportError wraps connectivity failures: DNS, timeouts, resets, and
// requests refused by an open circuit breaker.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to load data: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response. Message carries the provider's own
// explanation when the error body had one.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("failed to load data: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("failed to load data: status %d", e.StatusCode)
}

// DecodeError is a response body that could not be decoded into a WeatherRecord.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode weather data: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ErrorKind labels an error by taxonomy for logs and metrics.
func ErrorKind(err error) string {
	var (
		transportErr *TransportError
		httpErr      *HTTPError
		decodeErr    *DecodeError
	)
	switch {
	case err == nil:
		return "none"
	case errors.As(err, &transportErr):
		return "transport"
	case errors.As(err, &httpErr):
		return "http"
	case errors.As(err, &decodeErr):
		return "decode"
	default:
		return "other"
	}
}
