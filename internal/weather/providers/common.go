package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/i474232898/current-weather/internal/weather"
	"github.com/sony/gobreaker"
)

// BreakerConfig controls when the circuit breaker opens and how long it
// stays open. The breaker never retries a request.
type BreakerConfig struct {
	MaxConsecutiveFailures uint32
	OpenTimeout            time.Duration
}

// DefaultBreakerConfig is used when no BreakerConfig is supplied.
var DefaultBreakerConfig = BreakerConfig{
	MaxConsecutiveFailures: 5,
	OpenTimeout:            1 * time.Minute,
}

const maxErrorBody = 4 << 10

var (
	errNoHTTPClient = errors.New("http client not configured")
	errUnexpected   = errors.New("unexpected result type from circuit breaker")
)

func newCircuitBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	if cfg.MaxConsecutiveFailures == 0 {
		cfg.MaxConsecutiveFailures = DefaultBreakerConfig.MaxConsecutiveFailures
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = DefaultBreakerConfig.OpenTimeout
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("INFO: circuit breaker %s: %s -> %s", name, from, to)
		},
	})
}

// doRequest sends req exactly once through the circuit breaker.
//
// Transport failures and 5xx responses count against the breaker. Any other
// non-2xx status (e.g. 404 for an unknown city) is returned as
// *weather.HTTPError without counting against it. A 2xx response is returned with its body open.
func doRequest(
	ctx context.Context,
	client *http.Client,
	cb *gobreaker.CircuitBreaker,
	req *http.Request,
) (*http.Response, error) {
	if client == nil {
		return nil, errNoHTTPClient
	}

	// Ensure the request obeys context cancellation.
	req = req.WithContext(ctx)

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			return nil, &weather.TransportError{Err: execErr}
		}
		if resp.StatusCode >= 500 {
			return nil, readHTTPError(resp)
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &weather.TransportError{Err: fmt.Errorf("circuit breaker open: %w", err)}
		}
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, errUnexpected
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readHTTPError(resp)
	}
	return resp, nil
}

// readHTTPError consumes and closes the body of a failed response.
func readHTTPError(resp *http.Response) *weather.HTTPError {
	defer resp.Body.Close()

	httpErr := &weather.HTTPError{StatusCode: resp.StatusCode}

	var payload struct {
		Message string `json:"message"`
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil && json.Unmarshal(body, &payload) == nil {
		httpErr.Message = payload.Message
	}
	return httpErr
}
