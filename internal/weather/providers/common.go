package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-history/internal/weather"
)

// HTTPClientConfig bundles the outbound HTTP client.
type HTTPClientConfig struct {
	Client *http.Client
}

var (
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

// doRequest executes exactly one request through the circuit breaker.
// Transport failures come back as *weather.TransportError and non-200
// answers as *weather.StatusError. There is no retry.
func doRequest(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, &weather.TransportError{Err: errNoHTTPClient}
	}

	req, err := buildRequest()
	if err != nil {
		return nil, &weather.TransportError{Err: err}
	}
	req = req.WithContext(ctx)
	target := req.URL.Redacted()

	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			return nil, &weather.TransportError{URL: target, Err: execErr}
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, &weather.StatusError{Code: resp.StatusCode}
		}
		return resp, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &weather.TransportError{URL: target, Err: fmt.Errorf("%w: %v", errCircuitOpen, err)}
		}
		return nil, err
	}

	resp, ok := result.(*http.Response)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return resp, nil
}

// upstreamHealthy decides which results do not count against the breaker.
// A 4xx means the upstream is fine and the request was wrong.
func upstreamHealthy(err error) bool {
	if err == nil {
		return true
	}
	var se *weather.StatusError
	if errors.As(err, &se) {
		return se.Code < 500 && se.Code != http.StatusTooManyRequests
	}
	return false
}
