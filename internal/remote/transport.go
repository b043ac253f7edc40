package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

type rawResponse struct {
	status int
	body   []byte
}

// doRequest executes a single attempt through the operation's circuit breaker.
// Failures are returned immediately; retrying is left to the caller.
func doRequest(
	ctx context.Context,
	client *http.Client,
	cb *gobreaker.CircuitBreaker,
	req *http.Request,
) (rawResponse, error) {
	if client == nil {
		return rawResponse{}, errNoHTTPClient
	}

	// Ensure the request obeys context cancellation.
	req = req.WithContext(ctx)

	var raw rawResponse
	_, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if readErr != nil {
			return nil, readErr
		}
		raw = rawResponse{status: resp.StatusCode, body: body}

		// A 5xx with a body is the service answering; only an empty one, typically
		// from a gateway in front of it, counts against the breaker.
		if resp.StatusCode >= 500 && len(bytes.TrimSpace(body)) == 0 {
			return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
		}
		return nil, nil
	})

	if err == nil || errors.Is(err, errServerError) {
		return raw, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return rawResponse{}, fmt.Errorf("%w: %v", errCircuitOpen, err)
	}
	return rawResponse{}, err
}

// newBreakers creates one circuit breaker per operation so an outage of one
// endpoint never short-circuits calls to another.
func newBreakers(logger *slog.Logger) map[Operation]*gobreaker.CircuitBreaker {
	breakers := make(map[Operation]*gobreaker.CircuitBreaker, len(endpoints))
	for op := range endpoints {
		breakers[op] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "route-service:" + string(op),
			MaxRequests: 1,
			Interval:    1 * time.Minute,
			Timeout:     30 * time.Second,
			IsSuccessful: func(err error) bool {
				// Superseded or closed callers cancel their own requests.
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			},
		})
	}
	return breakers
}
