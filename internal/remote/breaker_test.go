package remote

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// routeService answers plan and search, and fails recommendations with the
// model error the service reports when its predictor is down.
func routeService(t *testing.T, planHits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/recommendation/departure":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, `{"detail":"model error"}`)
		case "/route/plan":
			planHits.Add(1)
			_, _ = io.WriteString(w, `{"route":{},"segments":[]}`)
		case "/geocoding/search":
			_, _ = io.WriteString(w, `{"results":[{"display_name":"Boston, MA","lat":42.36,"lon":-71.06}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func planParams() Params {
	return Params{"start_lat": 42.36, "start_lon": -71.06, "end_lat": 41.82, "end_lon": -71.41}
}

func TestRecommendFailuresLeavePlanAndSearchWorking(t *testing.T) {
	var planHits atomic.Int32
	srv := routeService(t, &planHits)
	c := newTestClient(t, srv, time.Second)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := c.Call(ctx, OpRecommendDeparture, Params{"time_window_hours": 12})
		var remoteErr *RemoteError
		if !errors.As(err, &remoteErr) {
			t.Fatalf("recommend %d: expected *RemoteError, got %T: %v", i, err, err)
		}
		// A service that answers with a detail is not an outage.
		if remoteErr.Status != http.StatusInternalServerError || remoteErr.Detail != "model error" {
			t.Fatalf("recommend %d: unexpected error fields %+v", i, remoteErr)
		}
	}

	if _, err := c.Call(ctx, OpPlanRoute, planParams()); err != nil {
		t.Fatalf("plan after recommend failures: %v", err)
	}
	if planHits.Load() != 1 {
		t.Fatalf("expected plan to reach the service once, got %d", planHits.Load())
	}
	got, err := c.SearchLocations(ctx, "Bos")
	if err != nil || len(got) != 1 {
		t.Fatalf("search after recommend failures: %v (%+v)", err, got)
	}
}

func TestOpenBreakerIsRemoteErrorScopedToOperation(t *testing.T) {
	var planHits atomic.Int32
	srv := routeService(t, &planHits)

	var recommendAttempts atomic.Int32
	base := srv.Client().Transport
	httpClient := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		if r.URL.Path == "/recommendation/departure" {
			recommendAttempts.Add(1)
			return nil, errors.New("connection refused")
		}
		return base.RoundTrip(r)
	})}

	c, err := New(Options{
		BaseURL:    srv.URL,
		Timeout:    time.Second,
		HTTPClient: httpClient,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx := context.Background()

	// gobreaker's default policy trips after more than five consecutive failures.
	for i := 0; i < 6; i++ {
		_, err := c.Call(ctx, OpRecommendDeparture, nil)
		var remoteErr *RemoteError
		if !errors.As(err, &remoteErr) || remoteErr.Status != 0 {
			t.Fatalf("attempt %d: expected network RemoteError, got %v", i, err)
		}
		if errors.Is(err, errCircuitOpen) {
			t.Fatalf("attempt %d: breaker opened too early", i)
		}
	}

	_, err = c.Call(ctx, OpRecommendDeparture, nil)
	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected *RemoteError, got %T: %v", err, err)
	}
	if !errors.Is(err, errCircuitOpen) || remoteErr.Status != 0 || remoteErr.Timeout() {
		t.Fatalf("expected open-breaker RemoteError, got %+v", remoteErr)
	}
	if remoteErr.Operation != OpRecommendDeparture {
		t.Fatalf("unexpected operation %s", remoteErr.Operation)
	}
	if !strings.Contains(err.Error(), "network error calling POST /recommendation/departure: circuit breaker open") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if recommendAttempts.Load() != 6 {
		t.Fatalf("expected the open breaker to short-circuit, got %d attempts", recommendAttempts.Load())
	}

	if _, err := c.Call(ctx, OpPlanRoute, planParams()); err != nil {
		t.Fatalf("plan while recommend breaker is open: %v", err)
	}
	if planHits.Load() != 1 {
		t.Fatalf("expected plan to reach the service, got %d hits", planHits.Load())
	}
}

func TestEmptyGatewayErrorsTripBreaker(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, time.Second)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := c.Call(ctx, OpForecastWeather, Params{"latitude": 1.0, "longitude": 2.0})
		var remoteErr *RemoteError
		if !errors.As(err, &remoteErr) || remoteErr.Status != http.StatusServiceUnavailable {
			t.Fatalf("attempt %d: expected status 503, got %v", i, err)
		}
		if remoteErr.Detail != "Service Unavailable" {
			t.Fatalf("attempt %d: unexpected detail %q", i, remoteErr.Detail)
		}
	}

	_, err := c.Call(ctx, OpForecastWeather, Params{"latitude": 1.0, "longitude": 2.0})
	if !errors.Is(err, errCircuitOpen) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if hits.Load() != 6 {
		t.Fatalf("expected 6 calls to reach the service, got %d", hits.Load())
	}
}

func TestCanceledCallsDoNotTripBreaker(t *testing.T) {
	var planHits atomic.Int32
	srv := routeService(t, &planHits)
	c := newTestClient(t, srv, time.Second)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 10; i++ {
		if _, err := c.Call(canceled, OpPlanRoute, planParams()); err == nil {
			t.Fatalf("call %d: expected error for canceled context", i)
		}
	}

	if _, err := c.Call(context.Background(), OpPlanRoute, planParams()); err != nil {
		t.Fatalf("plan after canceled calls: %v", err)
	}
	if planHits.Load() != 1 {
		t.Fatalf("expected one plan to reach the service, got %d", planHits.Load())
	}
}
