package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/i474232898/route-risk/internal/cache"
	"github.com/i474232898/route-risk/internal/metrics"
)

// DefaultTimeout bounds a call when Options.Timeout is unset.
const DefaultTimeout = 60 * time.Second

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	// Cache memoizes cacheable operations. Nil disables memoization.
	Cache  cache.Cache
	Logger *slog.Logger
}

// Client issues calls to the route service and memoizes idempotent lookups.
// It is the only writer of its cache.
type Client struct {
	baseURL  *url.URL
	timeout  time.Duration
	http     *http.Client
	cache    cache.Cache
	breakers map[Operation]*gobreaker.CircuitBreaker
	log      *slog.Logger
}

// New creates a Client.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", opts.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: scheme and host are required", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:  base,
		timeout:  timeout,
		http:     httpClient,
		cache:    opts.Cache,
		breakers: newBreakers(logger),
		log:      logger,
	}, nil
}

// Call performs op with params and returns the raw response payload.
// Every failure is a *RemoteError. Nothing is retried.
func (c *Client) Call(ctx context.Context, op Operation, params Params) ([]byte, error) {
	ep, ok := endpoints[op]
	if !ok {
		return nil, &RemoteError{Operation: op, Detail: "unknown operation"}
	}

	var key string
	if ep.cacheable && c.cache != nil {
		key, _ = CacheKey(op, params)
		entry, err := c.cache.Get(ctx, key)
		if err == nil {
			metrics.CacheHits.WithLabelValues(string(op)).Inc()
			c.log.Debug("cache hit", "operation", op, "key", key)
			return entry.Value, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			c.log.Warn("cache read failed", "operation", op, "error", err)
		}
		metrics.CacheMisses.WithLabelValues(string(op)).Inc()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(ctx, ep, params)
	if err != nil {
		return nil, newRemoteError(op, 0, err.Error(), err)
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	raw, err := doRequest(ctx, c.http, c.breakers[op], req)
	metrics.RemoteDuration.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.RemoteRequests.WithLabelValues(string(op), "transport_error").Inc()
		detail := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			detail = fmt.Sprintf("request timed out after %s", c.timeout)
		}
		c.log.Warn("remote call failed", "operation", op, "request_id", reqID, "error", err)
		return nil, newRemoteError(op, 0, detail, err)
	}

	if raw.status < 200 || raw.status >= 300 {
		metrics.RemoteRequests.WithLabelValues(string(op), "http_error").Inc()
		detail := extractDetail(raw.body, raw.status)
		c.log.Warn("remote call rejected", "operation", op, "request_id", reqID, "status", raw.status, "detail", detail)
		return nil, newRemoteError(op, raw.status, detail, nil)
	}

	metrics.RemoteRequests.WithLabelValues(string(op), "ok").Inc()
	c.log.Debug("remote call succeeded", "operation", op, "request_id", reqID, "status", raw.status)

	if key != "" {
		if err := c.cache.Set(ctx, key, raw.body); err != nil {
			c.log.Warn("cache write failed", "operation", op, "error", err)
		}
	}
	return raw.body, nil
}

func (c *Client) buildRequest(ctx context.Context, ep endpoint, params Params) (*http.Request, error) {
	u := c.baseURL.JoinPath(ep.path)

	if ep.method == http.MethodGet {
		values := url.Values{}
		for k, v := range params {
			if s, ok := canonicalValue(v); ok {
				values.Set(k, s)
			}
		}
		u.RawQuery = values.Encode()
		return http.NewRequestWithContext(ctx, ep.method, u.String(), nil)
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, ep.method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// decode unmarshals a payload, reporting failures as a *RemoteError.
func decode(op Operation, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return newRemoteError(op, http.StatusOK, err.Error(), fmt.Errorf("%w: %v", errDecode, err))
	}
	return nil
}
