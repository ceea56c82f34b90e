package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"time"

	"modelmux/internal/core"
)

// httpConfig holds the shared HTTP behavior for one vendor client.
type httpConfig struct {
	Vendor         string
	BaseURL        string
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

func defaultHTTPConfig(vendor, baseURL string) httpConfig {
	return httpConfig{
		Vendor:         vendor,
		BaseURL:        baseURL,
		MaxRetries:     2,
		InitialBackoff: time.Second,
		MaxBackoff:     15 * time.Second,
		BackoffFactor:  2.0,
	}
}

// headerSetter applies vendor-specific auth headers to a request.
type headerSetter func(req *http.Request)

// apiClient is the base HTTP client shared by the vendor adapters. It retries
// transient failures with exponential backoff and trips a circuit breaker on
// sustained errors. Streaming requests never retry.
type apiClient struct {
	http       *http.Client
	cfg        httpConfig
	setHeaders headerSetter
	breaker    *circuitBreaker
}

func newAPIClient(cfg httpConfig, setHeaders headerSetter) *apiClient {
	return &apiClient{
		http: &http.Client{
			Timeout: 5 * time.Minute,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		cfg:        cfg,
		setHeaders: setHeaders,
		breaker:    newCircuitBreaker(5, 2, 30*time.Second),
	}
}

type apiRequest struct {
	Method   string
	Endpoint string
	Body     any
	Headers  map[string]string
}

// do executes the request with retries and unmarshals the JSON response.
func (c *apiClient) do(ctx context.Context, req apiRequest, result any) error {
	body, err := c.doRaw(ctx, req)
	if err != nil {
		return err
	}
	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return core.NewError(core.CodeUpstream, c.cfg.Vendor+": unmarshal response", err)
		}
	}
	return nil
}

func (c *apiClient) doRaw(ctx context.Context, req apiRequest) ([]byte, error) {
	if !c.breaker.Allow() {
		return nil, core.Errorf(core.CodeUpstream, "%s: circuit breaker open", c.cfg.Vendor)
	}

	var lastErr error
	attempts := c.cfg.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff(attempt)):
			}
		}

		httpReq, err := c.buildRequest(ctx, req)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(httpReq)
		if err != nil {
			c.breaker.RecordFailure()
			lastErr = core.NewError(core.CodeUpstream, c.cfg.Vendor+": send request", err)
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			c.breaker.RecordFailure()
			lastErr = core.NewError(core.CodeUpstream, c.cfg.Vendor+": read response", readErr)
			continue
		}

		if isRetryableStatus(resp.StatusCode) {
			c.breaker.RecordFailure()
			lastErr = parseUpstreamError(c.cfg.Vendor, resp.StatusCode, body)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			if resp.StatusCode >= 500 {
				c.breaker.RecordFailure()
			}
			return nil, parseUpstreamError(c.cfg.Vendor, resp.StatusCode, body)
		}

		c.breaker.RecordSuccess()
		return body, nil
	}
	return nil, lastErr
}

// doStream executes a streaming request and returns the raw body. No retries:
// partial data may already have been produced upstream.
func (c *apiClient) doStream(ctx context.Context, req apiRequest) (io.ReadCloser, error) {
	if !c.breaker.Allow() {
		return nil, core.Errorf(core.CodeUpstream, "%s: circuit breaker open", c.cfg.Vendor)
	}

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, core.NewError(core.CodeUpstream, c.cfg.Vendor+": send request", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			body = []byte("failed to read error response")
		}
		_ = resp.Body.Close()
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			c.breaker.RecordFailure()
		}
		return nil, parseUpstreamError(c.cfg.Vendor, resp.StatusCode, body)
	}

	c.breaker.RecordSuccess()
	return resp.Body, nil
}

func (c *apiClient) buildRequest(ctx context.Context, req apiRequest) (*http.Request, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, core.NewError(core.CodeUpstream, c.cfg.Vendor+": marshal request", err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.cfg.BaseURL+req.Endpoint, bodyReader)
	if err != nil {
		return nil, core.NewError(core.CodeUpstream, c.cfg.Vendor+": build request", err)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.setHeaders != nil {
		c.setHeaders(httpReq)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	return httpReq, nil
}

func (c *apiClient) backoff(attempt int) time.Duration {
	d := float64(c.cfg.InitialBackoff) * math.Pow(c.cfg.BackoffFactor, float64(attempt-1))
	if d > float64(c.cfg.MaxBackoff) {
		d = float64(c.cfg.MaxBackoff)
	}
	return time.Duration(d)
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests ||
		status == http.StatusServiceUnavailable ||
		status == http.StatusBadGateway ||
		status == http.StatusGatewayTimeout
}

// parseUpstreamError extracts the vendor's error message when the body is the
// usual {"error": {"message": ...}} shape, falling back to the raw body.
func parseUpstreamError(vendor string, status int, body []byte) *core.Error {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	message := string(body)
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		message = parsed.Error.Message
	}
	return core.Errorf(core.CodeUpstream, "%s: status %d: %s", vendor, status, message)
}
