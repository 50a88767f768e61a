package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/northquay/wstrade-go/internal/metrics"
	"github.com/northquay/wstrade-go/internal/rate"
)

// Request describes one call against the trade service. The core builds
// these; the client owns serialization, pacing, and retries.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any
}

// StatusError is returned for any 4xx response. Code carries the
// machine-readable error string from the server payload when present.
type StatusError struct {
	Status int
	Code   string
	Body   []byte
}

func (e *StatusError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("trade service returned %d (%s)", e.Status, e.Code)
	}
	return fmt.Sprintf("trade service returned %d", e.Status)
}

// Backoff returns the retry sleep duration for the given attempt number.
func Backoff(attempt int) time.Duration {
	switch attempt {
	case 0:
		return 100 * time.Millisecond
	case 1:
		return 250 * time.Millisecond
	default:
		return 500 * time.Millisecond
	}
}

// Client executes rate-limited, retrying JSON calls against one base URL.
type Client struct {
	logger   *zap.Logger
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
	retryMax int
}

// New creates a Client. A nil httpClient gets a 10s-timeout default; a
// nil limiter disables client-side pacing.
func New(logger *zap.Logger, baseURL string, httpClient *http.Client, limiter *rate.Limiter, retryMax int) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		logger:   logger,
		baseURL:  baseURL,
		http:     httpClient,
		limiter:  limiter,
		retryMax: retryMax,
	}
}

// Do executes req and JSON-decodes the response into out (skipped when
// out is nil). Network errors and 5xx responses are retried with
// backoff; 4xx responses surface as *StatusError without retry.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var payload []byte
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		payload = data
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		start := time.Now()
		hr, err := c.build(ctx, req, payload)
		if err != nil {
			return err
		}

		resp, err := c.http.Do(hr)
		if err != nil {
			lastErr = err
			c.logger.Warn("trade.http_failed",
				zap.String("url", hr.URL.String()),
				zap.Error(err),
				zap.Int("attempt", attempt))
			if serr := sleep(ctx, Backoff(attempt)); serr != nil {
				return serr
			}
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		elapsed := time.Since(start)
		metrics.ObserveRequest(req.Method, strconv.Itoa(resp.StatusCode), start)

		if resp.StatusCode >= 500 {
			c.logger.Warn("trade.server_error",
				zap.Int("status", resp.StatusCode),
				zap.String("url", hr.URL.String()),
				zap.Duration("latency", elapsed))
			lastErr = fmt.Errorf("trade service error: %d", resp.StatusCode)
			if serr := sleep(ctx, Backoff(attempt)); serr != nil {
				return serr
			}
			continue
		}

		if resp.StatusCode >= 400 {
			return &StatusError{
				Status: resp.StatusCode,
				Code:   errorCode(body),
				Body:   body,
			}
		}

		if out != nil && len(body) > 0 {
			if err := json.Unmarshal(body, out); err != nil {
				c.logger.Warn("trade.decode_failed",
					zap.Error(err),
					zap.String("url", hr.URL.String()))
				return fmt.Errorf("decode failed: %w", err)
			}
		}

		c.logger.Debug("trade.http_success",
			zap.String("url", hr.URL.String()),
			zap.Int("status", resp.StatusCode),
			zap.Duration("elapsed", elapsed))

		return nil
	}

	return fmt.Errorf("trade request failed after %d attempts: %w", c.retryMax+1, lastErr)
}

func (c *Client) build(ctx context.Context, req Request, payload []byte) (*http.Request, error) {
	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}

	hr, err := http.NewRequestWithContext(ctx, req.Method, u, rd)
	if err != nil {
		return nil, err
	}
	hr.Header.Set("Accept", "application/json")
	if payload != nil {
		hr.Header.Set("Content-Type", "application/json")
	}
	for name, vals := range req.Header {
		for _, v := range vals {
			hr.Header.Set(name, v)
		}
	}
	return hr, nil
}

// errorCode extracts the server's machine-readable error string from a
// failure payload, e.g. {"error": "invalid_otp"}.
func errorCode(body []byte) string {
	var p struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &p); err != nil {
		return ""
	}
	return p.Error
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
