package kucoin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hprow/bnc-anc/internal/domain"
	"github.com/hprow/bnc-anc/internal/infra"
)

// maxRateLimitWait caps how long we honor a server-suggested reset
// interval before surfacing the rate-limit error.
const maxRateLimitWait = 10 * time.Second

// APIError is a venue rejection: the HTTP exchange succeeded but the
// embedded status code is not the success sentinel. The raw body is
// kept for diagnostics.
type APIError struct {
	Code string
	Msg  string
	Body string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("kucoin API error %s: %s", e.Code, e.Msg)
}

// sizingCodes are the rejection codes KuCoin uses for order size and
// parameter problems; only these trigger the integer-lot resubmission.
var sizingCodes = map[string]bool{
	"100001": true,
	"300012": true,
	"330008": true,
}

// isSizingRejection reports whether err is the class of rejection the
// notional→lot fallback applies to. Anything else propagates as-is.
func isSizingRejection(err error) bool {
	apiErr, ok := err.(*APIError)
	if !ok {
		return false
	}
	if sizingCodes[apiErr.Code] {
		return true
	}
	msg := strings.ToLower(apiErr.Msg)
	return strings.Contains(msg, "size") || strings.Contains(msg, "qty") || strings.Contains(msg, "quantity")
}

// Client is the signed KuCoin futures REST client. Every call passes
// the rate limiter and the circuit breaker before hitting the wire.
type Client struct {
	baseURL string
	signer  *Signer
	http    *http.Client
	limiter *rate.Limiter
	breaker *infra.CircuitBreaker
}

// NewClient creates a REST client for the given endpoint.
func NewClient(baseURL string, signer *Signer) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		signer:  signer,
		http: &http.Client{
			Timeout: 5 * time.Second,
		},
		// Order endpoints allow ~10 req/s; stay under it.
		limiter: rate.NewLimiter(rate.Limit(10), 5),
		breaker: infra.NewCircuitBreaker(infra.DefaultCircuitBreakerConfig("kucoin")),
	}
}

// Close wipes credentials and drops idle connections.
func (c *Client) Close() error {
	c.signer.Wipe()
	c.http.CloseIdleConnections()
	return nil
}

// Do performs one signed request and returns the data payload.
// Non-2xx statuses and non-success embedded codes fail with the
// response body attached. HTTP 429 waits the server-suggested reset
// interval (capped) and then surfaces a RateLimitError.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if !c.breaker.Allow() {
		return nil, fmt.Errorf("kucoin circuit open, request rejected")
	}

	data, err := c.do(ctx, method, path, query, body)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, err
	}
	c.breaker.RecordSuccess()
	return data, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	var bodyStr string
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		bodyStr = string(raw)
	}

	endpoint := path
	if len(query) > 0 {
		endpoint = path + "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, bytes.NewReader([]byte(bodyStr)))
	if err != nil {
		return nil, err
	}
	for k, v := range c.signer.GenerateHeaders(strings.ToUpper(method), endpoint, bodyStr) {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kucoin request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kucoin read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		reset := rateLimitReset(resp.Header)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(reset):
		}
		return nil, &domain.RateLimitError{Venue: "kucoin", ResetIn: reset}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("kucoin HTTP %d %s. Body=%s", resp.StatusCode, resp.Status, string(raw))
	}

	var api apiResponse
	if err := json.Unmarshal(raw, &api); err != nil {
		return nil, fmt.Errorf("kucoin decode response: %w. Body=%s", err, string(raw))
	}
	if api.Code != successCode {
		return nil, &APIError{Code: api.Code, Msg: api.Msg, Body: string(raw)}
	}

	return api.Data, nil
}

// rateLimitReset extracts the server-suggested wait from a 429.
func rateLimitReset(h http.Header) time.Duration {
	if v := h.Get("gw-ratelimit-reset"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil && ms > 0 {
			return clampWait(time.Duration(ms) * time.Millisecond)
		}
	}
	if v := h.Get("Retry-After"); v != "" {
		if sec, err := strconv.ParseInt(v, 10, 64); err == nil && sec > 0 {
			return clampWait(time.Duration(sec) * time.Second)
		}
	}
	return time.Second
}

func clampWait(d time.Duration) time.Duration {
	if d > maxRateLimitWait {
		return maxRateLimitWait
	}
	return d
}
