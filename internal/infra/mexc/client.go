package mexc

import (
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

const maxRateLimitWait = 10 * time.Second

// APIError is a venue rejection carried inside a reply body.
type APIError struct {
	Code int64
	Msg  string
	Body string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mexc API error %d: %s", e.Code, e.Msg)
}

// Client is the signed MEXC spot REST client. Requests carry all
// parameters in the query string; signed calls append a timestamp and
// an HMAC signature.
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
		limiter: rate.NewLimiter(rate.Limit(15), 5),
		breaker: infra.NewCircuitBreaker(infra.DefaultCircuitBreakerConfig("mexc")),
	}
}

// Close wipes credentials and drops idle connections.
func (c *Client) Close() error {
	c.signer.Wipe()
	c.http.CloseIdleConnections()
	return nil
}

// Do performs one request. When signed is true the query gets a
// timestamp and signature. The decoded body must either be free of an
// embedded error code or the call fails with the body attached.
func (c *Client) Do(ctx context.Context, method, path string, params url.Values, signed bool) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if !c.breaker.Allow() {
		return nil, fmt.Errorf("mexc circuit open, request rejected")
	}

	data, err := c.do(ctx, method, path, params, signed)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, err
	}
	c.breaker.RecordSuccess()
	return data, nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, signed bool) (json.RawMessage, error) {
	if params == nil {
		params = url.Values{}
	}

	var qs string
	if signed {
		params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		qs = c.signer.Sign(params)
	} else {
		qs = params.Encode()
	}

	u := c.baseURL + path
	if qs != "" {
		u += "?" + qs
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MEXC-APIKEY", c.signer.APIKey())
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mexc request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("mexc read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		reset := rateLimitReset(resp.Header)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(reset):
		}
		return nil, &domain.RateLimitError{Venue: "mexc", ResetIn: reset}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if apiErr := embeddedError(raw); apiErr != nil {
			return nil, apiErr
		}
		return nil, fmt.Errorf("mexc HTTP %d %s. Body=%s", resp.StatusCode, resp.Status, string(raw))
	}

	// A 2xx reply can still carry a venue error code.
	if apiErr := embeddedError(raw); apiErr != nil {
		return nil, apiErr
	}

	return raw, nil
}

// embeddedError extracts {code, msg} error bodies. A zero or 200 code
// is the venue's success sentinel.
func embeddedError(raw []byte) *APIError {
	var probe struct {
		Code *int64 `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || probe.Code == nil {
		return nil
	}
	if *probe.Code == 0 || *probe.Code == 200 {
		return nil
	}
	return &APIError{Code: *probe.Code, Msg: probe.Msg, Body: string(raw)}
}

func rateLimitReset(h http.Header) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if sec, err := strconv.ParseInt(v, 10, 64); err == nil && sec > 0 {
			d := time.Duration(sec) * time.Second
			if d > maxRateLimitWait {
				return maxRateLimitWait
			}
			return d
		}
	}
	return time.Second
}
