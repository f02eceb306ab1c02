// Package txbit talks to the Txbit REST API. It handles rate limiting,
// request signing and the {success, message, result} envelope, and hands the
// raw result container to the normalizers untouched.
package txbit

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"cryptonorm/config"
	"cryptonorm/internal/metrics"
	"cryptonorm/logger"
)

const maxBodyBytes = 16 << 20

// APIError is returned for non-2xx responses and for envelopes whose success
// flag is false.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 && e.StatusCode != http.StatusOK {
		return fmt.Sprintf("txbit %s: http %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("txbit %s: %s", e.Endpoint, e.Message)
}

// Result is the result container of one response. Present is false when the
// envelope had no result or a null result.
type Result struct {
	Endpoint string
	Raw      []byte
	Present  bool
	Body     []byte
}

// Client is safe for concurrent use. All requests share one rate limiter.
type Client struct {
	venue      string
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	limiter    *rate.Limiter
	lastNonce  int64
	log        *logger.Log
}

func NewClient(venue config.VenueConfig, reader config.ReaderConfig) *Client {
	var limiter *rate.Limiter
	if rl := reader.RateLimit; rl.RequestsPerSecond > 0 {
		burst := rl.BurstSize
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), burst)
	}

	c := &Client{
		venue:      venue.Profile.VenueID,
		baseURL:    strings.TrimRight(venue.BaseURL, "/"),
		apiKey:     venue.APIKey,
		apiSecret:  venue.APISecret,
		httpClient: newHTTPClient(venue, reader),
		limiter:    limiter,
		log:        logger.GetLogger(),
	}

	c.log.WithComponent("txbit_client").WithFields(logger.Fields{
		"base_url":   c.baseURL,
		"rate_limit": reader.RateLimit.RequestsPerSecond,
		"timeout":    reader.Timeout,
		"signed":     c.apiKey != "",
	}).Info("txbit client initialized")

	return c
}

// HasCredentials reports whether account endpoints can be called.
func (c *Client) HasCredentials() bool {
	return c.apiKey != "" && c.apiSecret != ""
}

func (c *Client) nonce() int64 {
	for {
		now := time.Now().UnixMilli()
		last := atomic.LoadInt64(&c.lastNonce)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&c.lastNonce, last, now) {
			return now
		}
	}
}

// Get calls endpoint (for example "public/getmarkets") and returns its
// result container.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values, signed bool) (Result, error) {
	if params == nil {
		params = url.Values{}
	}
	log := c.log.WithComponent("txbit_client").WithFields(logger.Fields{"endpoint": endpoint})

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Result{}, fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	full := c.baseURL + "/" + endpoint
	sig := ""
	if signed {
		if !c.HasCredentials() {
			return Result{}, fmt.Errorf("txbit %s: api key and secret are required", endpoint)
		}
		full, sig = sign(full, params, c.apiKey, c.apiSecret, c.nonce())
	} else if len(params) > 0 {
		full += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build request: %w", err)
	}
	if sig != "" {
		req.Header.Set(signHeader, sig)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.IncRequest(c.venue, endpoint, "error")
		return Result{}, fmt.Errorf("txbit %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.IncRequest(c.venue, endpoint, "error")
		return Result{}, fmt.Errorf("txbit %s: read body: %w", endpoint, err)
	}

	logger.LogPerformanceEntry(log, "txbit_client", "get", time.Since(start), logger.Fields{"status": resp.StatusCode})

	res, err := decodeEnvelope(endpoint, resp.StatusCode, body)
	if err != nil {
		metrics.IncRequest(c.venue, endpoint, "error")
		log.WithError(err).Warn("request failed")
		return Result{}, err
	}
	metrics.IncRequest(c.venue, endpoint, "ok")
	return res, nil
}

func decodeEnvelope(endpoint string, status int, body []byte) (Result, error) {
	if status < 200 || status >= 300 {
		msg := gjson.GetBytes(body, "message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(body))
			if len(msg) > 256 {
				msg = msg[:256]
			}
		}
		return Result{}, &APIError{Endpoint: endpoint, StatusCode: status, Message: msg}
	}
	if !gjson.ValidBytes(body) {
		return Result{}, &APIError{Endpoint: endpoint, StatusCode: status, Message: "response is not valid json"}
	}
	if success := gjson.GetBytes(body, "success"); success.Exists() && !success.Bool() {
		return Result{}, &APIError{Endpoint: endpoint, StatusCode: status, Message: gjson.GetBytes(body, "message").String()}
	}

	result := gjson.GetBytes(body, "result")
	res := Result{Endpoint: endpoint, Body: body}
	if result.Exists() && result.Type != gjson.Null {
		res.Raw = []byte(result.Raw)
		res.Present = true
	}
	return res, nil
}
