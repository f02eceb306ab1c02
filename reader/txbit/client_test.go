package txbit

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptonorm/config"
)

func testConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.Venue.BaseURL = baseURL
	cfg.Venue.APIKey = "key"
	cfg.Venue.APISecret = "secret"
	cfg.Reader.Timeout = time.Second
	cfg.Reader.RateLimit = config.RateLimitConfig{}
	return &cfg
}

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *config.Config) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := testConfig(srv.URL)
	return NewClient(cfg.Venue, cfg.Reader), cfg
}

func TestMarketsUnwrapsResult(t *testing.T) {
	var gotPath, gotAgent string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte(`{"success":true,"message":"","result":[{"MarketName":"ETH/BTC","IsActive":true}]}`))
	})

	res, err := c.Markets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/public/getmarkets", gotPath)
	assert.Equal(t, "cryptonorm", gotAgent)
	assert.True(t, res.Present)

	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(res.Raw, &list))
	require.Len(t, list, 1)
	assert.Equal(t, "ETH/BTC", list[0]["MarketName"])
}

func TestNullResultIsNotPresent(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"message":"","result":null}`))
	})

	res, err := c.OrderBook(context.Background(), "ETH/BTC", 0)
	require.NoError(t, err)
	assert.False(t, res.Present)
	assert.Nil(t, res.Raw)
}

func TestMissingResultIsNotPresent(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"message":""}`))
	})

	res, err := c.MarketHistory(context.Background(), "ETH/BTC")
	require.NoError(t, err)
	assert.False(t, res.Present)
}

func TestUnsuccessfulEnvelope(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"message":"INVALID_MARKET","result":null}`))
	})

	_, err := c.MarketSummary(context.Background(), "NOPE/BTC")
	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "INVALID_MARKET", apiErr.Message)
	assert.Equal(t, pathMarketSummary, apiErr.Endpoint)
}

func TestHTTPErrorStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("maintenance"))
	})

	_, err := c.MarketSummaries(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "maintenance", apiErr.Message)
}

func TestInvalidJSONBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>`))
	})

	_, err := c.Markets(context.Background())
	require.Error(t, err)
}

func TestOrderBookParams(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "ETH/BTC", q.Get("market"))
		assert.Equal(t, "both", q.Get("type"))
		assert.Equal(t, "5", q.Get("depth"))
		w.Write([]byte(`{"success":true,"result":{"buy":[],"sell":[]}}`))
	})

	res, err := c.OrderBook(context.Background(), "ETH/BTC", 5)
	require.NoError(t, err)
	assert.JSONEq(t, `{"buy":[],"sell":[]}`, string(res.Raw))
}

func TestSignedRequest(t *testing.T) {
	var sigOK bool
	var q map[string][]string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		full := "http://" + r.Host + r.URL.RequestURI()
		mac := hmac.New(sha512.New, []byte("secret"))
		mac.Write([]byte(full))
		sigOK = r.Header.Get(signHeader) == hex.EncodeToString(mac.Sum(nil))
		q = r.URL.Query()
		w.Write([]byte(`{"success":true,"result":[]}`))
	})

	_, err := c.Orders(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, sigOK, "signature mismatch")
	assert.Equal(t, []string{"key"}, q["apikey"])
	assert.Equal(t, []string{AllMarkets}, q["market"])
	assert.Equal(t, []string{"ALL"}, q["orderstatus"])
	assert.NotEmpty(t, q["nonce"])
}

func TestSignedRequestRequiresCredentials(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Venue.APIKey = ""
	cfg.Venue.APISecret = ""
	c := NewClient(cfg.Venue, cfg.Reader)

	_, err := c.DepositHistory(context.Background(), "BTC")
	require.Error(t, err)
	assert.False(t, called)
	assert.False(t, c.HasCredentials())
}

func TestNonceIsMonotonic(t *testing.T) {
	c := &Client{}
	prev := c.nonce()
	for i := 0; i < 100; i++ {
		n := c.nonce()
		require.Greater(t, n, prev)
		prev = n
	}
}
