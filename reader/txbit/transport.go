package txbit

import (
	"net/http"

	"cryptonorm/config"
)

type userAgentTransport struct {
	agent string
	base  http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	req.Header.Set("Accept", "application/json")
	return t.base.RoundTrip(req)
}

func newHTTPClient(venue config.VenueConfig, reader config.ReaderConfig) *http.Client {
	pool := reader.ConnectionPool
	var base http.RoundTripper = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        pool.MaxIdleConns,
		MaxIdleConnsPerHost: pool.MaxIdleConns,
		MaxConnsPerHost:     pool.MaxConnsPerHost,
		IdleConnTimeout:     pool.IdleConnTimeout,
	}
	if venue.UserAgent != "" {
		base = userAgentTransport{agent: venue.UserAgent, base: base}
	}
	return &http.Client{Transport: base, Timeout: reader.Timeout}
}
