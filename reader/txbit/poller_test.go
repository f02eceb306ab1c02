package txbit

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptonorm/internal/channel"
	"cryptonorm/models"
)

type lookup map[string]*models.Market

func (l lookup) BySymbol(symbol string) (*models.Market, bool) {
	m, ok := l[symbol]
	return m, ok
}

func TestPollerMarketID(t *testing.T) {
	cfg := testConfig("http://unused")
	cfg.Venue.Profile.MarketIDSeparator = "_"
	p := NewPoller(cfg, nil, lookup{"ETH/BTC": {ID: "ETH-BTC", Symbol: "ETH/BTC"}}, nil)

	assert.Equal(t, "ETH-BTC", p.MarketID("ETH/BTC"))
	assert.Equal(t, "LTC_BTC", p.MarketID("LTC/BTC"))
}

func TestPollerJobsSkipDisabledIntervals(t *testing.T) {
	cfg := testConfig("http://unused")
	cfg.Venue.BookIntervalMs = 0
	p := NewPoller(cfg, NewClient(cfg.Venue, cfg.Reader), nil, nil)

	kinds := []models.Kind{}
	for _, j := range p.jobs() {
		kinds = append(kinds, j.kind)
	}
	assert.Equal(t, []models.Kind{models.KindTicker, models.KindTrade}, kinds)
}

func TestPollForwardsResult(t *testing.T) {
	c, cfg := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/public/getmarkethistory", r.URL.Path)
		assert.Equal(t, "ETH/BTC", r.URL.Query().Get("market"))
		w.Write([]byte(`{"success":true,"result":[{"Id":1}]}`))
	})
	ch := channel.NewChannels(1, 1)
	p := NewPoller(cfg, c, nil, ch)
	p.ctx = context.Background()

	p.poll("ETH/BTC", pollJob{kind: models.KindTrade, interval: time.Second, fetch: c.MarketHistory})

	select {
	case msg := <-ch.Raw:
		assert.Equal(t, "txbit", msg.Venue)
		assert.Equal(t, models.KindTrade, msg.Kind)
		assert.Equal(t, "ETH/BTC", msg.Symbol)
		assert.JSONEq(t, `[{"Id":1}]`, string(msg.Data))
		assert.False(t, msg.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
}

func TestPollForwardsNullForMissingResult(t *testing.T) {
	c, cfg := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"result":null}`))
	})
	ch := channel.NewChannels(1, 1)
	p := NewPoller(cfg, c, nil, ch)
	p.ctx = context.Background()

	p.poll("ETH/BTC", pollJob{kind: models.KindOrderBook, interval: time.Second, fetch: func(ctx context.Context, id string) (Result, error) {
		return c.OrderBook(ctx, id, 10)
	}})

	msg := <-ch.Raw
	assert.Equal(t, "null", string(msg.Data))
}

func TestPollerStartStop(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:0")
	cfg.Venue.Symbols = []string{"ETH/BTC"}
	cfg.Venue.TickerIntervalMs = 60000
	cfg.Venue.TradeIntervalMs = 60000
	p := NewPoller(cfg, NewClient(cfg.Venue, cfg.Reader), nil, channel.NewChannels(4, 4))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.Start(ctx))
	require.Error(t, p.Start(ctx))
	cancel()
	p.Stop()
}
