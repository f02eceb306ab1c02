package processor

import (
	"time"

	"cryptonorm/config"
	"cryptonorm/models"
)

func newTestEngine() *Engine {
	return NewEngine(config.DefaultTxbitProfile())
}

func ms(layout, value string) int64 {
	t, err := time.Parse(layout, value)
	if err != nil {
		panic(err)
	}
	return t.UnixMilli()
}

func ethBTC() *models.Market {
	return &models.Market{ID: "ETH/BTC", Symbol: "ETH/BTC", Base: "ETH", Quote: "BTC", BaseID: "ETH", QuoteID: "BTC"}
}

type staticMarkets struct {
	byID     models.MarketsByID
	bySymbol map[string]*models.Market
}

func newStaticMarkets(markets ...models.Market) *staticMarkets {
	byID, bySymbol := IndexMarkets(markets)
	return &staticMarkets{byID: byID, bySymbol: bySymbol}
}

func (s *staticMarkets) ByID() models.MarketsByID { return s.byID }

func (s *staticMarkets) BySymbol(symbol string) (*models.Market, bool) {
	m, ok := s.bySymbol[symbol]
	return m, ok
}
