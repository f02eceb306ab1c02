package processor

import (
	"cryptonorm/internal/extract"
	"cryptonorm/models"
)

// ParseTicker converts one market summary. The symbol comes from the raw
// market id when there is one, otherwise from market. A market id that cannot
// be resolved is returned as an error.
func (e *Engine) ParseTicker(raw models.Raw, market *models.Market, markets models.MarketsByID) (models.Ticker, error) {
	f := e.profile.Tickers

	symbol := ""
	if id, ok := extract.String(raw, f.MarketID); ok && id != "" {
		s, err := e.resolver.SymbolFromID(id, markets)
		if err != nil {
			return models.Ticker{}, err
		}
		symbol = s
	}
	if symbol == "" && market != nil {
		symbol = market.Symbol
	}

	ts := e.timestamp(raw, models.KindTicker, f.Timestamp, false)
	previous := e.float(raw, models.KindTicker, f.PrevDay)
	last := e.float(raw, models.KindTicker, f.Last)

	change := sub(last, previous)
	var percentage *float64
	if change != nil && *previous > 0 {
		percentage = mul(div(change, previous), ptr(100))
	}

	return models.Ticker{
		Symbol:      symbol,
		Timestamp:   ts,
		Datetime:    extract.ISO8601(ts),
		High:        e.float(raw, models.KindTicker, f.High),
		Low:         e.float(raw, models.KindTicker, f.Low),
		Bid:         e.float(raw, models.KindTicker, f.Bid),
		Ask:         e.float(raw, models.KindTicker, f.Ask),
		Open:        previous,
		Close:       clone(last),
		Last:        last,
		Change:      change,
		Percentage:  percentage,
		BaseVolume:  e.float(raw, models.KindTicker, f.BaseVolume),
		QuoteVolume: e.float(raw, models.KindTicker, f.QuoteVolume),
		Info:        raw,
	}, nil
}

func ptr(f float64) *float64 { return &f }

func clone(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
